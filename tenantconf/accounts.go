// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package tenantconf

import (
	"context"
)

// SpokeAccount is one cloud account registered under a tenant. The
// assumable role is the identity inventory collection assumes into the
// account with.
type SpokeAccount struct {
	Name          string `mapstructure:"name" validate:"required"`
	AccountID     string `mapstructure:"account_id" validate:"required,len=12,number"`
	AssumableRole string `mapstructure:"role_name" validate:"required"`
	Environment   string `mapstructure:"environment" validate:"omitempty,oneof=production staging development"`
}

// SpokeAccounts locates the registered account collection. Name and
// account id together identify an entry.
var SpokeAccounts = ListSpec{
	Path:            "spoke_accounts",
	IdentifyingKeys: []string{"name", "account_id"},
}

// Accounts returns every spoke account registered for a tenant.
func (a *Adapter) Accounts(ctx context.Context, tenant string) ([]SpokeAccount, error) {
	return QueryInList[SpokeAccount](ctx, a, tenant, SpokeAccounts, nil)
}

// AssumableRole looks up the role to assume for one of a tenant's
// accounts. A missing registration yields a NotFoundError; for inventory
// jobs that is a permanent condition, not a retryable one.
func (a *Adapter) AssumableRole(ctx context.Context, tenant, accountID string) (string, error) {
	account, err := FirstOrError[SpokeAccount](ctx, a, tenant, SpokeAccounts,
		map[string]interface{}{"account_id": accountID})
	if err != nil {
		return "", err
	}
	return account.AssumableRole, nil
}
