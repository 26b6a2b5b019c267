// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"strings"
	"time"
)

// Key defines the field mapping to retrieve a record from storage.
type Key struct {
	// Bucket is a collection of records, typically a tenant+resource-type
	// namespace such as "acme_IAM_ROLES".
	Bucket string `json:"bucket" dynamodbav:"bucket"`

	// ID is the unique ID for a record in a bucket, typically an ARN or
	// equivalent resource identifier.
	ID string `json:"id" dynamodbav:"id"`
}

// Record is one cached inventory item: a role, bucket, queue, topic, policy,
// organization node, or a tenant's configuration document.
type Record struct {
	// ID is how the record is referred to within its bucket.
	ID string `json:"id" dynamodbav:"-"`

	// Tenant is the customer this record belongs to.
	Tenant string `json:"tenant" dynamodbav:"tenant"`

	// AccountID is the cloud account the record was collected from.
	// Empty for records not tied to a single account.
	AccountID string `json:"account_id,omitempty" dynamodbav:"account_id,omitempty"`

	// Data is an abstract json object.
	Data map[string]interface{} `json:"data" dynamodbav:"data"`

	// ExpiresAt is the absolute expiry of the record. The zero value means
	// the record does not expire. Any read of an expired record is treated
	// as absent.
	ExpiresAt time.Time `json:"expires_at,omitempty" dynamodbav:"-"`

	// LastUpdated is when the record was last written by a collection job.
	LastUpdated time.Time `json:"last_updated" dynamodbav:"last_updated,unixtime"`
}

// Snapshot is a durable, cross-region copy of an entire resource type's
// record set for one tenant. It is written by the active region after a
// successful fan-out round and read by passive regions and cold starts.
type Snapshot struct {
	Tenant       string            `json:"tenant"`
	ResourceType string            `json:"resource_type"`
	TakenAt      time.Time         `json:"taken_at"`
	Records      map[string]Record `json:"records"`
}

// Namespace returns the hot-store namespace for a tenant and resource type,
// in the form {tenant}_{RESOURCE_TYPE}.
func Namespace(tenant, resourceType string) string {
	return tenant + "_" + strings.ToUpper(resourceType)
}
