// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"errors"
	"fmt"

	"github.com/xmidt-org/panoptes/model"
)

// Errors that can be returned by store implementations. Since some of these
// errors are returned wrapped, it is safest to use errors.Is() to check for
// them.
var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// KeyNotFoundError carries the key that failed to resolve. It matches
// ErrRecordNotFound through errors.Is.
type KeyNotFoundError struct {
	Key model.Key
}

func (e KeyNotFoundError) Error() string {
	return fmt.Sprintf("no record at bucket %q id %q", e.Key.Bucket, e.Key.ID)
}

func (e KeyNotFoundError) Is(target error) bool {
	return target == ErrRecordNotFound
}

// InternalError wraps a backend failure. Retryable marks failures that a
// caller may safely retry, such as throttling.
type InternalError struct {
	Reason    error
	Retryable bool
}

func (e InternalError) Error() string {
	return fmt.Sprintf("store operation failed: %v", e.Reason)
}

func (e InternalError) Unwrap() error {
	return e.Reason
}
