// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package tenantconf gives typed, nested-path CRUD over each tenant's
// configuration document. One document per tenant is persisted as a whole
// in the authoritative record store; every mutation is a read-modify-write
// of the entire document, last write wins.
package tenantconf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/xmidt-org/panoptes/docpath"
	"github.com/xmidt-org/panoptes/model"
	"github.com/xmidt-org/panoptes/store"
	"go.uber.org/zap"
)

// Bucket holds one record per tenant, keyed by tenant name.
const Bucket = "tenant-config"

// compositeKeySeparator joins the identifying key values of a list entry.
// Entry keys may contain dots, so paths below a list use explicit segments.
const compositeKeySeparator = "::"

// keyEscaper keeps composite keys injective: with every ":" in a value
// escaped, the separator can only ever come from the join, so distinct
// identities can never collide on one key.
var keyEscaper = strings.NewReplacer(`\`, `\\`, ":", `\:`)

var (
	ErrNotFound = errors.New("no configuration entry matched")
)

// ShapeMismatchError indicates a stored value exists at a path but is not a
// mapping, so it cannot hold the requested shape. This usually means the
// path was used inconsistently for two different shapes.
type ShapeMismatchError struct {
	Tenant string
	Path   string
	Reason error
}

func (e ShapeMismatchError) Error() string {
	return fmt.Sprintf("configuration at %q for tenant %q does not have the expected shape: %v", e.Path, e.Tenant, e.Reason)
}

func (e ShapeMismatchError) Unwrap() error {
	return e.Reason
}

// NotFoundError indicates a list-collection lookup matched nothing. Callers
// serving HTTP map this to a 404.
type NotFoundError struct {
	Tenant string
	Path   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("no entry under %q for tenant %q", e.Path, e.Tenant)
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ListSpec locates a list-valued collection inside the configuration
// document. Entries live in a mapping keyed by composite identity rather
// than a sequence, so identity lookup is a single path step.
type ListSpec struct {
	// Path is the dotted path to the collection mapping.
	Path string

	// IdentifyingKeys is the ordered set of entry fields whose values form
	// the composite identity of an entry. Two entries with equal values for
	// every identifying key are the same entry.
	IdentifyingKeys []string
}

// Adapter reads and writes tenant configuration documents.
type Adapter struct {
	records  store.Records
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

func New(records store.Records, logger *zap.Logger) *Adapter {
	return &Adapter{
		records:  records,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		now:      time.Now,
	}
}

func key(tenant string) model.Key {
	return model.Key{Bucket: Bucket, ID: tenant}
}

// document fetches a tenant's full configuration document. A tenant with
// no document yet yields an empty one.
func (a *Adapter) document(ctx context.Context, tenant string) (map[string]interface{}, error) {
	record, err := a.records.Get(ctx, key(tenant))
	if errors.Is(err, store.ErrRecordNotFound) {
		return map[string]interface{}{}, nil
	}
	if err != nil {
		return nil, err
	}
	if record.Data == nil {
		return map[string]interface{}{}, nil
	}
	return record.Data, nil
}

func (a *Adapter) save(ctx context.Context, tenant string, doc map[string]interface{}) error {
	return a.records.Push(ctx, key(tenant), model.Record{
		ID:          tenant,
		Tenant:      tenant,
		Data:        doc,
		LastUpdated: a.now(),
	})
}

// Tenants lists every tenant that has a configuration document.
func (a *Adapter) Tenants(ctx context.Context) ([]string, error) {
	records, err := a.records.GetAll(ctx, Bucket)
	if err != nil {
		return nil, err
	}
	tenants := make([]string, 0, len(records))
	for tenant := range records {
		tenants = append(tenants, tenant)
	}
	return tenants, nil
}

// Value reads a raw value at a dotted path, falling back to def when the
// path does not resolve.
func (a *Adapter) Value(ctx context.Context, tenant, path string, def interface{}) (interface{}, error) {
	doc, err := a.document(ctx, tenant)
	if err != nil {
		return def, err
	}
	return docpath.Get(doc, path, def), nil
}

// Delete removes the leaf at path. When deleteRoot is set, the first path
// segment and everything under it is removed instead. The returned bool
// reports whether anything existed there.
func (a *Adapter) Delete(ctx context.Context, tenant, path string, deleteRoot bool) (bool, error) {
	doc, err := a.document(ctx, tenant)
	if err != nil {
		return false, err
	}
	if deleteRoot {
		path = docpath.Split(path)[0]
	}
	if !docpath.Delete(doc, path) {
		return false, nil
	}
	return true, a.save(ctx, tenant, doc)
}

// Load reads the value at path and coerces it into T. A path that does not
// resolve yields the zero T with no error; a value of the wrong shape
// yields a ShapeMismatchError.
func Load[T any](ctx context.Context, a *Adapter, tenant, path string) (T, error) {
	var instance T
	doc, err := a.document(ctx, tenant)
	if err != nil {
		return instance, err
	}
	raw := docpath.Get(doc, path, nil)
	if raw == nil {
		return instance, nil
	}
	if _, ok := raw.(map[string]interface{}); !ok {
		return instance, ShapeMismatchError{Tenant: tenant, Path: path,
			Reason: fmt.Errorf("stored value is %T, not a mapping", raw)}
	}
	if err := decode(raw, &instance); err != nil {
		return instance, ShapeMismatchError{Tenant: tenant, Path: path, Reason: err}
	}
	if err := a.validate.Struct(instance); err != nil {
		return instance, ShapeMismatchError{Tenant: tenant, Path: path, Reason: err}
	}
	return instance, nil
}

// Store validates instance and writes it at path, creating intermediate
// mappings as needed, then persists the whole document back.
func Store[T any](ctx context.Context, a *Adapter, tenant, path string, instance T) error {
	if err := a.validate.Struct(instance); err != nil {
		return err
	}
	encoded, err := encode(instance)
	if err != nil {
		return err
	}
	doc, err := a.document(ctx, tenant)
	if err != nil {
		return err
	}
	docpath.Set(doc, path, encoded)
	return a.save(ctx, tenant, doc)
}

// UpsertInList replaces or inserts instance in the collection at spec.Path,
// keyed by its composite identity. Upserting the same identity twice leaves
// exactly one entry, holding the latest payload.
func UpsertInList[T any](ctx context.Context, a *Adapter, tenant string, spec ListSpec, instance T) error {
	if err := a.validate.Struct(instance); err != nil {
		return err
	}
	encoded, err := encode(instance)
	if err != nil {
		return err
	}
	composite, err := compositeKey(encoded, spec.IdentifyingKeys)
	if err != nil {
		return err
	}
	doc, err := a.document(ctx, tenant)
	if err != nil {
		return err
	}
	docpath.SetPath(doc, append(docpath.Split(spec.Path), composite), encoded)
	return a.save(ctx, tenant, doc)
}

// DeleteInList removes the entry whose identifying key values equal
// identity. The returned bool reports whether an entry existed.
func DeleteInList(ctx context.Context, a *Adapter, tenant string, spec ListSpec, identity map[string]interface{}) (bool, error) {
	composite, err := compositeKey(identity, spec.IdentifyingKeys)
	if err != nil {
		return false, err
	}
	doc, err := a.document(ctx, tenant)
	if err != nil {
		return false, err
	}
	if !docpath.DeletePath(doc, append(docpath.Split(spec.Path), composite)) {
		return false, nil
	}
	return true, a.save(ctx, tenant, doc)
}

// QueryInList returns every entry in the collection whose encoded fields
// match all of filter. A nil filter returns all entries. Entries that fail
// to decode into T are skipped with a log line rather than failing the
// whole query.
func QueryInList[T any](ctx context.Context, a *Adapter, tenant string, spec ListSpec, filter map[string]interface{}) ([]T, error) {
	doc, err := a.document(ctx, tenant)
	if err != nil {
		return nil, err
	}
	raw := docpath.Get(doc, spec.Path, nil)
	if raw == nil {
		return nil, nil
	}
	entries, ok := raw.(map[string]interface{})
	if !ok {
		return nil, ShapeMismatchError{Tenant: tenant, Path: spec.Path,
			Reason: fmt.Errorf("stored collection is %T, not a mapping", raw)}
	}

	var results []T
	for composite, entry := range entries {
		fields, ok := entry.(map[string]interface{})
		if !ok || !matches(fields, filter) {
			continue
		}
		var instance T
		if err := decode(fields, &instance); err != nil {
			a.logger.Warn("skipping undecodable configuration entry",
				zap.String("tenant", tenant),
				zap.String("path", spec.Path),
				zap.String("entry", composite),
				zap.Error(err))
			continue
		}
		results = append(results, instance)
	}
	return results, nil
}

// FirstOrError returns one entry matching filter, or a NotFoundError when
// nothing matches.
func FirstOrError[T any](ctx context.Context, a *Adapter, tenant string, spec ListSpec, filter map[string]interface{}) (T, error) {
	results, err := QueryInList[T](ctx, a, tenant, spec, filter)
	if err != nil {
		var zero T
		return zero, err
	}
	if len(results) == 0 {
		var zero T
		return zero, NotFoundError{Tenant: tenant, Path: spec.Path}
	}
	return results[0], nil
}

func compositeKey(fields map[string]interface{}, identifyingKeys []string) (string, error) {
	if len(identifyingKeys) == 0 {
		return "", errors.New("at least one identifying key is required")
	}
	parts := make([]string, 0, len(identifyingKeys))
	for _, k := range identifyingKeys {
		v, ok := fields[k]
		if !ok || v == nil || v == "" {
			return "", fmt.Errorf("identifying key %q has no value", k)
		}
		parts = append(parts, keyEscaper.Replace(fmt.Sprintf("%v", v)))
	}
	return strings.Join(parts, compositeKeySeparator), nil
}

func matches(fields, filter map[string]interface{}) bool {
	for k, want := range filter {
		if fields[k] != want {
			return false
		}
	}
	return true
}

func decode(raw interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      target,
		ErrorUnused: false,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

// encode flattens a struct into the plain mapping stored inside the
// document, so that reads without the schema still see ordinary nested
// maps.
func encode(instance interface{}) (map[string]interface{}, error) {
	var encoded map[string]interface{}
	if err := decode(instance, &encoded); err != nil {
		return nil, err
	}
	return encoded, nil
}
