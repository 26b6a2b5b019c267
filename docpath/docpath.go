// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package docpath

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// Separator splits a dotted path into segments.
const Separator = "."

var errEmptyPath = errors.New("path must contain at least one segment")

// MissingSegmentError is returned by DeleteStrict when a path segment does
// not resolve inside the document.
type MissingSegmentError struct {
	Segment string
	Path    []string
}

func (e MissingSegmentError) Error() string {
	return fmt.Sprintf("segment %q of path %q does not resolve", e.Segment, strings.Join(e.Path, Separator))
}

// Split breaks a dotted path into its segments. Empty segments are dropped,
// so "a..b" and "a.b" are the same path.
func Split(path string) []string {
	parts := strings.Split(path, Separator)
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// Get returns the value at the dotted path inside doc, or def when any
// segment is missing, of the wrong type, or out of range. Numeric segments
// index into slices. Get never panics and never mutates doc.
func Get(doc map[string]interface{}, path string, def interface{}) interface{} {
	return GetPath(doc, Split(path), def)
}

// GetPath is Get with an explicit segment sequence, for callers whose keys
// may themselves contain the separator.
func GetPath(doc map[string]interface{}, segments []string, def interface{}) interface{} {
	if len(segments) == 0 {
		return def
	}
	var current interface{} = doc
	for _, segment := range segments {
		switch node := current.(type) {
		case map[string]interface{}:
			value, ok := node[segment]
			if !ok {
				return def
			}
			current = value
		case []interface{}:
			index, err := cast.ToIntE(segment)
			if err != nil || index < 0 || index >= len(node) {
				return def
			}
			current = node[index]
		default:
			return def
		}
	}
	return current
}

// Set writes value at the dotted path inside doc, creating intermediate
// mappings as needed and overwriting the leaf. Intermediate values that are
// not mappings are replaced. Set mutates doc and returns the same reference.
func Set(doc map[string]interface{}, path string, value interface{}) map[string]interface{} {
	return SetPath(doc, Split(path), value)
}

// SetPath is Set with an explicit segment sequence.
func SetPath(doc map[string]interface{}, segments []string, value interface{}) map[string]interface{} {
	if len(segments) == 0 {
		return doc
	}
	node := doc
	for _, segment := range segments[:len(segments)-1] {
		child, ok := node[segment].(map[string]interface{})
		if !ok {
			child = map[string]interface{}{}
			node[segment] = child
		}
		node = child
	}
	node[segments[len(segments)-1]] = value
	return doc
}

// Delete removes the leaf at the dotted path if the full path resolves and
// reports whether anything was removed. A missing segment is a no-op.
func Delete(doc map[string]interface{}, path string) bool {
	return DeletePath(doc, Split(path))
}

// DeletePath is Delete with an explicit segment sequence.
func DeletePath(doc map[string]interface{}, segments []string) bool {
	parent, leaf, err := resolveParent(doc, segments)
	if err != nil {
		return false
	}
	delete(parent, leaf)
	return true
}

// DeleteStrict removes the leaf at the dotted path, returning a
// MissingSegmentError when any segment does not resolve.
func DeleteStrict(doc map[string]interface{}, path string) error {
	segments := Split(path)
	parent, leaf, err := resolveParent(doc, segments)
	if err != nil {
		return err
	}
	delete(parent, leaf)
	return nil
}

func resolveParent(doc map[string]interface{}, segments []string) (map[string]interface{}, string, error) {
	if len(segments) == 0 {
		return nil, "", errEmptyPath
	}
	node := doc
	for _, segment := range segments[:len(segments)-1] {
		child, ok := node[segment].(map[string]interface{})
		if !ok {
			return nil, "", MissingSegmentError{Segment: segment, Path: segments}
		}
		node = child
	}
	leaf := segments[len(segments)-1]
	if _, ok := node[leaf]; !ok {
		return nil, "", MissingSegmentError{Segment: leaf, Path: segments}
	}
	return node, leaf, nil
}
