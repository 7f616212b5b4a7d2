// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package htype

import (
	"errors"
	"fmt"
	"time"

	"github.com/bureau-foundation/mosaic/lib/ref"
)

var (
	// ErrCannotDeduce is returned by Deduce for values whose type
	// cannot be inferred without context: lists and nil.
	ErrCannotDeduce = errors.New("htype: cannot deduce type")

	// ErrValueShape is returned when a value does not match the type
	// it is being encoded, decoded or walked as.
	ErrValueShape = errors.New("htype: value does not match type")
)

// RecordValue is an instance of a record (or exception) type. Fields
// holds values keyed by field name; a missing key reads as nil.
type RecordValue struct {
	T      *Record
	Fields map[string]any
}

// NewRecordValue returns a value of t holding fields. The map is used
// as is, not copied.
func NewRecordValue(t *Record, fields map[string]any) *RecordValue {
	if fields == nil {
		fields = make(map[string]any)
	}
	return &RecordValue{T: t, Fields: fields}
}

// Get returns the named field's value, or nil.
func (v *RecordValue) Get(name string) any {
	return v.Fields[name]
}

// StringField returns the named field as a string, or "" if it is
// absent or not a string.
func (v *RecordValue) StringField(name string) string {
	s, _ := v.Fields[name].(string)
	return s
}

// Deduce returns the type of value. Lists and nil carry no element or
// base type and return ErrCannotDeduce.
func Deduce(value any) (Type, error) {
	switch v := value.(type) {
	case *RecordValue:
		if v == nil || v.T == nil {
			return nil, fmt.Errorf("%w: record value without type", ErrCannotDeduce)
		}
		return v.T, nil
	case string:
		return String, nil
	case int, int32, int64:
		return Int, nil
	case bool:
		return Bool, nil
	case []byte:
		return Bytes, nil
	case time.Time:
		return DateTime, nil
	case ref.Ref:
		return Ref, nil
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrCannotDeduce)
	default:
		return nil, fmt.Errorf("%w: %T", ErrCannotDeduce, value)
	}
}

// asInt64 accepts the Go integer types values are commonly built from.
func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint64:
		if v > 1<<63-1 {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}
