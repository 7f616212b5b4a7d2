// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package htype

import (
	"fmt"
	"time"

	"github.com/bureau-foundation/mosaic/lib/codec"
	"github.com/bureau-foundation/mosaic/lib/ref"
)

// Encode returns the deterministic CBOR encoding of value as type t.
func Encode(t Type, value any) ([]byte, error) {
	wire, err := toWire(t, value)
	if err != nil {
		return nil, err
	}
	data, err := codec.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", t, err)
	}
	return data, nil
}

// Decode decodes data produced by Encode with the same type.
func Decode(t Type, data []byte) (any, error) {
	var raw any
	if err := codec.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", t, err)
	}
	return fromWire(t, raw)
}

func shapeError(t Type, value any) error {
	return fmt.Errorf("%w: %T is not a %s", ErrValueShape, value, t)
}

// toWire converts a value into the generic shape handed to the CBOR
// encoder.
func toWire(t Type, value any) (any, error) {
	switch typ := t.(type) {
	case *Primitive:
		return primitiveToWire(typ, value)
	case *RefType:
		r, ok := value.(ref.Ref)
		if !ok || r.IsZero() {
			return nil, shapeError(t, value)
		}
		return r, nil
	case *Optional:
		if value == nil {
			return nil, nil
		}
		return toWire(typ.Base, value)
	case *List:
		items, ok := value.([]any)
		if !ok {
			return nil, shapeError(t, value)
		}
		out := make([]any, len(items))
		for i, item := range items {
			converted, err := toWire(typ.Element, item)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", t, i, err)
			}
			out[i] = converted
		}
		return out, nil
	case *Record:
		record, ok := value.(*RecordValue)
		if !ok || record == nil || !Equal(record.T, typ) {
			return nil, shapeError(t, value)
		}
		fields := typ.AllFields()
		out := make([]any, len(fields))
		for i, field := range fields {
			fieldValue, present := record.Fields[field.Name]
			if !present || fieldValue == nil {
				if field.Type.Kind() != KindOptional {
					return nil, fmt.Errorf("%w: %s.%s is required", ErrValueShape, t, field.Name)
				}
				continue
			}
			converted, err := toWire(field.Type, fieldValue)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", t, field.Name, err)
			}
			out[i] = converted
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unknown type %T", ErrValueShape, t)
}

func primitiveToWire(p *Primitive, value any) (any, error) {
	switch p {
	case String:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case Int:
		if n, ok := asInt64(value); ok {
			return n, nil
		}
	case Bool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case Bytes:
		if b, ok := value.([]byte); ok {
			if b == nil {
				return []byte{}, nil
			}
			return b, nil
		}
	case DateTime:
		if ts, ok := value.(time.Time); ok {
			return ts.UnixNano(), nil
		}
	}
	return nil, shapeError(p, value)
}

// fromWire converts a generically decoded CBOR item back into a value
// of type t.
func fromWire(t Type, raw any) (any, error) {
	switch typ := t.(type) {
	case *Primitive:
		return primitiveFromWire(typ, raw)
	case *RefType:
		r, err := ref.FromWire(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValueShape, err)
		}
		return r, nil
	case *Optional:
		if raw == nil {
			return nil, nil
		}
		return fromWire(typ.Base, raw)
	case *List:
		items, ok := raw.([]any)
		if !ok {
			return nil, shapeError(t, raw)
		}
		out := make([]any, len(items))
		for i, item := range items {
			converted, err := fromWire(typ.Element, item)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", t, i, err)
			}
			out[i] = converted
		}
		return out, nil
	case *Record:
		items, ok := raw.([]any)
		if !ok {
			return nil, shapeError(t, raw)
		}
		fields := typ.AllFields()
		if len(items) != len(fields) {
			return nil, fmt.Errorf("%w: %s has %d fields, encoding has %d", ErrValueShape, t, len(fields), len(items))
		}
		value := NewRecordValue(typ, make(map[string]any, len(fields)))
		for i, field := range fields {
			converted, err := fromWire(field.Type, items[i])
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", t, field.Name, err)
			}
			if converted != nil {
				value.Fields[field.Name] = converted
			}
		}
		return value, nil
	}
	return nil, fmt.Errorf("%w: unknown type %T", ErrValueShape, t)
}

func primitiveFromWire(p *Primitive, raw any) (any, error) {
	switch p {
	case String:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case Int:
		if n, ok := asInt64(raw); ok {
			return n, nil
		}
	case Bool:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	case Bytes:
		if b, ok := raw.([]byte); ok {
			return b, nil
		}
	case DateTime:
		if n, ok := asInt64(raw); ok {
			return time.Unix(0, n).UTC(), nil
		}
	}
	return nil, shapeError(p, raw)
}
