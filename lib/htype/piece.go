// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package htype

import (
	"fmt"

	"github.com/bureau-foundation/mosaic/lib/ref"
)

// TypeOfTypes is the type ref carried by every type descriptor
// capsule. It is phony: the descriptor record types are builtin and
// never stored.
var TypeOfTypes = ref.Phony("type")

// FieldDescT describes one record field inside a type descriptor.
var FieldDescT = &Record{
	Module: "builtin",
	Name:   "field_desc",
	Fields: []Field{
		{Name: "name", Type: String},
		{Name: "type", Type: Ref},
	},
}

// TypeDescT is the record type of stored type descriptors.
var TypeDescT = &Record{
	Module: "builtin",
	Name:   "type_desc",
	Fields: []Field{
		{Name: "kind", Type: String},
		{Name: "module", Type: String},
		{Name: "name", Type: String},
		{Name: "base", Type: NewOptional(Ref)},
		{Name: "element", Type: NewOptional(Ref)},
		{Name: "fields", Type: NewList(FieldDescT)},
	},
}

// TypeRefFunc returns the ref of a type's stored descriptor, storing
// it first if needed.
type TypeRefFunc func(Type) (ref.Ref, error)

// TypeResolver returns the type whose descriptor has the given ref.
type TypeResolver func(ref.Ref) (Type, error)

// ToPiece returns the descriptor of t. Sub-types (optional base, list
// element, record base and field types) are referenced through
// typeRef.
func ToPiece(t Type, typeRef TypeRefFunc) (*RecordValue, error) {
	piece := NewRecordValue(TypeDescT, map[string]any{
		"kind":   string(t.Kind()),
		"module": "",
		"name":   "",
		"fields": []any{},
	})
	switch typ := t.(type) {
	case *Primitive:
		piece.Fields["name"] = typ.name
	case *RefType:
	case *Optional:
		element, err := typeRef(typ.Base)
		if err != nil {
			return nil, fmt.Errorf("optional base %s: %w", typ.Base, err)
		}
		piece.Fields["element"] = element
	case *List:
		element, err := typeRef(typ.Element)
		if err != nil {
			return nil, fmt.Errorf("list element %s: %w", typ.Element, err)
		}
		piece.Fields["element"] = element
	case *Record:
		piece.Fields["module"] = typ.Module
		piece.Fields["name"] = typ.Name
		if typ.Base != nil {
			base, err := typeRef(typ.Base)
			if err != nil {
				return nil, fmt.Errorf("base of %s: %w", typ, err)
			}
			piece.Fields["base"] = base
		}
		fields := make([]any, len(typ.Fields))
		for i, field := range typ.Fields {
			fieldRef, err := typeRef(field.Type)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", typ, field.Name, err)
			}
			fields[i] = NewRecordValue(FieldDescT, map[string]any{
				"name": field.Name,
				"type": fieldRef,
			})
		}
		piece.Fields["fields"] = fields
	default:
		return nil, fmt.Errorf("%w: unknown type %T", ErrValueShape, t)
	}
	return piece, nil
}

// FromPiece rebuilds a type from its descriptor, resolving sub-type
// refs through resolve.
func FromPiece(piece *RecordValue, resolve TypeResolver) (Type, error) {
	if piece == nil || !Equal(piece.T, TypeDescT) {
		return nil, fmt.Errorf("%w: not a type descriptor", ErrValueShape)
	}
	subType := func(field string) (Type, error) {
		r, ok := piece.Fields[field].(ref.Ref)
		if !ok {
			return nil, fmt.Errorf("%w: descriptor missing %s", ErrValueShape, field)
		}
		t, err := resolve(r)
		if err != nil {
			return nil, fmt.Errorf("resolving %s %s: %w", field, r.Short(), err)
		}
		return t, nil
	}

	switch Kind(piece.StringField("kind")) {
	case KindPrimitive:
		name := piece.StringField("name")
		p, ok := PrimitiveByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown primitive %q", ErrValueShape, name)
		}
		return p, nil
	case KindRef:
		return Ref, nil
	case KindOptional:
		base, err := subType("element")
		if err != nil {
			return nil, err
		}
		return NewOptional(base), nil
	case KindList:
		element, err := subType("element")
		if err != nil {
			return nil, err
		}
		return NewList(element), nil
	case KindRecord, KindException:
		record := &Record{
			Module:    piece.StringField("module"),
			Name:      piece.StringField("name"),
			Exception: Kind(piece.StringField("kind")) == KindException,
		}
		if _, hasBase := piece.Fields["base"]; hasBase {
			base, err := subType("base")
			if err != nil {
				return nil, err
			}
			baseRecord, ok := base.(*Record)
			if !ok {
				return nil, fmt.Errorf("%w: base of %s is %s, not a record", ErrValueShape, record, base.Kind())
			}
			record.Base = baseRecord
		}
		fields, _ := piece.Fields["fields"].([]any)
		for i, item := range fields {
			fieldDesc, ok := item.(*RecordValue)
			if !ok {
				return nil, fmt.Errorf("%w: field %d of %s", ErrValueShape, i, record)
			}
			fieldRef, ok := fieldDesc.Get("type").(ref.Ref)
			if !ok {
				return nil, fmt.Errorf("%w: field %d of %s has no type", ErrValueShape, i, record)
			}
			fieldType, err := resolve(fieldRef)
			if err != nil {
				return nil, fmt.Errorf("resolving %s.%s: %w", record, fieldDesc.StringField("name"), err)
			}
			record.Fields = append(record.Fields, Field{Name: fieldDesc.StringField("name"), Type: fieldType})
		}
		return record, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrValueShape, piece.StringField("kind"))
}
