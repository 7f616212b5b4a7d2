// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package htype

import "slices"

// Kind classifies a type's shape. Kind names are part of the stored
// descriptor format.
type Kind string

const (
	KindPrimitive Kind = "primitive"
	KindRef       Kind = "ref"
	KindOptional  Kind = "optional"
	KindList      Kind = "list"
	KindRecord    Kind = "record"
	KindException Kind = "exception"
)

// Type is a type descriptor.
type Type interface {
	Kind() Kind
	String() string
}

// Primitive is a scalar type with no embedded refs.
type Primitive struct {
	name string
}

func (p *Primitive) Kind() Kind     { return KindPrimitive }
func (p *Primitive) String() string { return p.name }
func (p *Primitive) Name() string   { return p.name }

// The primitive types. They are singletons; compare with ==.
var (
	String   = &Primitive{name: "string"}
	Int      = &Primitive{name: "int"}
	Bool     = &Primitive{name: "bool"}
	Bytes    = &Primitive{name: "bytes"}
	DateTime = &Primitive{name: "datetime"}
)

var primitives = []*Primitive{String, Int, Bool, Bytes, DateTime}

// PrimitiveByName returns the primitive with the given descriptor
// name.
func PrimitiveByName(name string) (*Primitive, bool) {
	for _, p := range primitives {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// RefType is the type of content addresses.
type RefType struct{}

func (*RefType) Kind() Kind     { return KindRef }
func (*RefType) String() string { return "ref" }

// Ref is the ref type singleton.
var Ref = &RefType{}

// Optional is a value of Base or nil.
type Optional struct {
	Base Type
}

// NewOptional returns the optional type over base.
func NewOptional(base Type) *Optional { return &Optional{Base: base} }

func (o *Optional) Kind() Kind     { return KindOptional }
func (o *Optional) String() string { return o.Base.String() + "?" }

// List is an ordered sequence of Element values.
type List struct {
	Element Type
}

// NewList returns the list type over element.
func NewList(element Type) *List { return &List{Element: element} }

func (l *List) Kind() Kind     { return KindList }
func (l *List) String() string { return "list<" + l.Element.String() + ">" }

// Field is one declared record field.
type Field struct {
	Name string
	Type Type
}

// Record is a named record type. Fields lists only the fields declared
// on this record; AllFields includes the base chain.
type Record struct {
	Module    string
	Name      string
	Base      *Record
	Fields    []Field
	Exception bool
}

func (r *Record) Kind() Kind {
	if r.Exception {
		return KindException
	}
	return KindRecord
}

func (r *Record) String() string {
	if r.Module == "" {
		return r.Name
	}
	return r.Module + "." + r.Name
}

// AllFields returns the fields of the base chain followed by this
// record's own fields. This is the positional encoding order.
func (r *Record) AllFields() []Field {
	if r.Base == nil {
		return r.Fields
	}
	return append(slices.Clone(r.Base.AllFields()), r.Fields...)
}

// Field looks a field up by name across the base chain.
func (r *Record) Field(name string) (Field, bool) {
	for _, field := range r.AllFields() {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// IsA reports whether r is other or derives from it.
func (r *Record) IsA(other *Record) bool {
	for current := r; current != nil; current = current.Base {
		if Equal(current, other) {
			return true
		}
	}
	return false
}

// Equal reports structural equality of two types. Two separately
// constructed but identical types are equal, and encode to the same
// descriptor.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch at := a.(type) {
	case *Primitive:
		return at == b.(*Primitive)
	case *RefType:
		return true
	case *Optional:
		return Equal(at.Base, b.(*Optional).Base)
	case *List:
		return Equal(at.Element, b.(*List).Element)
	case *Record:
		bt := b.(*Record)
		if at == bt {
			return true
		}
		if at.Module != bt.Module || at.Name != bt.Name || len(at.Fields) != len(bt.Fields) {
			return false
		}
		if (at.Base == nil) != (bt.Base == nil) {
			return false
		}
		if at.Base != nil && !Equal(at.Base, bt.Base) {
			return false
		}
		for i := range at.Fields {
			if at.Fields[i].Name != bt.Fields[i].Name || !Equal(at.Fields[i].Type, bt.Fields[i].Type) {
				return false
			}
		}
		return true
	}
	return false
}
