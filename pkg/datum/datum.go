// Package datum defines the storage value model: one Go type per physical
// representation the engine can hand to or accept from the value codec.
package datum

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/pgstar/pgstar/pkg/jsonb"
)

// Datum is a single stored value for one column or field. Nullness is carried
// out of band as an explicit flag; a nil Datum never appears on its own.
type Datum interface {
	datum()
}

// Bool is the boolean storage type.
type Bool bool

// Int2, Int4 and Int8 are the three signed integer widths.
type (
	Int2 int16
	Int4 int32
	Int8 int64
)

// Float4 and Float8 are the two floating widths.
type (
	Float4 float32
	Float8 float64
)

// OID is an object identifier value.
type OID uint32

// Numeric is an arbitrary-precision numeric value.
type Numeric struct {
	Dec apd.Decimal
}

// Date counts days since the engine epoch (2000-01-01).
type Date int32

// Timestamp counts microseconds since the engine epoch (2000-01-01 00:00:00).
// Both the with-zone and without-zone types share this representation.
type Timestamp int64

// Text is a text-like value: bytes in the database's configured encoding.
type Text struct {
	Varlena
}

// Bytea is a raw byte string.
type Bytea struct {
	Varlena
}

// JSON is a JSON document kept in its text form, database-encoded.
type JSON struct {
	Varlena
}

// JSONB is a JSON document in its parsed binary-tree form.
type JSONB struct {
	Root *jsonb.Node
}

// Array is the flattened multi-element representation. Elems and Nulls run in
// row-major order; Dims gives the extent per dimension and Lower the lower
// bound per dimension (1-based for arrays built by the codec).
type Array struct {
	ElemOID uint32
	Dims    []int
	Lower   []int
	Elems   []Datum
	Nulls   []bool
}

// NDims returns the number of dimensions.
func (a *Array) NDims() int { return len(a.Dims) }

// HasNulls reports whether any element is null.
func (a *Array) HasNulls() bool {
	for _, n := range a.Nulls {
		if n {
			return true
		}
	}
	return false
}

// Len returns the flat element count.
func (a *Array) Len() int { return len(a.Elems) }

// Row is a composite value: one Datum per declared field, in declaration
// order, with a parallel null-flag slice.
type Row struct {
	TypeOID uint32
	Values  []Datum
	Nulls   []bool
}

func (Bool) datum()      {}
func (Int2) datum()      {}
func (Int4) datum()      {}
func (Int8) datum()      {}
func (Float4) datum()    {}
func (Float8) datum()    {}
func (OID) datum()       {}
func (Numeric) datum()   {}
func (Date) datum()      {}
func (Timestamp) datum() {}
func (Text) datum()      {}
func (Bytea) datum()     {}
func (JSON) datum()      {}
func (JSONB) datum()     {}
func (*Array) datum()    {}
func (*Row) datum()      {}

// NewNumeric wraps d in a Numeric datum.
func NewNumeric(d *apd.Decimal) Numeric {
	var n Numeric
	n.Dec.Set(d)
	return n
}

// NewText builds an inline Text datum from database-encoded bytes.
func NewText(b []byte) Text { return Text{Varlena: inline(b)} }

// NewBytea builds an inline Bytea datum.
func NewBytea(b []byte) Bytea { return Bytea{Varlena: inline(b)} }

// NewJSON builds an inline JSON text datum.
func NewJSON(b []byte) JSON { return JSON{Varlena: inline(b)} }
