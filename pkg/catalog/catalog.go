// Package catalog defines the contracts the value codec consumes from the
// surrounding engine: type metadata lookup and per-type text input/output.
// Implementations live under pkg/catalogs.
package catalog

import (
	"fmt"

	"github.com/pgstar/pgstar/pkg/datum"
)

// Category classifies a type the way the engine's type system does.
type Category byte

const (
	CategoryArray     Category = 'A'
	CategoryBoolean   Category = 'B'
	CategoryComposite Category = 'C'
	CategoryDateTime  Category = 'D'
	CategoryNumeric   Category = 'N'
	CategoryPseudo    Category = 'P'
	CategoryString    Category = 'S'
	CategoryUser      Category = 'U'
	CategoryBitString Category = 'V'
	CategoryUnknown   Category = 'X'
)

// Layout is the physical description of one type.
type Layout struct {
	Len      int16 // byte length, -1 for variable width
	ByVal    bool
	Align    byte // 'c', 's', 'i' or 'd'
	Category Category
	IsDomain bool
}

// Field is one declared field of a composite row type.
type Field struct {
	Name    string
	TypeOID uint32
}

// Catalog resolves type metadata by OID.
type Catalog interface {
	// LookupLayout returns the physical layout and category of a type.
	LookupLayout(oid uint32) (Layout, error)

	// LookupElementType returns the element type of an array type, or 0 if
	// the type system records none.
	LookupElementType(arrayOID uint32) (uint32, error)

	// LookupDomainBase returns the base type and declared name of a domain.
	LookupDomainBase(domainOID uint32) (base uint32, name string, err error)

	// LookupRowFields returns the declared fields of a composite type, in
	// declaration order.
	LookupRowFields(compositeOID uint32) ([]Field, error)
}

// TextIO is the engine's per-type text input/output function surface.
// Validation failures are reported as *DatabaseError carrying the engine's
// own code and message.
type TextIO interface {
	ParseText(oid uint32, text string) (datum.Datum, error)
	RenderText(oid uint32, d datum.Datum) (string, error)
}

// LookupError reports an unknown OID or a missing piece of type metadata.
type LookupError struct {
	OID  uint32
	What string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("catalog lookup failed for type %d: %s", e.OID, e.What)
}

// DatabaseError is an error surfaced verbatim from the engine: a SQLSTATE
// code plus its message. It must never be re-wrapped lossily.
type DatabaseError struct {
	Code    string
	Message string
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("%s (SQLSTATE %s)", e.Message, e.Code)
}

// SQLSTATE codes the built-in text IO implementations raise.
const (
	CodeInvalidTextRepresentation = "22P02"
	CodeNumericValueOutOfRange    = "22003"
	CodeDatetimeFieldOverflow     = "22008"
	CodeUndefinedObject           = "42704"
	CodeFeatureNotSupported       = "0A000"
)
