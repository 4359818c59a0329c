// Package memory provides the in-process catalog: a registry of the builtin
// types the codec dispatches on, extendable with domains and composite row
// types, plus native text input/output for every registered type.
package memory

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pgstar/pgstar/pkg/catalog"
)

// OIDs for the recognized external-array domain aliases. A real installation
// creates these domains at extension install time; here they are builtin.
const (
	DomainInt2ArrayOID   = 16385
	DomainInt4ArrayOID   = 16386
	DomainInt8ArrayOID   = 16387
	DomainFloat4ArrayOID = 16388
	DomainFloat8ArrayOID = 16389
)

type entry struct {
	oid        uint32
	name       string
	layout     catalog.Layout
	elem       uint32 // element type for arrays
	domainBase uint32 // base type for domains
	fields     []catalog.Field
}

// Catalog is an in-memory type registry. It implements both catalog.Catalog
// and catalog.TextIO.
type Catalog struct {
	types  map[uint32]*entry
	byName map[string]uint32
}

// New returns a catalog pre-loaded with the builtin types.
func New() *Catalog {
	c := &Catalog{
		types:  make(map[uint32]*entry),
		byName: make(map[string]uint32),
	}
	c.registerBuiltins()
	return c
}

func (c *Catalog) add(e *entry) {
	c.types[e.oid] = e
	c.byName[e.name] = e.oid
}

func (c *Catalog) registerBuiltins() {
	scalar := func(oid uint32, name string, length int16, byval bool, align byte, cat catalog.Category) {
		c.add(&entry{oid: oid, name: name, layout: catalog.Layout{
			Len: length, ByVal: byval, Align: align, Category: cat,
		}})
	}
	array := func(oid uint32, name string, elem uint32) {
		c.add(&entry{oid: oid, name: name, elem: elem, layout: catalog.Layout{
			Len: -1, Align: 'i', Category: catalog.CategoryArray,
		}})
	}

	scalar(pgtype.BoolOID, "bool", 1, true, 'c', catalog.CategoryBoolean)
	scalar(pgtype.ByteaOID, "bytea", -1, false, 'i', catalog.CategoryUser)
	scalar(pgtype.Int8OID, "int8", 8, true, 'd', catalog.CategoryNumeric)
	scalar(pgtype.Int2OID, "int2", 2, true, 's', catalog.CategoryNumeric)
	scalar(pgtype.Int4OID, "int4", 4, true, 'i', catalog.CategoryNumeric)
	scalar(pgtype.TextOID, "text", -1, false, 'i', catalog.CategoryString)
	scalar(pgtype.OIDOID, "oid", 4, true, 'i', catalog.CategoryNumeric)
	scalar(pgtype.JSONOID, "json", -1, false, 'i', catalog.CategoryUser)
	scalar(pgtype.XMLOID, "xml", -1, false, 'i', catalog.CategoryUser)
	scalar(pgtype.Float4OID, "float4", 4, true, 'i', catalog.CategoryNumeric)
	scalar(pgtype.Float8OID, "float8", 8, true, 'd', catalog.CategoryNumeric)
	scalar(pgtype.UnknownOID, "unknown", -2, false, 'c', catalog.CategoryUnknown)
	scalar(pgtype.BPCharOID, "bpchar", -1, false, 'i', catalog.CategoryString)
	scalar(pgtype.VarcharOID, "varchar", -1, false, 'i', catalog.CategoryString)
	scalar(pgtype.DateOID, "date", 4, true, 'i', catalog.CategoryDateTime)
	scalar(pgtype.TimestampOID, "timestamp", 8, true, 'd', catalog.CategoryDateTime)
	scalar(pgtype.TimestamptzOID, "timestamptz", 8, true, 'd', catalog.CategoryDateTime)
	scalar(pgtype.NumericOID, "numeric", -1, false, 'i', catalog.CategoryNumeric)
	scalar(pgtype.RecordOID, "record", -1, false, 'd', catalog.CategoryPseudo)
	scalar(pgtype.JSONBOID, "jsonb", -1, false, 'i', catalog.CategoryUser)

	array(pgtype.BoolArrayOID, "_bool", pgtype.BoolOID)
	array(pgtype.ByteaArrayOID, "_bytea", pgtype.ByteaOID)
	array(pgtype.Int2ArrayOID, "_int2", pgtype.Int2OID)
	array(pgtype.Int4ArrayOID, "_int4", pgtype.Int4OID)
	array(pgtype.TextArrayOID, "_text", pgtype.TextOID)
	array(pgtype.BPCharArrayOID, "_bpchar", pgtype.BPCharOID)
	array(pgtype.VarcharArrayOID, "_varchar", pgtype.VarcharOID)
	array(pgtype.Int8ArrayOID, "_int8", pgtype.Int8OID)
	array(pgtype.Float4ArrayOID, "_float4", pgtype.Float4OID)
	array(pgtype.Float8ArrayOID, "_float8", pgtype.Float8OID)
	array(pgtype.TimestampArrayOID, "_timestamp", pgtype.TimestampOID)
	array(pgtype.DateArrayOID, "_date", pgtype.DateOID)
	array(pgtype.TimestamptzArrayOID, "_timestamptz", pgtype.TimestamptzOID)
	array(pgtype.NumericArrayOID, "_numeric", pgtype.NumericOID)
	array(pgtype.JSONArrayOID, "_json", pgtype.JSONOID)
	array(pgtype.JSONBArrayOID, "_jsonb", pgtype.JSONBOID)
	array(pgtype.RecordArrayOID, "_record", pgtype.RecordOID)

	for _, d := range []struct {
		oid  uint32
		name string
		base uint32
	}{
		{DomainInt2ArrayOID, "pgstar_int2array", pgtype.Int2ArrayOID},
		{DomainInt4ArrayOID, "pgstar_int4array", pgtype.Int4ArrayOID},
		{DomainInt8ArrayOID, "pgstar_int8array", pgtype.Int8ArrayOID},
		{DomainFloat4ArrayOID, "pgstar_float4array", pgtype.Float4ArrayOID},
		{DomainFloat8ArrayOID, "pgstar_float8array", pgtype.Float8ArrayOID},
	} {
		if err := c.RegisterDomain(d.oid, d.name, d.base); err != nil {
			panic(err) // builtin registration cannot collide
		}
	}
}

// RegisterDomain adds a domain over base. The domain inherits the base
// layout with the domain flag set.
func (c *Catalog) RegisterDomain(oid uint32, name string, base uint32) error {
	b, ok := c.types[base]
	if !ok {
		return &catalog.LookupError{OID: base, What: "domain base type not registered"}
	}
	if _, dup := c.types[oid]; dup {
		return fmt.Errorf("memory: type %d already registered", oid)
	}
	layout := b.layout
	layout.IsDomain = true
	c.add(&entry{oid: oid, name: name, layout: layout, elem: b.elem, domainBase: base})
	return nil
}

// RegisterRowType adds a composite type with the given ordered fields.
func (c *Catalog) RegisterRowType(oid uint32, name string, fields []catalog.Field) error {
	if _, dup := c.types[oid]; dup {
		return fmt.Errorf("memory: type %d already registered", oid)
	}
	for _, f := range fields {
		if _, ok := c.types[f.TypeOID]; !ok {
			return &catalog.LookupError{OID: f.TypeOID, What: fmt.Sprintf("field %q type not registered", f.Name)}
		}
	}
	c.add(&entry{oid: oid, name: name, fields: append([]catalog.Field(nil), fields...), layout: catalog.Layout{
		Len: -1, Align: 'd', Category: catalog.CategoryComposite,
	}})
	return nil
}

// OIDByName resolves a registered type name.
func (c *Catalog) OIDByName(name string) (uint32, bool) {
	oid, ok := c.byName[name]
	return oid, ok
}

// NameByOID resolves a registered OID's name.
func (c *Catalog) NameByOID(oid uint32) (string, bool) {
	e, ok := c.types[oid]
	if !ok {
		return "", false
	}
	return e.name, true
}

// LookupLayout implements catalog.Catalog.
func (c *Catalog) LookupLayout(oid uint32) (catalog.Layout, error) {
	e, ok := c.types[oid]
	if !ok {
		return catalog.Layout{}, &catalog.LookupError{OID: oid, What: "unknown type"}
	}
	return e.layout, nil
}

// LookupElementType implements catalog.Catalog. It returns 0 for a known
// type that has no element type.
func (c *Catalog) LookupElementType(arrayOID uint32) (uint32, error) {
	e, ok := c.types[arrayOID]
	if !ok {
		return 0, &catalog.LookupError{OID: arrayOID, What: "unknown type"}
	}
	return e.elem, nil
}

// LookupDomainBase implements catalog.Catalog.
func (c *Catalog) LookupDomainBase(domainOID uint32) (uint32, string, error) {
	e, ok := c.types[domainOID]
	if !ok {
		return 0, "", &catalog.LookupError{OID: domainOID, What: "unknown type"}
	}
	if e.domainBase == 0 {
		return 0, "", &catalog.LookupError{OID: domainOID, What: "not a domain"}
	}
	return e.domainBase, e.name, nil
}

// LookupRowFields implements catalog.Catalog.
func (c *Catalog) LookupRowFields(compositeOID uint32) ([]catalog.Field, error) {
	e, ok := c.types[compositeOID]
	if !ok {
		return nil, &catalog.LookupError{OID: compositeOID, What: "unknown type"}
	}
	if e.fields == nil {
		return nil, &catalog.LookupError{OID: compositeOID, What: "not a composite type"}
	}
	return append([]catalog.Field(nil), e.fields...), nil
}

// Entry is a row of the registry, exposed for seeding persistent catalogs.
type Entry struct {
	OID        uint32
	Name       string
	Layout     catalog.Layout
	ElemOID    uint32
	DomainBase uint32
	Fields     []catalog.Field
}

// Entries returns a snapshot of every registered type.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.types))
	for _, e := range c.types {
		out = append(out, Entry{
			OID:        e.oid,
			Name:       e.name,
			Layout:     e.layout,
			ElemOID:    e.elem,
			DomainBase: e.domainBase,
			Fields:     append([]catalog.Field(nil), e.fields...),
		})
	}
	return out
}
