package codec

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pgstar/pgstar/internal/arena"
	"github.com/pgstar/pgstar/pkg/catalog"
	"github.com/pgstar/pgstar/pkg/datum"
)

// ExternalArrayKind is the enumerated typed-buffer capability a descriptor
// can carry. KindNone means the type has no external array mapping.
type ExternalArrayKind int

const (
	KindNone ExternalArrayKind = iota
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindFloat32
	KindFloat64
	KindInt64
)

func (k ExternalArrayKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInt8:
		return "int8"
	case KindUint8:
		return "uint8"
	case KindInt16:
		return "int16"
	case KindUint16:
		return "uint16"
	case KindInt32:
		return "int32"
	case KindUint32:
		return "uint32"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindInt64:
		return "int64"
	}
	return "invalid"
}

// ElemSize returns the byte width of one element.
func (k ExternalArrayKind) ElemSize() int {
	switch k {
	case KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32:
		return 4
	case KindFloat64, KindInt64:
		return 8
	}
	return 0
}

// The fixed set of domain names recognized as external array aliases.
var externalArrayAliases = map[string]ExternalArrayKind{
	"pgstar_int2array":   KindInt16,
	"pgstar_int4array":   KindInt32,
	"pgstar_int8array":   KindInt64,
	"pgstar_float4array": KindFloat32,
	"pgstar_float8array": KindFloat64,
}

// TypeDescriptor is the resolved, immutable description of one target type.
// For arrays, Elem describes the element type; multi-dimensional arrays are
// flattened to one dimension by this codec, so Elem is never itself an
// array.
type TypeDescriptor struct {
	OID         uint32
	Category    catalog.Category
	Len         int16
	ByVal       bool
	Align       byte
	IsComposite bool
	Elem        *TypeDescriptor
	ExtArray    ExternalArrayKind

	// Text IO handles, resolved lazily and memoized for the lifetime of the
	// owning scope.
	parseText  func(string) (datum.Datum, error)
	renderText func(datum.Datum) (string, error)
}

// IsArray reports whether the descriptor targets an array type.
func (d *TypeDescriptor) IsArray() bool {
	return d.Category == catalog.CategoryArray || d.OID == pgtype.RecordArrayOID
}

// Resolver produces descriptors from catalog metadata, caching them per
// arena scope. A cache entry dies with its scope.
type Resolver struct {
	cat    catalog.Catalog
	caches map[*arena.Scope]map[uint32]*TypeDescriptor
}

// NewResolver returns a resolver over cat.
func NewResolver(cat catalog.Catalog) *Resolver {
	return &Resolver{
		cat:    cat,
		caches: make(map[*arena.Scope]map[uint32]*TypeDescriptor),
	}
}

// Resolve produces the descriptor for oid, valid for the lifetime of scope.
func (r *Resolver) Resolve(oid uint32, scope *arena.Scope) (*TypeDescriptor, error) {
	r.sweep()
	cache := r.caches[scope]
	if cache == nil {
		cache = make(map[uint32]*TypeDescriptor)
		r.caches[scope] = cache
	}
	if d, ok := cache[oid]; ok {
		return d, nil
	}
	d, err := r.resolve(oid)
	if err != nil {
		return nil, err
	}
	cache[oid] = d
	return d, nil
}

func (r *Resolver) resolve(oid uint32) (*TypeDescriptor, error) {
	layout, err := r.cat.LookupLayout(oid)
	if err != nil {
		return nil, err
	}

	d := &TypeDescriptor{
		OID:      oid,
		Category: layout.Category,
		Len:      layout.Len,
		ByVal:    layout.ByVal,
		Align:    layout.Align,
	}
	d.IsComposite = layout.Category == catalog.CategoryComposite

	if layout.IsDomain {
		base, name, err := r.cat.LookupDomainBase(oid)
		if err != nil {
			return nil, err
		}
		if kind, ok := externalArrayAliases[name]; ok {
			// Recognized alias: the capability replaces layout resolution of
			// the base type entirely.
			d.ExtArray = kind
			return d, nil
		}
		// Plain domain: unwrap to the base type for layout purposes.
		baseLayout, err := r.cat.LookupLayout(base)
		if err != nil {
			return nil, err
		}
		d.OID = base
		d.Category = baseLayout.Category
		d.Len = baseLayout.Len
		d.ByVal = baseLayout.ByVal
		d.Align = baseLayout.Align
		d.IsComposite = baseLayout.Category == catalog.CategoryComposite
	}

	if d.Category == catalog.CategoryArray || d.OID == pgtype.RecordArrayOID {
		elemOID, err := r.cat.LookupElementType(d.OID)
		if err != nil {
			return nil, err
		}
		if elemOID == 0 {
			return nil, &ResolutionError{OID: d.OID, Msg: "cannot determine element type of array"}
		}
		elem, err := r.resolve(elemOID)
		if err != nil {
			return nil, &ResolutionError{OID: d.OID, Msg: "resolving element type", Err: err}
		}
		d.Elem = elem
	}
	return d, nil
}

// sweep drops cache entries owned by scopes that have been torn down.
func (r *Resolver) sweep() {
	for scope := range r.caches {
		if scope.Closed() {
			delete(r.caches, scope)
		}
	}
}
