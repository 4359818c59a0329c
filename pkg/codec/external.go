package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5/pgtype"
	"go.starlark.net/starlark"

	"github.com/pgstar/pgstar/pkg/datum"
)

// ArrayView is a runtime-visible typed buffer over copied array bytes. A
// view produced by a database-to-runtime conversion remembers its
// originating datum so the round trip can recover the same value without a
// structural re-scan.
type ArrayView struct {
	kind   ExternalArrayKind
	data   []byte
	origin datum.Datum
	frozen bool
}

var (
	_ starlark.Value     = (*ArrayView)(nil)
	_ starlark.Indexable = (*ArrayView)(nil)
	_ starlark.Sequence  = (*ArrayView)(nil)
)

// NewArrayView builds a user-owned view over a copy of data.
func NewArrayView(kind ExternalArrayKind, data []byte) (*ArrayView, error) {
	if kind == KindNone {
		return nil, conversionErrf("array view requires a concrete element kind")
	}
	if len(data)%kind.ElemSize() != 0 {
		return nil, conversionErrf("%d bytes is not a whole number of %s elements", len(data), kind)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return &ArrayView{kind: kind, data: buf}, nil
}

// Kind returns the element kind.
func (v *ArrayView) Kind() ExternalArrayKind { return v.kind }

// Bytes returns the backing buffer. Callers must treat it as read-only once
// the view is frozen.
func (v *ArrayView) Bytes() []byte { return v.data }

// Origin returns the datum this view was created from, or nil for
// user-built views.
func (v *ArrayView) Origin() datum.Datum { return v.origin }

// String implements starlark.Value.
func (v *ArrayView) String() string {
	return fmt.Sprintf("<%s_array len=%d>", v.kind, v.Len())
}

// Type implements starlark.Value.
func (v *ArrayView) Type() string { return v.kind.String() + "_array" }

// Freeze implements starlark.Value.
func (v *ArrayView) Freeze() { v.frozen = true }

// Truth implements starlark.Value.
func (v *ArrayView) Truth() starlark.Bool { return starlark.Bool(v.Len() > 0) }

// Hash implements starlark.Value.
func (v *ArrayView) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: %s", v.Type())
}

// Len implements starlark.Indexable.
func (v *ArrayView) Len() int { return len(v.data) / v.kind.ElemSize() }

// Index implements starlark.Indexable.
func (v *ArrayView) Index(i int) starlark.Value {
	off := i * v.kind.ElemSize()
	le := binary.LittleEndian
	switch v.kind {
	case KindInt8:
		return starlark.MakeInt(int(int8(v.data[off])))
	case KindUint8:
		return starlark.MakeInt(int(v.data[off]))
	case KindInt16:
		return starlark.MakeInt(int(int16(le.Uint16(v.data[off:]))))
	case KindUint16:
		return starlark.MakeInt(int(le.Uint16(v.data[off:])))
	case KindInt32:
		return starlark.MakeInt(int(int32(le.Uint32(v.data[off:]))))
	case KindUint32:
		return starlark.MakeInt(int(le.Uint32(v.data[off:])))
	case KindFloat32:
		return starlark.Float(math.Float32frombits(le.Uint32(v.data[off:])))
	case KindFloat64:
		return starlark.Float(math.Float64frombits(le.Uint64(v.data[off:])))
	case KindInt64:
		return starlark.MakeInt64(int64(le.Uint64(v.data[off:])))
	}
	return starlark.None
}

// Iterate implements starlark.Sequence.
func (v *ArrayView) Iterate() starlark.Iterator { return &viewIterator{view: v} }

type viewIterator struct {
	view *ArrayView
	i    int
}

func (it *viewIterator) Next(p *starlark.Value) bool {
	if it.i >= it.view.Len() {
		return false
	}
	*p = it.view.Index(it.i)
	it.i++
	return true
}

func (it *viewIterator) Done() {}

// viewFromArray packs a single-dimension, null-free array datum into a fresh
// typed view that remembers arr as its origin. The bytes are copied exactly
// once; the stored value's backing memory cannot outlive the enclosing call.
func viewFromArray(arr *datum.Array, kind ExternalArrayKind) (*ArrayView, error) {
	size := kind.ElemSize()
	buf := make([]byte, len(arr.Elems)*size)
	le := binary.LittleEndian
	for i, e := range arr.Elems {
		off := i * size
		switch kind {
		case KindInt16:
			v, ok := e.(datum.Int2)
			if !ok {
				return nil, conversionErrf("element %d: expected int2, got %T", i, e)
			}
			le.PutUint16(buf[off:], uint16(v))
		case KindInt32:
			v, ok := e.(datum.Int4)
			if !ok {
				return nil, conversionErrf("element %d: expected int4, got %T", i, e)
			}
			le.PutUint32(buf[off:], uint32(v))
		case KindInt64:
			v, ok := e.(datum.Int8)
			if !ok {
				return nil, conversionErrf("element %d: expected int8, got %T", i, e)
			}
			le.PutUint64(buf[off:], uint64(v))
		case KindFloat32:
			v, ok := e.(datum.Float4)
			if !ok {
				return nil, conversionErrf("element %d: expected float4, got %T", i, e)
			}
			le.PutUint32(buf[off:], math.Float32bits(float32(v)))
		case KindFloat64:
			v, ok := e.(datum.Float8)
			if !ok {
				return nil, conversionErrf("element %d: expected float8, got %T", i, e)
			}
			le.PutUint64(buf[off:], math.Float64bits(float64(v)))
		default:
			return nil, conversionErrf("unexpected external array kind %s", kind)
		}
	}
	return &ArrayView{kind: kind, data: buf, origin: arr}, nil
}

// byteViewFromDatum wraps copied bytes in an unsigned-byte view remembering
// its source datum.
func byteViewFromDatum(b []byte, origin datum.Datum) *ArrayView {
	return &ArrayView{kind: KindUint8, data: b, origin: origin}
}

// elemOIDForKind maps an external kind to the element type used when a view
// is expanded element-wise instead of via the fast path.
func elemOIDForKind(kind ExternalArrayKind) uint32 {
	switch kind {
	case KindInt16, KindUint16:
		return pgtype.Int2OID
	case KindInt32, KindUint32:
		return pgtype.Int4OID
	case KindInt64:
		return pgtype.Int8OID
	case KindFloat32:
		return pgtype.Float4OID
	case KindFloat64:
		return pgtype.Float8OID
	case KindInt8, KindUint8:
		return pgtype.Int2OID
	}
	return 0
}
