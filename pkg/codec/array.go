package codec

import (
	"encoding/binary"
	"math"

	"go.starlark.net/starlark"

	"github.com/pgstar/pgstar/pkg/datum"
)

// toArrayDatum converts a runtime sequence to an array datum. A typed view
// produced from a stored array round-trips back to that same array without
// being re-scanned.
func (cv conv) toArrayDatum(v starlark.Value, desc *TypeDescriptor) (datum.Datum, bool, error) {
	tag := classify(v)
	if tag == tagNone {
		return nil, true, nil
	}

	if tag == tagView {
		view := v.(*ArrayView)
		if desc.ExtArray != KindNone && view.kind == desc.ExtArray {
			if arr, ok := view.origin.(*datum.Array); ok {
				return arr, false, nil
			}
			// User-built view: decode the packed buffer element-wise.
			return arrayFromView(view)
		}
	}

	if !tag.isSequence() {
		return nil, false, conversionErrf("value is not an array")
	}

	elemDesc := desc.Elem
	if elemDesc == nil {
		// An external alias descriptor carries the element kind instead of
		// a resolved element type.
		elemOID := elemOIDForKind(desc.ExtArray)
		if elemOID == 0 {
			return nil, false, &ResolutionError{OID: desc.OID, Msg: "cannot determine element type of array"}
		}
		var err error
		elemDesc, err = cv.Resolve(elemOID, cv.scope)
		if err != nil {
			return nil, false, err
		}
	}

	seq := v.(starlark.Sequence)
	n := seq.Len()
	elems := make([]datum.Datum, n)
	nulls := make([]bool, n)

	iter := seq.Iterate()
	defer iter.Done()
	var el starlark.Value
	for i := 0; iter.Next(&el); i++ {
		d, isnull, err := cv.toDatum(el, elemDesc)
		if err != nil {
			return nil, false, inContext(err, "array element %d", i)
		}
		elems[i] = d
		nulls[i] = isnull
	}

	return &datum.Array{
		ElemOID: elemDesc.OID,
		Dims:    []int{n},
		Lower:   []int{1},
		Elems:   elems,
		Nulls:   nulls,
	}, false, nil
}

// arrayFromView expands a user-built typed view into an array datum of the
// view's natural element type.
func arrayFromView(view *ArrayView) (datum.Datum, bool, error) {
	n := view.Len()
	size := view.kind.ElemSize()
	elems := make([]datum.Datum, n)
	le := binary.LittleEndian
	for i := 0; i < n; i++ {
		off := i * size
		switch view.kind {
		case KindInt8:
			elems[i] = datum.Int2(int8(view.data[off]))
		case KindUint8:
			elems[i] = datum.Int2(view.data[off])
		case KindInt16:
			elems[i] = datum.Int2(int16(le.Uint16(view.data[off:])))
		case KindUint16:
			elems[i] = datum.Int2(int16(le.Uint16(view.data[off:])))
		case KindInt32:
			elems[i] = datum.Int4(int32(le.Uint32(view.data[off:])))
		case KindUint32:
			elems[i] = datum.Int4(int32(le.Uint32(view.data[off:])))
		case KindInt64:
			elems[i] = datum.Int8(int64(le.Uint64(view.data[off:])))
		case KindFloat32:
			elems[i] = datum.Float4(math.Float32frombits(le.Uint32(view.data[off:])))
		case KindFloat64:
			elems[i] = datum.Float8(math.Float64frombits(le.Uint64(view.data[off:])))
		default:
			return nil, false, conversionErrf("unexpected external array kind %s", view.kind)
		}
	}
	return &datum.Array{
		ElemOID: elemOIDForKind(view.kind),
		Dims:    []int{n},
		Lower:   []int{1},
		Elems:   elems,
		Nulls:   make([]bool, n),
	}, false, nil
}

// toArrayValue converts an array datum to a runtime value. Externally
// aliased element types take the packed-buffer fast path; everything else
// flattens to a list in storage order.
func (cv conv) toArrayValue(d datum.Datum, desc *TypeDescriptor) (starlark.Value, error) {
	arr, ok := d.(*datum.Array)
	if !ok {
		return nil, conversionErrf("stored value %T is not an array", d)
	}

	if desc.ExtArray != KindNone {
		if arr.NDims() > 1 {
			return nil, conversionErrf("argument must be a one-dimensional array")
		}
		if arr.HasNulls() {
			return nil, conversionErrf("argument must not contain nulls")
		}
		return viewFromArray(arr, desc.ExtArray)
	}

	elemDesc := desc.Elem
	if elemDesc == nil {
		return nil, &ResolutionError{OID: desc.OID, Msg: "cannot determine element type of array"}
	}

	out := make([]starlark.Value, arr.Len())
	for i := range arr.Elems {
		var isnull bool
		if arr.Nulls != nil {
			isnull = arr.Nulls[i]
		}
		v, err := cv.toValue(arr.Elems[i], isnull, elemDesc)
		if err != nil {
			return nil, inContext(err, "array element %d", i)
		}
		out[i] = v
	}
	return starlark.NewList(out), nil
}
