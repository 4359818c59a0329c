package codec

import (
	"math"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/jackc/pgx/v5/pgtype"
	startime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"

	"github.com/pgstar/pgstar/pkg/catalog"
	"github.com/pgstar/pgstar/pkg/datum"
	"github.com/pgstar/pgstar/pkg/encoding"
)

// toScalarDatum converts one runtime value to a scalar datum. Types with no
// direct mapping, and values whose shape does not match their target's
// direct mapping, go through the engine's own text input function.
func (cv conv) toScalarDatum(v starlark.Value, desc *TypeDescriptor) (datum.Datum, bool, error) {
	if desc.IsComposite {
		return cv.toRecordDatum(v, desc)
	}

	tag := classify(v)
	if tag == tagNone {
		return nil, true, nil
	}

	switch desc.OID {
	case pgtype.OIDOID:
		if tag.isNumber() {
			i, err := cv.intValue(v, tag, "oid", 0, math.MaxUint32)
			if err != nil {
				return nil, false, err
			}
			return datum.OID(uint32(i)), false, nil
		}

	case pgtype.BoolOID:
		if tag == tagBool {
			return datum.Bool(bool(v.(starlark.Bool))), false, nil
		}

	case pgtype.Int2OID:
		if tag.isNumber() {
			i, err := cv.intValue(v, tag, "smallint", math.MinInt16, math.MaxInt16)
			if err != nil {
				return nil, false, err
			}
			return datum.Int2(int16(i)), false, nil
		}

	case pgtype.Int4OID:
		if tag.isNumber() {
			i, err := cv.intValue(v, tag, "integer", math.MinInt32, math.MaxInt32)
			if err != nil {
				return nil, false, err
			}
			return datum.Int4(int32(i)), false, nil
		}

	case pgtype.Int8OID:
		if tag == tagInt {
			// Read the exact integer representation directly; a float
			// intermediate would lose precision above 2^53.
			i := v.(starlark.Int)
			v64, ok := i.Int64()
			if !ok {
				if cv.opts.CheckIntegerOverflow {
					return nil, false, &catalog.DatabaseError{
						Code:    catalog.CodeNumericValueOutOfRange,
						Message: "bigint out of range",
					}
				}
				v64 = i.BigInt().Int64()
			}
			return datum.Int8(v64), false, nil
		}
		if tag == tagFloat {
			i, err := cv.intValue(v, tag, "bigint", math.MinInt64, math.MaxInt64)
			if err != nil {
				return nil, false, err
			}
			return datum.Int8(i), false, nil
		}

	case pgtype.Float4OID:
		if f, ok := starlark.AsFloat(v); ok {
			return datum.Float4(float32(f)), false, nil
		}

	case pgtype.Float8OID:
		if f, ok := starlark.AsFloat(v); ok {
			return datum.Float8(f), false, nil
		}

	case pgtype.NumericOID:
		if tag == tagInt {
			d, _, err := apd.NewFromString(v.(starlark.Int).String())
			if err != nil {
				return nil, false, conversionErrf("integer does not parse as numeric: %v", err)
			}
			return datum.NewNumeric(d), false, nil
		}
		if tag == tagFloat {
			var d apd.Decimal
			if _, err := d.SetFloat64(float64(v.(starlark.Float))); err != nil {
				return nil, false, conversionErrf("float does not convert to numeric: %v", err)
			}
			return datum.NewNumeric(&d), false, nil
		}

	case pgtype.DateOID:
		if tag == tagTime {
			return timeToDate(time.Time(v.(startime.Time))), false, nil
		}

	case pgtype.TimestampOID, pgtype.TimestamptzOID:
		if tag == tagTime {
			return timeToTimestamp(time.Time(v.(startime.Time))), false, nil
		}

	case pgtype.ByteaOID:
		if d, ok := byteaFromValue(v, tag); ok {
			return d, false, nil
		}

	case pgtype.JSONBOID:
		if cv.opts.JSON == JSONDirectTree {
			root, err := cv.valueToJSONBTree(v)
			if err != nil {
				return nil, false, err
			}
			return datum.JSONB{Root: root}, false, nil
		}
		if tag.isSequence() || tag.isMapping() {
			text, err := cv.jsonEncode(v)
			if err != nil {
				return nil, false, err
			}
			d, err := cv.parseWith(desc, text)
			if err != nil {
				return nil, false, err
			}
			return d, false, nil
		}

	case pgtype.JSONOID:
		if tag.isSequence() || tag.isMapping() {
			text, err := cv.jsonEncode(v)
			if err != nil {
				return nil, false, err
			}
			enc, err := cv.toDatabaseEncoding(text)
			if err != nil {
				return nil, false, err
			}
			return datum.NewJSON([]byte(enc)), false, nil
		}
	}

	// Lexical path: textual form through the engine's own input parser.
	// Its validation errors surface verbatim.
	text, err := cv.toDatabaseEncoding(stringForm(v))
	if err != nil {
		return nil, false, err
	}
	d, err := cv.parseWith(desc, text)
	if err != nil {
		return nil, false, err
	}
	return d, false, nil
}

// intValue reads a runtime number as an integer target. Floats truncate
// toward zero; out-of-range input either range-checks or truncates,
// depending on the configured overflow mode.
func (cv conv) intValue(v starlark.Value, tag valueTag, typeName string, min, max int64) (int64, error) {
	var i64 int64
	switch tag {
	case tagInt:
		var ok bool
		i64, ok = v.(starlark.Int).Int64()
		if !ok {
			if cv.opts.CheckIntegerOverflow {
				return 0, &catalog.DatabaseError{
					Code:    catalog.CodeNumericValueOutOfRange,
					Message: typeName + " out of range",
				}
			}
			i64 = v.(starlark.Int).BigInt().Int64()
		}
	case tagFloat:
		f := float64(v.(starlark.Float))
		if math.IsNaN(f) {
			f = 0
		}
		// int64(f) is not defined for out-of-range floats, so check before
		// converting. 2^63 is the smallest float64 past MaxInt64.
		if f < math.MinInt64 || f >= float64(1<<63) {
			if cv.opts.CheckIntegerOverflow {
				return 0, &catalog.DatabaseError{
					Code:    catalog.CodeNumericValueOutOfRange,
					Message: typeName + " out of range",
				}
			}
			if f > 0 {
				i64 = math.MaxInt64
			} else {
				i64 = math.MinInt64
			}
			break
		}
		i64 = int64(f)
	}
	if i64 < min || i64 > max {
		if cv.opts.CheckIntegerOverflow {
			return 0, &catalog.DatabaseError{
				Code:    catalog.CodeNumericValueOutOfRange,
				Message: typeName + " out of range",
			}
		}
		// Truncating mode: narrow like a plain cast.
		switch {
		case max == math.MaxInt16:
			i64 = int64(int16(i64))
		case max == math.MaxInt32:
			i64 = int64(int32(i64))
		case max == math.MaxUint32:
			i64 = int64(uint32(i64))
		}
	}
	return i64, nil
}

// byteaFromValue accepts byte-string input in priority order: 8-bit views,
// 16-bit views, 32-bit views, a generic binary buffer, then a pre-existing
// externally-tagged reference recovered without a copy.
func byteaFromValue(v starlark.Value, tag valueTag) (datum.Datum, bool) {
	if tag == tagView {
		view := v.(*ArrayView)
		switch view.kind {
		case KindInt8, KindUint8, KindInt16, KindUint16, KindInt32, KindUint32:
			buf := make([]byte, len(view.data))
			copy(buf, view.data)
			return datum.NewBytea(buf), true
		default:
			if b, ok := view.origin.(datum.Bytea); ok {
				return b, true
			}
		}
		return nil, false
	}
	if tag == tagBytes {
		return datum.NewBytea([]byte(v.(starlark.Bytes))), true
	}
	return nil, false
}

// toScalarValue converts one scalar datum to a runtime value.
func (cv conv) toScalarValue(d datum.Datum, desc *TypeDescriptor) (starlark.Value, error) {
	switch desc.OID {
	case pgtype.OIDOID:
		v, ok := d.(datum.OID)
		if !ok {
			return nil, conversionErrf("stored value %T is not an oid", d)
		}
		return starlark.MakeUint64(uint64(v)), nil

	case pgtype.BoolOID:
		v, ok := d.(datum.Bool)
		if !ok {
			return nil, conversionErrf("stored value %T is not a boolean", d)
		}
		return starlark.Bool(v), nil

	case pgtype.Int2OID:
		v, ok := d.(datum.Int2)
		if !ok {
			return nil, conversionErrf("stored value %T is not a smallint", d)
		}
		return starlark.MakeInt(int(v)), nil

	case pgtype.Int4OID:
		v, ok := d.(datum.Int4)
		if !ok {
			return nil, conversionErrf("stored value %T is not an integer", d)
		}
		return starlark.MakeInt(int(v)), nil

	case pgtype.Int8OID:
		v, ok := d.(datum.Int8)
		if !ok {
			return nil, conversionErrf("stored value %T is not a bigint", d)
		}
		if cv.opts.Int64 == Int64Graceful {
			if v > math.MaxInt32 || v < math.MinInt32 {
				return starlark.String(strconv.FormatInt(int64(v), 10)), nil
			}
			return starlark.Float(float64(v)), nil
		}
		return starlark.MakeInt64(int64(v)), nil

	case pgtype.Float4OID:
		v, ok := d.(datum.Float4)
		if !ok {
			return nil, conversionErrf("stored value %T is not a real", d)
		}
		return starlark.Float(float64(v)), nil

	case pgtype.Float8OID:
		v, ok := d.(datum.Float8)
		if !ok {
			return nil, conversionErrf("stored value %T is not a double precision", d)
		}
		return starlark.Float(float64(v)), nil

	case pgtype.NumericOID:
		v, ok := d.(datum.Numeric)
		if !ok {
			return nil, conversionErrf("stored value %T is not a numeric", d)
		}
		f, _ := v.Dec.Float64()
		return starlark.Float(f), nil

	case pgtype.DateOID:
		v, ok := d.(datum.Date)
		if !ok {
			return nil, conversionErrf("stored value %T is not a date", d)
		}
		return startime.Time(dateToTime(v)), nil

	case pgtype.TimestampOID, pgtype.TimestamptzOID:
		v, ok := d.(datum.Timestamp)
		if !ok {
			return nil, conversionErrf("stored value %T is not a timestamp", d)
		}
		return startime.Time(timestampToTime(v)), nil

	case pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID, pgtype.XMLOID:
		v, ok := d.(datum.Text)
		if !ok {
			return nil, conversionErrf("stored value %T is not a text value", d)
		}
		b, _, err := v.Detoast()
		if err != nil {
			return nil, err
		}
		s, err := cv.fromDatabaseEncoding(b)
		if err != nil {
			return nil, err
		}
		return starlark.String(s), nil

	case pgtype.ByteaOID:
		v, ok := d.(datum.Bytea)
		if !ok {
			return nil, conversionErrf("stored value %T is not a bytea", d)
		}
		// Always a fresh copy; the stored bytes' lifetime is shorter than
		// the runtime value's.
		b, err := v.DetoastCopy()
		if err != nil {
			return nil, err
		}
		return byteViewFromDatum(b, d), nil

	case pgtype.JSONOID:
		v, ok := d.(datum.JSON)
		if !ok {
			return nil, conversionErrf("stored value %T is not a json document", d)
		}
		b, _, err := v.Detoast()
		if err != nil {
			return nil, err
		}
		s, err := cv.fromDatabaseEncoding(b)
		if err != nil {
			return nil, err
		}
		return cv.jsonDecode(s)

	case pgtype.JSONBOID:
		v, ok := d.(datum.JSONB)
		if !ok {
			return nil, conversionErrf("stored value %T is not a jsonb document", d)
		}
		return cv.jsonbValue(v)
	}

	// No direct mapping: textual form through the engine's output function.
	text, err := cv.renderWith(desc, d)
	if err != nil {
		return nil, err
	}
	s, err := cv.fromDatabaseEncoding([]byte(text))
	if err != nil {
		return nil, err
	}
	return starlark.String(s), nil
}

// stringForm is the runtime's textual form of a value: the raw string for
// strings, the value's display form otherwise.
func stringForm(v starlark.Value) string {
	if s, ok := starlark.AsString(v); ok {
		return s
	}
	return v.String()
}

// parseWith runs the memoized text input function for the descriptor.
func (cv conv) parseWith(desc *TypeDescriptor, text string) (datum.Datum, error) {
	if desc.parseText == nil {
		oid := desc.OID
		io := cv.textIO
		desc.parseText = func(s string) (datum.Datum, error) { return io.ParseText(oid, s) }
	}
	return desc.parseText(text)
}

// renderWith runs the memoized text output function for the descriptor.
func (cv conv) renderWith(desc *TypeDescriptor, d datum.Datum) (string, error) {
	if desc.renderText == nil {
		oid := desc.OID
		io := cv.textIO
		desc.renderText = func(dd datum.Datum) (string, error) { return io.RenderText(oid, dd) }
	}
	return desc.renderText(d)
}

func (cv conv) toDatabaseEncoding(s string) (string, error) {
	if cv.opts.DatabaseEncoding == encoding.UTF8 {
		return s, nil
	}
	b, err := cv.trans.Transcode([]byte(s), encoding.UTF8, cv.opts.DatabaseEncoding)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (cv conv) fromDatabaseEncoding(b []byte) (string, error) {
	if cv.opts.DatabaseEncoding == encoding.UTF8 {
		return string(b), nil
	}
	out, err := cv.trans.Transcode(b, cv.opts.DatabaseEncoding, encoding.UTF8)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
