package codec

import (
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	startime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/pgstar/pgstar/internal/arena"
	"github.com/pgstar/pgstar/pkg/catalog"
	"github.com/pgstar/pgstar/pkg/catalogs/memory"
	"github.com/pgstar/pgstar/pkg/datum"
	"github.com/pgstar/pgstar/pkg/encoding"
)

func newTestCodec(t *testing.T, opts Options) (*Codec, *memory.Catalog, *arena.Scope) {
	t.Helper()
	cat := memory.New()
	c := New(cat, cat, encoding.New(), opts, nil)
	scope := c.Arena().OpenScope()
	t.Cleanup(scope.Close)
	return c, cat, scope
}

func mustResolve(t *testing.T, c *Codec, oid uint32, scope *arena.Scope) *TypeDescriptor {
	t.Helper()
	desc, err := c.Resolve(oid, scope)
	require.NoError(t, err)
	return desc
}

func TestScalarToDatum(t *testing.T) {
	c, _, scope := newTestCodec(t, DefaultOptions())

	tests := []struct {
		name string
		oid  uint32
		in   starlark.Value
		want datum.Datum
	}{
		{"bool true", pgtype.BoolOID, starlark.True, datum.Bool(true)},
		{"bool false", pgtype.BoolOID, starlark.False, datum.Bool(false)},
		{"int2", pgtype.Int2OID, starlark.MakeInt(-42), datum.Int2(-42)},
		{"int4", pgtype.Int4OID, starlark.MakeInt(1 << 20), datum.Int4(1 << 20)},
		{"int8", pgtype.Int8OID, starlark.MakeInt64(1 << 40), datum.Int8(1 << 40)},
		{"int8 from float", pgtype.Int8OID, starlark.Float(3.9), datum.Int8(3)},
		{"float4", pgtype.Float4OID, starlark.Float(1.5), datum.Float4(1.5)},
		{"float8", pgtype.Float8OID, starlark.Float(-2.25), datum.Float8(-2.25)},
		{"oid", pgtype.OIDOID, starlark.MakeInt(25), datum.OID(25)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := mustResolve(t, c, tt.oid, scope)
			d, isnull, err := c.ToDatum(tt.in, desc, scope)
			require.NoError(t, err)
			require.False(t, isnull)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestNullRoundTrip(t *testing.T) {
	c, _, scope := newTestCodec(t, DefaultOptions())

	for _, oid := range []uint32{pgtype.Int4OID, pgtype.TextOID, pgtype.Int4ArrayOID, pgtype.JSONBOID} {
		desc := mustResolve(t, c, oid, scope)

		d, isnull, err := c.ToDatum(starlark.None, desc, scope)
		require.NoError(t, err)
		assert.True(t, isnull, "oid %d", oid)
		assert.Nil(t, d, "oid %d", oid)

		v, err := c.ToValue(nil, true, desc, scope)
		require.NoError(t, err)
		assert.Equal(t, starlark.None, v, "oid %d", oid)
	}
}

func TestTextRoundTrip(t *testing.T) {
	c, _, scope := newTestCodec(t, DefaultOptions())
	desc := mustResolve(t, c, pgtype.TextOID, scope)

	d, isnull, err := c.ToDatum(starlark.String("héllo"), desc, scope)
	require.NoError(t, err)
	require.False(t, isnull)

	v, err := c.ToValue(d, false, desc, scope)
	require.NoError(t, err)
	assert.Equal(t, starlark.String("héllo"), v)
}

func TestIntegerOverflowChecked(t *testing.T) {
	opts := DefaultOptions()
	opts.CheckIntegerOverflow = true
	c, _, scope := newTestCodec(t, opts)

	tests := []struct {
		name string
		oid  uint32
		in   starlark.Value
	}{
		{"int2 overflow", pgtype.Int2OID, starlark.MakeInt(1 << 20)},
		{"int4 overflow", pgtype.Int4OID, starlark.MakeInt64(1 << 40)},
		{"int8 overflow", pgtype.Int8OID, starlark.MakeBigInt(new(big.Int).Lsh(big.NewInt(1), 70))},
		{"int8 float overflow", pgtype.Int8OID, starlark.Float(1e30)},
		{"int8 negative float overflow", pgtype.Int8OID, starlark.Float(-1e30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := mustResolve(t, c, tt.oid, scope)
			_, _, err := c.ToDatum(tt.in, desc, scope)
			var dbErr *catalog.DatabaseError
			require.ErrorAs(t, err, &dbErr)
			assert.Equal(t, catalog.CodeNumericValueOutOfRange, dbErr.Code)
		})
	}
}

func TestIntegerOverflowTruncates(t *testing.T) {
	c, _, scope := newTestCodec(t, DefaultOptions())

	desc := mustResolve(t, c, pgtype.Int2OID, scope)
	d, _, err := c.ToDatum(starlark.MakeInt(0x12345), desc, scope)
	require.NoError(t, err)
	assert.Equal(t, datum.Int2(int16(0x2345)), d)
}

func TestBigintGracefulMode(t *testing.T) {
	opts := DefaultOptions()
	opts.Int64 = Int64Graceful
	c, _, scope := newTestCodec(t, opts)
	desc := mustResolve(t, c, pgtype.Int8OID, scope)

	v, err := c.ToValue(datum.Int8(1000), false, desc, scope)
	require.NoError(t, err)
	assert.Equal(t, starlark.Float(1000), v)

	v, err = c.ToValue(datum.Int8(1<<40), false, desc, scope)
	require.NoError(t, err)
	assert.Equal(t, starlark.String("1099511627776"), v)
}

func TestBigintExactMode(t *testing.T) {
	c, _, scope := newTestCodec(t, DefaultOptions())
	desc := mustResolve(t, c, pgtype.Int8OID, scope)

	v, err := c.ToValue(datum.Int8(1<<60), false, desc, scope)
	require.NoError(t, err)
	got, ok := v.(starlark.Int)
	require.True(t, ok)
	assert.Zero(t, got.BigInt().Cmp(big.NewInt(1<<60)))
}

func TestNumericKeepsIntegerPrecision(t *testing.T) {
	c, _, scope := newTestCodec(t, DefaultOptions())
	desc := mustResolve(t, c, pgtype.NumericOID, scope)

	d, _, err := c.ToDatum(starlark.MakeInt64(9007199254740993), desc, scope)
	require.NoError(t, err)
	num, ok := d.(datum.Numeric)
	require.True(t, ok)
	assert.Equal(t, "9007199254740993", num.Dec.Text('f'))
}

func TestTextFallbackUsesInputFunction(t *testing.T) {
	c, _, scope := newTestCodec(t, DefaultOptions())
	desc := mustResolve(t, c, pgtype.Int4OID, scope)

	// A string heading for an integer goes through the text parser.
	d, _, err := c.ToDatum(starlark.String("123"), desc, scope)
	require.NoError(t, err)
	assert.Equal(t, datum.Int4(123), d)

	_, _, err = c.ToDatum(starlark.String("not a number"), desc, scope)
	var dbErr *catalog.DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, catalog.CodeInvalidTextRepresentation, dbErr.Code)
}

func TestDateRoundTrip(t *testing.T) {
	c, _, scope := newTestCodec(t, DefaultOptions())
	desc := mustResolve(t, c, pgtype.DateOID, scope)

	v, err := c.ToValue(datum.Date(9490), false, desc, scope)
	require.NoError(t, err)
	ts, ok := v.(startime.Time)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC), time.Time(ts))

	d, isnull, err := c.ToDatum(v, desc, scope)
	require.NoError(t, err)
	require.False(t, isnull)
	assert.Equal(t, datum.Date(9490), d)
}

func TestTimestampRoundTrip(t *testing.T) {
	c, _, scope := newTestCodec(t, DefaultOptions())
	desc := mustResolve(t, c, pgtype.TimestampOID, scope)

	orig := datum.Timestamp(795891296789000) // microsecond precision survives
	v, err := c.ToValue(orig, false, desc, scope)
	require.NoError(t, err)

	d, _, err := c.ToDatum(v, desc, scope)
	require.NoError(t, err)
	assert.Equal(t, orig, d)
}

func TestByteaRoundTrip(t *testing.T) {
	c, _, scope := newTestCodec(t, DefaultOptions())
	desc := mustResolve(t, c, pgtype.ByteaOID, scope)

	d, _, err := c.ToDatum(starlark.Bytes("\x01\x02\xff"), desc, scope)
	require.NoError(t, err)

	v, err := c.ToValue(d, false, desc, scope)
	require.NoError(t, err)
	view, ok := v.(*ArrayView)
	require.True(t, ok)
	assert.Equal(t, KindUint8, view.Kind())
	assert.Equal(t, []byte{1, 2, 0xff}, view.Bytes())

	// The view carries its source, so the way back needs no repacking.
	back, _, err := c.ToDatum(view, desc, scope)
	require.NoError(t, err)
	assert.Equal(t, d, back)
}

func TestArrayRoundTrip(t *testing.T) {
	c, _, scope := newTestCodec(t, DefaultOptions())
	desc := mustResolve(t, c, pgtype.Int4ArrayOID, scope)

	in := starlark.NewList([]starlark.Value{
		starlark.MakeInt(1), starlark.MakeInt(2), starlark.MakeInt(3),
	})
	d, _, err := c.ToDatum(in, desc, scope)
	require.NoError(t, err)

	arr, ok := d.(*datum.Array)
	require.True(t, ok)
	assert.Equal(t, uint32(pgtype.Int4OID), arr.ElemOID)
	assert.Equal(t, []int{3}, arr.Dims)
	assert.Equal(t, []int{1}, arr.Lower)

	v, err := c.ToValue(d, false, desc, scope)
	require.NoError(t, err)
	assert.Equal(t, in.String(), v.String())
}

func TestEmptyArray(t *testing.T) {
	c, _, scope := newTestCodec(t, DefaultOptions())
	desc := mustResolve(t, c, pgtype.TextArrayOID, scope)

	d, _, err := c.ToDatum(starlark.NewList(nil), desc, scope)
	require.NoError(t, err)
	arr := d.(*datum.Array)
	assert.Equal(t, 0, arr.Len())

	v, err := c.ToValue(d, false, desc, scope)
	require.NoError(t, err)
	assert.Equal(t, 0, v.(*starlark.List).Len())
}

func TestArrayWithNulls(t *testing.T) {
	c, _, scope := newTestCodec(t, DefaultOptions())
	desc := mustResolve(t, c, pgtype.Int4ArrayOID, scope)

	in := starlark.NewList([]starlark.Value{
		starlark.MakeInt(1), starlark.None, starlark.MakeInt(3),
	})
	d, _, err := c.ToDatum(in, desc, scope)
	require.NoError(t, err)
	arr := d.(*datum.Array)
	assert.Equal(t, []bool{false, true, false}, arr.Nulls)

	v, err := c.ToValue(d, false, desc, scope)
	require.NoError(t, err)
	assert.Equal(t, in.String(), v.String())
}

func TestArrayRejectsNonSequence(t *testing.T) {
	c, _, scope := newTestCodec(t, DefaultOptions())
	desc := mustResolve(t, c, pgtype.Int4ArrayOID, scope)

	_, _, err := c.ToDatum(starlark.MakeInt(7), desc, scope)
	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
}

func TestArrayElementErrorNamesIndex(t *testing.T) {
	opts := DefaultOptions()
	opts.CheckIntegerOverflow = true
	c, _, scope := newTestCodec(t, opts)
	desc := mustResolve(t, c, pgtype.Int2ArrayOID, scope)

	in := starlark.NewList([]starlark.Value{
		starlark.MakeInt(1), starlark.MakeInt(1 << 20),
	})
	_, _, err := c.ToDatum(in, desc, scope)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array element 1")
	var dbErr *catalog.DatabaseError
	assert.ErrorAs(t, err, &dbErr)
}

func TestExternalArrayFastPath(t *testing.T) {
	c, _, scope := newTestCodec(t, DefaultOptions())
	desc := mustResolve(t, c, memory.DomainFloat8ArrayOID, scope)

	arr := &datum.Array{
		ElemOID: pgtype.Float8OID,
		Dims:    []int{3},
		Lower:   []int{1},
		Elems:   []datum.Datum{datum.Float8(1.5), datum.Float8(-2), datum.Float8(0)},
		Nulls:   []bool{false, false, false},
	}
	v, err := c.ToValue(arr, false, desc, scope)
	require.NoError(t, err)
	view, ok := v.(*ArrayView)
	require.True(t, ok)
	assert.Equal(t, KindFloat64, view.Kind())
	assert.Equal(t, 3, view.Len())
	assert.Equal(t, starlark.Float(-2), view.Index(1))

	// The round trip hands back the originating array untouched.
	back, isnull, err := c.ToDatum(view, desc, scope)
	require.NoError(t, err)
	require.False(t, isnull)
	assert.Same(t, arr, back)
}

func TestExternalArrayRejectsMultiDim(t *testing.T) {
	c, _, scope := newTestCodec(t, DefaultOptions())
	desc := mustResolve(t, c, memory.DomainInt4ArrayOID, scope)

	arr := &datum.Array{
		ElemOID: pgtype.Int4OID,
		Dims:    []int{2, 2},
		Lower:   []int{1, 1},
		Elems:   []datum.Datum{datum.Int4(1), datum.Int4(2), datum.Int4(3), datum.Int4(4)},
		Nulls:   make([]bool, 4),
	}
	_, err := c.ToValue(arr, false, desc, scope)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one-dimensional")
}

func TestExternalArrayRejectsNulls(t *testing.T) {
	c, _, scope := newTestCodec(t, DefaultOptions())
	desc := mustResolve(t, c, memory.DomainInt4ArrayOID, scope)

	arr := &datum.Array{
		ElemOID: pgtype.Int4OID,
		Dims:    []int{2},
		Lower:   []int{1},
		Elems:   []datum.Datum{datum.Int4(1), nil},
		Nulls:   []bool{false, true},
	}
	_, err := c.ToValue(arr, false, desc, scope)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nulls")
}

func TestExternalArrayFromList(t *testing.T) {
	c, _, scope := newTestCodec(t, DefaultOptions())
	desc := mustResolve(t, c, memory.DomainInt2ArrayOID, scope)

	in := starlark.NewList([]starlark.Value{starlark.MakeInt(10), starlark.MakeInt(-20)})
	d, _, err := c.ToDatum(in, desc, scope)
	require.NoError(t, err)
	arr := d.(*datum.Array)
	assert.Equal(t, uint32(pgtype.Int2OID), arr.ElemOID)
	assert.Equal(t, []datum.Datum{datum.Int2(10), datum.Int2(-20)}, arr.Elems)
}

func TestCompositeRoundTrip(t *testing.T) {
	c, cat, scope := newTestCodec(t, DefaultOptions())
	require.NoError(t, cat.RegisterRowType(30001, "person", []catalog.Field{
		{Name: "name", TypeOID: pgtype.TextOID},
		{Name: "age", TypeOID: pgtype.Int4OID},
	}))

	desc := mustResolve(t, c, 30001, scope)
	require.True(t, desc.IsComposite)

	in := starlark.NewDict(2)
	require.NoError(t, in.SetKey(starlark.String("age"), starlark.MakeInt(30)))
	require.NoError(t, in.SetKey(starlark.String("name"), starlark.String("ada")))

	d, isnull, err := c.ToDatum(in, desc, scope)
	require.NoError(t, err)
	require.False(t, isnull)

	row, ok := d.(*datum.Row)
	require.True(t, ok)
	assert.Equal(t, uint32(30001), row.TypeOID)
	// Values land in declaration order, not insertion order.
	assert.Equal(t, datum.Int4(30), row.Values[1])

	v, err := c.ToValue(d, false, desc, scope)
	require.NoError(t, err)
	out, ok := v.(*starlark.Dict)
	require.True(t, ok)
	keys := out.Keys()
	require.Len(t, keys, 2)
	assert.Equal(t, starlark.String("name"), keys[0])
	assert.Equal(t, starlark.String("age"), keys[1])
}

func TestCompositeMissingFieldIsNull(t *testing.T) {
	c, cat, scope := newTestCodec(t, DefaultOptions())
	require.NoError(t, cat.RegisterRowType(30002, "pair", []catalog.Field{
		{Name: "a", TypeOID: pgtype.Int4OID},
		{Name: "b", TypeOID: pgtype.Int4OID},
	}))
	desc := mustResolve(t, c, 30002, scope)

	in := starlark.NewDict(1)
	require.NoError(t, in.SetKey(starlark.String("b"), starlark.MakeInt(2)))

	d, _, err := c.ToDatum(in, desc, scope)
	require.NoError(t, err)
	row := d.(*datum.Row)
	assert.Equal(t, []bool{true, false}, row.Nulls)
}

func TestCompositeMissingStructAttrIsNull(t *testing.T) {
	c, cat, scope := newTestCodec(t, DefaultOptions())
	require.NoError(t, cat.RegisterRowType(30005, "pair_attr", []catalog.Field{
		{Name: "a", TypeOID: pgtype.Int4OID},
		{Name: "b", TypeOID: pgtype.Int4OID},
	}))
	desc := mustResolve(t, c, 30005, scope)

	in := starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"b": starlark.MakeInt(2),
	})

	d, _, err := c.ToDatum(in, desc, scope)
	require.NoError(t, err)
	row := d.(*datum.Row)
	assert.Equal(t, []bool{true, false}, row.Nulls)
}

func TestCompositeFieldErrorNamesField(t *testing.T) {
	opts := DefaultOptions()
	opts.CheckIntegerOverflow = true
	c, cat, scope := newTestCodec(t, opts)
	require.NoError(t, cat.RegisterRowType(30003, "counter", []catalog.Field{
		{Name: "count", TypeOID: pgtype.Int2OID},
	}))
	desc := mustResolve(t, c, 30003, scope)

	in := starlark.NewDict(1)
	require.NoError(t, in.SetKey(starlark.String("count"), starlark.MakeInt(1<<20)))

	_, _, err := c.ToDatum(in, desc, scope)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "count"`)
}

func TestAnonymousRecordUsesRowType(t *testing.T) {
	c, cat, scope := newTestCodec(t, DefaultOptions())
	require.NoError(t, cat.RegisterRowType(30004, "point", []catalog.Field{
		{Name: "x", TypeOID: pgtype.Float8OID},
		{Name: "y", TypeOID: pgtype.Float8OID},
	}))
	desc := mustResolve(t, c, pgtype.RecordOID, scope)

	row := &datum.Row{
		TypeOID: 30004,
		Values:  []datum.Datum{datum.Float8(1), datum.Float8(2)},
		Nulls:   []bool{false, false},
	}
	v, err := c.ToValue(row, false, desc, scope)
	require.NoError(t, err)
	out := v.(*starlark.Dict)
	got, found, err := out.Get(starlark.String("y"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, starlark.Float(2), got)
}

func TestInferredTypeOID(t *testing.T) {
	tests := []struct {
		name string
		in   starlark.Value
		want uint32
	}{
		{"none", starlark.None, pgtype.TextOID},
		{"string", starlark.String("x"), pgtype.TextOID},
		{"bool", starlark.True, pgtype.BoolOID},
		{"small int", starlark.MakeInt(7), pgtype.Int4OID},
		{"big int", starlark.MakeInt64(1 << 40), pgtype.Int8OID},
		{"float", starlark.Float(1.5), pgtype.Float8OID},
		{"time", startime.Time(time.Now()), pgtype.TimestampOID},
		{"bytes", starlark.Bytes("b"), pgtype.ByteaOID},
		{"list", starlark.NewList(nil), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferredTypeOID(tt.in))
		})
	}
}
