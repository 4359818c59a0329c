package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func TestNewArrayView(t *testing.T) {
	v, err := NewArrayView(KindInt32, []byte{1, 0, 0, 0, 255, 255, 255, 255})
	require.NoError(t, err)
	assert.Equal(t, 2, v.Len())
	assert.Equal(t, starlark.MakeInt(1), v.Index(0))
	assert.Equal(t, starlark.MakeInt(-1), v.Index(1))

	_, err = NewArrayView(KindInt32, []byte{1, 2, 3})
	assert.Error(t, err)

	_, err = NewArrayView(KindNone, nil)
	assert.Error(t, err)
}

func TestArrayViewCopiesInput(t *testing.T) {
	buf := []byte{7, 0}
	v, err := NewArrayView(KindInt16, buf)
	require.NoError(t, err)
	buf[0] = 9
	assert.Equal(t, starlark.MakeInt(7), v.Index(0))
}

func TestArrayViewStarlarkSurface(t *testing.T) {
	v, err := NewArrayView(KindFloat64, make([]byte, 16))
	require.NoError(t, err)
	assert.Equal(t, "float64_array", v.Type())
	assert.Equal(t, starlark.True, v.Truth())
	_, err = v.Hash()
	assert.Error(t, err)

	iter := v.Iterate()
	defer iter.Done()
	var el starlark.Value
	n := 0
	for iter.Next(&el) {
		assert.Equal(t, starlark.Float(0), el)
		n++
	}
	assert.Equal(t, 2, n)
}
