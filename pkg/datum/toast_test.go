package datum

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetoastInline(t *testing.T) {
	v := inline([]byte("hello"))

	assert.False(t, v.Toasted())
	assert.Equal(t, 5, v.Size())

	b, copied, err := v.Detoast()
	require.NoError(t, err)
	assert.False(t, copied)
	assert.Equal(t, []byte("hello"), b)
}

func TestToastRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("pgstar "), 500)
	v := Toast(payload)

	assert.True(t, v.Toasted())
	assert.Equal(t, len(payload), v.Size())

	b, copied, err := v.Detoast()
	require.NoError(t, err)
	assert.True(t, copied)
	assert.Equal(t, payload, b)
}

func TestDetoastCopyOwnership(t *testing.T) {
	src := []byte("shared")
	v := inline(src)

	b, err := v.DetoastCopy()
	require.NoError(t, err)
	b[0] = 'X'
	assert.Equal(t, []byte("shared"), src)
}

func TestDetoastEmpty(t *testing.T) {
	b, err := Toast(nil).DetoastCopy()
	require.NoError(t, err)
	assert.Empty(t, b)
}
