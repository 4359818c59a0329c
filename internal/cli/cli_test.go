package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConvertScalar(t *testing.T) {
	out, err := runCommand(t, "convert", "int4", "41 + 1")
	require.NoError(t, err)
	assert.Contains(t, out, "value: 42")
	assert.Contains(t, out, "datum: 42")
	assert.Contains(t, out, "back:  42")
}

func TestConvertArrayWithNull(t *testing.T) {
	out, err := runCommand(t, "convert", "_int4", "[1, None, 3]")
	require.NoError(t, err)
	assert.Contains(t, out, "datum: {1,NULL,3}")
}

func TestConvertNull(t *testing.T) {
	out, err := runCommand(t, "convert", "text", "None")
	require.NoError(t, err)
	assert.Contains(t, out, "datum: NULL")
	assert.Contains(t, out, "back:  None")
}

func TestConvertJSONB(t *testing.T) {
	out, err := runCommand(t, "convert", "jsonb", `{"a": [1, 2], "b": None}`)
	require.NoError(t, err)
	assert.Contains(t, out, `datum: {"a":[1,2],"b":null}`)
}

func TestConvertTextFallback(t *testing.T) {
	_, err := runCommand(t, "convert", "int4", `"nope"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid input syntax")
}

func TestConvertUnknownType(t *testing.T) {
	_, err := runCommand(t, "convert", "nosuchtype", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestConvertOverflowFlag(t *testing.T) {
	_, err := runCommand(t, "--check-integer-overflow", "convert", "int2", "70000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestInfer(t *testing.T) {
	out, err := runCommand(t, "infer", "1.5")
	require.NoError(t, err)
	assert.Contains(t, out, "float8")

	out, err = runCommand(t, "infer", "[1, 2]")
	require.NoError(t, err)
	assert.Contains(t, out, "no inferred type")
}

func TestTypesListsBuiltins(t *testing.T) {
	out, err := runCommand(t, "types")
	require.NoError(t, err)
	assert.Contains(t, out, "bool")
	assert.Contains(t, out, "pgstar_int2array")
}

func TestEvalExprError(t *testing.T) {
	_, err := runCommand(t, "infer", "1 +")
	require.Error(t, err)
}

func TestEvalExpr(t *testing.T) {
	v, err := evalExpr(`{"a": [1, 2]}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a": [1, 2]}`, v.String())

	_, err = evalExpr("1 +")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}
