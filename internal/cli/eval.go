package cli

import (
	"fmt"
	"strconv"

	starlarkjson "go.starlark.net/lib/json"
	startime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

// evalExpr evaluates one Starlark expression with the time, json and struct
// builtins predeclared, so command-line input can construct every value
// shape the codec handles.
func evalExpr(src string) (starlark.Value, error) {
	thread := &starlark.Thread{Name: "pgstar.cli"}
	predeclared := starlark.StringDict{
		"time":   startime.Module,
		"json":   starlarkjson.Module,
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
	}
	opts := &syntax.FileOptions{}
	expr, err := opts.ParseExpr("<expr>", src, 0)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", src, err)
	}
	v, err := starlark.EvalExprOptions(opts, thread, expr, predeclared)
	if err != nil {
		return nil, fmt.Errorf("evaluating %q: %w", src, err)
	}
	return v, nil
}

// resolveTypeName turns a type name or a numeric OID into an OID.
func (a *App) resolveTypeName(name string) (uint32, error) {
	if oid, ok := a.Names.OIDByName(name); ok {
		return oid, nil
	}
	if n, err := strconv.ParseUint(name, 10, 32); err == nil {
		return uint32(n), nil
	}
	return 0, fmt.Errorf("unknown type %q", name)
}
