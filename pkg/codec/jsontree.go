package codec

import (
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	starlarkjson "go.starlark.net/lib/json"
	startime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/pgstar/pgstar/pkg/datum"
	"github.com/pgstar/pgstar/pkg/jsonb"
)

// jsonLeafTimeFormat is the textual form temporal leaves take inside a JSON
// document, always UTC with millisecond precision.
const jsonLeafTimeFormat = "2006-01-02T15:04:05.000Z"

// jsonbValue converts a stored jsonb document to a runtime value using the
// configured strategy.
func (cv conv) jsonbValue(d datum.JSONB) (starlark.Value, error) {
	if d.Root == nil {
		return starlark.None, nil
	}
	if cv.opts.JSON == JSONTextRelay {
		return cv.jsonDecode(string(jsonb.Render(d.Root)))
	}
	return cv.jsonbTreeToValue(d.Root)
}

// jsonbTreeToValue walks the stored tree's token stream and assembles the
// matching runtime structure directly, without a textual intermediate.
func (cv conv) jsonbTreeToValue(root *jsonb.Node) (starlark.Value, error) {
	if root.RawScalar && len(root.Items) == 1 {
		return cv.jsonbLeafValue(root.Items[0])
	}

	type frame struct {
		dict  *starlark.Dict
		items []starlark.Value
		key   string
	}
	var stack []*frame
	attach := func(v starlark.Value) error {
		if len(stack) == 0 {
			return nil
		}
		top := stack[len(stack)-1]
		if top.dict != nil {
			return top.dict.SetKey(starlark.String(top.key), v)
		}
		top.items = append(top.items, v)
		return nil
	}

	it := jsonb.NewIterator(root)
	for {
		tok, node := it.Next()
		switch tok {
		case jsonb.TokenDone:
			return nil, conversionErrf("jsonb document ended without a root container")
		case jsonb.TokenBeginArray:
			stack = append(stack, &frame{items: []starlark.Value{}})
		case jsonb.TokenBeginObject:
			stack = append(stack, &frame{dict: starlark.NewDict(0)})
		case jsonb.TokenKey:
			stack[len(stack)-1].key = node.Str
		case jsonb.TokenValue, jsonb.TokenElem:
			v, err := cv.jsonbLeafValue(node)
			if err != nil {
				return nil, err
			}
			if err := attach(v); err != nil {
				return nil, err
			}
		case jsonb.TokenEndArray, jsonb.TokenEndObject:
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			var done starlark.Value
			if top.dict != nil {
				done = top.dict
			} else {
				done = starlark.NewList(top.items)
			}
			if len(stack) == 0 {
				return done, nil
			}
			if err := attach(done); err != nil {
				return nil, err
			}
		}
	}
}

func (cv conv) jsonbLeafValue(n *jsonb.Node) (starlark.Value, error) {
	switch n.Kind {
	case jsonb.KindNull:
		return starlark.None, nil
	case jsonb.KindBool:
		return starlark.Bool(n.Bool), nil
	case jsonb.KindNumeric:
		// Integral numbers surface as ints, matching what the runtime's own
		// JSON decoder produces for the same document.
		s := n.Num.Text('f')
		if !strings.ContainsAny(s, ".eE") {
			if i, ok := new(big.Int).SetString(s, 10); ok {
				return starlark.MakeBigInt(i), nil
			}
		}
		f, _ := n.Num.Float64()
		return starlark.Float(f), nil
	case jsonb.KindString:
		return starlark.String(n.Str), nil
	}
	return nil, conversionErrf("unexpected %v leaf in jsonb document", n.Kind)
}

// valueToJSONBTree converts a runtime value to a stored tree. A scalar root
// is stored as the usual one-element raw-scalar array. Scratch allocations
// go to a fresh scope reclaimed on every exit path; nothing leaks into the
// caller's longer-lived scope.
func (cv conv) valueToJSONBTree(v starlark.Value) (*jsonb.Node, error) {
	scratch := cv.arena.OpenScope()
	defer scratch.Close()
	cv = conv{Codec: cv.Codec, scope: scratch}

	leaf, isLeaf, err := cv.jsonbLeaf(v)
	if err != nil {
		return nil, err
	}
	if isLeaf {
		return &jsonb.Node{Kind: jsonb.KindArray, Items: []*jsonb.Node{leaf}, RawScalar: true}, nil
	}

	var ps jsonb.ParseState
	root, err := cv.pushJSONB(&ps, v)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, conversionErrf("json document did not close its root container")
	}
	return root, nil
}

// pushJSONB feeds one container value into the incremental builder and
// returns the finished root once the outermost container closes.
func (cv conv) pushJSONB(ps *jsonb.ParseState, v starlark.Value) (*jsonb.Node, error) {
	tag := classify(v)

	if tag.isSequence() {
		if _, err := ps.Push(jsonb.TokenBeginArray, nil); err != nil {
			return nil, err
		}
		iter := v.(starlark.Sequence).Iterate()
		defer iter.Done()
		var el starlark.Value
		for i := 0; iter.Next(&el); i++ {
			if err := cv.pushJSONBMember(ps, el, jsonb.TokenElem); err != nil {
				return nil, inContext(err, "array element %d", i)
			}
		}
		return ps.Push(jsonb.TokenEndArray, nil)
	}

	if tag == tagDict {
		if _, err := ps.Push(jsonb.TokenBeginObject, nil); err != nil {
			return nil, err
		}
		for _, item := range v.(*starlark.Dict).Items() {
			key := stringForm(item[0])
			if _, err := ps.Push(jsonb.TokenKey, jsonb.Str(key)); err != nil {
				return nil, err
			}
			if err := cv.pushJSONBMember(ps, item[1], jsonb.TokenValue); err != nil {
				return nil, inContext(err, "key %q", key)
			}
		}
		return ps.Push(jsonb.TokenEndObject, nil)
	}

	if tag == tagStruct {
		if _, err := ps.Push(jsonb.TokenBeginObject, nil); err != nil {
			return nil, err
		}
		s := v.(*starlarkstruct.Struct)
		for _, name := range s.AttrNames() {
			member, err := s.Attr(name)
			if err != nil {
				return nil, inContext(err, "key %q", name)
			}
			if _, err := ps.Push(jsonb.TokenKey, jsonb.Str(name)); err != nil {
				return nil, err
			}
			if err := cv.pushJSONBMember(ps, member, jsonb.TokenValue); err != nil {
				return nil, inContext(err, "key %q", name)
			}
		}
		return ps.Push(jsonb.TokenEndObject, nil)
	}

	return nil, conversionErrf("value of type %s is not a json container", v.Type())
}

func (cv conv) pushJSONBMember(ps *jsonb.ParseState, v starlark.Value, leafTok jsonb.Token) error {
	leaf, isLeaf, err := cv.jsonbLeaf(v)
	if err != nil {
		return err
	}
	if isLeaf {
		_, err := ps.Push(leafTok, leaf)
		return err
	}
	_, err = cv.pushJSONB(ps, v)
	return err
}

// jsonbLeaf converts one leaf value to a scalar node. Containers report
// isLeaf false. An unconvertible leaf either fails (strict mode) or falls
// back to its display form with a logged diagnostic.
func (cv conv) jsonbLeaf(v starlark.Value) (*jsonb.Node, bool, error) {
	switch tag := classify(v); tag {
	case tagNone:
		return jsonb.Null, true, nil
	case tagBool:
		return jsonb.Boolean(bool(v.(starlark.Bool))), true, nil
	case tagInt:
		d, _, err := apd.NewFromString(v.(starlark.Int).String())
		if err != nil {
			return nil, false, conversionErrf("integer does not parse as a json number: %v", err)
		}
		return jsonb.Number(d), true, nil
	case tagFloat:
		f := float64(v.(starlark.Float))
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false, conversionErrf("cannot store a non-finite number in a json document")
		}
		var d apd.Decimal
		if _, err := d.SetFloat64(f); err != nil {
			return nil, false, conversionErrf("float does not convert to a json number: %v", err)
		}
		return jsonb.Number(&d), true, nil
	case tagString:
		return jsonb.Str(string(v.(starlark.String))), true, nil
	case tagTime:
		t := time.Time(v.(startime.Time)).UTC()
		buf, err := cv.scope.Alloc(len(jsonLeafTimeFormat))
		if err != nil {
			return nil, false, err
		}
		return jsonb.Str(string(t.AppendFormat(buf[:0], jsonLeafTimeFormat))), true, nil
	case tagList, tagTuple, tagView, tagDict, tagStruct:
		return nil, false, nil
	default:
		if cv.opts.StrictJSONLeaves {
			return nil, false, conversionErrf("value of type %s has no json representation", v.Type())
		}
		cv.logger.Warn("storing unconvertible json leaf as its display form",
			"type", v.Type())
		return jsonb.Str(stringForm(v)), true, nil
	}
}

// jsonEncode stringifies a runtime value by walking it into a tree and
// rendering that, keeping object keys in insertion order. The runtime's own
// json.encode sorts mapping keys, which would scramble the stored form.
func (cv conv) jsonEncode(v starlark.Value) (string, error) {
	root, err := cv.valueToJSONBTree(v)
	if err != nil {
		return "", err
	}
	return string(jsonb.Render(root)), nil
}

// jsonDecode parses JSON text with the runtime's own decoder.
func (cv conv) jsonDecode(text string) (starlark.Value, error) {
	fn := starlarkjson.Module.Members["decode"]
	out, err := starlark.Call(cv.thread, fn, starlark.Tuple{starlark.String(text)}, nil)
	if err != nil {
		return nil, conversionErrf("json decode: %v", err)
	}
	return out, nil
}
