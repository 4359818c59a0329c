package jsonb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Parse converts JSON text into a tree. Object key order is preserved and
// numbers keep their full decimal precision. A bare scalar document is
// wrapped in a one-element array, matching how scalar roots are stored.
func Parse(text []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()

	root, err := parseValue(dec)
	if err != nil {
		return nil, err
	}
	if tok, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("jsonb: trailing content %v after document", tok)
	}
	if root.IsScalar() {
		root = &Node{Kind: KindArray, Items: []*Node{root}, RawScalar: true}
	}
	return root, nil
}

func parseValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("jsonb: %w", err)
	}
	return parseToken(dec, tok)
}

func parseToken(dec *json.Decoder, tok json.Token) (*Node, error) {
	switch t := tok.(type) {
	case nil:
		return Null, nil
	case bool:
		return Boolean(t), nil
	case string:
		return Str(t), nil
	case json.Number:
		d, _, err := apd.NewFromString(t.String())
		if err != nil {
			return nil, fmt.Errorf("jsonb: invalid number %q: %w", t.String(), err)
		}
		return Number(d), nil
	case json.Delim:
		switch t {
		case '[':
			n := &Node{Kind: KindArray}
			for dec.More() {
				item, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				n.Items = append(n.Items, item)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, fmt.Errorf("jsonb: %w", err)
			}
			return n, nil
		case '{':
			n := &Node{Kind: KindObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("jsonb: %w", err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("jsonb: object key %v is not a string", keyTok)
				}
				val, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				n.Fields = append(n.Fields, Field{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, fmt.Errorf("jsonb: %w", err)
			}
			return n, nil
		}
	}
	return nil, fmt.Errorf("jsonb: unexpected token %v", tok)
}

// Render serializes a tree back to compact JSON text. Field order is the
// tree's own order.
func Render(n *Node) []byte {
	var b strings.Builder
	render(&b, n)
	return []byte(b.String())
}

func render(b *strings.Builder, n *Node) {
	switch n.Kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		if n.Bool {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindNumeric:
		b.WriteString(n.Num.Text('f'))
	case KindString:
		enc, _ := json.Marshal(n.Str)
		b.Write(enc)
	case KindArray:
		if n.RawScalar && len(n.Items) == 1 {
			render(b, n.Items[0])
			return
		}
		b.WriteByte('[')
		for i, item := range n.Items {
			if i > 0 {
				b.WriteByte(',')
			}
			render(b, item)
		}
		b.WriteByte(']')
	case KindObject:
		b.WriteByte('{')
		for i, f := range n.Fields {
			if i > 0 {
				b.WriteByte(',')
			}
			enc, _ := json.Marshal(f.Key)
			b.Write(enc)
			b.WriteByte(':')
			render(b, f.Value)
		}
		b.WriteByte('}')
	}
}
