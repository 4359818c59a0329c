package memory

import (
	"strings"

	"github.com/pgstar/pgstar/pkg/catalog"
	"github.com/pgstar/pgstar/pkg/datum"
)

// parseArrayText parses the brace-delimited single-dimension array literal
// form: {e1,e2,NULL,"quoted, elem"}. Nested dimensions are not accepted.
func (c *Catalog) parseArrayText(e *entry, text string) (datum.Datum, error) {
	s := strings.TrimSpace(text)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, textErr("malformed array literal: %q", text)
	}
	body := s[1 : len(s)-1]

	arr := &datum.Array{ElemOID: e.elem, Dims: []int{0}, Lower: []int{1}}
	if strings.TrimSpace(body) == "" {
		arr.Dims = []int{}
		arr.Lower = []int{}
		return arr, nil
	}

	elems, err := splitArrayBody(body, text)
	if err != nil {
		return nil, err
	}
	for _, raw := range elems {
		if raw.isNull {
			arr.Elems = append(arr.Elems, nil)
			arr.Nulls = append(arr.Nulls, true)
			continue
		}
		d, err := c.ParseText(e.elem, raw.text)
		if err != nil {
			return nil, err
		}
		arr.Elems = append(arr.Elems, d)
		arr.Nulls = append(arr.Nulls, false)
	}
	arr.Dims[0] = len(arr.Elems)
	return arr, nil
}

type rawElem struct {
	text   string
	isNull bool
}

func splitArrayBody(body, whole string) ([]rawElem, error) {
	var out []rawElem
	var cur strings.Builder
	quoted := false
	inQuotes := false
	flush := func() {
		s := cur.String()
		if !quoted {
			s = strings.TrimSpace(s)
		}
		out = append(out, rawElem{text: s, isNull: !quoted && strings.EqualFold(s, "NULL")})
		cur.Reset()
		quoted = false
	}
	for i := 0; i < len(body); i++ {
		ch := body[i]
		switch {
		case inQuotes:
			if ch == '\\' && i+1 < len(body) {
				i++
				cur.WriteByte(body[i])
			} else if ch == '"' {
				inQuotes = false
			} else {
				cur.WriteByte(ch)
			}
		case ch == '"':
			inQuotes = true
			quoted = true
		case ch == '{':
			return nil, textErr("multidimensional array literals are not supported: %q", whole)
		case ch == ',':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	if inQuotes {
		return nil, textErr("malformed array literal: %q", whole)
	}
	flush()
	return out, nil
}

func (c *Catalog) renderArrayText(a *datum.Array) (string, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i := range a.Elems {
		if i > 0 {
			b.WriteByte(',')
		}
		if a.Nulls[i] {
			b.WriteString("NULL")
			continue
		}
		s, err := c.RenderText(a.ElemOID, a.Elems[i])
		if err != nil {
			return "", err
		}
		b.WriteString(quoteArrayElem(s, a.ElemOID, c))
	}
	b.WriteByte('}')
	return b.String(), nil
}

func quoteArrayElem(s string, elemOID uint32, c *Catalog) string {
	e := c.types[elemOID]
	needsQuote := s == "" || strings.EqualFold(s, "NULL") ||
		strings.ContainsAny(s, `{},"\ `)
	if e != nil && e.layout.Category == catalog.CategoryString {
		needsQuote = true
	}
	if !needsQuote {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

func (c *Catalog) renderRowText(r *datum.Row) (string, error) {
	fields, err := c.LookupRowFields(r.TypeOID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteByte('(')
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		if i >= len(r.Values) || r.Nulls[i] {
			continue // null field renders as empty
		}
		s, err := c.RenderText(f.TypeOID, r.Values[i])
		if err != nil {
			return "", err
		}
		if strings.ContainsAny(s, `(),"\ `) || s == "" {
			rep := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
			s = `"` + rep.Replace(s) + `"`
		}
		b.WriteString(s)
	}
	b.WriteByte(')')
	return b.String(), nil
}
