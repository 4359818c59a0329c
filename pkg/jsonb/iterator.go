package jsonb

import "fmt"

// Token is one event in the tree's token stream.
type Token int

const (
	TokenDone Token = iota
	TokenBeginArray
	TokenEndArray
	TokenBeginObject
	TokenEndObject
	TokenKey
	TokenValue
	TokenElem
)

func (t Token) String() string {
	switch t {
	case TokenDone:
		return "DONE"
	case TokenBeginArray:
		return "BEGIN_ARRAY"
	case TokenEndArray:
		return "END_ARRAY"
	case TokenBeginObject:
		return "BEGIN_OBJECT"
	case TokenEndObject:
		return "END_OBJECT"
	case TokenKey:
		return "KEY"
	case TokenValue:
		return "VALUE"
	case TokenElem:
		return "ELEM"
	}
	return fmt.Sprintf("Token(%d)", int(t))
}

type iterFrame struct {
	node *Node
	next int  // next item or field index
	val  bool // object frame: key already emitted, value is due
}

// Iterator walks a tree depth-first, emitting the token stream a stored
// binary document would. The root must be an array or object node.
type Iterator struct {
	stack   []iterFrame
	started bool
	root    *Node
}

// NewIterator returns an iterator positioned before the root token.
func NewIterator(root *Node) *Iterator {
	return &Iterator{root: root}
}

// Next returns the next token and, for KEY/VALUE/ELEM, the scalar node it
// carries. After the final container closes it returns TokenDone.
func (it *Iterator) Next() (Token, *Node) {
	if !it.started {
		it.started = true
		return it.push(it.root)
	}
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		if top.node.Kind == KindArray {
			if top.next >= len(top.node.Items) {
				it.stack = it.stack[:len(it.stack)-1]
				return TokenEndArray, nil
			}
			elem := top.node.Items[top.next]
			top.next++
			if elem.IsScalar() {
				return TokenElem, elem
			}
			return it.push(elem)
		}
		if top.val {
			top.val = false
			f := top.node.Fields[top.next]
			top.next++
			if f.Value.IsScalar() {
				return TokenValue, f.Value
			}
			return it.push(f.Value)
		}
		if top.next >= len(top.node.Fields) {
			it.stack = it.stack[:len(it.stack)-1]
			return TokenEndObject, nil
		}
		top.val = true
		return TokenKey, Str(top.node.Fields[top.next].Key)
	}
	return TokenDone, nil
}

func (it *Iterator) push(n *Node) (Token, *Node) {
	it.stack = append(it.stack, iterFrame{node: n})
	if n.Kind == KindArray {
		return TokenBeginArray, nil
	}
	return TokenBeginObject, nil
}
