package jsonb

import "fmt"

// parseFrame is one open container plus, for objects, the key waiting for
// its value. The key lives on the frame so a nested container with keys of
// its own cannot disturb the parent's pending key.
type parseFrame struct {
	node   *Node
	key    string
	keySet bool
}

// ParseState assembles a tree incrementally from pushed tokens, the inverse
// of Iterator. Containers are opened with BEGIN_*, filled with KEY/VALUE or
// ELEM pushes, and closed with END_*; closing the outermost container yields
// the finished root.
type ParseState struct {
	stack  []parseFrame
	result *Node
}

// Push applies one token. scalar must be a leaf node for KEY, VALUE and ELEM
// and nil otherwise. It returns the finished root once the outermost
// container closes, nil before that.
func (s *ParseState) Push(tok Token, scalar *Node) (*Node, error) {
	switch tok {
	case TokenBeginArray:
		s.stack = append(s.stack, parseFrame{node: &Node{Kind: KindArray}})
	case TokenBeginObject:
		s.stack = append(s.stack, parseFrame{node: &Node{Kind: KindObject}})
	case TokenKey:
		if scalar == nil || scalar.Kind != KindString {
			return nil, fmt.Errorf("jsonb: object key must be a string scalar")
		}
		top, err := s.top(KindObject, tok)
		if err != nil {
			return nil, err
		}
		if top.node.Lookup(scalar.Str) != nil {
			return nil, fmt.Errorf("jsonb: duplicate object key %q", scalar.Str)
		}
		top.key = scalar.Str
		top.keySet = true
	case TokenValue:
		top, err := s.top(KindObject, tok)
		if err != nil {
			return nil, err
		}
		if !top.keySet {
			return nil, fmt.Errorf("jsonb: VALUE pushed with no pending key")
		}
		top.node.Fields = append(top.node.Fields, Field{Key: top.key, Value: scalar})
		top.keySet = false
	case TokenElem:
		top, err := s.top(KindArray, tok)
		if err != nil {
			return nil, err
		}
		top.node.Items = append(top.node.Items, scalar)
	case TokenEndArray:
		return s.pop(KindArray, tok)
	case TokenEndObject:
		return s.pop(KindObject, tok)
	default:
		return nil, fmt.Errorf("jsonb: cannot push token %v", tok)
	}
	return nil, nil
}

func (s *ParseState) top(want Kind, tok Token) (*parseFrame, error) {
	if len(s.stack) == 0 {
		return nil, fmt.Errorf("jsonb: %v outside any container", tok)
	}
	top := &s.stack[len(s.stack)-1]
	if top.node.Kind != want {
		return nil, fmt.Errorf("jsonb: %v inside %v container", tok, top.node.Kind)
	}
	return top, nil
}

func (s *ParseState) pop(want Kind, tok Token) (*Node, error) {
	top, err := s.top(want, tok)
	if err != nil {
		return nil, err
	}
	closed := top.node
	s.stack = s.stack[:len(s.stack)-1]
	if len(s.stack) == 0 {
		s.result = closed
		return closed, nil
	}
	parent := &s.stack[len(s.stack)-1]
	if parent.node.Kind == KindArray {
		parent.node.Items = append(parent.node.Items, closed)
	} else {
		if !parent.keySet {
			return nil, fmt.Errorf("jsonb: container closed into object with no pending key")
		}
		parent.node.Fields = append(parent.node.Fields, Field{Key: parent.key, Value: closed})
		parent.keySet = false
	}
	return nil, nil
}

// Result returns the finished root, or nil if the stream is incomplete.
func (s *ParseState) Result() *Node { return s.result }
