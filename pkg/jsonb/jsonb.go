// Package jsonb implements the parsed binary-tree form of a JSON document:
// a discriminated node union, a token-stream iterator over a tree, and a
// push-based incremental builder for assembling one.
package jsonb

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Kind discriminates the node union.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumeric
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumeric:
		return "numeric"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Node is one value in the tree. Object fields keep insertion order and keys
// are unique strings.
type Node struct {
	Kind   Kind
	Bool   bool
	Num    *apd.Decimal
	Str    string
	Items  []*Node
	Fields []Field

	// RawScalar marks the one-element array a bare scalar document is
	// stored as. It renders back as the scalar alone.
	RawScalar bool
}

// Field is one ordered object member.
type Field struct {
	Key   string
	Value *Node
}

// Null, True and False are shared scalar nodes. They must not be mutated.
var (
	Null  = &Node{Kind: KindNull}
	True  = &Node{Kind: KindBool, Bool: true}
	False = &Node{Kind: KindBool, Bool: false}
)

// Boolean returns the shared node for b.
func Boolean(b bool) *Node {
	if b {
		return True
	}
	return False
}

// Str returns a string scalar node.
func Str(s string) *Node { return &Node{Kind: KindString, Str: s} }

// Number returns a numeric scalar node holding d.
func Number(d *apd.Decimal) *Node { return &Node{Kind: KindNumeric, Num: d} }

// IsScalar reports whether the node is a leaf.
func (n *Node) IsScalar() bool {
	return n.Kind != KindArray && n.Kind != KindObject
}

// Lookup returns the value for key in an object node, or nil.
func (n *Node) Lookup(key string) *Node {
	if n == nil || n.Kind != KindObject {
		return nil
	}
	for _, f := range n.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// Equal reports deep structural equality, numeric values compared by value.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Kind != o.Kind {
		return false
	}
	switch n.Kind {
	case KindNull:
		return true
	case KindBool:
		return n.Bool == o.Bool
	case KindNumeric:
		return n.Num.Cmp(o.Num) == 0
	case KindString:
		return n.Str == o.Str
	case KindArray:
		if n.RawScalar != o.RawScalar || len(n.Items) != len(o.Items) {
			return false
		}
		for i := range n.Items {
			if !n.Items[i].Equal(o.Items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(n.Fields) != len(o.Fields) {
			return false
		}
		for i := range n.Fields {
			if n.Fields[i].Key != o.Fields[i].Key || !n.Fields[i].Value.Equal(o.Fields[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}
