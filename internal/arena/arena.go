// Package arena provides scoped scratch allocation. Every buffer handed out
// under a scope is dropped when the scope closes, and a closed scope refuses
// further allocation, which catches lifetime bugs in the conversion paths.
package arena

import "fmt"

// Arena tracks open scopes.
type Arena struct {
	liveScopes int
}

// New creates an arena with no open scopes.
func New() *Arena { return &Arena{} }

// LiveScopes returns the number of scopes not yet closed.
func (a *Arena) LiveScopes() int { return a.liveScopes }

// Scope owns a set of scratch buffers with a common lifetime.
type Scope struct {
	arena  *Arena
	bufs   [][]byte
	bytes  int
	closed bool
}

// OpenScope opens a new allocation scope.
func (a *Arena) OpenScope() *Scope {
	a.liveScopes++
	return &Scope{arena: a}
}

// Alloc returns a zeroed scratch buffer of n bytes owned by the scope.
func (s *Scope) Alloc(n int) ([]byte, error) {
	if s.closed {
		return nil, fmt.Errorf("arena: allocation from closed scope")
	}
	b := make([]byte, n)
	s.bufs = append(s.bufs, b)
	s.bytes += n
	return b, nil
}

// Close releases every buffer allocated under the scope. Closing twice is
// harmless.
func (s *Scope) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.bufs = nil
	s.bytes = 0
	s.arena.liveScopes--
}

// Closed reports whether the scope has been torn down.
func (s *Scope) Closed() bool { return s.closed }

// Bytes returns the live scratch byte count.
func (s *Scope) Bytes() int { return s.bytes }
