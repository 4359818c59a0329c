// Package codec converts values between the engine's typed storage model and
// the Starlark value model, in both directions, for scalars, arrays,
// composite rows, JSON documents, byte buffers and temporal values.
package codec

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgtype"
	"go.starlark.net/starlark"

	"github.com/pgstar/pgstar/internal/arena"
	"github.com/pgstar/pgstar/pkg/catalog"
	"github.com/pgstar/pgstar/pkg/datum"
	"github.com/pgstar/pgstar/pkg/encoding"
)

// Codec converts values between the two type systems. All conversions are
// synchronous and reentrant only through their own recursion; a Codec holds
// no per-conversion state.
type Codec struct {
	cat      catalog.Catalog
	textIO   catalog.TextIO
	resolver *Resolver
	trans    encoding.Transcoder
	arena    *arena.Arena
	opts     Options
	logger   *slog.Logger

	// thread drives the runtime's own JSON stringifier and parser for the
	// text-relay path.
	thread *starlark.Thread
}

// New builds a codec over the given capabilities. A nil logger discards
// diagnostics.
func New(cat catalog.Catalog, textIO catalog.TextIO, trans encoding.Transcoder, opts Options, logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.DatabaseEncoding == "" {
		opts.DatabaseEncoding = encoding.UTF8
	}
	return &Codec{
		cat:      cat,
		textIO:   textIO,
		resolver: NewResolver(cat),
		trans:    trans,
		arena:    arena.New(),
		opts:     opts,
		logger:   logger,
		thread:   &starlark.Thread{Name: "pgstar.codec"},
	}
}

// Arena exposes the codec's arena so callers can open conversion scopes.
func (c *Codec) Arena() *arena.Arena { return c.arena }

// Resolve produces the descriptor for oid under scope.
func (c *Codec) Resolve(oid uint32, scope *arena.Scope) (*TypeDescriptor, error) {
	return c.resolver.Resolve(oid, scope)
}

// conv is the per-call-direction conversion context: the codec plus the
// ambient scope scratch allocations are charged to.
type conv struct {
	*Codec
	scope *arena.Scope
}

// ToDatum converts a runtime value to a datum of the described type. The
// second result is the is-null flag; when it is true the datum is nil.
func (c *Codec) ToDatum(v starlark.Value, desc *TypeDescriptor, scope *arena.Scope) (datum.Datum, bool, error) {
	cv := conv{Codec: c, scope: scope}
	if desc.IsArray() {
		return cv.toArrayDatum(v, desc)
	}
	return cv.toScalarDatum(v, desc)
}

// ToValue converts a stored datum to a runtime value. A true isnull yields
// the runtime's None regardless of type.
func (c *Codec) ToValue(d datum.Datum, isnull bool, desc *TypeDescriptor, scope *arena.Scope) (starlark.Value, error) {
	cv := conv{Codec: c, scope: scope}
	return cv.toValue(d, isnull, desc)
}

func (cv conv) toValue(d datum.Datum, isnull bool, desc *TypeDescriptor) (starlark.Value, error) {
	if isnull {
		return starlark.None, nil
	}
	switch {
	case desc.IsArray():
		return cv.toArrayValue(d, desc)
	case desc.IsComposite || desc.OID == pgtype.RecordOID:
		return cv.toRecordValue(d, desc)
	default:
		return cv.toScalarValue(d, desc)
	}
}

func (cv conv) toDatum(v starlark.Value, desc *TypeDescriptor) (datum.Datum, bool, error) {
	if desc.IsArray() {
		return cv.toArrayDatum(v, desc)
	}
	return cv.toScalarDatum(v, desc)
}

// InferredTypeOID returns the database type a bare runtime value suggests,
// or 0 when none fits (containers have no single inferred type).
func InferredTypeOID(v starlark.Value) uint32 {
	switch classify(v) {
	case tagNone, tagString:
		return pgtype.TextOID
	case tagBool:
		return pgtype.BoolOID
	case tagInt:
		if _, err := starlark.AsInt32(v); err == nil {
			return pgtype.Int4OID
		}
		return pgtype.Int8OID
	case tagFloat:
		return pgtype.Float8OID
	case tagTime:
		return pgtype.TimestampOID
	case tagBytes, tagView:
		return pgtype.ByteaOID
	}
	return 0
}
