package codec

// Int64Mode selects how 64-bit integer datums surface on the runtime side.
type Int64Mode int

const (
	// Int64Exact always yields the runtime's exact arbitrary-precision int.
	Int64Exact Int64Mode = iota
	// Int64Graceful yields a native float number inside the 32-bit range and
	// demotes anything larger to its decimal-string form.
	Int64Graceful
)

// JSONStrategy selects how jsonb documents cross the boundary.
type JSONStrategy int

const (
	// JSONDirectTree walks the binary tree token stream on both directions,
	// never materializing intermediate JSON text.
	JSONDirectTree JSONStrategy = iota
	// JSONTextRelay serializes through JSON text using the runtime's own
	// stringifier and parser.
	JSONTextRelay
)

// Options are the startup-time conversion knobs. They are fixed for the
// lifetime of a Codec, never consulted per call site.
type Options struct {
	// CheckIntegerOverflow range-checks narrow integer targets instead of
	// truncating out-of-range input.
	CheckIntegerOverflow bool

	// Int64 picks the 64-bit integer representation on the runtime side.
	Int64 Int64Mode

	// JSON picks the jsonb conversion strategy.
	JSON JSONStrategy

	// StrictJSONLeaves turns the unrecognized-leaf diagnostic in tree
	// building into a hard error instead of a string fallback.
	StrictJSONLeaves bool

	// DatabaseEncoding is the engine's configured server encoding name.
	DatabaseEncoding string
}

// DefaultOptions returns the documented defaults: truncating narrow
// integers, exact 64-bit integers, direct tree conversion, UTF8 server
// encoding.
func DefaultOptions() Options {
	return Options{
		Int64:            Int64Exact,
		JSON:             JSONDirectTree,
		DatabaseEncoding: "UTF8",
	}
}
