package codec

import "fmt"

// ResolutionError reports unknown or inconsistent type metadata discovered
// while resolving a descriptor.
type ResolutionError struct {
	OID uint32
	Msg string
	Err error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot resolve type %d: %s: %v", e.OID, e.Msg, e.Err)
	}
	return fmt.Sprintf("cannot resolve type %d: %s", e.OID, e.Msg)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ConversionError reports a value whose shape does not match the target
// type. Context carries the field name or array index when one is known.
type ConversionError struct {
	Msg     string
	Context string
}

func (e *ConversionError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s", e.Context, e.Msg)
	}
	return e.Msg
}

func conversionErrf(format string, args ...any) error {
	return &ConversionError{Msg: fmt.Sprintf(format, args...)}
}

// inContext wraps err with a field or index location while keeping the
// original error kind reachable through errors.As.
func inContext(err error, format string, args ...any) error {
	return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", err)
}
