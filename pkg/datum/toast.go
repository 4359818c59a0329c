package datum

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

// Varlena is the variable-width value container. A value is either stored
// inline or toasted: compressed and kept out of line until somebody asks for
// the bytes. Detoast materializes either form into contiguous memory.
type Varlena struct {
	raw   []byte // inline payload, nil when toasted
	toast *toastPointer
}

type toastPointer struct {
	compressed []byte
	rawLen     int
}

func inline(b []byte) Varlena { return Varlena{raw: b} }

// Toast compresses b and returns a Varlena that stores it out of line.
func Toast(b []byte) Varlena {
	return Varlena{toast: &toastPointer{
		compressed: s2.Encode(nil, b),
		rawLen:     len(b),
	}}
}

// Detoast materializes the stored bytes. The second result reports whether a
// fresh copy was made; inline values are returned as-is and must not be
// mutated by the caller.
func (v Varlena) Detoast() ([]byte, bool, error) {
	if v.toast == nil {
		return v.raw, false, nil
	}
	out, err := s2.Decode(make([]byte, 0, v.toast.rawLen), v.toast.compressed)
	if err != nil {
		return nil, false, fmt.Errorf("detoast: %w", err)
	}
	return out, true, nil
}

// DetoastCopy always materializes into a fresh copy the caller owns.
func (v Varlena) DetoastCopy() ([]byte, error) {
	b, copied, err := v.Detoast()
	if err != nil {
		return nil, err
	}
	if !copied {
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	}
	return b, nil
}

// Toasted reports whether the value is stored out of line.
func (v Varlena) Toasted() bool { return v.toast != nil }

// Size returns the materialized byte length without detoasting.
func (v Varlena) Size() int {
	if v.toast != nil {
		return v.toast.rawLen
	}
	return len(v.raw)
}
