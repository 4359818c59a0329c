// Package encoding implements the byte transcoding capability the codec uses
// to move text between the database's configured encoding and UTF-8.
package encoding

import (
	"fmt"
	"unicode/utf8"

	xenc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// Common database encoding names, in the engine's spelling.
const (
	UTF8     = "UTF8"
	Latin1   = "LATIN1"
	Win1252  = "WIN1252"
	SQLASCII = "SQL_ASCII"
)

// Error reports an invalid byte sequence for a declared encoding.
type Error struct {
	Encoding string
	Detail   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid byte sequence for encoding %s: %s", e.Encoding, e.Detail)
}

// Transcoder converts bytes between two named encodings.
type Transcoder interface {
	Transcode(b []byte, from, to string) ([]byte, error)
}

// New returns the production transcoder, backed by golang.org/x/text.
func New() Transcoder { return &xtextTranscoder{} }

type xtextTranscoder struct{}

func (t *xtextTranscoder) Transcode(b []byte, from, to string) ([]byte, error) {
	if from == to {
		if err := validate(b, from); err != nil {
			return nil, err
		}
		return b, nil
	}

	// Decode source bytes to UTF-8. SQL_ASCII is identity with a 7-bit check.
	u := b
	if from == SQLASCII {
		if err := validate(b, SQLASCII); err != nil {
			return nil, err
		}
	} else if from != UTF8 {
		enc, err := lookup(from)
		if err != nil {
			return nil, err
		}
		u, err = enc.NewDecoder().Bytes(b)
		if err != nil {
			return nil, &Error{Encoding: from, Detail: err.Error()}
		}
	}
	if err := validate(u, UTF8); err != nil {
		return nil, err
	}
	if to == UTF8 {
		return u, nil
	}
	if to == SQLASCII {
		if err := validate(u, SQLASCII); err != nil {
			return nil, err
		}
		return u, nil
	}

	enc, err := lookup(to)
	if err != nil {
		return nil, err
	}
	out, err := enc.NewEncoder().Bytes(u)
	if err != nil {
		return nil, &Error{Encoding: to, Detail: err.Error()}
	}
	return out, nil
}

func validate(b []byte, name string) error {
	switch name {
	case UTF8:
		if !utf8.Valid(b) {
			return &Error{Encoding: UTF8, Detail: "malformed UTF-8"}
		}
	case SQLASCII:
		for _, c := range b {
			if c >= 0x80 {
				return &Error{Encoding: SQLASCII, Detail: fmt.Sprintf("byte 0x%02x", c)}
			}
		}
	}
	return nil
}

func lookup(name string) (xenc.Encoding, error) {
	switch name {
	case Latin1:
		return charmap.ISO8859_1, nil
	case Win1252:
		return charmap.Windows1252, nil
	case SQLASCII:
		return nil, &Error{Encoding: name, Detail: "SQL_ASCII cannot be a transcoding target"}
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, &Error{Encoding: name, Detail: "unknown encoding"}
	}
	return enc, nil
}
