package memory

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pgstar/pgstar/pkg/catalog"
	"github.com/pgstar/pgstar/pkg/datum"
	"github.com/pgstar/pgstar/pkg/jsonb"
)

var engineEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999Z07:00",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05.999999Z07:00",
	"2006-01-02T15:04:05.999999",
	"2006-01-02",
}

func textErr(format string, args ...any) error {
	return &catalog.DatabaseError{
		Code:    catalog.CodeInvalidTextRepresentation,
		Message: fmt.Sprintf(format, args...),
	}
}

func rangeErr(what string) error {
	return &catalog.DatabaseError{
		Code:    catalog.CodeNumericValueOutOfRange,
		Message: what + " out of range",
	}
}

// ParseText implements catalog.TextIO: the engine's text input function for
// each registered type. Validation failures carry the engine's own SQLSTATE.
func (c *Catalog) ParseText(oid uint32, text string) (datum.Datum, error) {
	e, ok := c.types[oid]
	if !ok {
		return nil, &catalog.LookupError{OID: oid, What: "unknown type"}
	}
	if e.domainBase != 0 {
		return c.ParseText(e.domainBase, text)
	}
	if e.layout.Category == catalog.CategoryArray {
		return c.parseArrayText(e, text)
	}

	switch oid {
	case pgtype.BoolOID:
		switch strings.ToLower(strings.TrimSpace(text)) {
		case "t", "true", "yes", "on", "1":
			return datum.Bool(true), nil
		case "f", "false", "no", "off", "0":
			return datum.Bool(false), nil
		}
		return nil, textErr("invalid input syntax for type boolean: %q", text)

	case pgtype.Int2OID:
		v, err := parseInt(text, "smallint", math.MinInt16, math.MaxInt16)
		if err != nil {
			return nil, err
		}
		return datum.Int2(v), nil
	case pgtype.Int4OID:
		v, err := parseInt(text, "integer", math.MinInt32, math.MaxInt32)
		if err != nil {
			return nil, err
		}
		return datum.Int4(v), nil
	case pgtype.Int8OID:
		v, err := parseInt(text, "bigint", math.MinInt64, math.MaxInt64)
		if err != nil {
			return nil, err
		}
		return datum.Int8(v), nil
	case pgtype.OIDOID:
		v, err := parseInt(text, "oid", 0, math.MaxUint32)
		if err != nil {
			return nil, err
		}
		return datum.OID(v), nil

	case pgtype.Float4OID:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 32)
		if err != nil {
			return nil, textErr("invalid input syntax for type real: %q", text)
		}
		return datum.Float4(float32(f)), nil
	case pgtype.Float8OID:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, textErr("invalid input syntax for type double precision: %q", text)
		}
		return datum.Float8(f), nil

	case pgtype.NumericOID:
		d, _, err := apd.NewFromString(strings.TrimSpace(text))
		if err != nil {
			return nil, textErr("invalid input syntax for type numeric: %q", text)
		}
		return datum.NewNumeric(d), nil

	case pgtype.DateOID:
		t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(text), time.UTC)
		if err != nil {
			return nil, textErr("invalid input syntax for type date: %q", text)
		}
		// Unix-second arithmetic; a Duration-based difference overflows
		// a few hundred years out from the epoch.
		return datum.Date(int32((t.Unix() - engineEpoch.Unix()) / 86400)), nil

	case pgtype.TimestampOID, pgtype.TimestamptzOID:
		s := strings.TrimSpace(text)
		for _, layout := range timestampLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				micros := (t.Unix()-engineEpoch.Unix())*1_000_000 + int64(t.Nanosecond())/1000
				return datum.Timestamp(micros), nil
			}
		}
		return nil, textErr("invalid input syntax for type timestamp: %q", text)

	case pgtype.ByteaOID:
		s := strings.TrimSpace(text)
		if !strings.HasPrefix(s, `\x`) {
			return nil, textErr("invalid input syntax for type bytea: %q", text)
		}
		b, err := hex.DecodeString(s[2:])
		if err != nil {
			return nil, textErr("invalid hexadecimal data: %q", text)
		}
		return datum.NewBytea(b), nil

	case pgtype.JSONOID:
		if _, err := jsonb.Parse([]byte(text)); err != nil {
			return nil, textErr("invalid input syntax for type json: %v", err)
		}
		return datum.NewJSON([]byte(text)), nil
	case pgtype.JSONBOID:
		root, err := jsonb.Parse([]byte(text))
		if err != nil {
			return nil, textErr("invalid input syntax for type jsonb: %v", err)
		}
		return datum.JSONB{Root: root}, nil

	case pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID, pgtype.XMLOID, pgtype.UnknownOID:
		return datum.NewText([]byte(text)), nil

	case pgtype.RecordOID:
		return nil, &catalog.DatabaseError{
			Code:    catalog.CodeFeatureNotSupported,
			Message: "input of anonymous composite types is not implemented",
		}
	}

	if e.fields != nil {
		return nil, &catalog.DatabaseError{
			Code:    catalog.CodeFeatureNotSupported,
			Message: fmt.Sprintf("input of composite type %s from text is not implemented", e.name),
		}
	}
	return nil, &catalog.LookupError{OID: oid, What: "no text input function"}
}

func parseInt(text, typeName string, min, max int64) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return 0, rangeErr(typeName)
		}
		return 0, textErr("invalid input syntax for type %s: %q", typeName, text)
	}
	if v < min || v > max {
		return 0, rangeErr(typeName)
	}
	return v, nil
}

// RenderText implements catalog.TextIO: the engine's text output function.
func (c *Catalog) RenderText(oid uint32, d datum.Datum) (string, error) {
	e, ok := c.types[oid]
	if !ok {
		return "", &catalog.LookupError{OID: oid, What: "unknown type"}
	}
	if e.domainBase != 0 {
		return c.RenderText(e.domainBase, d)
	}

	switch v := d.(type) {
	case datum.Bool:
		if v {
			return "t", nil
		}
		return "f", nil
	case datum.Int2:
		return strconv.FormatInt(int64(v), 10), nil
	case datum.Int4:
		return strconv.FormatInt(int64(v), 10), nil
	case datum.Int8:
		return strconv.FormatInt(int64(v), 10), nil
	case datum.OID:
		return strconv.FormatUint(uint64(v), 10), nil
	case datum.Float4:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case datum.Float8:
		return strconv.FormatFloat(float64(v), 'g', -1, 64), nil
	case datum.Numeric:
		return v.Dec.Text('f'), nil
	case datum.Date:
		return engineEpoch.AddDate(0, 0, int(v)).Format("2006-01-02"), nil
	case datum.Timestamp:
		t := time.Unix(engineEpoch.Unix()+int64(v)/1_000_000, (int64(v)%1_000_000)*1000).UTC()
		if oid == pgtype.TimestamptzOID {
			return t.Format("2006-01-02 15:04:05.999999-07"), nil
		}
		return t.Format("2006-01-02 15:04:05.999999"), nil
	case datum.Text:
		b, _, err := v.Detoast()
		if err != nil {
			return "", err
		}
		return string(b), nil
	case datum.Bytea:
		b, _, err := v.Detoast()
		if err != nil {
			return "", err
		}
		return `\x` + hex.EncodeToString(b), nil
	case datum.JSON:
		b, _, err := v.Detoast()
		if err != nil {
			return "", err
		}
		return string(b), nil
	case datum.JSONB:
		return string(jsonb.Render(v.Root)), nil
	case *datum.Array:
		return c.renderArrayText(v)
	case *datum.Row:
		return c.renderRowText(v)
	}
	return "", &catalog.LookupError{OID: oid, What: fmt.Sprintf("no text output function for %T", d)}
}
