package codec

import (
	"errors"

	"github.com/jackc/pgx/v5/pgtype"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/pgstar/pgstar/pkg/datum"
)

// toRecordDatum converts a mapping value to a composite row. Fields are
// read by name; a missing or None member stores NULL in that position.
func (cv conv) toRecordDatum(v starlark.Value, desc *TypeDescriptor) (datum.Datum, bool, error) {
	tag := classify(v)
	if tag == tagNone {
		return nil, true, nil
	}
	if !tag.isMapping() {
		return nil, false, conversionErrf("value is not an object")
	}

	fields, err := cv.cat.LookupRowFields(desc.OID)
	if err != nil {
		return nil, false, err
	}

	values := make([]datum.Datum, len(fields))
	nulls := make([]bool, len(fields))
	for i, f := range fields {
		member, err := recordMember(v, tag, f.Name)
		if err != nil {
			return nil, false, inContext(err, "field %q", f.Name)
		}
		if member == nil {
			nulls[i] = true
			continue
		}
		fieldDesc, err := cv.Resolve(f.TypeOID, cv.scope)
		if err != nil {
			return nil, false, inContext(err, "field %q", f.Name)
		}
		d, isnull, err := cv.toDatum(member, fieldDesc)
		if err != nil {
			return nil, false, inContext(err, "field %q", f.Name)
		}
		values[i] = d
		nulls[i] = isnull
	}

	return &datum.Row{TypeOID: desc.OID, Values: values, Nulls: nulls}, false, nil
}

// recordMember reads one named member of a mapping value, returning nil
// when the member is absent.
func recordMember(v starlark.Value, tag valueTag, name string) (starlark.Value, error) {
	switch tag {
	case tagDict:
		member, found, err := v.(*starlark.Dict).Get(starlark.String(name))
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		return member, nil
	case tagStruct:
		member, err := v.(*starlarkstruct.Struct).Attr(name)
		if err != nil {
			var absent starlark.NoSuchAttrError
			if errors.As(err, &absent) {
				return nil, nil
			}
			return nil, err
		}
		return member, nil
	}
	return nil, conversionErrf("value is not an object")
}

// toRecordValue converts a composite row to a dict keyed by field name, in
// field declaration order. An anonymous record resolves its field set from
// the concrete row type it carries.
func (cv conv) toRecordValue(d datum.Datum, desc *TypeDescriptor) (starlark.Value, error) {
	row, ok := d.(*datum.Row)
	if !ok {
		return nil, conversionErrf("stored value %T is not a composite row", d)
	}

	typeOID := desc.OID
	if typeOID == pgtype.RecordOID {
		typeOID = row.TypeOID
	}
	fields, err := cv.cat.LookupRowFields(typeOID)
	if err != nil {
		return nil, err
	}
	if len(fields) != len(row.Values) {
		return nil, conversionErrf("row has %d values but type %d declares %d fields",
			len(row.Values), typeOID, len(fields))
	}

	out := starlark.NewDict(len(fields))
	for i, f := range fields {
		fieldDesc, err := cv.Resolve(f.TypeOID, cv.scope)
		if err != nil {
			return nil, inContext(err, "field %q", f.Name)
		}
		var isnull bool
		if row.Nulls != nil {
			isnull = row.Nulls[i]
		}
		v, err := cv.toValue(row.Values[i], isnull, fieldDesc)
		if err != nil {
			return nil, inContext(err, "field %q", f.Name)
		}
		if err := out.SetKey(starlark.String(f.Name), v); err != nil {
			return nil, inContext(err, "field %q", f.Name)
		}
	}
	return out, nil
}
