package codec

import (
	startime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// valueTag is the closed classification of a runtime value, computed once
// per value and then matched exhaustively by the codecs.
type valueTag int

const (
	tagNone valueTag = iota
	tagBool
	tagInt
	tagFloat
	tagString
	tagBytes
	tagTime
	tagList
	tagTuple
	tagDict
	tagStruct
	tagView
	tagOther
)

func classify(v starlark.Value) valueTag {
	switch v.(type) {
	case starlark.NoneType:
		return tagNone
	case starlark.Bool:
		return tagBool
	case starlark.Int:
		return tagInt
	case starlark.Float:
		return tagFloat
	case starlark.String:
		return tagString
	case starlark.Bytes:
		return tagBytes
	case startime.Time:
		return tagTime
	case *starlark.List:
		return tagList
	case starlark.Tuple:
		return tagTuple
	case *starlark.Dict:
		return tagDict
	case *starlarkstruct.Struct:
		return tagStruct
	case *ArrayView:
		return tagView
	}
	return tagOther
}

func (t valueTag) isNumber() bool { return t == tagInt || t == tagFloat }

func (t valueTag) isSequence() bool {
	return t == tagList || t == tagTuple || t == tagView
}

func (t valueTag) isMapping() bool { return t == tagDict || t == tagStruct }
