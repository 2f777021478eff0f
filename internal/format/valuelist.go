package format

import "github.com/libguestfs/libguestfs-sub015/internal/buf"

// ValueList is a headerless block whose payload is a flat array of
// 4-byte offsets, one per value owned by the parent nk.
type ValueList struct {
	raw []byte
}

// ParseValueList wraps payload, checking it is large enough for n
// entries. It performs no signature check: value-list cells carry no ID.
func ParseValueList(payload []byte, n int) (ValueList, error) {
	need := n * ValueListEntrySize
	if len(payload) < need {
		return ValueList{}, ErrTruncated
	}
	return ValueList{raw: payload}, nil
}

func (vl ValueList) Offset(i int) uint32 {
	return buf.U32LE(vl.raw[i*ValueListEntrySize:])
}

func (vl ValueList) PutOffset(i int, off uint32) {
	buf.PutU32LE(vl.raw[i*ValueListEntrySize:], off)
}
