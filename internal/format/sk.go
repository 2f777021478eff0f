package format

import (
	"bytes"
	"fmt"

	"github.com/libguestfs/libguestfs-sub015/internal/buf"
)

// Sk is a decoded view of an sk (security descriptor) record. The
// descriptor payload itself is treated as an opaque blob; only the
// circular-list links and reference count are interpreted.
type Sk struct {
	raw []byte
}

func ParseSk(payload []byte) (Sk, error) {
	if len(payload) < SkFixedSize {
		return Sk{}, fmt.Errorf("sk record: %w", ErrTruncated)
	}
	if !bytes.Equal(payload[SkIDOff:SkIDOff+2], SkID) {
		return Sk{}, fmt.Errorf("sk record: %w", ErrSignature)
	}
	return Sk{raw: payload}, nil
}

func (s Sk) Flink() uint32     { return buf.U32LE(s.raw[SkFlinkOff:]) }
func (s Sk) Blink() uint32     { return buf.U32LE(s.raw[SkBlinkOff:]) }
func (s Sk) RefCount() uint32  { return buf.U32LE(s.raw[SkRefCountOff:]) }
func (s Sk) DescLen() uint32   { return buf.U32LE(s.raw[SkDescLenOff:]) }

func (s Sk) SetFlink(v uint32)    { buf.PutU32LE(s.raw[SkFlinkOff:], v) }
func (s Sk) SetBlink(v uint32)    { buf.PutU32LE(s.raw[SkBlinkOff:], v) }
func (s Sk) SetRefCount(v uint32) { buf.PutU32LE(s.raw[SkRefCountOff:], v) }

// InitSk lays out a brand-new sk record pointing at itself (a one-node
// circular list), with refcount 1 and the given opaque descriptor blob.
func InitSk(payload []byte, selfOffset uint32, descriptor []byte) {
	copy(payload[SkIDOff:], SkID)
	buf.PutU32LE(payload[SkFlinkOff:], selfOffset)
	buf.PutU32LE(payload[SkBlinkOff:], selfOffset)
	buf.PutU32LE(payload[SkRefCountOff:], 1)
	buf.PutU32LE(payload[SkDescLenOff:], uint32(len(descriptor)))
	copy(payload[SkDescOff:], descriptor)
}
