package hive

import (
	"fmt"
	"unicode/utf8"

	"github.com/libguestfs/libguestfs-sub015/internal/format"
)

// ValueSpec describes one value to be written by SetValues. Data is
// always given as the final on-disk bytes for Type (e.g. callers
// wanting a string encode it to UTF-16LE themselves via
// format.EncodeUTF16LE, the same helper the navigator's decode path
// uses in reverse).
type ValueSpec struct {
	Name string
	Type uint32
	Data []byte
}

// SetValues replaces node's entire value list. Every previously
// referenced vk, its out-of-line data block (if any), and the old
// value-list cell itself are marked unused first; this is a full
// replace, not an incremental diff, matching the format's headerless,
// unordered value-list shape which carries no stable per-entry identity
// to diff against.
func (h *Handle) SetValues(node int, values []ValueSpec) error {
	const op = "set_values"
	if err := h.checkWritable(op); err != nil {
		return err
	}
	if len(values) > h.limits.MaxValuesPerNode {
		return newErr(op, KindOutOfRange, fmt.Errorf("%d values exceeds limit", len(values)))
	}

	if err := h.freeValues(node); err != nil {
		return err
	}

	if len(values) == 0 {
		nk, err := h.nkAt(node)
		if err != nil {
			return err
		}
		nk.SetValueCount(0)
		nk.SetValueListOffset(format.InvalidOffset)
		return nil
	}

	// Allocate and fill in every vk (and its out-of-line data, if any)
	// first, collecting plain offsets rather than holding any view into
	// the backing buffer across calls: each allocate may grow and
	// reallocate h.data, invalidating any earlier-resolved slice.
	vkAbs := make([]int, len(values))
	var maxNameLen, maxDataLen uint32
	for i, spec := range values {
		off, err := h.writeVk(spec)
		if err != nil {
			return err
		}
		vkAbs[i] = off
		if n := uint32(2 * utf8.RuneCountInString(spec.Name)); n > maxNameLen {
			maxNameLen = n
		}
		if n := uint32(len(spec.Data)); n > maxDataLen {
			maxDataLen = n
		}
	}

	// The value-list cell is the last allocation, so listPayload stays
	// valid for the rest of this function.
	listLen := format.BlockLenSize + format.ValueListEntrySize*len(values)
	listOff, listPayload, err := h.allocate(listLen, nil)
	if err != nil {
		return err
	}
	vl, err := format.ParseValueList(listPayload, len(values))
	if err != nil {
		return newErr(op, KindCorrupt, err)
	}
	for i, abs := range vkAbs {
		vl.PutOffset(i, uint32(abs-format.HeaderSize))
	}

	nk, err := h.nkAt(node)
	if err != nil {
		return err
	}
	nk.SetValueCount(uint32(len(values)))
	nk.SetValueListOffset(uint32(listOff - format.HeaderSize))
	if maxNameLen > nk.MaxValueNameLen() {
		nk.SetMaxValueNameLen(maxNameLen)
	}
	if maxDataLen > nk.MaxValueDataLen() {
		nk.SetMaxValueDataLen(maxDataLen)
	}
	return nil
}

// writeVk allocates and fills in a new vk record (plus its out-of-line
// data block, if the data doesn't fit inline) for spec.
func (h *Handle) writeVk(spec ValueSpec) (int, error) {
	if len(spec.Data) > h.limits.MaxValueDataLen {
		return 0, newErr("set_values", KindOutOfRange, fmt.Errorf("value %q data length %d exceeds limit", spec.Name, len(spec.Data)))
	}
	nameRaw, ascii := format.EncodeName(spec.Name)

	// Allocate the out-of-line data block, if any, before the vk record:
	// the vk record must be the last allocate call in this function so
	// its payload slice is still valid when we fill it in below.
	var dataOff int
	outOfLine := len(spec.Data) > 4
	if outOfLine {
		off, dataPayload, err := h.allocate(format.BlockLenSize+len(spec.Data), nil)
		if err != nil {
			return 0, err
		}
		copy(dataPayload, spec.Data)
		dataOff = off
	}

	vkOff, vkPayload, err := h.allocate(format.BlockLenSize+format.VkFixedSize+len(nameRaw), format.VkID)
	if err != nil {
		return 0, err
	}
	format.InitVk(vkPayload, len(nameRaw))
	vk, err := format.ParseVk(vkPayload)
	if err != nil {
		return 0, newErr("set_values", KindCorrupt, err)
	}
	vk.WriteName(nameRaw)
	if !ascii {
		vk.SetFlags(vk.Flags() &^ format.VkFlagASCIIName)
	}
	vk.SetDataType(spec.Type)

	if outOfLine {
		vk.SetOutOfLineData(uint32(dataOff-format.HeaderSize), uint32(len(spec.Data)))
	} else {
		vk.SetInlineData(spec.Data)
	}
	return vkOff, nil
}

// freeValues marks node's current value-list cell, every vk it
// references, and each vk's out-of-line data block as unused.
func (h *Handle) freeValues(node int) error {
	vks, err := h.NodeValues(node)
	if err != nil {
		return err
	}
	if len(vks) == 0 {
		return nil
	}

	nk, err := h.nkAt(node)
	if err != nil {
		return err
	}
	listAbs := format.HeaderSize + int(nk.ValueListOffset())

	for _, vkAbs := range vks {
		vk, err := h.vkAt(vkAbs)
		if err != nil {
			return err
		}
		if !vk.Inline() {
			dataAbs := format.HeaderSize + int(vk.DataOffset())
			if err := h.markUnused(dataAbs); err != nil {
				return err
			}
		}
		if err := h.markUnused(vkAbs); err != nil {
			return err
		}
	}
	return h.markUnused(listAbs)
}
