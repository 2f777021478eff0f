package hive

import (
	"fmt"
	"strings"

	"github.com/libguestfs/libguestfs-sub015/internal/buf"
	"github.com/libguestfs/libguestfs-sub015/internal/format"
)

// Offsets are kept as plain absolute file offsets (never converted to
// native pointers) so the writer can serialize the image byte-exactly
// and so a crafted cycle can't be followed through language-level
// aliasing. Every dereference below goes through cellPayload, which
// consults the BlockMap.

// cellPayload resolves offset through the BlockMap and returns the
// bytes after the 4-byte cell-length header, i.e. the record payload.
func (h *Handle) cellPayload(offset int) ([]byte, error) {
	if !h.bm.IsValidBlock(offset, len(h.data)) {
		return nil, newErr("resolve", KindCorrupt, fmt.Errorf("offset %#x is not a valid used block", offset))
	}
	ch, err := format.ParseCellHeader(h.data[offset:])
	if err != nil {
		return nil, newErr("resolve", KindCorrupt, err)
	}
	end := offset + int(ch.Len())
	if end > len(h.data) {
		return nil, newErr("resolve", KindCorrupt, fmt.Errorf("cell at %#x runs past end of file", offset))
	}
	return h.data[offset+format.BlockLenSize : end], nil
}

func (h *Handle) nkAt(offset int) (format.Nk, error) {
	payload, err := h.cellPayload(offset)
	if err != nil {
		return format.Nk{}, err
	}
	nk, err := format.ParseNk(payload)
	if err != nil {
		return format.Nk{}, newErr("nk", KindInvalidArgument, err)
	}
	return nk, nil
}

func (h *Handle) vkAt(offset int) (format.Vk, error) {
	payload, err := h.cellPayload(offset)
	if err != nil {
		return format.Vk{}, err
	}
	vk, err := format.ParseVk(payload)
	if err != nil {
		return format.Vk{}, newErr("vk", KindInvalidArgument, err)
	}
	return vk, nil
}

// Root returns the validated root offset, or an error of kind KindNoKey
// if the header's root pointer is unusable (Open already enforces this,
// so in practice Root only fails on a closed handle).
func (h *Handle) Root() (int, error) {
	if err := h.checkOpen("root"); err != nil {
		return 0, err
	}
	root := format.HeaderSize + int(h.header.RootCellOffset)
	if _, err := h.nkAt(root); err != nil {
		return 0, newErr("root", KindNoKey, err)
	}
	return root, nil
}

// decodeRecordName decodes either an nk or vk name given its raw bytes
// and ASCII flag, routing ill-formed UTF-16 to KindInvalidEncoding so
// callers can fall back to raw bytes if they need to.
func decodeRecordName(raw []byte, ascii bool, op string) (string, error) {
	name, err := format.DecodeName(raw, ascii)
	if err != nil {
		return "", newErr(op, KindInvalidEncoding, err)
	}
	return name, nil
}

// NodeName returns the decoded name of the nk at offset.
func (h *Handle) NodeName(offset int) (string, error) {
	if err := h.checkOpen("node_name"); err != nil {
		return "", err
	}
	nk, err := h.nkAt(offset)
	if err != nil {
		return "", err
	}
	raw, ok := nk.NameBytes()
	if !ok {
		return "", newErr("node_name", KindCorrupt, fmt.Errorf("name_len overruns cell"))
	}
	return decodeRecordName(raw, nk.ASCIIName(), "node_name")
}

// NodeParent returns the absolute offset of offset's parent nk.
func (h *Handle) NodeParent(offset int) (int, error) {
	if err := h.checkOpen("node_parent"); err != nil {
		return 0, err
	}
	nk, err := h.nkAt(offset)
	if err != nil {
		return 0, err
	}
	parentAbs := format.HeaderSize + int(nk.ParentOffset())
	if _, err := h.nkAt(parentAbs); err != nil {
		return 0, newErr("node_parent", KindCorrupt, fmt.Errorf("parent offset invalid: %w", err))
	}
	return parentAbs, nil
}

// NodeChildren resolves offset's subkey index (lf, lh, or ri) into the
// ordered list of child nk offsets, in the same order the index blocks
// store them (which the writer keeps sorted, case-insensitively, by
// name).
func (h *Handle) NodeChildren(offset int) ([]int, error) {
	if err := h.checkOpen("node_children"); err != nil {
		return nil, err
	}
	nk, err := h.nkAt(offset)
	if err != nil {
		return nil, err
	}
	nrSubkeys := int(nk.SubkeyCount())
	if nrSubkeys == 0 {
		return nil, nil
	}
	if nrSubkeys > h.limits.MaxSubkeysPerNode {
		return nil, newErr("node_children", KindOutOfRange, fmt.Errorf("nr_subkeys %d exceeds limit", nrSubkeys))
	}

	listRel := nk.SubkeyListOffset()
	if listRel == format.InvalidOffset {
		return nil, newErr("node_children", KindNotSupported, fmt.Errorf("nr_subkeys=%d but no subkey list", nrSubkeys))
	}
	listAbs := format.HeaderSize + int(listRel)

	children, err := h.readSubkeyIndex(listAbs)
	if err != nil {
		return nil, err
	}
	if len(children) != nrSubkeys {
		return nil, newErr("node_children", KindNotSupported,
			fmt.Errorf("subkey index yielded %d entries, nr_subkeys says %d", len(children), nrSubkeys))
	}
	return children, nil
}

// readSubkeyIndex dispatches on the block's type ID: lf/lh leaves are
// read directly; ri indirects concatenate their referenced leaves.
func (h *Handle) readSubkeyIndex(listAbs int) ([]int, error) {
	payload, err := h.cellPayload(listAbs)
	if err != nil {
		return nil, err
	}
	id, ok := format.RecordID(payload)
	if !ok {
		return nil, newErr("node_children", KindCorrupt, fmt.Errorf("subkey list too short for an ID"))
	}

	switch {
	case bytesEq(id, format.LfID), bytesEq(id, format.LhID):
		return h.readLeaf(payload)
	case bytesEq(id, format.RiID):
		return h.readIndirect(payload)
	default:
		return nil, newErr("node_children", KindNotSupported, fmt.Errorf("unsupported subkey index type %q", id))
	}
}

func (h *Handle) readLeaf(payload []byte) ([]int, error) {
	leaf, err := format.ParseLeafIndex(payload)
	if err != nil {
		return nil, newErr("node_children", KindCorrupt, err)
	}
	out := make([]int, 0, leaf.Count())
	for i := 0; i < leaf.Count(); i++ {
		off, _ := leaf.Entry(i)
		abs := format.HeaderSize + int(off)
		if _, err := h.nkAt(abs); err != nil {
			return nil, newErr("node_children", KindCorrupt, fmt.Errorf("leaf entry %d: %w", i, err))
		}
		out = append(out, abs)
	}
	return out, nil
}

func (h *Handle) readIndirect(payload []byte) ([]int, error) {
	ri, err := format.ParseRiIndex(payload)
	if err != nil {
		return nil, newErr("node_children", KindCorrupt, err)
	}
	var out []int
	for i := 0; i < ri.Count(); i++ {
		leafAbs := format.HeaderSize + int(ri.Entry(i))
		leafPayload, err := h.cellPayload(leafAbs)
		if err != nil {
			return nil, newErr("node_children", KindCorrupt, fmt.Errorf("ri entry %d: %w", i, err))
		}
		id, ok := format.RecordID(leafPayload)
		if !ok || !(bytesEq(id, format.LfID) || bytesEq(id, format.LhID)) {
			return nil, newErr("node_children", KindNotSupported, fmt.Errorf("ri entry %d does not reference an lf/lh leaf", i))
		}
		children, err := h.readLeaf(leafPayload)
		if err != nil {
			return nil, err
		}
		out = append(out, children...)
	}
	return out, nil
}

// NodeGetChild performs a case-insensitive linear scan over offset's
// children, returning the first name match.
func (h *Handle) NodeGetChild(offset int, name string) (int, error) {
	children, err := h.NodeChildren(offset)
	if err != nil {
		return 0, err
	}
	for _, c := range children {
		cname, err := h.NodeName(c)
		if err != nil {
			continue
		}
		if strings.EqualFold(cname, name) {
			return c, nil
		}
	}
	return 0, newErr("node_get_child", KindNotSupported, fmt.Errorf("no child named %q", name))
}

// NodeValues resolves offset's value-list into the ordered list of vk
// offsets.
func (h *Handle) NodeValues(offset int) ([]int, error) {
	if err := h.checkOpen("node_values"); err != nil {
		return nil, err
	}
	nk, err := h.nkAt(offset)
	if err != nil {
		return nil, err
	}
	nrValues := int(nk.ValueCount())
	if nrValues == 0 {
		return nil, nil
	}
	if nrValues > h.limits.MaxValuesPerNode {
		return nil, newErr("node_values", KindOutOfRange, fmt.Errorf("nr_values %d exceeds limit", nrValues))
	}

	listRel := nk.ValueListOffset()
	if listRel == format.InvalidOffset {
		return nil, newErr("node_values", KindNotSupported, fmt.Errorf("nr_values=%d but no value list", nrValues))
	}
	listAbs := format.HeaderSize + int(listRel)

	need, ok := buf.AddOverflowSafe(format.ValueListEntrySize, format.ValueListEntrySize*(nrValues-1))
	if !ok {
		return nil, newErr("node_values", KindOutOfRange, fmt.Errorf("value-list length overflow"))
	}
	payload, err := h.cellPayload(listAbs)
	if err != nil {
		return nil, err
	}
	if len(payload) < need {
		return nil, newErr("node_values", KindCorrupt, fmt.Errorf("value-list cell too short for %d entries", nrValues))
	}
	vl, err := format.ParseValueList(payload, nrValues)
	if err != nil {
		return nil, newErr("node_values", KindCorrupt, err)
	}

	out := make([]int, nrValues)
	for i := 0; i < nrValues; i++ {
		abs := format.HeaderSize + int(vl.Offset(i))
		if _, err := h.vkAt(abs); err != nil {
			return nil, newErr("node_values", KindCorrupt, fmt.Errorf("value %d: %w", i, err))
		}
		out[i] = abs
	}
	return out, nil
}

// NodeGetValue performs a case-insensitive linear scan over offset's
// values.
func (h *Handle) NodeGetValue(offset int, name string) (int, error) {
	values, err := h.NodeValues(offset)
	if err != nil {
		return 0, err
	}
	for _, v := range values {
		vname, err := h.ValueKey(v)
		if err != nil {
			continue
		}
		if strings.EqualFold(vname, name) {
			return v, nil
		}
	}
	return 0, newErr("node_get_value", KindNotSupported, fmt.Errorf("no value named %q", name))
}

// ValueKey returns the decoded name of the vk at offset.
func (h *Handle) ValueKey(offset int) (string, error) {
	if err := h.checkOpen("value_key"); err != nil {
		return "", err
	}
	vk, err := h.vkAt(offset)
	if err != nil {
		return "", err
	}
	raw, ok := vk.NameBytes()
	if !ok {
		return "", newErr("value_key", KindCorrupt, fmt.Errorf("name_len overruns cell"))
	}
	return decodeRecordName(raw, vk.ASCIIName(), "value_key")
}

func bytesEq(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
