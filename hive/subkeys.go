package hive

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/libguestfs/libguestfs-sub015/internal/buf"
	"github.com/libguestfs/libguestfs-sub015/internal/format"
)

// leafEntry is a decoded (child offset, hash) pair from an lh leaf,
// paired with the child's resolved name for ordering comparisons.
type leafEntry struct {
	childAbs int
	hash     uint32
	name     string
}

// leafRef is one lf/lh leaf cell reachable from a parent's subkey
// index, either directly (subkey_lf points straight at it) or through
// one slot of an ri fan-out.
type leafRef struct {
	abs  int
	leaf format.LeafIndex
}

// subkeyLeaves resolves parentNk's subkey index into its constituent
// lf/lh leaves in order, the same walk NodeChildren uses for reads
// (readSubkeyIndex/readLeaf/readIndirect). riAbs is 0 when the index is
// a single leaf referenced directly by subkey_lf, and otherwise the
// absolute offset of the ri cell whose slots reference leaves[i].abs in
// order; that lets a caller rewrite exactly one ri slot in place
// without disturbing the rest of the fan-out.
func (h *Handle) subkeyLeaves(nk format.Nk) (riAbs int, leaves []leafRef, err error) {
	const op = "add_child"

	listRel := nk.SubkeyListOffset()
	if listRel == format.InvalidOffset {
		return 0, nil, nil
	}
	listAbs := format.HeaderSize + int(listRel)
	payload, err := h.cellPayload(listAbs)
	if err != nil {
		return 0, nil, err
	}
	id, ok := format.RecordID(payload)
	if !ok {
		return 0, nil, newErr(op, KindCorrupt, fmt.Errorf("subkey list too short for an ID"))
	}

	switch {
	case bytesEq(id, format.LfID), bytesEq(id, format.LhID):
		leaf, perr := format.ParseLeafIndex(payload)
		if perr != nil {
			return 0, nil, newErr(op, KindCorrupt, perr)
		}
		return 0, []leafRef{{abs: listAbs, leaf: leaf}}, nil

	case bytesEq(id, format.RiID):
		ri, perr := format.ParseRiIndex(payload)
		if perr != nil {
			return 0, nil, newErr(op, KindCorrupt, perr)
		}
		out := make([]leafRef, 0, ri.Count())
		for i := 0; i < ri.Count(); i++ {
			leafAbs := format.HeaderSize + int(ri.Entry(i))
			leafPayload, perr := h.cellPayload(leafAbs)
			if perr != nil {
				return 0, nil, newErr(op, KindCorrupt, fmt.Errorf("ri entry %d: %w", i, perr))
			}
			lid, lok := format.RecordID(leafPayload)
			if !lok || !(bytesEq(lid, format.LfID) || bytesEq(lid, format.LhID)) {
				return 0, nil, newErr(op, KindNotSupported, fmt.Errorf("ri entry %d does not reference an lf/lh leaf", i))
			}
			leaf, perr := format.ParseLeafIndex(leafPayload)
			if perr != nil {
				return 0, nil, newErr(op, KindCorrupt, perr)
			}
			out = append(out, leafRef{abs: leafAbs, leaf: leaf})
		}
		return listAbs, out, nil

	default:
		return 0, nil, newErr(op, KindNotSupported, fmt.Errorf("unsupported subkey index type %q", id))
	}
}

// insertSubkey links childAbs into parentAbs's subkey index, keeping
// the index sorted by case-insensitive name, then bumps the parent's
// nr_subkeys and max_subkey_name_len. Per spec.md's insertion
// algorithm, the target leaf is the one containing the first existing
// name greater than childName (or the last leaf, if childName sorts
// last); that leaf is replaced with a one-larger copy, and either the
// parent's direct subkey_lf or the specific ri slot that referenced the
// old leaf is rewritten to point at the replacement. This engine never
// synthesizes a new ri fan-out on insert, but an ri-shaped index
// inherited from a hive loaded off disk is fully supported.
func (h *Handle) insertSubkey(parentAbs, childAbs int, childName string) error {
	const op = "add_child"

	nk, err := h.nkAt(parentAbs)
	if err != nil {
		return err
	}
	count := int(nk.SubkeyCount())
	if count+1 > h.limits.MaxSubkeysPerNode {
		return newErr(op, KindOutOfRange, fmt.Errorf("parent already has %d subkeys", count))
	}

	var newListRel uint32
	if count == 0 {
		off, payload, err := h.allocate(format.IdxEntriesOff+format.LeafEntrySize, format.LhID)
		if err != nil {
			return err
		}
		format.InitLeafIndex(payload, 1)
		format.PutLeafEntry(payload, 0, uint32(childAbs-format.HeaderSize), format.HashLH(childName))
		newListRel = uint32(off - format.HeaderSize)
	} else {
		riAbs, leaves, err := h.subkeyLeaves(nk)
		if err != nil {
			return err
		}
		if len(leaves) == 0 {
			return newErr(op, KindCorrupt, fmt.Errorf("parent has %d subkeys but no subkey list", count))
		}

		perLeaf := make([][]leafEntry, len(leaves))
		targetLeaf, insertAt := len(leaves)-1, leaves[len(leaves)-1].leaf.Count()
		found := false
		for li, lr := range leaves {
			entries := make([]leafEntry, lr.leaf.Count())
			for i := 0; i < lr.leaf.Count(); i++ {
				off, hash := lr.leaf.Entry(i)
				abs := format.HeaderSize + int(off)
				name, nerr := h.NodeName(abs)
				if nerr != nil {
					return newErr(op, KindCorrupt, fmt.Errorf("existing leaf entry %d: %w", i, nerr))
				}
				if strings.EqualFold(name, childName) {
					return newErr(op, KindExists, fmt.Errorf("subkey %q already exists", childName))
				}
				entries[i] = leafEntry{childAbs: abs, hash: hash, name: name}
				if !found && strings.ToUpper(childName) < strings.ToUpper(name) {
					targetLeaf, insertAt, found = li, i, true
				}
			}
			perLeaf[li] = entries
		}

		old := leaves[targetLeaf]
		entries := perLeaf[targetLeaf]
		newCount := len(entries) + 1
		newLen := format.IdxEntriesOff + newCount*format.LeafEntrySize
		newOff, newPayload, err := h.allocate(newLen, format.LhID)
		if err != nil {
			return err
		}
		format.InitLeafIndex(newPayload, newCount)
		dst := 0
		for i := 0; i <= len(entries); i++ {
			if i == insertAt {
				format.PutLeafEntry(newPayload, dst, uint32(childAbs-format.HeaderSize), format.HashLH(childName))
				dst++
			}
			if i < len(entries) {
				hash := entries[i].hash
				if !old.leaf.IsLh() {
					// The replacement is always an lh leaf, so entries
					// copied from an lf leaf get the lh hash instead.
					hash = format.HashLH(entries[i].name)
				}
				format.PutLeafEntry(newPayload, dst, uint32(entries[i].childAbs-format.HeaderSize), hash)
				dst++
			}
		}

		if err := h.markUnused(old.abs); err != nil {
			return err
		}

		if riAbs == 0 {
			// Only leaf, referenced directly by the parent.
			newListRel = uint32(newOff - format.HeaderSize)
		} else {
			// ri-shaped: rewrite the one slot that pointed at old.abs;
			// the ri cell itself keeps its size and every other slot.
			riPayload, err := h.cellPayload(riAbs)
			if err != nil {
				return err
			}
			ri, err := format.ParseRiIndex(riPayload)
			if err != nil {
				return newErr(op, KindCorrupt, err)
			}
			for i := 0; i < ri.Count(); i++ {
				if format.HeaderSize+int(ri.Entry(i)) == old.abs {
					format.PutRiEntry(riPayload, i, uint32(newOff-format.HeaderSize))
					break
				}
			}
			newListRel = uint32(riAbs - format.HeaderSize)
		}
	}

	// Every allocate call above may have grown and reallocated the
	// backing buffer, so nk (resolved before them) can no longer be
	// trusted: re-resolve before the final field writes.
	nk, err = h.nkAt(parentAbs)
	if err != nil {
		return err
	}
	nk.SetSubkeyListOffset(newListRel)
	nk.SetSubkeyCount(uint32(count + 1))
	nameLen := uint32(2 * utf8.RuneCountInString(childName))
	if nameLen > nk.MaxSubkeyNameLen() {
		nk.SetMaxSubkeyNameLen(nameLen)
	}
	return nil
}

// removeSubkey unlinks childAbs from parentAbs's subkey index, shifting
// the remaining entries down in whichever leaf holds it (found
// directly off the parent, or inside one leaf of an ri fan-out), and
// decrements nr_subkeys. Removal never changes leaf count, so unlike
// insertSubkey it never needs to touch an ri cell's slots.
func (h *Handle) removeSubkey(parentAbs, childAbs int) error {
	const op = "delete_child"

	nk, err := h.nkAt(parentAbs)
	if err != nil {
		return err
	}
	_, leaves, err := h.subkeyLeaves(nk)
	if err != nil {
		return err
	}

	for _, lr := range leaves {
		found := -1
		for i := 0; i < lr.leaf.Count(); i++ {
			off, _ := lr.leaf.Entry(i)
			if format.HeaderSize+int(off) == childAbs {
				found = i
				break
			}
		}
		if found < 0 {
			continue
		}

		// Shift remaining entries down in place; the leaf cell keeps its
		// allocated size (shrinking nr_keys only), matching the rest of
		// the engine's "never reuse/compact" allocator policy.
		for i := found; i < lr.leaf.Count()-1; i++ {
			off, hash := lr.leaf.Entry(i + 1)
			format.PutLeafEntry(mustPayload(h, lr.abs), i, off, hash)
		}
		buf.PutU16LE(mustPayload(h, lr.abs)[format.IdxCountOff:], uint16(lr.leaf.Count()-1))

		nk.SetSubkeyCount(nk.SubkeyCount() - 1)
		return nil
	}
	return newErr(op, KindCorrupt, fmt.Errorf("child offset %#x not present in parent's subkey index", childAbs))
}

// mustPayload re-resolves a cell's payload for in-place mutation. The
// offset was already validated by the caller in this same operation, so
// the only way this can fail is a bug in the caller.
func mustPayload(h *Handle, offset int) []byte {
	payload, err := h.cellPayload(offset)
	if err != nil {
		panic(fmt.Sprintf("hive: invariant violated, previously-valid cell %#x became invalid: %v", offset, err))
	}
	return payload
}
