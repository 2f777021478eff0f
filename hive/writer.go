package hive

import (
	"fmt"
	"os"

	"github.com/libguestfs/libguestfs-sub015/internal/format"
)

// AddChild creates a new, empty subkey named name directly under
// parent, inheriting parent's security descriptor. It fails with
// KindExists if a child of that name (case-insensitively) is already
// present.
func (h *Handle) AddChild(parent int, name string) (int, error) {
	const op = "add_child"
	if err := h.checkWritable(op); err != nil {
		return 0, err
	}
	if _, err := h.nkAt(parent); err != nil {
		return 0, err
	}
	if _, err := h.NodeGetChild(parent, name); err == nil {
		return 0, newErr(op, KindExists, fmt.Errorf("subkey %q already exists", name))
	}

	nameRaw, ascii := format.EncodeName(name)
	childOff, payload, err := h.allocate(format.BlockLenSize+format.NkFixedSize+len(nameRaw), format.NkID)
	if err != nil {
		return 0, err
	}
	format.InitFixed(payload, uint32(parent-format.HeaderSize), len(nameRaw))
	nk, err := format.ParseNk(payload)
	if err != nil {
		return 0, newErr(op, KindCorrupt, err)
	}
	nk.WriteName(nameRaw)
	if !ascii {
		nk.SetFlags(nk.Flags() &^ format.NkFlagASCIIName)
	}

	if err := h.insertSubkey(parent, childOff, name); err != nil {
		return 0, err
	}
	if err := h.inheritSk(parent, childOff); err != nil {
		return 0, err
	}
	return childOff, nil
}

// DeleteChild recursively removes node (and its entire subtree: values,
// subkeys, class name, and security descriptor reference) and unlinks
// it from its parent's subkey index. Deleting the root is rejected.
func (h *Handle) DeleteChild(node int) error {
	const op = "delete_child"
	if err := h.checkWritable(op); err != nil {
		return err
	}
	root, err := h.Root()
	if err != nil {
		return err
	}
	if node == root {
		return newErr(op, KindInvalidArgument, fmt.Errorf("cannot delete the root key"))
	}
	parent, err := h.NodeParent(node)
	if err != nil {
		return err
	}

	if err := h.deleteSubtree(node); err != nil {
		return err
	}
	return h.removeSubkey(parent, node)
}

// deleteSubtree frees every cell node owns, recursing into children
// first (so a partially-failed delete never leaves an unreachable
// child dangling off a freed parent). It does not touch node's entry
// in its parent's subkey index; the caller does that once the whole
// subtree is gone.
func (h *Handle) deleteSubtree(node int) error {
	nk, err := h.nkAt(node)
	if err != nil {
		return err
	}

	children, err := h.NodeChildren(node)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := h.deleteSubtree(c); err != nil {
			return err
		}
	}

	if err := h.freeValues(node); err != nil {
		return err
	}
	if err := h.freeSubkeyIndex(nk); err != nil {
		return err
	}
	if rel := nk.ClassNameOffset(); rel != format.InvalidOffset {
		if err := h.markUnused(format.HeaderSize + int(rel)); err != nil {
			return err
		}
	}
	if rel := nk.SkOffset(); rel != format.InvalidOffset {
		if err := h.releaseSk(format.HeaderSize + int(rel)); err != nil {
			return err
		}
	}
	return h.markUnused(node)
}

// freeSubkeyIndex marks nk's subkey index cell(s) as unused: a single
// lf/lh leaf directly, or every referenced leaf plus the ri cell itself
// for an indirect index. It never frees the child nk records
// themselves; the caller owns that.
func (h *Handle) freeSubkeyIndex(nk format.Nk) error {
	listRel := nk.SubkeyListOffset()
	if listRel == format.InvalidOffset {
		return nil
	}
	listAbs := format.HeaderSize + int(listRel)
	payload, err := h.cellPayload(listAbs)
	if err != nil {
		return err
	}
	id, ok := format.RecordID(payload)
	if !ok {
		return newErr("delete_child", KindCorrupt, fmt.Errorf("subkey list too short for an ID"))
	}

	if bytesEq(id, format.RiID) {
		ri, err := format.ParseRiIndex(payload)
		if err != nil {
			return newErr("delete_child", KindCorrupt, err)
		}
		for i := 0; i < ri.Count(); i++ {
			leafAbs := format.HeaderSize + int(ri.Entry(i))
			if err := h.markUnused(leafAbs); err != nil {
				return err
			}
		}
	}
	return h.markUnused(listAbs)
}

// Commit finalizes the in-memory image and writes it to path: it bumps
// both header sequence numbers to mark the write as clean, recomputes
// Blocks from the allocator's current high-water mark, recalculates the
// header checksum, and writes the whole buffer out. The Handle remains
// open and writable afterward, and its in-memory image is the one just
// written.
func (h *Handle) Commit(path string) error {
	const op = "commit"
	if err := h.checkWritable(op); err != nil {
		return err
	}

	h.header.Sequence1++
	h.header.Sequence2 = h.header.Sequence1
	h.header.Blocks = uint32(h.endPages - format.HeaderSize)
	format.WriteHeader(h.data[:format.HeaderSize], h.header)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return newErr(op, KindIO, err)
	}
	defer f.Close()
	if _, err := f.Write(h.data); err != nil {
		return newErr(op, KindIO, err)
	}
	if err := f.Sync(); err != nil {
		return newErr(op, KindIO, err)
	}
	return nil
}
