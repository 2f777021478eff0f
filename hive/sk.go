package hive

import (
	"fmt"

	"github.com/libguestfs/libguestfs-sub015/internal/format"
)

// skAt resolves and validates an sk cell.
func (h *Handle) skAt(offset int) (format.Sk, error) {
	payload, err := h.cellPayload(offset)
	if err != nil {
		return format.Sk{}, err
	}
	sk, err := format.ParseSk(payload)
	if err != nil {
		return format.Sk{}, newErr("sk", KindInvalidArgument, err)
	}
	return sk, nil
}

// inheritSk points childAbs's nk at parentAbs's security descriptor (if
// any) and bumps its reference count. classname and the descriptor
// payload itself stay opaque: this engine only maintains the
// refcounted circular list, per the format's documented scope.
func (h *Handle) inheritSk(parentAbs, childAbs int) error {
	parentNk, err := h.nkAt(parentAbs)
	if err != nil {
		return err
	}
	skRel := parentNk.SkOffset()
	if skRel == format.InvalidOffset {
		return nil
	}
	skAbs := format.HeaderSize + int(skRel)
	sk, err := h.skAt(skAbs)
	if err != nil {
		return newErr("add_child", KindCorrupt, fmt.Errorf("parent sk: %w", err))
	}
	sk.SetRefCount(sk.RefCount() + 1)

	childNk, err := h.nkAt(childAbs)
	if err != nil {
		return err
	}
	childNk.SetSkOffset(skRel)
	return nil
}

// releaseSk decrements offset's sk refcount; at zero it unlinks the
// record from the circular flink/blink list and marks it unused. A
// refcount already at zero indicates the tree's bookkeeping is
// corrupt, since every nk referencing an sk must have incremented it.
func (h *Handle) releaseSk(skAbs int) error {
	const op = "delete_child"
	sk, err := h.skAt(skAbs)
	if err != nil {
		return err
	}
	ref := sk.RefCount()
	if ref == 0 {
		return newErr(op, KindCorrupt, fmt.Errorf("sk at %#x has refcount 0 but is still referenced", skAbs))
	}
	ref--
	sk.SetRefCount(ref)
	if ref > 0 {
		return nil
	}

	flinkAbs := format.HeaderSize + int(sk.Flink())
	blinkAbs := format.HeaderSize + int(sk.Blink())
	if flinkAbs != skAbs {
		next, err := h.skAt(flinkAbs)
		if err != nil {
			return newErr(op, KindCorrupt, fmt.Errorf("sk flink: %w", err))
		}
		next.SetBlink(sk.Blink())
	}
	if blinkAbs != skAbs {
		prev, err := h.skAt(blinkAbs)
		if err != nil {
			return newErr(op, KindCorrupt, fmt.Errorf("sk blink: %w", err))
		}
		prev.SetFlink(sk.Flink())
	}
	return h.markUnused(skAbs)
}
