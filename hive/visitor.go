package hive

import (
	"fmt"

	"github.com/libguestfs/libguestfs-sub015/internal/format"
)

// Visitor is a set of optional callbacks for a depth-first traversal.
// Any callback left nil is simply skipped. If ValueAny is set it
// receives every value's raw bytes and supersedes the per-type
// callbacks entirely for that traversal.
//
// A callback returning a non-nil error aborts the whole traversal
// immediately; that error is returned from Visit unchanged, regardless
// of VisitFlags.SkipBad (skip_bad only tolerates structural decode
// failures, never callback decisions).
type Visitor struct {
	NodeStart func(offset int, name string) error
	NodeEnd   func(offset int, name string) error

	ValueAny func(offset int, name string, typ uint32, raw []byte) error

	ValueString       func(offset int, name string, s string) error
	ValueExpandString func(offset int, name string, s string) error
	ValueMultiStrings func(offset int, name string, ss []string) error
	ValueDword        func(offset int, name string, v int32) error
	ValueQword        func(offset int, name string, v int64) error
	ValueBinary       func(offset int, name string, raw []byte) error
	// ValueOther handles none/link/resource_*/other unclassified types.
	ValueOther func(offset int, name string, typ uint32, raw []byte) error

	// ValueStringInvalidUTF16 is the fallback for string-typed values
	// whose payload fails UTF-16 decoding; it receives the raw bytes so
	// the caller can still emit them (e.g. base64-encoded).
	ValueStringInvalidUTF16 func(offset int, name string, raw []byte) error
}

// abortSignal marks an error that originated from a user callback; it
// must propagate through every SkipBad check untouched.
type abortSignal struct{ err error }

func (a *abortSignal) Error() string { return a.err.Error() }
func (a *abortSignal) Unwrap() error { return a.err }

func abort(err error) error {
	if err == nil {
		return nil
	}
	return &abortSignal{err: err}
}

// Visit performs a depth-first traversal starting at start. A
// per-traversal clone of the BlockMap tracks "unvisited" nodes so a
// crafted cycle in the subkey graph is broken rather than looping
// forever.
func (h *Handle) Visit(start int, v Visitor, flags VisitFlags) error {
	if err := h.checkOpen("visit"); err != nil {
		return err
	}
	unvisited := h.bm.Clone()
	err := h.visitNode(start, v, flags, unvisited)
	if as, ok := err.(*abortSignal); ok {
		return as.err
	}
	return err
}

func (h *Handle) visitNode(offset int, v Visitor, flags VisitFlags, unvisited *BlockMap) error {
	if !unvisited.Test(offset) {
		if flags.SkipBad {
			h.log.Warn("visit: cycle detected, skipping", "offset", offset)
			return nil
		}
		return newErr("visit", KindLoop, fmt.Errorf("cycle detected revisiting offset %#x", offset))
	}
	unvisited.Clear(offset)

	name, err := h.NodeName(offset)
	if err != nil {
		if flags.SkipBad {
			h.log.Warn("visit: skipping node with unreadable name", "offset", offset, "error", err)
			return nil
		}
		return err
	}

	if v.NodeStart != nil {
		if cerr := v.NodeStart(offset, name); cerr != nil {
			return abort(cerr)
		}
	}

	if err := h.visitValues(offset, v, flags); err != nil {
		if _, ok := err.(*abortSignal); ok {
			return err
		}
		if !flags.SkipBad {
			return err
		}
		h.log.Warn("visit: skipping malformed value under node", "offset", offset, "error", err)
	}

	children, err := h.NodeChildren(offset)
	if err != nil {
		if !flags.SkipBad {
			return err
		}
		h.log.Warn("visit: skipping malformed subkey index", "offset", offset, "error", err)
	} else {
		for _, c := range children {
			if err := h.visitNode(c, v, flags, unvisited); err != nil {
				if _, ok := err.(*abortSignal); ok {
					return err
				}
				if !flags.SkipBad {
					return err
				}
			}
		}
	}

	if v.NodeEnd != nil {
		if cerr := v.NodeEnd(offset, name); cerr != nil {
			return abort(cerr)
		}
	}
	return nil
}

func (h *Handle) visitValues(offset int, v Visitor, flags VisitFlags) error {
	values, err := h.NodeValues(offset)
	if err != nil {
		return err
	}
	for _, vo := range values {
		if err := h.dispatchValue(vo, v); err != nil {
			if _, ok := err.(*abortSignal); ok {
				return err
			}
			if !flags.SkipBad {
				return err
			}
			h.log.Warn("visit: skipping malformed value", "offset", vo, "error", err)
		}
	}
	return nil
}

func (h *Handle) dispatchValue(offset int, v Visitor) error {
	name, err := h.ValueKey(offset)
	if err != nil {
		return err
	}
	typ, _, err := h.ValueType(offset)
	if err != nil {
		return err
	}

	if v.ValueAny != nil {
		raw, err := h.ValueRaw(offset)
		if err != nil {
			return err
		}
		return abort(v.ValueAny(offset, name, typ, raw))
	}

	switch typ {
	case format.TypeString:
		return h.dispatchString(offset, name, v.ValueString, v.ValueStringInvalidUTF16)
	case format.TypeExpandString:
		return h.dispatchString(offset, name, v.ValueExpandString, v.ValueStringInvalidUTF16)
	case format.TypeMultiString:
		return h.dispatchMultiString(offset, name, v)
	case format.TypeDwordLE, format.TypeDwordBE:
		if v.ValueDword == nil {
			return nil
		}
		d, err := h.ValueDword(offset)
		if err != nil {
			return err
		}
		return abort(v.ValueDword(offset, name, d))
	case format.TypeQword:
		if v.ValueQword == nil {
			return nil
		}
		q, err := h.ValueQword(offset)
		if err != nil {
			return err
		}
		return abort(v.ValueQword(offset, name, q))
	case format.TypeBinary:
		if v.ValueBinary == nil {
			return nil
		}
		raw, err := h.ValueRaw(offset)
		if err != nil {
			return err
		}
		return abort(v.ValueBinary(offset, name, raw))
	default:
		if v.ValueOther == nil {
			return nil
		}
		raw, err := h.ValueRaw(offset)
		if err != nil {
			return err
		}
		return abort(v.ValueOther(offset, name, typ, raw))
	}
}

func (h *Handle) dispatchString(offset int, name string, cb func(int, string, string) error, invalid func(int, string, []byte) error) error {
	if cb == nil && invalid == nil {
		return nil
	}
	s, err := h.ValueString(offset)
	if err != nil {
		if KindOf(err) == KindInvalidEncoding && invalid != nil {
			raw, rerr := h.ValueRaw(offset)
			if rerr != nil {
				return rerr
			}
			return abort(invalid(offset, name, raw))
		}
		return err
	}
	if cb == nil {
		return nil
	}
	return abort(cb(offset, name, s))
}

func (h *Handle) dispatchMultiString(offset int, name string, v Visitor) error {
	if v.ValueMultiStrings == nil && v.ValueStringInvalidUTF16 == nil {
		return nil
	}
	ss, err := h.ValueMultiStrings(offset)
	if err != nil {
		if KindOf(err) == KindInvalidEncoding && v.ValueStringInvalidUTF16 != nil {
			raw, rerr := h.ValueRaw(offset)
			if rerr != nil {
				return rerr
			}
			return abort(v.ValueStringInvalidUTF16(offset, name, raw))
		}
		return err
	}
	if v.ValueMultiStrings == nil {
		return nil
	}
	return abort(v.ValueMultiStrings(offset, name, ss))
}
