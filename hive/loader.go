package hive

import (
	"fmt"

	"github.com/libguestfs/libguestfs-sub015/internal/buf"
	"github.com/libguestfs/libguestfs-sub015/internal/format"
)

// Open validates and indexes a hive file, returning a Handle ready for
// navigation (and, if flags.Write is set, mutation).
//
// Read-only opens memory-map the file where the platform supports it
// (see loader_unix.go / loader_other.go); writable opens always read
// the file into an owned, growable buffer, since the allocator must be
// free to extend it.
func Open(path string, flags OpenFlags) (*Handle, error) {
	const op = "open"

	data, mapped, f, err := openBacking(path, flags.Write)
	if err != nil {
		return nil, newErr(op, KindIO, err)
	}

	hdr, bm, endPages, verr := validateAndIndex(data)
	if verr != nil {
		closeBacking(data, mapped, f)
		return nil, verr
	}

	state := StateReadOnly
	if flags.Write {
		state = StateWritable
	}

	verbose := flags.Verbose || verboseFromEnv()

	return &Handle{
		state:    state,
		path:     path,
		f:        f,
		data:     data,
		mapped:   mapped,
		header:   hdr,
		bm:       bm,
		limits:   DefaultLimits(),
		verbose:  verbose,
		debug:    flags.Debug,
		log:      diagLogger(verbose, flags.Debug),
		endPages: endPages,
	}, nil
}

// Close releases whatever backing resource Open acquired. Every
// successful Open must be matched by exactly one Close.
func (h *Handle) Close() error {
	if h.state == StateClosed {
		return nil
	}
	err := closeBacking(h.data, h.mapped, h.f)
	h.data = nil
	h.f = nil
	h.bm = nil
	h.state = StateClosed
	if err != nil {
		return newErr("close", KindIO, err)
	}
	return nil
}

// validateAndIndex implements the Loader component: header validation,
// the hbin page/block walk, and BlockMap population. It never trusts a
// length or offset without checking it fits in data first.
func validateAndIndex(data []byte) (format.Header, *BlockMap, int, error) {
	const op = "open"

	hdr, err := format.ParseHeader(data)
	if err != nil {
		return format.Header{}, nil, 0, newErr(op, KindNotSupported, err)
	}
	if hdr.MajorVersion != format.SupportedMajorVersion {
		return format.Header{}, nil, 0, newErr(op, KindNotSupported,
			fmt.Errorf("unsupported major version %d", hdr.MajorVersion))
	}
	if format.Checksum(data) != hdr.Checksum {
		return format.Header{}, nil, 0, newErr(op, KindCorrupt,
			fmt.Errorf("header checksum mismatch: stored=%#x computed=%#x", hdr.Checksum, format.Checksum(data)))
	}

	bm := NewBlockMap(len(data))

	endPages, endOk := buf.AddOverflowSafe(format.HeaderSize, int(hdr.Blocks))
	if !endOk || endPages > len(data) {
		return format.Header{}, nil, 0, newErr(op, KindNotSupported,
			fmt.Errorf("end-of-pages %d exceeds file size %d", endPages, len(data)))
	}

	rootAbs, rootOk := buf.AddOverflowSafe(format.HeaderSize, int(hdr.RootCellOffset))
	rootSeen := false

	pageOff := format.HeaderSize
	for pageOff < endPages {
		ph, err := format.ParsePageHeader(data[pageOff:])
		if err != nil {
			return format.Header{}, nil, 0, newErr(op, KindCorrupt, fmt.Errorf("hbin at %#x: %w", pageOff, err))
		}
		if ph.PageSize == 0 || ph.PageSize%format.PageAlignment != 0 {
			return format.Header{}, nil, 0, newErr(op, KindCorrupt,
				fmt.Errorf("hbin at %#x: page size %#x not a multiple of 0x1000", pageOff, ph.PageSize))
		}
		pageEnd, ok := buf.AddOverflowSafe(pageOff, int(ph.PageSize))
		if !ok || pageEnd > len(data) || pageEnd > endPages {
			return format.Header{}, nil, 0, newErr(op, KindCorrupt,
				fmt.Errorf("hbin at %#x: page extends past end-of-pages", pageOff))
		}

		blockOff := pageOff + format.HbinHeaderSize
		for blockOff < pageEnd {
			ch, err := format.ParseCellHeader(data[blockOff:])
			if err != nil {
				return format.Header{}, nil, 0, newErr(op, KindCorrupt, fmt.Errorf("block at %#x: %w", blockOff, err))
			}
			segLen := int(ch.Len())
			if segLen <= 4 || segLen%4 != 0 {
				return format.Header{}, nil, 0, newErr(op, KindCorrupt,
					fmt.Errorf("block at %#x: invalid seg_len %d", blockOff, segLen))
			}
			blockEnd, ok := buf.AddOverflowSafe(blockOff, segLen)
			if !ok || blockEnd > pageEnd {
				return format.Header{}, nil, 0, newErr(op, KindCorrupt,
					fmt.Errorf("block at %#x: seg_len runs past page end", blockOff))
			}

			if ch.Used() {
				bm.Set(blockOff)
				if rootOk && blockOff == rootAbs {
					payload := data[blockOff+format.BlockLenSize : blockEnd]
					if _, err := format.ParseNk(payload); err != nil {
						return format.Header{}, nil, 0, newErr(op, KindNoKey, fmt.Errorf("root is not a used nk: %w", err))
					}
					rootSeen = true
				}
			}

			blockOff = blockEnd
		}
		if blockOff != pageEnd {
			return format.Header{}, nil, 0, newErr(op, KindCorrupt,
				fmt.Errorf("hbin at %#x: blocks did not tile the page exactly", pageOff))
		}

		pageOff = pageEnd
	}
	if len(data) > endPages {
		return format.Header{}, nil, 0, newErr(op, KindNotSupported, fmt.Errorf("trailing garbage past end-of-pages at %#x", endPages))
	}

	if !rootOk || !rootSeen {
		return format.Header{}, nil, 0, newErr(op, KindNoKey, fmt.Errorf("no usable root at relative offset %#x", hdr.RootCellOffset))
	}

	return hdr, bm, endPages, nil
}
