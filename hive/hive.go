package hive

import (
	"log/slog"
	"os"

	"github.com/libguestfs/libguestfs-sub015/internal/format"
)

// State is the lifecycle stage of a Handle.
type State int

const (
	StateReadOnly State = iota
	StateWritable
	StateClosed
)

// Limits bounds structural quantities the engine will accept from an
// untrusted hive, defending against resource-exhaustion attacks via
// crafted counts or lengths.
type Limits struct {
	MaxSubkeysPerNode int
	MaxValuesPerNode  int
	MaxValueDataLen   int
	MaxAllocation     int
}

// DefaultLimits matches the defaults named in the format specification.
func DefaultLimits() Limits {
	return Limits{
		MaxSubkeysPerNode: 10000,
		MaxValuesPerNode:  1000,
		MaxValueDataLen:   1000000,
		MaxAllocation:     1000000,
	}
}

// OpenFlags controls how Open behaves.
type OpenFlags struct {
	Write   bool
	Verbose bool
	Debug   bool
}

// VisitFlags controls Visit's error tolerance.
type VisitFlags struct {
	SkipBad bool
}

// envVerbose, when set to "1", forces verbose diagnostics regardless of
// OpenFlags.Verbose.
const envVerbose = "HIVEKIT_VERBOSE"

func verboseFromEnv() bool {
	return os.Getenv(envVerbose) == "1"
}

// Handle is an opened hive. It exclusively owns the file descriptor (if
// any), the backing mapping or buffer, and the BlockMap; everything the
// navigator and visitor return is an independent copy safe to use after
// Close.
type Handle struct {
	state State
	path  string

	f      *os.File
	data   []byte
	mapped bool // true when data is a live mmap that must be unmapped on Close

	header format.Header
	bm     *BlockMap
	limits Limits

	verbose bool
	debug   bool
	log     *slog.Logger

	// endPages is the absolute offset one past the last byte of hbin
	// data: header.Blocks + 0x1000 at open time, advanced by growPage
	// as pages are appended; commit recomputes the header field from it.
	endPages int

	// allocCursor/allocPageEnd track the bump allocator's position
	// within the page it is currently filling. allocCursor is 0 until
	// the first allocation in this session, matching the "never reuse
	// existing free blocks" policy: the very first write always
	// extends the file with a fresh hbin page rather than reusing any
	// trailing free space left over in the loaded file.
	allocCursor  int
	allocPageEnd int
}

// BlockMapOf exposes the handle's BlockMap for inspection (e.g. by
// tests asserting invariant 1). It is not part of the write path.
func (h *Handle) BlockMapOf() *BlockMap { return h.bm }

// FileSize returns the current backing size in bytes.
func (h *Handle) FileSize() int { return len(h.data) }

// Writable reports whether mutation operations are permitted.
func (h *Handle) Writable() bool { return h.state == StateWritable }

func (h *Handle) checkOpen(op string) error {
	if h.state == StateClosed {
		return newErr(op, KindInvalidArgument, errClosedHandle)
	}
	return nil
}

func (h *Handle) checkWritable(op string) error {
	if err := h.checkOpen(op); err != nil {
		return err
	}
	if h.state != StateWritable {
		return newErr(op, KindReadOnly, errNotWritable)
	}
	return nil
}
