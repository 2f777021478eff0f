package format

import "errors"

// These sentinels distinguish shapes of malformed input at the byte level;
// they get wrapped into the engine-wide error kinds (see hive.Kind) by the
// callers that have enough context to classify them.
var (
	// ErrTruncated means a fixed-size field ran past the end of the buffer.
	ErrTruncated = errors.New("format: buffer too short for record")
	// ErrSignature means the 2/4-byte magic at the expected offset didn't match.
	ErrSignature = errors.New("format: signature mismatch")
	// ErrMalformed means a structurally-required relationship didn't hold
	// (e.g. a seg_len that isn't a multiple of 4, or a count that overruns
	// its declared list).
	ErrMalformed = errors.New("format: malformed record")
)
