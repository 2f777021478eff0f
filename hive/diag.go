package hive

import (
	"io"
	"log/slog"
	"os"
)

// discardLogger is the zero-value diagnostics sink: every Handle starts
// with logging disabled until Open's Verbose/Debug flags (or the
// HIVEKIT_VERBOSE environment toggle) say otherwise.
var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// diagLogger builds the slog.Logger a Handle uses for non-fatal
// diagnostics: truncated value lengths, demoted skip_bad errors, and
// similar "the operation proceeded, but here is what was wrong" events
// that don't fit the Kind/Error taxonomy because they aren't failures.
func diagLogger(verbose, debug bool) *slog.Logger {
	if !verbose && !debug {
		return discardLogger
	}
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
