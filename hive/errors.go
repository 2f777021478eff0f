package hive

import (
	"errors"
	"fmt"
)

var (
	errClosedHandle = errors.New("handle is closed")
	errNotWritable  = errors.New("handle is read-only")
)

// Kind is the closed set of error classifications every failing
// operation surfaces. Callers can switch on Kind without parsing error
// text.
type Kind int

const (
	_ Kind = iota
	KindInvalidArgument
	KindNoKey
	KindNotSupported
	KindCorrupt
	KindOutOfRange
	KindReadOnly
	KindInvalidEncoding
	KindExists
	KindIO
	KindLoop
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNoKey:
		return "no_key"
	case KindNotSupported:
		return "not_supported"
	case KindCorrupt:
		return "corrupt"
	case KindOutOfRange:
		return "out_of_range"
	case KindReadOnly:
		return "read_only"
	case KindInvalidEncoding:
		return "invalid_encoding"
	case KindExists:
		return "exists"
	case KindIO:
		return "io"
	case KindLoop:
		return "loop"
	default:
		return "unknown"
	}
}

// Error is the engine-wide error type. Every failure the engine itself
// produces wraps one of these so callers can recover Kind with
// errors.As; an error returned by a Visitor callback is passed through
// Visit unchanged.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hive: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("hive: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf extracts the Kind from err, or 0 if err is not (or does not
// wrap) a *Error.
func KindOf(err error) Kind {
	var e *Error
	if asError(err, &e) {
		return e.Kind
	}
	return 0
}

// asError is a thin wrapper so this file only needs the "errors"
// package once; kept separate to keep the Error type itself dependency-free.
func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
