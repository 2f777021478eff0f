package format

import (
	"errors"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrIllFormedUTF16 is returned by DecodeUTF16LE when the byte stream
// contains an unpaired surrogate. Callers that need the bytes anyway
// (the visitor's "bad utf16" fallback) should keep the original slice
// around rather than retry decoding.
var ErrIllFormedUTF16 = errors.New("format: ill-formed utf-16 sequence")

// DecodeUTF16LE decodes a UTF-16LE byte string (no terminator) to UTF-8.
// Odd-length input and unpaired surrogates are reported as
// ErrIllFormedUTF16 rather than silently replaced, so the caller can
// decide whether to fall back to raw bytes.
func DecodeUTF16LE(data []byte) (string, error) {
	if len(data)%2 != 0 {
		return "", ErrIllFormedUTF16
	}
	units := make([]uint16, len(data)/2)
	for i := range units {
		units[i] = uint16(data[2*i]) | uint16(data[2*i+1])<<8
	}

	var b strings.Builder
	b.Grow(len(units))
	for i := 0; i < len(units); i++ {
		r := rune(units[i])
		switch {
		case utf16.IsSurrogate(r):
			if i+1 >= len(units) {
				return "", ErrIllFormedUTF16
			}
			dec := utf16.DecodeRune(r, rune(units[i+1]))
			if dec == utf8.RuneError {
				return "", ErrIllFormedUTF16
			}
			b.WriteRune(dec)
			i++
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// EncodeUTF16LE encodes a UTF-8 string to UTF-16LE bytes, with no
// terminating pair (callers append one when the on-disk format needs
// it, e.g. a single key/value name or each element of a multi-string).
func EncodeUTF16LE(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, len(units)*2)
	for i, u := range units {
		out[2*i] = byte(u)
		out[2*i+1] = byte(u >> 8)
	}
	return out
}

// SplitMultiString splits a REG_MULTI_SZ payload into its component
// UTF-16LE strings. Each element is terminated by a 00 00 pair; the
// whole value is terminated by an extra empty element. Decoding stops
// at end-of-data or at the first empty element, matching the on-disk
// convention.
func SplitMultiString(data []byte) [][]byte {
	var out [][]byte
	start := 0
	for i := 0; i+1 < len(data); i += 2 {
		if data[i] == 0 && data[i+1] == 0 {
			if i == start {
				return out
			}
			out = append(out, data[start:i])
			start = i + 2
		}
	}
	if start < len(data) {
		out = append(out, data[start:])
	}
	return out
}

// win1252 decodes the legacy ASCII/Windows-1252 name encoding used when
// the compressed-name flag is set on an nk or vk record.
var win1252 = charmap.Windows1252.NewDecoder()

// DecodeName decodes an nk/vk name, honoring the ASCII-name flag: ASCII
// names are stored one byte per character (Windows-1252), everything
// else is UTF-16LE.
func DecodeName(raw []byte, ascii bool) (string, error) {
	if ascii {
		out, err := win1252.Bytes(raw)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	return DecodeUTF16LE(raw)
}

var win1252Encoder = charmap.Windows1252.NewEncoder()

// EncodeName picks the on-disk encoding for a new nk/vk name: the
// compressed Windows-1252 form when every rune round-trips through it,
// UTF-16LE otherwise. ascii reports which form raw is in.
func EncodeName(name string) (raw []byte, ascii bool) {
	if enc, err := win1252Encoder.String(name); err == nil {
		return []byte(enc), true
	}
	return EncodeUTF16LE(name), false
}
