package buf

import "math"

// AddOverflowSafe computes a+b, reporting ok=false instead of wrapping
// when the platform int would overflow. Hive length and offset fields
// are attacker controlled, so every arithmetic combination of them must
// go through this before being used as a slice bound.
func AddOverflowSafe(a, b int) (sum int, ok bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// Window returns b[off:off+n], or ok=false if that range doesn't fit
// inside b (including the case where off+n would overflow).
func Window(b []byte, off, n int) (window []byte, ok bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end], true
}

// Fits reports whether b[off:off+n] lies within bounds.
func Fits(b []byte, off, n int) bool {
	_, ok := Window(b, off, n)
	return ok
}
