//go:build !linux && !darwin && !freebsd

package hive

import "os"

// openBacking falls back to a plain buffered read on platforms without
// a wired mmap syscall; correctness is identical, only the "is this
// zero-copy" property differs.
func openBacking(path string, write bool) (data []byte, mapped bool, f *os.File, err error) {
	b, rerr := os.ReadFile(path)
	if rerr != nil {
		return nil, false, nil, rerr
	}
	return b, false, nil, nil
}

func closeBacking(data []byte, mapped bool, f *os.File) error {
	if f != nil {
		return f.Close()
	}
	return nil
}
