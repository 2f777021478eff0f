//go:build linux || darwin || freebsd

package hive

import (
	"os"

	"golang.org/x/sys/unix"
)

// openBacking opens path and returns its contents as data. Read-only
// opens are memory-mapped (mapped=true); writable opens are read fully
// into an owned, independently-growable buffer.
func openBacking(path string, write bool) (data []byte, mapped bool, f *os.File, err error) {
	if write {
		b, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil, false, nil, rerr
		}
		return b, false, nil, nil
	}

	file, oerr := os.Open(path)
	if oerr != nil {
		return nil, false, nil, oerr
	}
	st, serr := file.Stat()
	if serr != nil {
		_ = file.Close()
		return nil, false, nil, serr
	}
	if st.Size() == 0 {
		_ = file.Close()
		return nil, false, nil, os.ErrInvalid
	}
	m, merr := unix.Mmap(int(file.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if merr != nil {
		_ = file.Close()
		return nil, false, nil, merr
	}
	return m, true, file, nil
}

func closeBacking(data []byte, mapped bool, f *os.File) error {
	var err error
	if mapped && data != nil {
		err = unix.Munmap(data)
	}
	if f != nil {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
