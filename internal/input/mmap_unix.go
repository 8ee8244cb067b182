//go:build unix

package input

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps f read-only. Empty files cannot be mapped and are returned as
// an empty slice with a nil release function.
func mapFile(f *os.File, size int64) ([]byte, func() error, error) {
	if size == 0 {
		return []byte{}, nil, nil
	}
	if int64(int(size)) != size {
		data, err := io.ReadAll(f)
		return data, nil, err
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return unix.Munmap(data) }, nil
}
