//go:build unix

package b2extract

import (
	"os"

	"golang.org/x/sys/unix"
)

func mmapFile(f *os.File) ([]byte, bool) {
	st, err := f.Stat()
	if err != nil || st.Size() == 0 {
		return nil, false
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, false
	}
	return data, true
}

func munmapFile(data []byte) {
	_ = unix.Munmap(data)
}
