//go:build !unix

package b2extract

import "os"

func mmapFile(f *os.File) ([]byte, bool) {
	return nil, false
}

func munmapFile(data []byte) {}
