package b2extract

import (
	"fmt"
	"os"
	"sync"
)

// containerHandle is one open .b2container file. When the platform supports it the file is
// memory-mapped for zero-copy random access; mmapFile reports ok=false on platforms or
// sandboxes where mapping isn't available, and readAt falls back to ordinary ReadAt, keeping a
// stdlib-only fallback path behind a GOOS-specific file for only the concern that needs it.
type containerHandle struct {
	path   string
	f      *os.File
	mapped []byte
}

func openContainerHandle(path string) (*containerHandle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	h := &containerHandle{path: path, f: f}
	if data, ok := mmapFile(f); ok {
		h.mapped = data
	}
	return h, nil
}

func (h *containerHandle) readAt(offset int64, length int) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	if h.mapped != nil {
		if offset < 0 || offset+int64(length) > int64(len(h.mapped)) {
			return nil, fmt.Errorf("%w: %s offset=%d length=%d size=%d", ErrContainerIO, h.path, offset, length, len(h.mapped))
		}
		buf := make([]byte, length)
		copy(buf, h.mapped[offset:offset+int64(length)])
		return buf, nil
	}

	buf := make([]byte, length)
	n, err := h.f.ReadAt(buf, offset)
	if err != nil || n != length {
		return nil, fmt.Errorf("%w: %s offset=%d length=%d: %v", ErrContainerIO, h.path, offset, length, err)
	}
	return buf, nil
}

func (h *containerHandle) close() error {
	if h.mapped != nil {
		munmapFile(h.mapped)
		h.mapped = nil
	}
	return h.f.Close()
}

// ContainerCache is the C2 container reader: a run-scoped map from absolute container path to
// an open handle. Handles are opened on first use and never evicted mid-run, which bounds memory
// by the number of distinct containers a given index references
type ContainerCache struct {
	mu      sync.Mutex
	handles map[string]*containerHandle
}

// NewContainerCache returns an empty cache. Reset for every run by constructing a fresh one -
// never a package-level singleton
func NewContainerCache() *ContainerCache {
	return &ContainerCache{handles: make(map[string]*containerHandle)}
}

// Read returns length bytes starting at offset within the container at path, opening and
// caching the file if this is the first reference to it this run.
func (c *ContainerCache) Read(path string, offset int64, length int) ([]byte, error) {
	c.mu.Lock()
	h, ok := c.handles[path]
	if !ok {
		var err error
		h, err = openContainerHandle(path)
		if err != nil {
			c.mu.Unlock()
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrMissingContainer, path)
			}
			return nil, err
		}
		c.handles[path] = h
	}
	c.mu.Unlock()

	return h.readAt(offset, length)
}

// Close releases every cached handle. Safe to call more than once. Must run on every exit path
// of the driver
func (c *ContainerCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, h := range c.handles {
		if err := h.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.handles = make(map[string]*containerHandle)
	return firstErr
}
