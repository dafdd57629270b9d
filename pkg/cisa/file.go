package cisa

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

var errFileTooLarge = errors.New("cisa: file too large to map")

// Open maps a CISA file read-only and parses its header.
// If mmap is unavailable, it falls back to ReadAt-based loading.
// The returned container must be closed to release any mapping.
func Open(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size64 := stat.Size()
	if size64 > int64(int(^uint(0)>>1)) {
		return nil, errFileTooLarge
	}
	size := int(size64)
	if size == 0 {
		return Parse(nil)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		c, parseErr := Parse(data)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, fmt.Errorf("%s: %w", path, parseErr)
		}
		c.mmapped = true
		return c, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// OpenReaderAt loads and parses a container from a random-access reader
// without mmap.
func OpenReaderAt(r io.ReaderAt, size int64) (*Container, error) {
	if size < 0 || size > int64(int(^uint(0)>>1)) {
		return nil, errFileTooLarge
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

// Close releases any mmap backing. Records already returned and bodies
// already cached stay valid; slices from GenBinaryData do not. Calls that
// need the source bytes afterwards fail with ErrClosed.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.mmapped && c.buf != nil {
		err = unix.Munmap(c.buf)
	}
	c.buf = nil
	c.end = 0
	c.mmapped = false
	c.closed = true
	return err
}
