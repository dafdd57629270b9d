package cisa

import (
	"bytes"
	"io"
	"sync"
)

type detailKey struct {
	kind   Kind
	offset uint32
}

type detail struct {
	rec  *Record
	span int
}

// Container is a parsed CISA file. It borrows the input buffer; the buffer
// must not change while the container is in use. Detail records are parsed
// on first access and cached, so a Container is safe for concurrent use.
type Container struct {
	buf       []byte
	end       int
	headerEnd int
	version   Version
	header    *Record

	mu      sync.Mutex
	err     *Error
	details map[detailKey]*detail
	loads   int

	mmapped bool
	closed  bool
}

// Parse reads the root header of buf. Kernel and function bodies are not
// touched until KernelBody or FunctionBody asks for them.
func Parse(buf []byte) (*Container, error) {
	c := &Container{
		buf:     buf,
		end:     len(buf),
		details: make(map[detailKey]*detail),
	}
	if err := c.read(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) read() error {
	cur := newCursor(c.buf, 0, c.end)
	hdr, v, err := parseHeader(cur)
	if err != nil {
		c.err = err.(*Error)
		return err
	}
	c.header = hdr
	c.version = v
	c.headerEnd = cur.pos()
	return nil
}

func (c *Container) Version() Version { return c.version }

func (c *Container) Header() Header { return Header{c.header} }

// HeaderSize is the number of bytes the root header occupies.
func (c *Container) HeaderSize() int { return c.headerEnd }

func (c *Container) Kernels() []Kernel { return c.Header().Kernels() }

func (c *Container) Functions() []Function { return c.Header().Functions() }

func (c *Container) GlobalVariables() []GlobalVariable { return c.Header().GlobalVariables() }

// Err returns the most recent failure seen by this container, or nil.
func (c *Container) Err() *Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// KernelByName returns the first kernel with the given name.
func (c *Container) KernelByName(name string) (Kernel, bool) {
	for _, k := range c.Kernels() {
		if k.Name() == name {
			return k, true
		}
	}
	return Kernel{}, false
}

// FunctionByName returns the first function with the given name.
func (c *Container) FunctionByName(name string) (Function, bool) {
	for _, f := range c.Functions() {
		if f.Name() == name {
			return f, true
		}
	}
	return Function{}, false
}

// KernelBody parses the detail record of k, starting at k.Offset() and
// bounded by k.Size(). The cache is keyed by offset alone: once a body has
// been parsed, later calls for the same offset return that record even if
// the requested size differs, and the bounds are not checked again. Cached
// bodies remain available after Close; uncached ones fail with ErrClosed.
func (c *Container) KernelBody(k Kernel) (KernelBody, error) {
	d, err := c.detail(KindKernelBody, k.Offset(), k.Size())
	if err != nil {
		return KernelBody{}, err
	}
	return KernelBody{body{d.rec}}, nil
}

// FunctionBody parses the detail record of f; see KernelBody.
func (c *Container) FunctionBody(f Function) (FunctionBody, error) {
	d, err := c.detail(KindFunctionBody, f.Offset(), f.Size())
	if err != nil {
		return FunctionBody{}, err
	}
	return FunctionBody{body{d.rec}}, nil
}

func (c *Container) detail(kind Kind, off, size uint32) (*detail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := detailKey{kind: kind, offset: off}
	if d, ok := c.details[key]; ok {
		return d, nil
	}
	if c.closed {
		return nil, ErrClosed
	}

	end := uint64(off) + uint64(size)
	if end > uint64(c.end) {
		c.err = errorf(ErrBadOffset, int(off), "%v spans [%d,%d) in a %d-byte buffer", kind, off, end, c.end)
		return nil, c.err
	}

	cur := newCursor(c.buf, int(off), int(end))
	rec, err := parseRecord(cur, kind, c.version)
	if err != nil {
		c.err = err.(*Error)
		return nil, err
	}
	c.loads++
	d := &detail{rec: rec, span: cur.pos() - int(off)}
	c.details[key] = d
	return d, nil
}

// GenBinaryData returns the precompiled binary g points at. The slice
// aliases the container's buffer and must not be retained after Close.
func (c *Container) GenBinaryData(g GenBinary) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	off, size := uint64(g.BinaryOffset()), uint64(g.BinarySize())
	if off+size > uint64(c.end) {
		c.err = errorf(ErrBadOffset, int(off), "gen binary for platform %d spans [%d,%d) in a %d-byte buffer", g.Platform(), off, off+size, c.end)
		return nil, c.err
	}
	return c.buf[off : off+size], nil
}

// Bytes re-serialises the header and every kernel and function body into a
// copy of the source buffer. Regions the schemas do not describe (gen
// binaries, padding) are carried over unchanged. Each re-encoded record must
// occupy exactly the span it was parsed from. Bytes fails with ErrClosed
// after Close.
func (c *Container) Bytes() ([]byte, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	out := bytes.Clone(c.buf[:c.end])
	c.mu.Unlock()

	hdr, err := Encode(c.header, c.version)
	if err != nil {
		return nil, err
	}
	if len(hdr) != c.headerEnd {
		return nil, errorf(ErrCountMismatch, 0, "header encodes to %d bytes, parsed from %d", len(hdr), c.headerEnd)
	}
	copy(out, hdr)

	for _, k := range c.Kernels() {
		if err := c.rewrite(out, KindKernelBody, k.Offset(), k.Size()); err != nil {
			return nil, err
		}
	}
	for _, f := range c.Functions() {
		if err := c.rewrite(out, KindFunctionBody, f.Offset(), f.Size()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *Container) rewrite(out []byte, kind Kind, off, size uint32) error {
	d, err := c.detail(kind, off, size)
	if err != nil {
		return err
	}
	enc, err := Encode(d.rec, c.version)
	if err != nil {
		return err
	}
	if len(enc) != d.span {
		return errorf(ErrCountMismatch, int(off), "%v encodes to %d bytes, parsed from %d", kind, len(enc), d.span)
	}
	if int(off)+len(enc) > len(out) {
		return errorf(ErrBadOffset, int(off), "%v spans [%d,%d) in a %d-byte buffer", kind, off, int(off)+len(enc), len(out))
	}
	copy(out[off:], enc)
	return nil
}

// WriteTo writes the re-serialised container to w.
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	b, err := c.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}
