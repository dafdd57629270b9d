package kernelstore

import (
	"errors"
	"fmt"

	"github.com/samcharles93/cisa/internal/logger"
	"github.com/samcharles93/cisa/pkg/cisa"
)

var (
	ErrKernelNotFound   = errors.New("kernelstore: kernel not found")
	ErrFunctionNotFound = errors.New("kernelstore: function not found")
	ErrNoGenBinary      = errors.New("kernelstore: no gen binary for platform")
)

// Store is the loader-facing view of a container: kernels by name, their
// instruction streams, argument layout and precompiled binaries.
type Store struct {
	c      *cisa.Container
	log    logger.Logger
	byName map[string]cisa.Kernel
	funcs  map[string]cisa.Function
}

// KernelInfo summarises one kernel without touching its instruction stream.
type KernelInfo struct {
	Name        string
	Offset      uint32
	Size        uint32
	InputOffset uint32
	Platforms   []uint8
	Inputs      []InputLayout
}

// InputLayout places one kernel argument in the argument payload.
type InputLayout struct {
	Kind   uint8
	ID     uint32
	Offset uint16
	Size   uint16
}

// Open maps path and indexes its kernels.
func Open(path string, log logger.Logger) (*Store, error) {
	c, err := cisa.Open(path)
	if err != nil {
		return nil, err
	}
	s := New(c, log.With("path", path))
	return s, nil
}

// New indexes an already parsed container. The store takes ownership and
// closes c on Close.
func New(c *cisa.Container, log logger.Logger) *Store {
	s := &Store{
		c:      c,
		log:    log,
		byName: make(map[string]cisa.Kernel),
		funcs:  make(map[string]cisa.Function),
	}
	for _, k := range c.Kernels() {
		if _, dup := s.byName[k.Name()]; dup {
			log.Warn("duplicate kernel name, keeping first", "kernel", k.Name())
			continue
		}
		s.byName[k.Name()] = k
	}
	for _, f := range c.Functions() {
		if _, dup := s.funcs[f.Name()]; !dup {
			s.funcs[f.Name()] = f
		}
	}
	log.Debug("container indexed",
		"version", c.Version().String(),
		"kernels", len(s.byName),
		"functions", len(s.funcs),
		"globals", len(c.GlobalVariables()),
	)
	return s
}

func (s *Store) Close() error {
	if s == nil || s.c == nil {
		return nil
	}
	err := s.c.Close()
	s.c = nil
	s.byName = nil
	s.funcs = nil
	return err
}

// Container returns the underlying container.
func (s *Store) Container() *cisa.Container { return s.c }

// Names returns kernel names in container order.
func (s *Store) Names() []string {
	if s == nil || s.c == nil {
		return nil
	}
	var out []string
	for _, k := range s.c.Kernels() {
		if s.byName[k.Name()].Record() == k.Record() {
			out = append(out, k.Name())
		}
	}
	return out
}

func (s *Store) lookup(name string) (cisa.Kernel, error) {
	if s == nil || s.byName == nil {
		return cisa.Kernel{}, ErrKernelNotFound
	}
	k, ok := s.byName[name]
	if !ok {
		return cisa.Kernel{}, ErrKernelNotFound
	}
	return k, nil
}

// Kernel returns the summary and argument layout of the named kernel.
func (s *Store) Kernel(name string) (KernelInfo, error) {
	k, err := s.lookup(name)
	if err != nil {
		return KernelInfo{}, err
	}
	kb, err := s.body(k)
	if err != nil {
		return KernelInfo{}, err
	}
	info := KernelInfo{
		Name:        k.Name(),
		Offset:      k.Offset(),
		Size:        k.Size(),
		InputOffset: k.InputOffset(),
	}
	for _, g := range k.GenBinaries() {
		info.Platforms = append(info.Platforms, g.Platform())
	}
	for _, in := range kb.Inputs() {
		info.Inputs = append(info.Inputs, InputLayout{
			Kind:   in.InputKind(),
			ID:     in.ID(),
			Offset: in.Offset(),
			Size:   in.Size(),
		})
	}
	return info, nil
}

// Body returns the parsed detail record of the named kernel.
func (s *Store) Body(name string) (cisa.KernelBody, error) {
	k, err := s.lookup(name)
	if err != nil {
		return cisa.KernelBody{}, err
	}
	return s.body(k)
}

func (s *Store) body(k cisa.Kernel) (cisa.KernelBody, error) {
	kb, err := s.c.KernelBody(k)
	if err != nil {
		s.log.Error("kernel body load failed", "kernel", k.Name(), "offset", k.Offset(), "error", err)
		return cisa.KernelBody{}, fmt.Errorf("kernel %s: %w", k.Name(), err)
	}
	return kb, nil
}

// Instructions returns the instruction stream of the named kernel. The
// slice is owned by the parsed record and outlives Close.
func (s *Store) Instructions(name string) ([]byte, error) {
	kb, err := s.Body(name)
	if err != nil {
		return nil, err
	}
	return kb.Instructions(), nil
}

// FunctionBody returns the parsed detail record of the named function.
func (s *Store) FunctionBody(name string) (cisa.FunctionBody, error) {
	if s == nil || s.funcs == nil {
		return cisa.FunctionBody{}, ErrFunctionNotFound
	}
	f, ok := s.funcs[name]
	if !ok {
		return cisa.FunctionBody{}, ErrFunctionNotFound
	}
	fb, err := s.c.FunctionBody(f)
	if err != nil {
		s.log.Error("function body load failed", "function", name, "offset", f.Offset(), "error", err)
		return cisa.FunctionBody{}, fmt.Errorf("function %s: %w", name, err)
	}
	return fb, nil
}

// GenBinary returns the precompiled binary of the named kernel for one
// platform. The slice aliases the container and is invalid after Close.
func (s *Store) GenBinary(name string, platform uint8) ([]byte, error) {
	k, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	for _, g := range k.GenBinaries() {
		if g.Platform() != platform {
			continue
		}
		data, err := s.c.GenBinaryData(g)
		if err != nil {
			return nil, fmt.Errorf("kernel %s platform %d: %w", name, platform, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("kernel %s platform %d: %w", name, platform, ErrNoGenBinary)
}
