package cisa

import "slices"

// GenBinaryPayload is a precompiled binary attached to a kernel.
type GenBinaryPayload struct {
	Platform uint8
	Data     []byte
}

// KernelSpec describes one kernel for Builder. Body must be a KernelBody
// record; relocations must be RelocationInfo records.
type KernelSpec struct {
	Name           string
	InputOffset    uint32
	Body           *Record
	VariableRelocs []*Record
	FunctionRelocs []*Record
	Binaries       []GenBinaryPayload
}

// FunctionSpec describes one function for Builder.
type FunctionSpec struct {
	Name           string
	Linkage        uint8
	Body           *Record
	VariableRelocs []*Record
	FunctionRelocs []*Record
}

// Builder lays out a complete container: the header first, then each
// kernel body followed by its gen binaries, then each function body. Offset
// and size fields in the summaries are patched once the layout is known.
type Builder struct {
	version   Version
	kernels   []KernelSpec
	functions []FunctionSpec
	globals   []*Record
}

func NewBuilder(v Version) *Builder {
	return &Builder{version: v}
}

func (b *Builder) AddKernel(k KernelSpec) *Builder {
	b.kernels = append(b.kernels, k)
	return b
}

func (b *Builder) AddFunction(f FunctionSpec) *Builder {
	b.functions = append(b.functions, f)
	return b
}

// AddGlobalVariable appends a GlobalVariable record.
func (b *Builder) AddGlobalVariable(g *Record) *Builder {
	b.globals = append(b.globals, g)
	return b
}

func checkKinds(what string, want Kind, recs ...*Record) error {
	for _, r := range recs {
		if r == nil || r.kind != want {
			return errorf(ErrWrongKind, 0, "%s: want %v records", what, want)
		}
	}
	return nil
}

// Bytes encodes the container.
func (b *Builder) Bytes() ([]byte, error) {
	v := b.version
	if !v.Supported() {
		return nil, errorf(ErrUnsupportedVersion, 0, "version %v", v)
	}

	hdr := NewRecord(KindHeader).
		SetInt("magic", int64(Magic)).
		SetInt("major", int64(v.Major)).
		SetInt("minor", int64(v.Minor))

	kernels := make([]*Record, len(b.kernels))
	gens := make([][]*Record, len(b.kernels))
	for i, ks := range b.kernels {
		if err := checkKinds("kernel "+ks.Name+" body", KindKernelBody, ks.Body); err != nil {
			return nil, err
		}
		if err := checkKinds("kernel "+ks.Name+" relocations", KindRelocationInfo, slices.Concat(ks.VariableRelocs, ks.FunctionRelocs)...); err != nil {
			return nil, err
		}
		for _, p := range ks.Binaries {
			gens[i] = append(gens[i], NewRecord(KindGenBinary).SetInt("platform", int64(p.Platform)))
		}
		kernels[i] = NewRecord(KindKernel).
			SetString("name", ks.Name).
			SetInt("input_offset", int64(ks.InputOffset)).
			SetChildren("variable_relocs", ks.VariableRelocs...).
			SetChildren("function_relocs", ks.FunctionRelocs...).
			SetChildren("gen_binaries", gens[i]...)
	}

	functions := make([]*Record, len(b.functions))
	for i, fs := range b.functions {
		if err := checkKinds("function "+fs.Name+" body", KindFunctionBody, fs.Body); err != nil {
			return nil, err
		}
		if err := checkKinds("function "+fs.Name+" relocations", KindRelocationInfo, slices.Concat(fs.VariableRelocs, fs.FunctionRelocs)...); err != nil {
			return nil, err
		}
		functions[i] = NewRecord(KindFunction).
			SetInt("linkage", int64(fs.Linkage)).
			SetString("name", fs.Name).
			SetChildren("variable_relocs", fs.VariableRelocs...).
			SetChildren("function_relocs", fs.FunctionRelocs...)
	}

	if err := checkKinds("global variables", KindGlobalVariable, b.globals...); err != nil {
		return nil, err
	}
	hdr.SetChildren("kernels", kernels...).
		SetChildren("variables", b.globals...).
		SetChildren("functions", functions...)

	// Offsets are fixed-width, so the header length does not depend on them.
	probe, err := Encode(hdr, v)
	if err != nil {
		return nil, err
	}
	pos := int64(len(probe))

	var tail []byte
	for i, ks := range b.kernels {
		body, err := Encode(ks.Body, v)
		if err != nil {
			return nil, err
		}
		kernels[i].SetInt("offset", pos).SetInt("size", int64(len(body)))
		tail = append(tail, body...)
		pos += int64(len(body))

		for j, p := range ks.Binaries {
			gens[i][j].SetInt("binary_offset", pos).SetInt("binary_size", int64(len(p.Data)))
			tail = append(tail, p.Data...)
			pos += int64(len(p.Data))
		}
	}
	for i, fs := range b.functions {
		body, err := Encode(fs.Body, v)
		if err != nil {
			return nil, err
		}
		functions[i].SetInt("offset", pos).SetInt("size", int64(len(body)))
		tail = append(tail, body...)
		pos += int64(len(body))
	}

	out, err := Encode(hdr, v)
	if err != nil {
		return nil, err
	}
	if len(out) != len(probe) {
		return nil, errorf(ErrCountMismatch, 0, "header changed size from %d to %d while patching", len(probe), len(out))
	}
	return append(out, tail...), nil
}

// NewKernelBody returns a KernelBody whose string pool holds name at index
// 0 and whose instruction blob is instructions.
func NewKernelBody(name string, instructions []byte) *Record {
	return NewRecord(KindKernelBody).
		SetChildren("strings", NewStringPool(name)).
		SetInt("name_index", 0).
		SetBytes("instructions", instructions)
}

// NewFunctionBody is the FunctionBody counterpart of NewKernelBody.
func NewFunctionBody(name string, instructions []byte) *Record {
	return NewRecord(KindFunctionBody).
		SetChildren("strings", NewStringPool(name)).
		SetInt("name_index", 0).
		SetBytes("instructions", instructions)
}

func NewStringPool(s string) *Record {
	return NewRecord(KindStringPool).SetString("value", s)
}

func NewAttribute(nameIndex uint32, value []byte) *Record {
	return NewRecord(KindAttributeInfo).
		SetInt("name_index", int64(nameIndex)).
		SetBytes("value", value)
}

func NewInput(kind uint8, id uint32, offset, size uint16) *Record {
	return NewRecord(KindInputInfo).
		SetInt("kind", int64(kind)).
		SetInt("id", int64(id)).
		SetInt("offset", int64(offset)).
		SetInt("size", int64(size))
}

func NewRelocation(symbolic uint16, resolved int16) *Record {
	return NewRecord(KindRelocationInfo).
		SetInt("symbolic_index", int64(symbolic)).
		SetInt("resolved_index", int64(resolved))
}

func NewGlobalVariable(name string, linkage uint8, numElements uint16) *Record {
	return NewRecord(KindGlobalVariable).
		SetInt("linkage", int64(linkage)).
		SetString("name", name).
		SetInt("num_elements", int64(numElements))
}
