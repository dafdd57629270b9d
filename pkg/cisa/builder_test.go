package cisa

import (
	"bytes"
	"testing"
)

func TestBuilderLayout(t *testing.T) {
	t.Parallel()

	buf := buildSample(t, v400)
	c, err := Parse(buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	h := c.Header()
	if h.Magic() != Magic || h.Version() != v400 {
		t.Fatalf("header: magic=%#x version=%v", h.Magic(), h.Version())
	}

	k := c.Kernels()[0]
	if k.Offset() != uint32(c.HeaderSize()) {
		t.Fatalf("first kernel body should follow the header: offset %d, header %d", k.Offset(), c.HeaderSize())
	}
	g := k.GenBinaries()[0]
	if g.BinaryOffset() != k.Offset()+k.Size() || g.BinarySize() != uint32(len("gen9-binary")) {
		t.Fatalf("gen binary at %d+%d, kernel body ends at %d", g.BinaryOffset(), g.BinarySize(), k.Offset()+k.Size())
	}
	if k.InputOffset() != 32 || len(k.FunctionRelocs()) != 1 || len(k.VariableRelocs()) != 0 {
		t.Fatalf("kernel summary: input=%d frelocs=%d vrelocs=%d", k.InputOffset(), len(k.FunctionRelocs()), len(k.VariableRelocs()))
	}

	f := c.Functions()[0]
	if f.Offset() != g.BinaryOffset()+g.BinarySize() {
		t.Fatalf("function body at %d, want %d", f.Offset(), g.BinaryOffset()+g.BinarySize())
	}
	if int(f.Offset()+f.Size()) != len(buf) {
		t.Fatalf("function body should end the file: %d+%d vs %d", f.Offset(), f.Size(), len(buf))
	}

	globals := c.GlobalVariables()
	if len(globals) != 1 || globals[0].Name() != "lut" || globals[0].Linkage() != 2 || globals[0].NumElements() != 64 {
		t.Fatalf("globals: %+v", globals)
	}

	kb, err := c.KernelBody(k)
	if err != nil {
		t.Fatalf("kernel body: %v", err)
	}
	if int(kb.Size()) != len(kb.Instructions()) {
		t.Fatalf("body size %d vs %d instruction bytes", kb.Size(), len(kb.Instructions()))
	}
}

func TestBuilderRejectsWrongKinds(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder(v400).AddKernel(KernelSpec{Name: "k"}).Bytes()
	asError(t, err, ErrWrongKind)

	_, err = NewBuilder(v400).AddKernel(KernelSpec{
		Name:           "k",
		Body:           NewKernelBody("k", nil),
		VariableRelocs: []*Record{NewStringPool("oops")},
	}).Bytes()
	asError(t, err, ErrWrongKind)

	_, err = NewBuilder(v400).AddFunction(FunctionSpec{Name: "f", Body: NewKernelBody("f", nil)}).Bytes()
	asError(t, err, ErrWrongKind)

	_, err = NewBuilder(v400).AddFunction(FunctionSpec{
		Name:           "f",
		Body:           NewFunctionBody("f", nil),
		FunctionRelocs: []*Record{NewRelocation(0, 0), NewInput(0, 1, 0, 4)},
	}).Bytes()
	asError(t, err, ErrWrongKind)

	_, err = NewBuilder(v400).AddGlobalVariable(NewStringPool("g")).Bytes()
	asError(t, err, ErrWrongKind)
}

func TestBuilderPropagatesOverflow(t *testing.T) {
	t.Parallel()

	long := string(bytes.Repeat([]byte{'n'}, 256))
	_, err := NewBuilder(v306).AddKernel(KernelSpec{Name: long, Body: NewKernelBody("k", nil)}).Bytes()
	asError(t, err, ErrFieldOverflow)

	body := NewKernelBody("k", nil).SetChildren("inputs", NewInput(0, 70000, 0, 4))
	_, err = NewBuilder(v303).AddKernel(KernelSpec{Name: "k", Body: body}).Bytes()
	asError(t, err, ErrFieldOverflow)

	_, err = NewBuilder(Version{Major: 5}).Bytes()
	asError(t, err, ErrUnsupportedVersion)
}

func TestBuilderEmptyContainer(t *testing.T) {
	t.Parallel()

	buf, err := NewBuilder(v302).Bytes()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// magic, major, minor and three zero counts.
	want := le(nil).u32(Magic).u8(3).u8(2).u16(0).u16(0).u16(0)
	if !bytes.Equal(buf, want) {
		t.Fatalf("empty container: got %x want %x", buf, []byte(want))
	}
	c, err := Parse(buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(c.Kernels())+len(c.Functions())+len(c.GlobalVariables()) != 0 {
		t.Fatalf("expected an empty container")
	}
}
