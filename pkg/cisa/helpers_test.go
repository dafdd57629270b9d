package cisa

import (
	"encoding/binary"
	"errors"
	"testing"
)

var (
	v302 = Version{Major: 3, Minor: 2}
	v303 = Version{Major: 3, Minor: 3}
	v306 = Version{Major: 3, Minor: 6}
	v307 = Version{Major: 3, Minor: 7}
	v400 = Version{Major: 4, Minor: 0}
)

// le appends little-endian values; it keeps hand-written fixtures readable.
type le []byte

func (b le) u8(v uint8) le     { return append(b, v) }
func (b le) u16(v uint16) le   { return binary.LittleEndian.AppendUint16(b, v) }
func (b le) u32(v uint32) le   { return binary.LittleEndian.AppendUint32(b, v) }
func (b le) str(s string) le   { return append(b, s...) }
func (b le) bytes(p []byte) le { return append(b, p...) }

// scenarioBuffer is a 3.2 file with one kernel "test" whose body is
// declared at offset 40, size 8.
func scenarioBuffer() []byte {
	return le(nil).
		u32(Magic).u8(3).u8(2).
		u16(1).
		u8(4).str("test").u32(40).u32(8).u32(0).
		u16(0).u16(0).
		u8(1).u8(9).u32(40).u32(8).
		u16(0).
		u16(0)
}

// scenarioBoundaries lists the start offset of every header field in
// scenarioBuffer.
var scenarioBoundaries = []int{0, 4, 5, 6, 8, 9, 13, 17, 21, 25, 27, 29, 30, 31, 35, 39, 41}

func sampleAttribute() *Record {
	return NewAttribute(1, []byte("x86"))
}

func sampleMetadata(k Kind) *Record {
	return NewRecord(k).
		SetInt("name_index", 2).
		SetInt("num_elements", 16).
		SetChildren("attributes", sampleAttribute())
}

func sampleVariable() *Record {
	return NewRecord(KindVariable).
		SetInt("name_index", 3).
		SetInt("bit_properties", 0x21).
		SetInt("num_elements", 8).
		SetInt("alias_index", 1).
		SetInt("alias_offset", 4).
		SetInt("alias_scope", 1).
		SetChildren("attributes", sampleAttribute())
}

func sampleKernelBody(name string, code []byte) *Record {
	return NewKernelBody(name, code).
		Append("strings", NewStringPool("input_surface")).
		Append("strings", NewStringPool("tmp")).
		SetChildren("variables", sampleVariable()).
		SetChildren("addresses", sampleMetadata(KindAddressInfo)).
		SetChildren("predicates", sampleMetadata(KindPredicateInfo)).
		SetChildren("labels", NewRecord(KindLabelInfo).SetInt("name_index", 1).SetInt("kind", 1)).
		SetChildren("samplers", sampleMetadata(KindSamplerInfo)).
		SetChildren("surfaces", sampleMetadata(KindSurfaceInfo), sampleMetadata(KindSurfaceInfo)).
		SetChildren("vmes", sampleMetadata(KindVmeInfo)).
		SetChildren("inputs", NewInput(2, 1, 32, 4), NewInput(0, 2, 36, 8)).
		SetInt("entry", 0).
		SetChildren("attributes", sampleAttribute())
}

func sampleFunctionBody(name string, code []byte) *Record {
	return NewFunctionBody(name, code).
		SetChildren("variables", sampleVariable()).
		SetChildren("labels", NewRecord(KindLabelInfo).SetInt("name_index", 0)).
		SetInt("input_size", 2).
		SetInt("return_size", 1)
}

// sampleRecords returns one populated record per kind, encodable under v.
func sampleRecords(v Version) map[Kind]*Record {
	kernel := NewRecord(KindKernel).
		SetString("name", "scale").
		SetInt("offset", 128).
		SetInt("size", 64).
		SetInt("input_offset", 32).
		SetChildren("variable_relocs", NewRelocation(1, 0)).
		SetChildren("function_relocs", NewRelocation(0, -1)).
		SetChildren("gen_binaries", NewRecord(KindGenBinary).SetInt("platform", 9).SetInt("binary_offset", 256).SetInt("binary_size", 12))
	function := NewRecord(KindFunction).
		SetInt("linkage", 1).
		SetString("name", "helper").
		SetInt("offset", 192).
		SetInt("size", 40).
		SetChildren("function_relocs", NewRelocation(0, 0))
	global := NewGlobalVariable("lut", 2, 64).SetChildren("attributes", sampleAttribute())
	header := NewRecord(KindHeader).
		SetInt("magic", int64(Magic)).
		SetInt("major", int64(v.Major)).
		SetInt("minor", int64(v.Minor)).
		SetChildren("kernels", kernel.Clone()).
		SetChildren("variables", global.Clone()).
		SetChildren("functions", function.Clone())

	return map[Kind]*Record{
		KindHeader:         header,
		KindKernel:         kernel,
		KindFunction:       function,
		KindGlobalVariable: global,
		KindKernelBody:     sampleKernelBody("scale", []byte{1, 2, 3, 4, 5, 6, 7, 8}),
		KindFunctionBody:   sampleFunctionBody("helper", []byte{9, 10}),
		KindStringPool:     NewStringPool("pool entry"),
		KindVariable:       sampleVariable(),
		KindAddressInfo:    sampleMetadata(KindAddressInfo),
		KindPredicateInfo:  sampleMetadata(KindPredicateInfo),
		KindLabelInfo:      NewRecord(KindLabelInfo).SetInt("name_index", 4).SetInt("kind", 2).SetChildren("attributes", sampleAttribute()),
		KindSamplerInfo:    sampleMetadata(KindSamplerInfo),
		KindSurfaceInfo:    sampleMetadata(KindSurfaceInfo),
		KindVmeInfo:        sampleMetadata(KindVmeInfo),
		KindAttributeInfo:  sampleAttribute(),
		KindInputInfo:      NewInput(1, 7, 64, 16),
		KindRelocationInfo: NewRelocation(5, -3),
		KindGenBinary:      NewRecord(KindGenBinary).SetInt("platform", 12).SetInt("binary_offset", 1024).SetInt("binary_size", 4096),
	}
}

// buildSample lays out a container with one kernel, one function and one
// global variable.
func buildSample(t *testing.T, v Version) []byte {
	t.Helper()
	buf, err := NewBuilder(v).
		AddKernel(KernelSpec{
			Name:           "scale",
			InputOffset:    32,
			Body:           sampleKernelBody("scale", []byte{0xde, 0xad, 0xbe, 0xef}),
			FunctionRelocs: []*Record{NewRelocation(0, 0)},
			Binaries:       []GenBinaryPayload{{Platform: 9, Data: []byte("gen9-binary")}},
		}).
		AddFunction(FunctionSpec{
			Name:           "helper",
			Linkage:        1,
			Body:           sampleFunctionBody("helper", []byte{0x01, 0x02, 0x03}),
			VariableRelocs: []*Record{NewRelocation(0, 0)},
		}).
		AddGlobalVariable(NewGlobalVariable("lut", 2, 64)).
		Bytes()
	if err != nil {
		t.Fatalf("build container: %v", err)
	}
	return buf
}

func asError(t *testing.T, err error, kind error) *Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T", err)
	}
	return e
}
