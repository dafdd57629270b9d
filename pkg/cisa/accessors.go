package cisa

// Typed views over generic records. A view is a thin wrapper; the zero view
// is not usable.

func wrap[T any](recs []*Record, f func(*Record) T) []T {
	out := make([]T, len(recs))
	for i, r := range recs {
		out[i] = f(r)
	}
	return out
}

// Header is the root record.
type Header struct{ rec *Record }

func (h Header) Record() *Record { return h.rec }
func (h Header) Magic() uint32   { return uint32(h.rec.Int("magic")) }

// Version is the format version stored in the header.
func (h Header) Version() Version {
	return Version{Major: uint8(h.rec.Int("major")), Minor: uint8(h.rec.Int("minor"))}
}

// Kernels returns the kernel summaries in file order.
func (h Header) Kernels() []Kernel {
	return wrap(h.rec.List("kernels"), func(r *Record) Kernel { return Kernel{r} })
}

// GlobalVariables returns the program-wide variable table.
func (h Header) GlobalVariables() []GlobalVariable {
	return wrap(h.rec.List("variables"), func(r *Record) GlobalVariable { return GlobalVariable{r} })
}

// Functions returns the function summaries in file order.
func (h Header) Functions() []Function {
	return wrap(h.rec.List("functions"), func(r *Record) Function { return Function{r} })
}

// Kernel is a kernel summary. Offset and Size locate its KernelBody.
type Kernel struct{ rec *Record }

func (k Kernel) Record() *Record     { return k.rec }
func (k Kernel) Name() string        { return k.rec.Text("name") }
func (k Kernel) Offset() uint32      { return uint32(k.rec.Int("offset")) }
func (k Kernel) Size() uint32        { return uint32(k.rec.Int("size")) }
func (k Kernel) InputOffset() uint32 { return uint32(k.rec.Int("input_offset")) }

// VariableRelocs map the kernel's variable symbols onto the global
// variable table.
func (k Kernel) VariableRelocs() []RelocationInfo {
	return wrap(k.rec.List("variable_relocs"), func(r *Record) RelocationInfo { return RelocationInfo{r} })
}

// FunctionRelocs map the kernel's call targets onto the function table.
func (k Kernel) FunctionRelocs() []RelocationInfo {
	return wrap(k.rec.List("function_relocs"), func(r *Record) RelocationInfo { return RelocationInfo{r} })
}

// GenBinaries lists the precompiled binaries shipped with the kernel.
func (k Kernel) GenBinaries() []GenBinary {
	return wrap(k.rec.List("gen_binaries"), func(r *Record) GenBinary { return GenBinary{r} })
}

// Function is a function summary. Offset and Size locate its FunctionBody.
type Function struct{ rec *Record }

func (f Function) Record() *Record { return f.rec }
func (f Function) Linkage() uint8  { return uint8(f.rec.Int("linkage")) }
func (f Function) Name() string    { return f.rec.Text("name") }
func (f Function) Offset() uint32  { return uint32(f.rec.Int("offset")) }
func (f Function) Size() uint32    { return uint32(f.rec.Int("size")) }

// VariableRelocs map the function's variable symbols onto the global
// variable table.
func (f Function) VariableRelocs() []RelocationInfo {
	return wrap(f.rec.List("variable_relocs"), func(r *Record) RelocationInfo { return RelocationInfo{r} })
}

// FunctionRelocs map the function's call targets onto the function table.
func (f Function) FunctionRelocs() []RelocationInfo {
	return wrap(f.rec.List("function_relocs"), func(r *Record) RelocationInfo { return RelocationInfo{r} })
}

// GlobalVariable is a program-scope variable from the header. Linkage and
// BitProperties are passed through uninterpreted.
type GlobalVariable struct{ rec *Record }

func (g GlobalVariable) Record() *Record             { return g.rec }
func (g GlobalVariable) Linkage() uint8              { return uint8(g.rec.Int("linkage")) }
func (g GlobalVariable) Name() string                { return g.rec.Text("name") }
func (g GlobalVariable) BitProperties() uint8        { return uint8(g.rec.Int("bit_properties")) }
func (g GlobalVariable) NumElements() uint16         { return uint16(g.rec.Int("num_elements")) }
func (g GlobalVariable) Attributes() []AttributeInfo { return attributes(g.rec) }

// body holds what KernelBody and FunctionBody share.
type body struct{ rec *Record }

func (b body) Record() *Record   { return b.rec }
func (b body) NameIndex() uint32 { return uint32(b.rec.Int("name_index")) }
func (b body) Size() uint32      { return uint32(b.rec.Int("size")) }
func (b body) Entry() uint32     { return uint32(b.rec.Int("entry")) }

// Strings returns the string pool in stream order.
func (b body) Strings() []string {
	pool := b.rec.List("strings")
	out := make([]string, len(pool))
	for i, r := range pool {
		out[i] = StringPool{r}.Value()
	}
	return out
}

// Name resolves NameIndex through the string pool.
func (b body) Name() (string, bool) {
	return b.PoolString(b.NameIndex())
}

// PoolString returns pool entry i.
func (b body) PoolString(i uint32) (string, bool) {
	pool := b.rec.List("strings")
	if uint64(i) >= uint64(len(pool)) {
		return "", false
	}
	return StringPool{pool[i]}.Value(), true
}

// Variables returns the body-local variable declarations.
func (b body) Variables() []Variable {
	return wrap(b.rec.List("variables"), func(r *Record) Variable { return Variable{r} })
}

func (b body) Addresses() []AddressInfo {
	return wrap(b.rec.List("addresses"), func(r *Record) AddressInfo { return AddressInfo{metadata{r}} })
}

func (b body) Predicates() []PredicateInfo {
	return wrap(b.rec.List("predicates"), func(r *Record) PredicateInfo { return PredicateInfo{metadata{r}} })
}

// Labels returns the label table; entries point into the instruction blob.
func (b body) Labels() []LabelInfo {
	return wrap(b.rec.List("labels"), func(r *Record) LabelInfo { return LabelInfo{r} })
}

func (b body) Samplers() []SamplerInfo {
	return wrap(b.rec.List("samplers"), func(r *Record) SamplerInfo { return SamplerInfo{metadata{r}} })
}

func (b body) Surfaces() []SurfaceInfo {
	return wrap(b.rec.List("surfaces"), func(r *Record) SurfaceInfo { return SurfaceInfo{metadata{r}} })
}

func (b body) Vmes() []VmeInfo {
	return wrap(b.rec.List("vmes"), func(r *Record) VmeInfo { return VmeInfo{metadata{r}} })
}

func (b body) Attributes() []AttributeInfo { return attributes(b.rec) }

// Instructions returns the opaque instruction payload. The slice is owned
// by the record and outlives the source buffer.
func (b body) Instructions() []byte { return b.rec.Bytes("instructions") }

// KernelBody is the detail record of a kernel.
type KernelBody struct{ body }

// Inputs describes the kernel arguments in declaration order.
func (k KernelBody) Inputs() []InputInfo {
	return wrap(k.rec.List("inputs"), func(r *Record) InputInfo { return InputInfo{r} })
}

// FunctionBody is the detail record of a function.
type FunctionBody struct{ body }

// InputSize is the size of the argument area the function reads.
func (f FunctionBody) InputSize() uint8 { return uint8(f.rec.Int("input_size")) }

// ReturnSize is the size of the value area the function writes.
func (f FunctionBody) ReturnSize() uint8 { return uint8(f.rec.Int("return_size")) }

// StringPool is one entry of a body's string table. Other records refer
// to it by index.
type StringPool struct{ rec *Record }

func (s StringPool) Record() *Record { return s.rec }
func (s StringPool) Value() string   { return s.rec.Text("value") }

// Variable is a body-local variable. AliasIndex, AliasOffset and AliasScope
// locate the variable it overlays, if any.
type Variable struct{ rec *Record }

func (v Variable) Record() *Record             { return v.rec }
func (v Variable) NameIndex() uint32           { return uint32(v.rec.Int("name_index")) }
func (v Variable) BitProperties() uint8        { return uint8(v.rec.Int("bit_properties")) }
func (v Variable) NumElements() uint16         { return uint16(v.rec.Int("num_elements")) }
func (v Variable) AliasIndex() uint32          { return uint32(v.rec.Int("alias_index")) }
func (v Variable) AliasOffset() uint16         { return uint16(v.rec.Int("alias_offset")) }
func (v Variable) AliasScope() uint8           { return uint8(v.rec.Int("alias_scope")) }
func (v Variable) Attributes() []AttributeInfo { return attributes(v.rec) }

// metadata backs the records that are just a named, sized, attributed slot.
type metadata struct{ rec *Record }

func (m metadata) Record() *Record             { return m.rec }
func (m metadata) NameIndex() uint32           { return uint32(m.rec.Int("name_index")) }
func (m metadata) NumElements() uint16         { return uint16(m.rec.Int("num_elements")) }
func (m metadata) Attributes() []AttributeInfo { return attributes(m.rec) }

// Address, predicate, sampler, surface and VME declarations share one
// layout: a pooled name, an element count and attributes.
type (
	AddressInfo   struct{ metadata }
	PredicateInfo struct{ metadata }
	SamplerInfo   struct{ metadata }
	SurfaceInfo   struct{ metadata }
	VmeInfo       struct{ metadata }
)

// LabelInfo names a branch target or subroutine entry. LabelKind tells
// the two apart.
type LabelInfo struct{ rec *Record }

func (l LabelInfo) Record() *Record             { return l.rec }
func (l LabelInfo) NameIndex() uint32           { return uint32(l.rec.Int("name_index")) }
func (l LabelInfo) LabelKind() uint8            { return uint8(l.rec.Int("kind")) }
func (l LabelInfo) Attributes() []AttributeInfo { return attributes(l.rec) }

// AttributeInfo is a named opaque value attached to a record. Value is
// owned by the record.
type AttributeInfo struct{ rec *Record }

func (a AttributeInfo) Record() *Record   { return a.rec }
func (a AttributeInfo) NameIndex() uint32 { return uint32(a.rec.Int("name_index")) }
func (a AttributeInfo) Value() []byte     { return a.rec.Bytes("value") }

func attributes(r *Record) []AttributeInfo {
	return wrap(r.List("attributes"), func(r *Record) AttributeInfo { return AttributeInfo{r} })
}

// InputInfo describes one kernel argument and where it lands in the
// argument payload.
type InputInfo struct{ rec *Record }

func (in InputInfo) Record() *Record  { return in.rec }
func (in InputInfo) InputKind() uint8 { return uint8(in.rec.Int("kind")) }
func (in InputInfo) ID() uint32       { return uint32(in.rec.Int("id")) }
func (in InputInfo) Offset() uint16   { return uint16(in.rec.Int("offset")) }
func (in InputInfo) Size() uint16     { return uint16(in.rec.Int("size")) }

// RelocationInfo maps a symbolic index in a body to a resolved index in the
// header's variable or function table. ResolvedIndex is signed.
type RelocationInfo struct{ rec *Record }

func (r RelocationInfo) Record() *Record       { return r.rec }
func (r RelocationInfo) SymbolicIndex() uint16 { return uint16(r.rec.Int("symbolic_index")) }
func (r RelocationInfo) ResolvedIndex() int16  { return int16(r.rec.Int("resolved_index")) }

// GenBinary locates a precompiled binary for one platform.
type GenBinary struct{ rec *Record }

func (g GenBinary) Record() *Record      { return g.rec }
func (g GenBinary) Platform() uint8      { return uint8(g.rec.Int("platform")) }
func (g GenBinary) BinaryOffset() uint32 { return uint32(g.rec.Int("binary_offset")) }
func (g GenBinary) BinarySize() uint32   { return uint32(g.rec.Int("binary_size")) }

// AsHeader views r, a KindHeader record built or decoded outside a
// Container.
func AsHeader(r *Record) Header { return Header{r} }

// AsKernel views a KindKernel record.
func AsKernel(r *Record) Kernel { return Kernel{r} }

// AsFunction views a KindFunction record.
func AsFunction(r *Record) Function { return Function{r} }

// AsKernelBody views a KindKernelBody record, typically one returned by
// Decode.
func AsKernelBody(r *Record) KernelBody { return KernelBody{body{r}} }

// AsFunctionBody views a KindFunctionBody record.
func AsFunctionBody(r *Record) FunctionBody { return FunctionBody{body{r}} }
