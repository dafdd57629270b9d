package api

import (
	"encoding/hex"

	"github.com/samcharles93/cisa/pkg/cisa"
)

// JSON views of container records, shared by the HTTP handlers and the
// CLI dump command.

type GenBinaryView struct {
	Platform uint8  `json:"platform"`
	Offset   uint32 `json:"offset"`
	Size     uint32 `json:"size"`
}

type RelocationView struct {
	Symbolic uint16 `json:"symbolic_index"`
	Resolved int16  `json:"resolved_index"`
}

type KernelView struct {
	Name           string           `json:"name"`
	Offset         uint32           `json:"offset"`
	Size           uint32           `json:"size"`
	InputOffset    uint32           `json:"input_offset"`
	VariableRelocs []RelocationView `json:"variable_relocs"`
	FunctionRelocs []RelocationView `json:"function_relocs"`
	GenBinaries    []GenBinaryView  `json:"gen_binaries"`
}

type FunctionView struct {
	Name           string           `json:"name"`
	Linkage        uint8            `json:"linkage"`
	Offset         uint32           `json:"offset"`
	Size           uint32           `json:"size"`
	VariableRelocs []RelocationView `json:"variable_relocs"`
	FunctionRelocs []RelocationView `json:"function_relocs"`
}

type GlobalView struct {
	Name          string          `json:"name"`
	Linkage       uint8           `json:"linkage"`
	BitProperties uint8           `json:"bit_properties"`
	NumElements   uint16          `json:"num_elements"`
	Attributes    []AttributeView `json:"attributes"`
}

type AttributeView struct {
	Name  string `json:"name,omitempty"`
	Index uint32 `json:"name_index"`
	Value string `json:"value"`
}

type ContainerView struct {
	Version    string         `json:"version"`
	HeaderSize int            `json:"header_size"`
	Kernels    []KernelView   `json:"kernels"`
	Functions  []FunctionView `json:"functions"`
	Globals    []GlobalView   `json:"globals"`
}

type InputView struct {
	Kind   uint8  `json:"kind"`
	ID     uint32 `json:"id"`
	Offset uint16 `json:"offset"`
	Size   uint16 `json:"size"`
}

type VariableView struct {
	Name          string          `json:"name"`
	BitProperties uint8           `json:"bit_properties"`
	NumElements   uint16          `json:"num_elements"`
	AliasIndex    uint32          `json:"alias_index"`
	AliasOffset   uint16          `json:"alias_offset"`
	AliasScope    uint8           `json:"alias_scope"`
	Attributes    []AttributeView `json:"attributes"`
}

type SymbolView struct {
	Name        string          `json:"name"`
	NumElements uint16          `json:"num_elements,omitempty"`
	Kind        uint8           `json:"kind,omitempty"`
	Attributes  []AttributeView `json:"attributes"`
}

// BodyView covers both kernel and function bodies. Inputs is empty for
// functions; InputSize and ReturnSize are zero for kernels.
type BodyView struct {
	Name             string          `json:"name"`
	Strings          []string        `json:"strings"`
	Variables        []VariableView  `json:"variables"`
	Addresses        []SymbolView    `json:"addresses"`
	Predicates       []SymbolView    `json:"predicates"`
	Labels           []SymbolView    `json:"labels"`
	Samplers         []SymbolView    `json:"samplers"`
	Surfaces         []SymbolView    `json:"surfaces"`
	Vmes             []SymbolView    `json:"vmes"`
	Inputs           []InputView     `json:"inputs,omitempty"`
	InputSize        uint8           `json:"input_size,omitempty"`
	ReturnSize       uint8           `json:"return_size,omitempty"`
	Entry            uint32          `json:"entry"`
	Attributes       []AttributeView `json:"attributes"`
	InstructionBytes int             `json:"instruction_bytes"`
}

func relocViews(rs []cisa.RelocationInfo) []RelocationView {
	out := make([]RelocationView, len(rs))
	for i, r := range rs {
		out[i] = RelocationView{Symbolic: r.SymbolicIndex(), Resolved: r.ResolvedIndex()}
	}
	return out
}

// attrViews resolves attribute names through pool when one is available.
func attrViews(as []cisa.AttributeInfo, pool func(uint32) (string, bool)) []AttributeView {
	out := make([]AttributeView, len(as))
	for i, a := range as {
		out[i] = AttributeView{Index: a.NameIndex(), Value: hex.EncodeToString(a.Value())}
		if pool != nil {
			out[i].Name, _ = pool(a.NameIndex())
		}
	}
	return out
}

func NewKernelView(k cisa.Kernel) KernelView {
	v := KernelView{
		Name:           k.Name(),
		Offset:         k.Offset(),
		Size:           k.Size(),
		InputOffset:    k.InputOffset(),
		VariableRelocs: relocViews(k.VariableRelocs()),
		FunctionRelocs: relocViews(k.FunctionRelocs()),
		GenBinaries:    []GenBinaryView{},
	}
	for _, g := range k.GenBinaries() {
		v.GenBinaries = append(v.GenBinaries, GenBinaryView{
			Platform: g.Platform(),
			Offset:   g.BinaryOffset(),
			Size:     g.BinarySize(),
		})
	}
	return v
}

func NewFunctionView(f cisa.Function) FunctionView {
	return FunctionView{
		Name:           f.Name(),
		Linkage:        f.Linkage(),
		Offset:         f.Offset(),
		Size:           f.Size(),
		VariableRelocs: relocViews(f.VariableRelocs()),
		FunctionRelocs: relocViews(f.FunctionRelocs()),
	}
}

func NewContainerView(c *cisa.Container) ContainerView {
	v := ContainerView{
		Version:    c.Version().String(),
		HeaderSize: c.HeaderSize(),
		Kernels:    []KernelView{},
		Functions:  []FunctionView{},
		Globals:    []GlobalView{},
	}
	for _, k := range c.Kernels() {
		v.Kernels = append(v.Kernels, NewKernelView(k))
	}
	for _, f := range c.Functions() {
		v.Functions = append(v.Functions, NewFunctionView(f))
	}
	for _, g := range c.GlobalVariables() {
		v.Globals = append(v.Globals, GlobalView{
			Name:          g.Name(),
			Linkage:       g.Linkage(),
			BitProperties: g.BitProperties(),
			NumElements:   g.NumElements(),
			Attributes:    attrViews(g.Attributes(), nil),
		})
	}
	return v
}

type metadataRecord interface {
	NameIndex() uint32
	NumElements() uint16
	Attributes() []cisa.AttributeInfo
}

func symbolViews[T metadataRecord](items []T, pool func(uint32) (string, bool)) []SymbolView {
	out := make([]SymbolView, len(items))
	for i, m := range items {
		name, _ := pool(m.NameIndex())
		out[i] = SymbolView{Name: name, NumElements: m.NumElements(), Attributes: attrViews(m.Attributes(), pool)}
	}
	return out
}

type bodyRecord interface {
	Strings() []string
	Name() (string, bool)
	PoolString(uint32) (string, bool)
	Variables() []cisa.Variable
	Addresses() []cisa.AddressInfo
	Predicates() []cisa.PredicateInfo
	Labels() []cisa.LabelInfo
	Samplers() []cisa.SamplerInfo
	Surfaces() []cisa.SurfaceInfo
	Vmes() []cisa.VmeInfo
	Entry() uint32
	Attributes() []cisa.AttributeInfo
	Instructions() []byte
}

func newBodyView(b bodyRecord) BodyView {
	pool := b.PoolString
	name, _ := b.Name()
	v := BodyView{
		Name:             name,
		Strings:          b.Strings(),
		Variables:        make([]VariableView, 0, len(b.Variables())),
		Addresses:        symbolViews(b.Addresses(), pool),
		Predicates:       symbolViews(b.Predicates(), pool),
		Labels:           make([]SymbolView, 0, len(b.Labels())),
		Samplers:         symbolViews(b.Samplers(), pool),
		Surfaces:         symbolViews(b.Surfaces(), pool),
		Vmes:             symbolViews(b.Vmes(), pool),
		Entry:            b.Entry(),
		Attributes:       attrViews(b.Attributes(), pool),
		InstructionBytes: len(b.Instructions()),
	}
	for _, vr := range b.Variables() {
		vname, _ := pool(vr.NameIndex())
		v.Variables = append(v.Variables, VariableView{
			Name:          vname,
			BitProperties: vr.BitProperties(),
			NumElements:   vr.NumElements(),
			AliasIndex:    vr.AliasIndex(),
			AliasOffset:   vr.AliasOffset(),
			AliasScope:    vr.AliasScope(),
			Attributes:    attrViews(vr.Attributes(), pool),
		})
	}
	for _, l := range b.Labels() {
		lname, _ := pool(l.NameIndex())
		v.Labels = append(v.Labels, SymbolView{Name: lname, Kind: l.LabelKind(), Attributes: attrViews(l.Attributes(), pool)})
	}
	return v
}

func NewKernelBodyView(kb cisa.KernelBody) BodyView {
	v := newBodyView(kb)
	for _, in := range kb.Inputs() {
		v.Inputs = append(v.Inputs, InputView{Kind: in.InputKind(), ID: in.ID(), Offset: in.Offset(), Size: in.Size()})
	}
	return v
}

func NewFunctionBodyView(fb cisa.FunctionBody) BodyView {
	v := newBodyView(fb)
	v.InputSize = fb.InputSize()
	v.ReturnSize = fb.ReturnSize()
	return v
}

// RecordTree renders any record generically: slot name to integer, string,
// hex-encoded blob or list of child trees.
func RecordTree(r *cisa.Record) map[string]any {
	s := r.Schema()
	out := make(map[string]any, len(s.Slots)+1)
	out["record"] = r.Kind().String()
	for i, slot := range s.Slots {
		f := r.Field(i)
		switch slot.Type {
		case cisa.NestedMarker:
			kids := r.Children(i)
			list := make([]map[string]any, len(kids))
			for j, k := range kids {
				list[j] = RecordTree(k)
			}
			out[slot.Name] = list
		case cisa.InlineString, cisa.PoolString:
			out[slot.Name] = string(f.Data)
		case cisa.Blob:
			out[slot.Name] = hex.EncodeToString(f.Data)
		default:
			out[slot.Name] = f.Int
		}
	}
	return out
}
