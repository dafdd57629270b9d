package cisa

import "fmt"

// Kind identifies a record schema.
type Kind uint8

const (
	KindHeader Kind = iota
	KindKernel
	KindFunction
	KindGlobalVariable
	KindKernelBody
	KindFunctionBody
	KindStringPool
	KindVariable
	KindAddressInfo
	KindPredicateInfo
	KindLabelInfo
	KindSamplerInfo
	KindSurfaceInfo
	KindVmeInfo
	KindAttributeInfo
	KindInputInfo
	KindRelocationInfo
	KindGenBinary

	numKinds
)

var kindNames = [numKinds]string{
	KindHeader:         "Header",
	KindKernel:         "Kernel",
	KindFunction:       "Function",
	KindGlobalVariable: "GlobalVariable",
	KindKernelBody:     "KernelBody",
	KindFunctionBody:   "FunctionBody",
	KindStringPool:     "StringPool",
	KindVariable:       "Variable",
	KindAddressInfo:    "AddressInfo",
	KindPredicateInfo:  "PredicateInfo",
	KindLabelInfo:      "LabelInfo",
	KindSamplerInfo:    "SamplerInfo",
	KindSurfaceInfo:    "SurfaceInfo",
	KindVmeInfo:        "VmeInfo",
	KindAttributeInfo:  "AttributeInfo",
	KindInputInfo:      "InputInfo",
	KindRelocationInfo: "RelocationInfo",
	KindGenBinary:      "GenBinary",
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Slot describes one position in a record schema. Slots are built with
// fixed, signed, inline, pooled, blob and array; refName is resolved to an
// index when the schema is defined.
type Slot struct {
	Name   string
	Type   FieldType
	Signed bool
	Child  Kind

	refName string
	ref     int
}

// Ref returns the index of the count field this slot depends on, or -1.
func (s Slot) Ref() int { return s.ref }

func fixed(name string, t FieldType) Slot {
	return Slot{Name: name, Type: t, ref: -1}
}

func signed(name string, t FieldType) Slot {
	return Slot{Name: name, Type: t, Signed: true, ref: -1}
}

func inline(name, count string) Slot {
	return Slot{Name: name, Type: InlineString, refName: count}
}

func pooled(name, count string) Slot {
	return Slot{Name: name, Type: PoolString, refName: count}
}

func blob(name, count string) Slot {
	return Slot{Name: name, Type: Blob, refName: count}
}

func array(name, count string, child Kind) Slot {
	return Slot{Name: name, Type: NestedMarker, refName: count, Child: child}
}

// Schema is the ordered slot list of one record kind.
type Schema struct {
	Kind  Kind
	Slots []Slot

	index map[string]int
}

// newSchema resolves slot references and panics on any reference that is
// not to an earlier integer slot. Schemas are package-level tables, so a
// bad table fails at init rather than mid-parse.
func newSchema(kind Kind, slots ...Slot) *Schema {
	s := &Schema{Kind: kind, Slots: slots, index: make(map[string]int, len(slots))}
	for i := range s.Slots {
		slot := &s.Slots[i]
		if _, dup := s.index[slot.Name]; dup {
			panic(fmt.Sprintf("cisa: %v: duplicate slot %q", kind, slot.Name))
		}
		if slot.refName != "" {
			ref, ok := s.index[slot.refName]
			if !ok {
				panic(fmt.Sprintf("cisa: %v.%s: count field %q must precede it", kind, slot.Name, slot.refName))
			}
			if !s.Slots[ref].Type.IsInt() {
				panic(fmt.Sprintf("cisa: %v.%s: count field %q is not an integer", kind, slot.Name, slot.refName))
			}
			slot.ref = ref
		}
		s.index[slot.Name] = i
	}
	return s
}

// Lookup returns the index of the named slot.
func (s *Schema) Lookup(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

func (s *Schema) mustLookup(name string) int {
	i, ok := s.index[name]
	if !ok {
		panic(fmt.Sprintf("cisa: %v has no slot %q", s.Kind, name))
	}
	return i
}

// SchemaFor returns the schema of a record kind.
func SchemaFor(k Kind) *Schema {
	if k >= numKinds {
		return nil
	}
	return schemas[k]
}

// Width returns the byte width slot i of the schema takes under v, or 0 for
// non-integer slots.
func (s *Schema) Width(i int, v Version) int {
	slot := s.Slots[i]
	if !slot.Type.IsInt() {
		return 0
	}
	return widthFor(s.Kind, slot, v.Combined())
}

func init() {
	for k, rules := range widthRules {
		for _, r := range rules {
			i := schemas[k].mustLookup(r.slot)
			if !schemas[k].Slots[i].Type.IsInt() {
				panic(fmt.Sprintf("cisa: width rule on non-integer slot %v.%s", Kind(k), r.slot))
			}
		}
	}
}
