package cisa

import (
	"bytes"
	"fmt"
)

// Record is one parsed node of the container tree. It owns its fields and
// child records exclusively.
type Record struct {
	kind     Kind
	fields   []Field
	children [][]*Record
}

// NewRecord returns a zero-valued record of kind k. Count fields start at
// zero and are kept in step by SetBytes, SetString, SetChildren and Append.
func NewRecord(k Kind) *Record {
	s := SchemaFor(k)
	if s == nil {
		panic(fmt.Sprintf("cisa: unknown kind %d", k))
	}
	r := &Record{
		kind:     k,
		fields:   make([]Field, len(s.Slots)),
		children: make([][]*Record, len(s.Slots)),
	}
	for i, slot := range s.Slots {
		r.fields[i] = Field{Type: slot.Type, CountField: slot.ref}
		if slot.Type.IsBytes() {
			r.fields[i].Data = []byte{}
		}
	}
	return r
}

func (r *Record) Kind() Kind { return r.kind }

func (r *Record) Schema() *Schema { return schemas[r.kind] }

// Field returns the decoded field at slot i.
func (r *Record) Field(i int) Field { return r.fields[i] }

// Children returns the child records of nested slot i.
func (r *Record) Children(i int) []*Record { return r.children[i] }

// Int returns the integer value of the named slot.
func (r *Record) Int(name string) int64 {
	return r.fields[r.Schema().mustLookup(name)].Int
}

// Bytes returns the payload of the named string or blob slot. The slice is
// owned by the record.
func (r *Record) Bytes(name string) []byte {
	return r.fields[r.Schema().mustLookup(name)].Data
}

// Text returns the payload of the named string slot.
func (r *Record) Text(name string) string {
	return string(r.Bytes(name))
}

// List returns the children of the named nested slot.
func (r *Record) List(name string) []*Record {
	return r.children[r.Schema().mustLookup(name)]
}

// SetInt stores v in an integer slot. Width is checked on serialise.
func (r *Record) SetInt(name string, v int64) *Record {
	i := r.Schema().mustLookup(name)
	if !r.fields[i].Type.IsInt() {
		panic(fmt.Sprintf("cisa: %v.%s is not an integer", r.kind, name))
	}
	r.fields[i].Int = v
	return r
}

// SetBytes stores a copy of p and updates the slot's count field.
func (r *Record) SetBytes(name string, p []byte) *Record {
	i := r.Schema().mustLookup(name)
	if !r.fields[i].Type.IsBytes() {
		panic(fmt.Sprintf("cisa: %v.%s is not a byte field", r.kind, name))
	}
	r.fields[i].Data = bytes.Clone(p)
	if r.fields[i].Data == nil {
		r.fields[i].Data = []byte{}
	}
	r.fields[r.fields[i].CountField].Int = int64(len(p))
	return r
}

func (r *Record) SetString(name, s string) *Record {
	return r.SetBytes(name, []byte(s))
}

// SetChildren replaces the children of a nested slot and updates its count.
func (r *Record) SetChildren(name string, recs ...*Record) *Record {
	i := r.nestedSlot(name)
	want := r.Schema().Slots[i].Child
	for _, c := range recs {
		if c.kind != want {
			panic(fmt.Sprintf("cisa: %v.%s holds %v, got %v", r.kind, name, want, c.kind))
		}
	}
	r.children[i] = append([]*Record(nil), recs...)
	r.fields[r.fields[i].CountField].Int = int64(len(recs))
	return r
}

// Append adds one child to a nested slot.
func (r *Record) Append(name string, c *Record) *Record {
	i := r.nestedSlot(name)
	return r.SetChildren(name, append(r.children[i], c)...)
}

func (r *Record) nestedSlot(name string) int {
	i := r.Schema().mustLookup(name)
	if r.fields[i].Type != NestedMarker {
		panic(fmt.Sprintf("cisa: %v.%s is not a nested slot", r.kind, name))
	}
	return i
}

// Equal reports whether two trees hold the same decoded values.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.kind != o.kind || len(r.fields) != len(o.fields) {
		return false
	}
	for i := range r.fields {
		a, b := r.fields[i], o.fields[i]
		if a.Type != b.Type || a.Int != b.Int || !bytes.Equal(a.Data, b.Data) {
			return false
		}
		if len(r.children[i]) != len(o.children[i]) {
			return false
		}
		for j := range r.children[i] {
			if !r.children[i][j].Equal(o.children[i][j]) {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	c := &Record{
		kind:     r.kind,
		fields:   make([]Field, len(r.fields)),
		children: make([][]*Record, len(r.children)),
	}
	for i, f := range r.fields {
		if f.Data != nil {
			f.Data = bytes.Clone(f.Data)
		}
		c.fields[i] = f
		if r.children[i] != nil {
			c.children[i] = make([]*Record, len(r.children[i]))
			for j, ch := range r.children[i] {
				c.children[i][j] = ch.Clone()
			}
		}
	}
	return c
}
