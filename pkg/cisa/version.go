package cisa

import "fmt"

// Version is the format version read from the root header. It is fixed once
// per container and passed by value into every parse and serialise call.
type Version struct {
	Major uint8
	Minor uint8
}

// Combined returns major*100+minor, the value width rules are keyed on.
func (v Version) Combined() int {
	return int(v.Major)*100 + int(v.Minor)
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Supported reports whether some layout covers v.
func (v Version) Supported() bool {
	c := v.Combined()
	return c >= MinVersion && c <= MaxVersion
}

// widthRule narrows a slot to width bytes for files at or below maxVersion.
type widthRule struct {
	slot       string
	maxVersion int
	width      int
}

// narrowNameIndex is shared by every metadata record that names itself
// through the string pool.
var narrowNameIndex = widthRule{slot: "name_index", maxVersion: 303, width: 2}

var widthRules = [numKinds][]widthRule{
	KindKernel:   {{slot: "name_len", maxVersion: 306, width: 1}},
	KindFunction: {{slot: "name_len", maxVersion: 306, width: 1}},
	KindKernelBody: {
		{slot: "string_count", maxVersion: 304, width: 2},
		narrowNameIndex,
		{slot: "variable_count", maxVersion: 304, width: 2},
	},
	KindFunctionBody: {
		{slot: "string_count", maxVersion: 304, width: 2},
		narrowNameIndex,
		{slot: "variable_count", maxVersion: 304, width: 2},
	},
	KindVariable: {
		narrowNameIndex,
		{slot: "alias_index", maxVersion: 303, width: 2},
	},
	KindAddressInfo:   {narrowNameIndex},
	KindPredicateInfo: {narrowNameIndex},
	KindLabelInfo:     {narrowNameIndex},
	KindSamplerInfo:   {narrowNameIndex},
	KindSurfaceInfo:   {narrowNameIndex},
	KindVmeInfo:       {narrowNameIndex},
	KindAttributeInfo: {narrowNameIndex},
	KindInputInfo:     {{slot: "id", maxVersion: 303, width: 2}},
}

// widthFor returns the byte width of an integer slot for a given version.
// Rules are checked in table order; the first match wins.
func widthFor(kind Kind, slot Slot, combined int) int {
	for _, r := range widthRules[kind] {
		if r.slot == slot.Name && combined <= r.maxVersion {
			return r.width
		}
	}
	return slot.Type.width()
}
