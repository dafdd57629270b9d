// Package cisa implements the CISA kernel object file format.
//
// A CISA file carries compiled GPU kernel programs, their symbol tables and
// relocation metadata between a compiler and a runtime loader. Every record
// is described by a schema: an ordered list of typed fields, where string,
// blob and array lengths come from integer fields parsed earlier in the same
// record. Some field widths depend on the file version, which is only known
// once the first fields of the root header have been read.
//
// The instruction payload of a kernel or function is opaque to this package.
package cisa

// Magic is the little-endian root magic. It reads "CISA" on disk.
const Magic uint32 = 0x41534943

// Supported version range, as combined major*100+minor.
const (
	MinVersion = 300
	MaxVersion = 499
)
