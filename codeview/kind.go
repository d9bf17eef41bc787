package codeview

import "fmt"

// Kind identifies how the payload of a debug fragment (CodeView subsection)
// must be interpreted.
type Kind uint32

// Known fragment kinds, values match DEBUG_S_* constants.
const (
	KindNone                Kind = 0
	KindSymbols             Kind = 0xf1
	KindLines               Kind = 0xf2
	KindStringTable         Kind = 0xf3
	KindFileChecksums       Kind = 0xf4
	KindFrameData           Kind = 0xf5
	KindInlineeLines        Kind = 0xf6
	KindCrossScopeImports   Kind = 0xf7
	KindCrossScopeExports   Kind = 0xf8
	KindILLines             Kind = 0xf9
	KindFuncMDTokenMap      Kind = 0xfa
	KindTypeMDTokenMap      Kind = 0xfb
	KindMergedAssemblyInput Kind = 0xfc
	KindCoffSymbolRVA       Kind = 0xfd

	// KindUnknown is the catch-all kind, nothing is decoded for it.
	KindUnknown = KindNone

	// KindIgnore is set by producers on fragments consumers must skip.
	KindIgnore Kind = 0x80000000
)

var kindNames = map[Kind]string{
	KindNone:                "none",
	KindSymbols:             "symbols",
	KindLines:               "lines",
	KindStringTable:         "string-table",
	KindFileChecksums:       "file-checksums",
	KindFrameData:           "frame-data",
	KindInlineeLines:        "inlinee-lines",
	KindCrossScopeImports:   "cross-scope-imports",
	KindCrossScopeExports:   "cross-scope-exports",
	KindILLines:             "il-lines",
	KindFuncMDTokenMap:      "func-md-token-map",
	KindTypeMDTokenMap:      "type-md-token-map",
	KindMergedAssemblyInput: "merged-assembly-input",
	KindCoffSymbolRVA:       "coff-symbol-rva",
}

// Ignored reports whether the producer marked fragment to be skipped.
func (k Kind) Ignored() bool {
	return k&KindIgnore != 0
}

// Known reports whether kind is one of the enumerated values.
func (k Kind) Known() bool {
	_, ok := kindNames[k]
	return ok
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	if k.Ignored() {
		return fmt.Sprintf("ignored(%s)", k&^KindIgnore)
	}
	return fmt.Sprintf("0x%x", uint32(k))
}
