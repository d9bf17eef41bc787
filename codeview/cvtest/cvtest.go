// Package cvtest builds CodeView fragment bytes for tests.
package cvtest

import (
	"crypto/md5"
	"encoding/binary"

	"cvdump/codeview"
)

// Line describes single line entry, columns are used only when fragment
// header has LineFlagHaveColumns set.
type Line struct {
	Offset    uint32
	Start     uint32
	End       uint32
	Statement bool
	ColStart  uint16
	ColEnd    uint16
}

// Block is a set of lines for a file.
type Block struct {
	NameIndex uint32
	Lines     []Line
}

// Checksum describes a file checksum entry.
type Checksum struct {
	FileNameOffset uint32
	Kind           codeview.ChecksumKind
	Sum            []byte
}

// Fragment is a record before framing.
type Fragment struct {
	Kind codeview.Kind
	Data []byte
}

func u16(b []byte, v uint16) []byte { return binary.LittleEndian.AppendUint16(b, v) }
func u32(b []byte, v uint32) []byte { return binary.LittleEndian.AppendUint32(b, v) }

func pad4(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

// Lines returns KindLines payload.
func Lines(h codeview.LineHeader, blocks ...Block) []byte {
	var b []byte
	b = u32(b, h.RelocOffset)
	b = u16(b, h.RelocSegment)
	b = u16(b, h.Flags)
	b = u32(b, h.CodeSize)

	entryLen := 8
	if h.HasColumns() {
		entryLen += 4
	}
	for _, blk := range blocks {
		b = u32(b, blk.NameIndex)
		b = u32(b, uint32(len(blk.Lines)))
		b = u32(b, uint32(12+len(blk.Lines)*entryLen))
		for _, l := range blk.Lines {
			flags := l.Start&0x00ffffff | ((l.End-l.Start)&0x7f)<<24
			if l.Statement {
				flags |= 0x80000000
			}
			b = u32(b, l.Offset)
			b = u32(b, flags)
		}
		if h.HasColumns() {
			for _, l := range blk.Lines {
				b = u16(b, l.ColStart)
				b = u16(b, l.ColEnd)
			}
		}
	}
	return b
}

// FileChecksums returns KindFileChecksums payload and offsets of entries
// (values line blocks use as NameIndex).
func FileChecksums(entries ...Checksum) ([]byte, []uint32) {
	var (
		b       []byte
		offsets []uint32
	)
	for _, e := range entries {
		offsets = append(offsets, uint32(len(b)))
		b = u32(b, e.FileNameOffset)
		b = append(b, byte(len(e.Sum)), byte(e.Kind))
		b = append(b, e.Sum...)
		b = pad4(b)
	}
	return b, offsets
}

// StringTable returns KindStringTable payload starting with the empty string
// and offsets of passed strings.
func StringTable(strs ...string) ([]byte, []uint32) {
	b := []byte{0}
	offsets := make([]uint32, 0, len(strs))
	for _, s := range strs {
		offsets = append(offsets, uint32(len(b)))
		b = append(b, s...)
		b = append(b, 0)
	}
	return b, offsets
}

// InlineeLines returns KindInlineeLines payload.
func InlineeLines(extraFiles bool, sites ...codeview.InlineeSite) []byte {
	var b []byte
	if extraFiles {
		b = u32(b, codeview.InlineeSignatureExtraFiles)
	} else {
		b = u32(b, codeview.InlineeSignatureNormal)
	}
	for _, s := range sites {
		b = u32(b, s.Inlinee)
		b = u32(b, s.FileID)
		b = u32(b, s.SourceLine)
		if extraFiles {
			b = u32(b, uint32(len(s.ExtraFiles)))
			for _, f := range s.ExtraFiles {
				b = u32(b, f)
			}
		}
	}
	return b
}

// Stream frames fragments into raw subsection stream.
func Stream(frags ...Fragment) []byte {
	var b []byte
	for _, f := range frags {
		b = u32(b, uint32(f.Kind))
		b = u32(b, uint32(len(f.Data)))
		b = append(b, f.Data...)
		b = pad4(b)
	}
	return b
}

// DebugSection returns .debug$S section contents: C13 signature and stream.
func DebugSection(frags ...Fragment) []byte {
	return append(u32(nil, codeview.SignatureC13), Stream(frags...)...)
}

// Records converts fragments to records without framing.
func Records(frags ...Fragment) []codeview.Record {
	out := make([]codeview.Record, 0, len(frags))
	for _, f := range frags {
		out = append(out, codeview.NewRecord(f.Kind, f.Data))
	}
	return out
}

// Sources are file contents of the sample module, keyed by file name.
var Sources = map[string]string{
	"main.c": "#include \"util.h\"\nint main(void) {\n\treturn twice(21);\n}\n",
	"util.h": "static inline int twice(int v) {\n\treturn v * 2;\n}\n",
}

// SampleNames lists sample module files in string table order.
var SampleNames = []string{"main.c", "util.h"}

// SampleModule returns fragments of a small but complete module: symbols
// (undecoded), file checksums, lines with columns, inlinee lines and string
// table, in the order compilers usually emit them.
func SampleModule() []Fragment {
	strtab, names := StringTable(SampleNames...)

	var sums []Checksum
	for i, n := range SampleNames {
		sum := md5.Sum([]byte(Sources[n]))
		sums = append(sums, Checksum{FileNameOffset: names[i], Kind: codeview.ChecksumMD5, Sum: sum[:]})
	}
	checksums, files := FileChecksums(sums...)

	lines := Lines(codeview.LineHeader{RelocOffset: 0x10, CodeSize: 0x20, Flags: codeview.LineFlagHaveColumns},
		Block{NameIndex: files[0], Lines: []Line{
			{Offset: 0x0, Start: 2, End: 2, Statement: true, ColStart: 1, ColEnd: 17},
			{Offset: 0x8, Start: 3, End: 3, Statement: true, ColStart: 2, ColEnd: 19},
		}},
		Block{NameIndex: files[1], Lines: []Line{
			{Offset: 0xc, Start: 2, End: 2, Statement: true, ColStart: 2, ColEnd: 15},
		}},
	)

	inlinees := InlineeLines(false, codeview.InlineeSite{Inlinee: 0x1001, FileID: files[1], SourceLine: 1})

	return []Fragment{
		{Kind: codeview.KindSymbols, Data: []byte{0x02, 0x00, 0x06, 0x00}},
		{Kind: codeview.KindFileChecksums, Data: checksums},
		{Kind: codeview.KindLines, Data: lines},
		{Kind: codeview.KindInlineeLines, Data: inlinees},
		{Kind: codeview.KindStringTable, Data: strtab},
	}
}
