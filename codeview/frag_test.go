package codeview_test

import (
	"bytes"
	"errors"
	"testing"

	"cvdump/codeview"
	"cvdump/codeview/cvtest"
)

func TestDecodeLines(t *testing.T) {
	tests := []struct {
		name    string
		header  codeview.LineHeader
		columns bool
	}{
		{name: "without columns", header: codeview.LineHeader{RelocOffset: 0x40, RelocSegment: 1, CodeSize: 0x30}},
		{name: "with columns", header: codeview.LineHeader{CodeSize: 0x30, Flags: codeview.LineFlagHaveColumns}, columns: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := cvtest.Lines(tt.header,
				cvtest.Block{NameIndex: 0, Lines: []cvtest.Line{
					{Offset: 0, Start: 10, End: 12, Statement: true, ColStart: 1, ColEnd: 5},
					{Offset: 6, Start: 13, End: 13, ColStart: 3, ColEnd: 9},
				}},
				cvtest.Block{NameIndex: 0x18},
			)

			f, err := codeview.DecodeLines(data)
			if err != nil {
				t.Fatalf("DecodeLines() error = %v", err)
			}
			if f.Header != tt.header {
				t.Errorf("Header = %+v, want %+v", f.Header, tt.header)
			}
			if f.NumBlocks() != 2 {
				t.Fatalf("NumBlocks() = %d, want 2", f.NumBlocks())
			}

			blocks := f.Blocks()
			if blocks[1].NameIndex != 0x18 || len(blocks[1].Lines) != 0 {
				t.Errorf("second block = %+v, want empty block for file 0x18", blocks[1])
			}
			first := blocks[0]
			if len(first.Lines) != 2 {
				t.Fatalf("first block has %d lines, want 2", len(first.Lines))
			}
			l := first.Lines[0]
			if l.Start() != 10 || l.End() != 12 || !l.IsStatement() {
				t.Errorf("line 0 = start %d end %d stmt %v, want 10 12 true", l.Start(), l.End(), l.IsStatement())
			}
			if first.Lines[1].Offset != 6 || first.Lines[1].IsStatement() {
				t.Errorf("line 1 = %+v, want offset 6, not statement", first.Lines[1])
			}
			if tt.columns {
				if len(first.Columns) != 2 || first.Columns[1] != (codeview.ColumnEntry{Start: 3, End: 9}) {
					t.Errorf("columns = %+v, want 2 entries ending with {3 9}", first.Columns)
				}
			} else if first.Columns != nil {
				t.Errorf("columns = %+v, want none", first.Columns)
			}
		})
	}
}

func TestDecodeLines_BlocksCached(t *testing.T) {
	data := cvtest.Lines(codeview.LineHeader{}, cvtest.Block{Lines: []cvtest.Line{{Start: 1, End: 1}}})
	f, err := codeview.DecodeLines(data)
	if err != nil {
		t.Fatalf("DecodeLines() error = %v", err)
	}
	a, b := f.Blocks(), f.Blocks()
	if &a[0] != &b[0] {
		t.Error("Blocks() materialized blocks twice")
	}
}

func TestDecodeLines_Malformed(t *testing.T) {
	valid := cvtest.Lines(codeview.LineHeader{}, cvtest.Block{Lines: []cvtest.Line{{Start: 1, End: 1}}})

	wrongSize := bytes.Clone(valid)
	wrongSize[20] = 0xff // block size

	columnsFlag := bytes.Clone(valid)
	columnsFlag[6] = codeview.LineFlagHaveColumns

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "short header", data: valid[:11]},
		{name: "short block header", data: valid[:16]},
		{name: "truncated lines", data: valid[:len(valid)-1]},
		{name: "block size mismatch", data: wrongSize},
		{name: "columns missing", data: columnsFlag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := codeview.DecodeLines(tt.data); !errors.Is(err, codeview.ErrMalformedFragment) {
				t.Errorf("DecodeLines() error = %v, want ErrMalformedFragment", err)
			}
		})
	}
}

func TestDecodeLines_HeaderOnly(t *testing.T) {
	f, err := codeview.DecodeLines(cvtest.Lines(codeview.LineHeader{CodeSize: 1}))
	if err != nil {
		t.Fatalf("DecodeLines() error = %v", err)
	}
	if f.NumBlocks() != 0 || len(f.Blocks()) != 0 {
		t.Errorf("expected no blocks, got %d", f.NumBlocks())
	}
}

func TestDecodeFileChecksums(t *testing.T) {
	sha := bytes.Repeat([]byte{0xab}, 32)
	data, offsets := cvtest.FileChecksums(
		cvtest.Checksum{FileNameOffset: 1, Kind: codeview.ChecksumMD5, Sum: bytes.Repeat([]byte{1}, 16)},
		cvtest.Checksum{FileNameOffset: 8, Kind: codeview.ChecksumNone},
		cvtest.Checksum{FileNameOffset: 15, Kind: codeview.ChecksumSHA256, Sum: sha},
	)

	f, err := codeview.DecodeFileChecksums(data)
	if err != nil {
		t.Fatalf("DecodeFileChecksums() error = %v", err)
	}
	if f.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", f.Len())
	}

	entries := f.Entries()
	for i, e := range entries {
		if e.Offset != offsets[i] {
			t.Errorf("entry %d offset = %d, want %d", i, e.Offset, offsets[i])
		}
	}
	if entries[1].Kind != codeview.ChecksumNone || len(entries[1].Checksum) != 0 {
		t.Errorf("entry 1 = %+v, want empty none checksum", entries[1])
	}

	e, ok := f.Lookup(offsets[2])
	if !ok {
		t.Fatalf("Lookup(%d) not found", offsets[2])
	}
	if e.FileNameOffset != 15 || e.Kind != codeview.ChecksumSHA256 || !bytes.Equal(e.Checksum, sha) {
		t.Errorf("Lookup(%d) = %+v", offsets[2], e)
	}
	if _, ok := f.Lookup(offsets[2] + 1); ok {
		t.Error("Lookup() found entry at offset which is not entry start")
	}
}

func TestDecodeFileChecksums_LookupBeforeEntries(t *testing.T) {
	data, offsets := cvtest.FileChecksums(
		cvtest.Checksum{FileNameOffset: 1, Kind: codeview.ChecksumSHA1, Sum: bytes.Repeat([]byte{2}, 20)},
		cvtest.Checksum{FileNameOffset: 9, Kind: codeview.ChecksumSHA1, Sum: bytes.Repeat([]byte{3}, 20)},
	)
	f, err := codeview.DecodeFileChecksums(data)
	if err != nil {
		t.Fatalf("DecodeFileChecksums() error = %v", err)
	}
	e, ok := f.Lookup(offsets[1])
	if !ok || e.FileNameOffset != 9 {
		t.Errorf("Lookup(%d) = %+v, %v", offsets[1], e, ok)
	}
}

func TestDecodeFileChecksums_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "short header", data: []byte{1, 0, 0, 0, 0}},
		{name: "short checksum", data: []byte{1, 0, 0, 0, 16, 1, 0xaa, 0xbb}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := codeview.DecodeFileChecksums(tt.data); !errors.Is(err, codeview.ErrMalformedFragment) {
				t.Errorf("DecodeFileChecksums() error = %v, want ErrMalformedFragment", err)
			}
		})
	}
}

func TestDecodeFileChecksums_UnpaddedTail(t *testing.T) {
	// last entry padding may be cut off by producer
	data := []byte{1, 0, 0, 0, 1, 0, 0xee}
	f, err := codeview.DecodeFileChecksums(data)
	if err != nil {
		t.Fatalf("DecodeFileChecksums() error = %v", err)
	}
	if f.Len() != 1 || f.Entries()[0].Checksum[0] != 0xee {
		t.Errorf("entries = %+v", f.Entries())
	}
}

func TestDecodeInlineeLines(t *testing.T) {
	sites := []codeview.InlineeSite{
		{Inlinee: 0x1000, FileID: 0, SourceLine: 12, ExtraFiles: []uint32{0x18, 0x30}},
		{Inlinee: 0x1001, FileID: 0x18, SourceLine: 7, ExtraFiles: []uint32{}},
	}

	f, err := codeview.DecodeInlineeLines(cvtest.InlineeLines(true, sites...))
	if err != nil {
		t.Fatalf("DecodeInlineeLines() error = %v", err)
	}
	if !f.HasExtraFiles() || len(f.Sites) != 2 {
		t.Fatalf("got %+v", f)
	}
	if got := f.Sites[0]; got.SourceLine != 12 || len(got.ExtraFiles) != 2 || got.ExtraFiles[1] != 0x30 {
		t.Errorf("site 0 = %+v", got)
	}

	f, err = codeview.DecodeInlineeLines(cvtest.InlineeLines(false, codeview.InlineeSite{Inlinee: 5, FileID: 6, SourceLine: 7}))
	if err != nil {
		t.Fatalf("DecodeInlineeLines() error = %v", err)
	}
	if f.HasExtraFiles() || len(f.Sites) != 1 || f.Sites[0].ExtraFiles != nil {
		t.Errorf("got %+v", f)
	}
}

func TestDecodeInlineeLines_Malformed(t *testing.T) {
	valid := cvtest.InlineeLines(true, codeview.InlineeSite{Inlinee: 1, ExtraFiles: []uint32{1, 2}})
	tests := []struct {
		name string
		data []byte
	}{
		{name: "no signature", data: []byte{0, 0}},
		{name: "bad signature", data: []byte{7, 0, 0, 0}},
		{name: "truncated site", data: valid[:10]},
		{name: "missing extra count", data: valid[:16]},
		{name: "truncated extra files", data: valid[:len(valid)-2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := codeview.DecodeInlineeLines(tt.data); !errors.Is(err, codeview.ErrMalformedFragment) {
				t.Errorf("DecodeInlineeLines() error = %v, want ErrMalformedFragment", err)
			}
		})
	}
}

func TestDecodeStringTable(t *testing.T) {
	data, offsets := cvtest.StringTable("a.c", "dir/b.h")
	f, err := codeview.DecodeStringTable(data)
	if err != nil {
		t.Fatalf("DecodeStringTable() error = %v", err)
	}
	for i, want := range []string{"a.c", "dir/b.h"} {
		if got, err := f.Lookup(offsets[i]); err != nil || got != want {
			t.Errorf("Lookup(%d) = %q, %v, want %q", offsets[i], got, err, want)
		}
	}
	if got, err := f.Lookup(0); err != nil || got != "" {
		t.Errorf("Lookup(0) = %q, %v, want empty string", got, err)
	}
	if got, err := f.Lookup(offsets[1] + 4); err != nil || got != "b.h" {
		t.Errorf("Lookup(inside string) = %q, %v, want suffix", got, err)
	}
	if _, err := f.Lookup(uint32(len(data))); err == nil {
		t.Error("Lookup() past the end succeeded")
	}

	if _, err := codeview.DecodeStringTable([]byte("abc")); !errors.Is(err, codeview.ErrMalformedFragment) {
		t.Errorf("DecodeStringTable(unterminated) error = %v, want ErrMalformedFragment", err)
	}
	if _, err := codeview.DecodeStringTable(nil); err != nil {
		t.Errorf("DecodeStringTable(empty) error = %v", err)
	}
}

func TestFragmentSizes(t *testing.T) {
	for _, frag := range cvtest.SampleModule() {
		var size int
		switch frag.Kind {
		case codeview.KindLines:
			f, err := codeview.DecodeLines(frag.Data)
			if err != nil {
				t.Fatalf("DecodeLines() error = %v", err)
			}
			size = f.Size()
		case codeview.KindFileChecksums:
			f, err := codeview.DecodeFileChecksums(frag.Data)
			if err != nil {
				t.Fatalf("DecodeFileChecksums() error = %v", err)
			}
			size = f.Size()
		case codeview.KindInlineeLines:
			f, err := codeview.DecodeInlineeLines(frag.Data)
			if err != nil {
				t.Fatalf("DecodeInlineeLines() error = %v", err)
			}
			size = f.Size()
		case codeview.KindStringTable:
			f, err := codeview.DecodeStringTable(frag.Data)
			if err != nil {
				t.Fatalf("DecodeStringTable() error = %v", err)
			}
			size = f.Size()
		default:
			continue
		}
		if size != len(frag.Data) {
			t.Errorf("%s: Size() = %d, want %d", frag.Kind, size, len(frag.Data))
		}
	}
}

func TestStringTable_All(t *testing.T) {
	data, offsets := cvtest.StringTable("a.c", "dir/b.h")
	f, err := codeview.DecodeStringTable(data)
	if err != nil {
		t.Fatalf("DecodeStringTable() error = %v", err)
	}

	var gotOffs []uint32
	var gotStrs []string
	for off, s := range f.All() {
		gotOffs = append(gotOffs, off)
		gotStrs = append(gotStrs, s)
	}
	if len(gotStrs) != 3 || gotStrs[0] != "" || gotStrs[1] != "a.c" || gotStrs[2] != "dir/b.h" {
		t.Errorf("strings = %q", gotStrs)
	}
	if len(gotOffs) != 3 || gotOffs[0] != 0 || gotOffs[1] != offsets[0] || gotOffs[2] != offsets[1] {
		t.Errorf("offsets = %v, want [0 %d %d]", gotOffs, offsets[0], offsets[1])
	}

	empty, _ := codeview.DecodeStringTable(nil)
	for range empty.All() {
		t.Error("empty table yielded a string")
	}
}

func TestResolveFileName(t *testing.T) {
	strData, names := cvtest.StringTable("main.c", "util.h")
	strtab, err := codeview.DecodeStringTable(strData)
	if err != nil {
		t.Fatalf("DecodeStringTable() error = %v", err)
	}
	sumData, files := cvtest.FileChecksums(
		cvtest.Checksum{FileNameOffset: names[1], Kind: codeview.ChecksumNone},
		cvtest.Checksum{FileNameOffset: names[0], Kind: codeview.ChecksumMD5, Sum: make([]byte, 16)},
		cvtest.Checksum{FileNameOffset: 0x1000, Kind: codeview.ChecksumNone},
	)
	sums, err := codeview.DecodeFileChecksums(sumData)
	if err != nil {
		t.Fatalf("DecodeFileChecksums() error = %v", err)
	}

	if got, err := codeview.ResolveFileName(sums, strtab, files[0]); err != nil || got != "util.h" {
		t.Errorf("ResolveFileName(files[0]) = %q, %v", got, err)
	}
	if got, err := codeview.ResolveFileName(sums, strtab, files[1]); err != nil || got != "main.c" {
		t.Errorf("ResolveFileName(files[1]) = %q, %v", got, err)
	}

	for name, tc := range map[string]struct {
		sums   *codeview.FileChecksumFragment
		strtab *codeview.StringTableFragment
		off    uint32
	}{
		"no checksums":      {nil, strtab, files[0]},
		"no string table":   {sums, nil, files[0]},
		"not entry offset":  {sums, strtab, files[0] + 1},
		"name out of range": {sums, strtab, files[2]},
	} {
		if _, err := codeview.ResolveFileName(tc.sums, tc.strtab, tc.off); err == nil {
			t.Errorf("%s: ResolveFileName() succeeded", name)
		}
	}
}
