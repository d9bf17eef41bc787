package inspect

import (
	"bytes"
	"encoding/hex"

	"cvdump/codeview"
	"cvdump/config"
)

// Dumper collects report of every fragment of a module. File references are
// resolved to names when traversal finishes, so order of checksums, string
// table and line fragments in the module does not matter.
type Dumper struct {
	cfg    config.DumpConfig
	report Report

	checksums *codeview.FileChecksumFragment
	strtab    *codeview.StringTableFragment
}

var _ codeview.Visitor = (*Dumper)(nil)

func NewDumper(module, format string, cfg config.DumpConfig) *Dumper {
	return &Dumper{
		cfg:    cfg,
		report: Report{Module: module, Format: format},
	}
}

// Report returns collected report, complete after successful traversal.
func (d *Dumper) Report() *Report {
	return &d.report
}

func (d *Dumper) add(kind codeview.Kind, size int) *Fragment {
	d.report.Fragments = append(d.report.Fragments, Fragment{
		Index: len(d.report.Fragments),
		Kind:  kind.String(),
		Size:  size,
	})
	return &d.report.Fragments[len(d.report.Fragments)-1]
}

func (d *Dumper) VisitUnknown(f *codeview.UnknownFragment) error {
	frag := d.add(f.Kind, len(f.Data))
	if n := min(len(f.Data), d.cfg.UnknownBytes); n > 0 {
		frag.Data = bytes.Clone(f.Data[:n])
	}
	return nil
}

func (d *Dumper) VisitLines(f *codeview.LineFragment) error {
	frag := d.add(codeview.KindLines, f.Size())
	lines := &Lines{
		RelocOffset:  f.Header.RelocOffset,
		RelocSegment: f.Header.RelocSegment,
		CodeSize:     f.Header.CodeSize,
		HasColumns:   f.Header.HasColumns(),
	}
	for _, b := range f.Blocks() {
		block := Block{FileOffset: b.NameIndex, Count: len(b.Lines)}
		shown := b.Lines
		if d.cfg.MaxLines > 0 && len(shown) > d.cfg.MaxLines {
			shown = shown[:d.cfg.MaxLines]
		}
		for i, e := range shown {
			ln := Line{Offset: e.Offset, Start: e.Start(), End: e.End(), Statement: e.IsStatement()}
			if b.Columns != nil {
				ln.ColumnStart, ln.ColumnEnd = b.Columns[i].Start, b.Columns[i].End
			}
			block.Lines = append(block.Lines, ln)
		}
		lines.Blocks = append(lines.Blocks, block)
	}
	frag.Lines = lines
	return nil
}

func (d *Dumper) VisitFileChecksums(f *codeview.FileChecksumFragment) error {
	frag := d.add(codeview.KindFileChecksums, f.Size())
	frag.Checksums = make([]Checksum, 0, f.Len())
	for _, e := range f.Entries() {
		frag.Checksums = append(frag.Checksums, Checksum{
			Offset:     e.Offset,
			NameOffset: e.FileNameOffset,
			Kind:       e.Kind.String(),
			Value:      hex.EncodeToString(e.Checksum),
		})
	}
	// the last one wins when module has several
	d.checksums = f
	return nil
}

func (d *Dumper) VisitInlineeLines(f *codeview.InlineeLinesFragment) error {
	frag := d.add(codeview.KindInlineeLines, f.Size())
	inl := &Inlinees{ExtraFiles: f.HasExtraFiles(), Sites: make([]Site, 0, len(f.Sites))}
	for _, s := range f.Sites {
		inl.Sites = append(inl.Sites, Site{
			Inlinee:    s.Inlinee,
			FileOffset: s.FileID,
			Line:       s.SourceLine,
			ExtraFiles: s.ExtraFiles,
		})
	}
	frag.Inlinees = inl
	return nil
}

func (d *Dumper) VisitStringTable(f *codeview.StringTableFragment) error {
	frag := d.add(codeview.KindStringTable, f.Size())
	frag.Strings = []String{}
	for off, s := range f.All() {
		frag.Strings = append(frag.Strings, String{Offset: off, Value: s})
	}
	d.strtab = f
	return nil
}

// Finished resolves file names. Unresolvable references are left without
// names, dump shows them by offset.
func (d *Dumper) Finished() error {
	resolve := func(off uint32) string {
		name, _ := codeview.ResolveFileName(d.checksums, d.strtab, off)
		return name
	}
	for i := range d.report.Fragments {
		frag := &d.report.Fragments[i]
		switch {
		case frag.Lines != nil:
			for j := range frag.Lines.Blocks {
				frag.Lines.Blocks[j].File = resolve(frag.Lines.Blocks[j].FileOffset)
			}
		case frag.Inlinees != nil:
			for j := range frag.Inlinees.Sites {
				frag.Inlinees.Sites[j].File = resolve(frag.Inlinees.Sites[j].FileOffset)
			}
		case frag.Checksums != nil && d.strtab != nil:
			for j := range frag.Checksums {
				frag.Checksums[j].File, _ = d.strtab.Lookup(frag.Checksums[j].NameOffset)
			}
		}
	}
	d.checksums, d.strtab = nil, nil
	return nil
}
