package inspect

import (
	"encoding/hex"
	"fmt"

	"github.com/amazon-ion/ion-go/ion"
	yaml "gopkg.in/yaml.v3"

	"cvdump/config"
	"cvdump/utils/debug"
)

// Report is the dump of a single module. All values are copied out of the
// record payloads, report outlives the traversal.
type Report struct {
	Module    string     `yaml:"module" ion:"module"`
	Format    string     `yaml:"format" ion:"format"`
	Fragments []Fragment `yaml:"fragments" ion:"fragments"`
}

type Fragment struct {
	Index int    `yaml:"index" ion:"index"`
	Kind  string `yaml:"kind" ion:"kind"`
	Size  int    `yaml:"size" ion:"size"`

	Lines     *Lines     `yaml:"lines,omitempty" ion:"lines,omitempty"`
	Checksums []Checksum `yaml:"checksums,omitempty" ion:"checksums,omitempty"`
	Inlinees  *Inlinees  `yaml:"inlinees,omitempty" ion:"inlinees,omitempty"`
	Strings   []String   `yaml:"strings,omitempty" ion:"strings,omitempty"`
	// leading bytes of fragments without decoder
	Data Bytes `yaml:"data,omitempty" ion:"data,omitempty"`
}

// Bytes is written as hex string to yaml and as blob to ion.
type Bytes []byte

func (b Bytes) MarshalYAML() (any, error) {
	return hex.EncodeToString(b), nil
}

type Lines struct {
	RelocOffset  uint32  `yaml:"reloc_offset" ion:"reloc_offset"`
	RelocSegment uint16  `yaml:"reloc_segment" ion:"reloc_segment"`
	CodeSize     uint32  `yaml:"code_size" ion:"code_size"`
	HasColumns   bool    `yaml:"has_columns" ion:"has_columns"`
	Blocks       []Block `yaml:"blocks" ion:"blocks"`
}

type Block struct {
	FileOffset uint32 `yaml:"file_offset" ion:"file_offset"`
	File       string `yaml:"file,omitempty" ion:"file,omitempty"`
	// total number of lines, Lines may be shortened
	Count int    `yaml:"count" ion:"count"`
	Lines []Line `yaml:"lines,omitempty" ion:"lines,omitempty"`
}

type Line struct {
	Offset      uint32 `yaml:"offset" ion:"offset"`
	Start       uint32 `yaml:"start" ion:"start"`
	End         uint32 `yaml:"end" ion:"end"`
	Statement   bool   `yaml:"statement" ion:"statement"`
	ColumnStart uint16 `yaml:"column_start,omitempty" ion:"column_start,omitempty"`
	ColumnEnd   uint16 `yaml:"column_end,omitempty" ion:"column_end,omitempty"`
}

type Checksum struct {
	Offset     uint32 `yaml:"offset" ion:"offset"`
	NameOffset uint32 `yaml:"name_offset" ion:"name_offset"`
	File       string `yaml:"file,omitempty" ion:"file,omitempty"`
	Kind       string `yaml:"kind" ion:"kind"`
	Value      string `yaml:"value,omitempty" ion:"value,omitempty"`
}

type Inlinees struct {
	ExtraFiles bool   `yaml:"extra_files" ion:"extra_files"`
	Sites      []Site `yaml:"sites" ion:"sites"`
}

type Site struct {
	Inlinee    uint32   `yaml:"inlinee" ion:"inlinee"`
	FileOffset uint32   `yaml:"file_offset" ion:"file_offset"`
	File       string   `yaml:"file,omitempty" ion:"file,omitempty"`
	Line       uint32   `yaml:"line" ion:"line"`
	ExtraFiles []uint32 `yaml:"extra_files,omitempty" ion:"extra_files,omitempty"`
}

type String struct {
	Offset uint32 `yaml:"offset" ion:"offset"`
	Value  string `yaml:"value" ion:"value"`
}

// Render serializes report in requested format.
func (r *Report) Render(format config.OutputFormat) ([]byte, error) {
	switch format {
	case config.OutputFormatText:
		return []byte(r.Text()), nil
	case config.OutputFormatYaml:
		data, err := yaml.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("unable to marshal report to yaml: %w", err)
		}
		return data, nil
	case config.OutputFormatIon:
		data, err := ion.MarshalText(r)
		if err != nil {
			return nil, fmt.Errorf("unable to marshal report to ion: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

func fileLabel(name string, offset uint32) string {
	if len(name) == 0 {
		return fmt.Sprintf("file 0x%x", offset)
	}
	return fmt.Sprintf("%s (file 0x%x)", name, offset)
}

// Text renders report as indented tree.
func (r *Report) Text() string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "module %s (%s), %d fragments", r.Module, r.Format, len(r.Fragments))

	for _, f := range r.Fragments {
		tw.Line(1, "[%d] %s, %d bytes", f.Index, f.Kind, f.Size)
		switch {
		case f.Lines != nil:
			l := f.Lines
			tw.Line(2, "code %04x:%08x size 0x%x, columns: %t", l.RelocSegment, l.RelocOffset, l.CodeSize, l.HasColumns)
			for _, b := range l.Blocks {
				tw.Line(2, "block %s, %d lines", fileLabel(b.File, b.FileOffset), b.Count)
				for _, ln := range b.Lines {
					var col, stmt string
					if l.HasColumns {
						col = fmt.Sprintf(" col %d-%d", ln.ColumnStart, ln.ColumnEnd)
					}
					if ln.Statement {
						stmt = " stmt"
					}
					tw.Line(3, "+%04x line %d-%d%s%s", ln.Offset, ln.Start, ln.End, col, stmt)
				}
				if hidden := b.Count - len(b.Lines); hidden > 0 {
					tw.Line(3, "... %d more lines", hidden)
				}
			}
		case f.Checksums != nil:
			for _, c := range f.Checksums {
				tw.Line(2, "%s %s %s", fileLabel(c.File, c.Offset), c.Kind, c.Value)
			}
		case f.Inlinees != nil:
			tw.Field(2, "extra files", f.Inlinees.ExtraFiles)
			for _, s := range f.Inlinees.Sites {
				tw.Line(2, "inlinee 0x%x at %s line %d", s.Inlinee, fileLabel(s.File, s.FileOffset), s.Line)
				for _, x := range s.ExtraFiles {
					tw.Line(3, "extra file 0x%x", x)
				}
			}
		case f.Strings != nil:
			for _, s := range f.Strings {
				tw.TextBlock(2, fmt.Sprintf("0x%04x", s.Offset), s.Value)
			}
		case f.Data != nil:
			tw.HexBlock(2, "data", f.Data, 0)
			if hidden := f.Size - len(f.Data); hidden > 0 {
				tw.Line(3, "... %d more bytes", hidden)
			}
		}
	}
	return tw.String()
}
