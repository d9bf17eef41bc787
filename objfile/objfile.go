// Package objfile locates CodeView debug subsection streams in object files.
package objfile

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"

	"cvdump/codeview"
)

// DebugSectionName is COFF section holding CodeView subsections.
const DebugSectionName = ".debug$S"

// number of leading bytes enough for format detection
const sniffLen = 262

var (
	// ErrNoDebugInfo is returned for recognized object without CodeView
	// subsections.
	ErrNoDebugInfo = errors.New("no CodeView debug information")
	// ErrUnsupported is returned for inputs which are not object files.
	ErrUnsupported = errors.New("unsupported input format")
)

// Format of the loaded input.
type Format int

const (
	FormatUnknown Format = iota
	// COFF object with .debug$S sections
	FormatCOFF
	// bare .debug$S section contents, starting with C13 signature
	FormatRaw
	// zip archive, has to be walked
	FormatZip
)

func (f Format) String() string {
	switch f {
	case FormatCOFF:
		return "coff"
	case FormatRaw:
		return "raw"
	case FormatZip:
		return "zip"
	default:
		return "unknown"
	}
}

// Sniff detects input format by its leading bytes.
func Sniff(head []byte) Format {
	switch {
	case filetype.Is(head, "zip"):
		return FormatZip
	case len(head) >= 4 && binary.LittleEndian.Uint32(head) == codeview.SignatureC13:
		return FormatRaw
	case len(head) >= 2 && isCOFFMachine(binary.LittleEndian.Uint16(head)):
		return FormatCOFF
	default:
		return FormatUnknown
	}
}

func isCOFFMachine(m uint16) bool {
	switch m {
	case pe.IMAGE_FILE_MACHINE_I386, pe.IMAGE_FILE_MACHINE_AMD64,
		pe.IMAGE_FILE_MACHINE_ARMNT, pe.IMAGE_FILE_MACHINE_ARM64:
		return true
	}
	return false
}

// Section is a single .debug$S section of the object.
type Section struct {
	Name string
	// position among object sections, 1 based as COFF does
	Number int
	Stream *codeview.Stream
}

// File is an object with its CodeView streams. Streams alias loaded data.
type File struct {
	Name     string
	Format   Format
	Sections []Section
}

// Size returns total size of all subsection streams.
func (f *File) Size() int {
	n := 0
	for _, s := range f.Sections {
		n += s.Stream.Len()
	}
	return n
}

// Records yields records of all sections in order, stopping at the first
// framing error.
func (f *File) Records() iter.Seq2[codeview.Record, error] {
	return func(yield func(codeview.Record, error) bool) {
		for _, s := range f.Sections {
			for r, err := range s.Stream.Records() {
				if err != nil {
					yield(r, fmt.Errorf("section %d (%s): %w", s.Number, s.Name, err))
					return
				}
				if !yield(r, nil) {
					return
				}
			}
		}
	}
}

// Load parses object from memory. Zip archives are not loaded, they are
// reported as ErrUnsupported, use Walker for them.
func Load(name string, data []byte) (*File, error) {
	switch format := Sniff(data[:min(len(data), sniffLen)]); format {
	case FormatRaw:
		s, err := codeview.ParseDebugSection(data)
		if err != nil {
			return nil, err
		}
		return &File{
			Name:     name,
			Format:   format,
			Sections: []Section{{Name: DebugSectionName, Number: 1, Stream: s}},
		}, nil
	case FormatCOFF:
		return loadCOFF(name, data)
	default:
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupported, name, format)
	}
}

func loadCOFF(name string, data []byte) (*File, error) {
	pf, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to parse COFF object %s: %w", name, err)
	}
	defer pf.Close()

	f := &File{Name: name, Format: FormatCOFF}
	for i, sec := range pf.Sections {
		if sec.Name != DebugSectionName {
			continue
		}
		body, err := sec.Data()
		if err != nil {
			return nil, fmt.Errorf("unable to read section %d of %s: %w", i+1, name, err)
		}
		s, err := codeview.ParseDebugSection(body)
		if err != nil {
			return nil, fmt.Errorf("section %d of %s: %w", i+1, name, err)
		}
		f.Sections = append(f.Sections, Section{Name: sec.Name, Number: i + 1, Stream: s})
	}
	if len(f.Sections) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDebugInfo, name)
	}
	return f, nil
}

// Open reads and loads object file from disk.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(filepath.Base(path), data)
}

// SniffFile detects format of the file on disk.
func SniffFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, err
	}
	return Sniff(head[:n]), nil
}
