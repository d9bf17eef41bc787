// Package debug has helpers producing human readable indented dumps.
package debug

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

const hexRowBytes = 16

type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// Field writes "label: value" line, value formatted with %v.
func (tw TreeWriter) Field(depth int, label string, value any) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	fmt.Fprint(tw.w, value)
	tw.w.WriteByte('\n')
}

func (tw TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

// HexBlock writes label followed by hex rows of up to limit bytes of data,
// limit <= 0 means whole data. Truncation is noted on the last line.
func (tw TreeWriter) HexBlock(depth int, label string, data []byte, limit int) {
	shown := data
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	tw.indent(depth)
	tw.w.WriteString(label)
	fmt.Fprintf(tw.w, ": %d bytes\n", len(data))

	for off := 0; off < len(shown); off += hexRowBytes {
		row := shown[off:min(off+hexRowBytes, len(shown))]
		tw.indent(depth + 1)
		fmt.Fprintf(tw.w, "%04x  %s\n", off, spacedHex(row))
	}
	if rest := len(data) - len(shown); rest > 0 {
		tw.indent(depth + 1)
		fmt.Fprintf(tw.w, "... %d more bytes\n", rest)
	}
}

func spacedHex(row []byte) string {
	var b strings.Builder
	enc := hex.EncodeToString(row)
	for i := 0; i < len(enc); i += 2 {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(enc[i : i+2])
	}
	return b.String()
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
