package debug

import (
	"strings"
	"testing"
)

func TestTreeWriter_Line(t *testing.T) {
	tests := []struct {
		name   string
		depth  int
		format string
		args   []any
		want   string
	}{
		{"no depth", 0, "module", nil, "module\n"},
		{"depth 1", 1, "fragment", nil, "  fragment\n"},
		{"depth 2 with args", 2, "block %d: %s", []any{0, "main.c"}, "    block 0: main.c\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.Line(tt.depth, tt.format, tt.args...)
			if got := tw.String(); got != tt.want {
				t.Errorf("Line() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_TextBlock(t *testing.T) {
	tests := []struct {
		name  string
		depth int
		label string
		value string
		want  string
	}{
		{"empty value", 0, "file", "", "file: \n"},
		{"quoted value", 1, "file", `c:\src\main.c`, "  file: \"c:\\\\src\\\\main.c\"\n"},
		{"newline", 0, "name", "a\nb", "name: \"a\\nb\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.TextBlock(tt.depth, tt.label, tt.value)
			if got := tw.String(); got != tt.want {
				t.Errorf("TextBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_Field(t *testing.T) {
	tw := NewTreeWriter()
	tw.Field(0, "size", 24)
	tw.Field(1, "kind", "lines")
	if got, want := tw.String(), "size: 24\n  kind: lines\n"; got != want {
		t.Errorf("Field() = %q, want %q", got, want)
	}
}

func TestTreeWriter_HexBlock(t *testing.T) {
	data := make([]byte, 20)
	for i := range data {
		data[i] = byte(i)
	}

	t.Run("whole", func(t *testing.T) {
		tw := NewTreeWriter()
		tw.HexBlock(0, "data", data, 0)
		want := "data: 20 bytes\n" +
			"  0000  00 01 02 03 04 05 06 07 08 09 0a 0b 0c 0d 0e 0f\n" +
			"  0010  10 11 12 13\n"
		if got := tw.String(); got != want {
			t.Errorf("HexBlock() =\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("truncated", func(t *testing.T) {
		tw := NewTreeWriter()
		tw.HexBlock(1, "data", data, 4)
		want := "  data: 20 bytes\n" +
			"    0000  00 01 02 03\n" +
			"    ... 16 more bytes\n"
		if got := tw.String(); got != want {
			t.Errorf("HexBlock() =\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("empty", func(t *testing.T) {
		tw := NewTreeWriter()
		tw.HexBlock(0, "data", nil, 8)
		if got := tw.String(); got != "data: 0 bytes\n" {
			t.Errorf("HexBlock() = %q", got)
		}
	})
}

func TestTreeWriter_Tree(t *testing.T) {
	tw := NewTreeWriter()
	tw.Line(0, "module %s", "sample.obj")
	tw.Line(1, "[0] lines")
	tw.TextBlock(2, "file", "main.c")
	tw.Field(2, "lines", 2)

	result := tw.String()
	for _, want := range []string{"module sample.obj\n", "  [0] lines\n", "    file: \"main.c\"\n", "    lines: 2\n"} {
		if !strings.Contains(result, want) {
			t.Errorf("missing %q in:\n%s", want, result)
		}
	}
}
