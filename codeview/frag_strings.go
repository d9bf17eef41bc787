package codeview

import (
	"bytes"
	"fmt"
	"iter"
)

// StringTableFragment is the decoded view of KindStringTable fragment: a
// blob of NUL terminated strings addressed by byte offset. By convention
// offset 0 holds the empty string.
//
// The view may be retained past the handler call, it stays valid as long as
// the buffer records were taken from.
type StringTableFragment struct {
	data []byte
}

// DecodeStringTable validates payload of KindStringTable fragment. Empty
// table is allowed, non-empty one must end with NUL so every offset resolves.
func DecodeStringTable(data []byte) (*StringTableFragment, error) {
	if len(data) > 0 && data[len(data)-1] != 0 {
		return nil, malformed(KindStringTable, "table of %d bytes is not NUL terminated", len(data))
	}
	return &StringTableFragment{data: data}, nil
}

// Size returns table size in bytes.
func (f *StringTableFragment) Size() int {
	return len(f.data)
}

// Lookup returns string starting at offset. Result is a copy and may be
// retained after dispatch.
func (f *StringTableFragment) Lookup(offset uint32) (string, error) {
	if int64(offset) >= int64(len(f.data)) {
		return "", fmt.Errorf("string table offset %d out of range (size %d)", offset, len(f.data))
	}
	s := f.data[offset:]
	return string(s[:bytes.IndexByte(s, 0)]), nil
}

// All yields every string of the table with its offset, in table order.
func (f *StringTableFragment) All() iter.Seq2[uint32, string] {
	return func(yield func(uint32, string) bool) {
		for off := 0; off < len(f.data); {
			n := bytes.IndexByte(f.data[off:], 0)
			if !yield(uint32(off), string(f.data[off:off+n])) {
				return
			}
			off += n + 1
		}
	}
}
