package codeview

import (
	"encoding/binary"
	"fmt"
	"iter"
)

const (
	// SignatureC13 starts every .debug$S section carrying C13 line info.
	SignatureC13 = 4

	recordHeaderLen = 8
	recordAlignment = 4
)

// Stream splits raw subsection stream into fragment records.
//
// Each record is stored as:
//
//	kind   uint32
//	length uint32
//	data   [length]byte
//
// and the next record starts at 4 byte alignment. Stream does not copy, all
// produced records alias data.
type Stream struct {
	data []byte
}

// NewStream wraps raw subsection data (no section signature).
func NewStream(data []byte) *Stream {
	return &Stream{data: data}
}

// ParseDebugSection checks C13 signature of .debug$S section contents and
// returns stream for the subsections which follow it.
func ParseDebugSection(data []byte) (*Stream, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: debug section is too small (%d bytes)", ErrMalformedStream, len(data))
	}
	if sig := binary.LittleEndian.Uint32(data); sig != SignatureC13 {
		return nil, fmt.Errorf("%w: unsupported debug section signature %d", ErrMalformedStream, sig)
	}
	return NewStream(data[4:]), nil
}

// Len returns size of the underlying data.
func (s *Stream) Len() int {
	return len(s.data)
}

// Records lazily yields records in stream order. Framing problem is yielded
// once as an error wrapping ErrMalformedStream and iteration ends.
func (s *Stream) Records() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		c := cursor{data: s.data}
		for !c.empty() {
			start := c.off
			if c.remaining() < recordHeaderLen {
				yield(Record{}, fmt.Errorf("%w: truncated record header at offset %d", ErrMalformedStream, start))
				return
			}
			kind, _ := c.u32()
			length, _ := c.u32()
			data, err := c.bytes(int(length))
			if err != nil {
				yield(Record{}, fmt.Errorf("%w: record %s at offset %d: length %d exceeds remaining %d bytes",
					ErrMalformedStream, Kind(kind), start, length, c.remaining()))
				return
			}
			c.align(recordAlignment)
			if !yield(NewRecord(Kind(kind), data), nil) {
				return
			}
		}
	}
}
