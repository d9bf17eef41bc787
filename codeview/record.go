package codeview

import (
	"fmt"
	"iter"
)

// Record pairs fragment kind with its raw payload. Payload is not owned by
// the record, it aliases the buffer the stream was read from and is only
// valid while that buffer is.
type Record struct {
	kind Kind
	data []byte
}

// NewRecord creates record for already split payload.
func NewRecord(kind Kind, data []byte) Record {
	return Record{kind: kind, data: data}
}

// Kind returns fragment discriminant.
func (r Record) Kind() Kind {
	return r.kind
}

// Data returns raw fragment payload (without record header and padding).
func (r Record) Data() []byte {
	return r.data
}

func (r Record) String() string {
	return fmt.Sprintf("Record(%s, %d bytes)", r.kind, len(r.data))
}

// Records adapts a slice of records to the sequence VisitFragments expects.
func Records(rs []Record) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for _, r := range rs {
			if !yield(r, nil) {
				return
			}
		}
	}
}
