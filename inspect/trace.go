package inspect

import (
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"cvdump/codeview"
)

// FragmentError ties traversal failure to the record which caused it.
type FragmentError struct {
	Index int
	Kind  codeview.Kind
	Err   error
}

func (e *FragmentError) Error() string {
	return fmt.Sprintf("fragment %d (%s): %v", e.Index, e.Kind, e.Err)
}

func (e *FragmentError) Unwrap() error {
	return e.Err
}

// Tracer wraps visitor logging every dispatched fragment and counting
// fragments per kind.
type Tracer struct {
	next   codeview.Visitor
	log    *zap.Logger
	counts map[codeview.Kind]int

	// position of the record being dispatched
	index int
	kind  codeview.Kind
}

var _ codeview.Visitor = (*Tracer)(nil)

func NewTracer(next codeview.Visitor, log *zap.Logger) *Tracer {
	return &Tracer{next: next, log: log, counts: make(map[codeview.Kind]int), index: -1}
}

// Counts returns number of dispatched fragments per kind.
func (t *Tracer) Counts() map[codeview.Kind]int {
	return t.counts
}

// Traverse dispatches records to the wrapped visitor. Error caused by a
// record, malformed payload or handler failure, is returned as
// *FragmentError. Original error stays reachable with errors.Is and
// errors.As.
func (t *Tracer) Traverse(records iter.Seq2[codeview.Record, error]) error {
	t.index = -1
	counted := func(yield func(codeview.Record, error) bool) {
		for r, err := range records {
			if err == nil {
				t.index++
				t.kind = r.Kind()
			}
			if !yield(r, err) {
				return
			}
		}
	}

	err := codeview.VisitFragments(counted, t)
	var fe *FragmentError
	if errors.Is(err, codeview.ErrMalformedFragment) && !errors.As(err, &fe) {
		t.log.Debug("Malformed fragment", zap.Int("index", t.index), zap.Stringer("kind", t.kind), zap.Error(err))
		return &FragmentError{Index: t.index, Kind: t.kind, Err: err}
	}
	return err
}

func (t *Tracer) enter(kind codeview.Kind, size int) {
	t.counts[kind]++
	t.log.Debug("Fragment", zap.Int("index", t.index), zap.Stringer("kind", kind), zap.Int("size", size))
}

func (t *Tracer) wrap(kind codeview.Kind, err error) error {
	if err == nil {
		return nil
	}
	return &FragmentError{Index: t.index, Kind: kind, Err: err}
}

func (t *Tracer) VisitUnknown(f *codeview.UnknownFragment) error {
	t.enter(f.Kind, len(f.Data))
	if !f.Kind.Known() && !f.Kind.Ignored() {
		t.log.Warn("Unrecognized fragment kind", zap.Int("index", t.index), zap.Stringer("kind", f.Kind))
	}
	return t.wrap(f.Kind, t.next.VisitUnknown(f))
}

func (t *Tracer) VisitLines(f *codeview.LineFragment) error {
	t.enter(codeview.KindLines, f.Size())
	return t.wrap(codeview.KindLines, t.next.VisitLines(f))
}

func (t *Tracer) VisitFileChecksums(f *codeview.FileChecksumFragment) error {
	t.enter(codeview.KindFileChecksums, f.Size())
	return t.wrap(codeview.KindFileChecksums, t.next.VisitFileChecksums(f))
}

func (t *Tracer) VisitInlineeLines(f *codeview.InlineeLinesFragment) error {
	t.enter(codeview.KindInlineeLines, f.Size())
	return t.wrap(codeview.KindInlineeLines, t.next.VisitInlineeLines(f))
}

func (t *Tracer) VisitStringTable(f *codeview.StringTableFragment) error {
	t.enter(codeview.KindStringTable, f.Size())
	return t.wrap(codeview.KindStringTable, t.next.VisitStringTable(f))
}

// Finished is passed through without wrapping, its failure is not tied to
// a record.
func (t *Tracer) Finished() error {
	t.log.Debug("Traversal finished", zap.Int("fragments", t.index+1))
	return t.next.Finished()
}
