package codeview

// Visitor receives decoded fragments. Every method returning an error stops
// the traversal, the error is returned to the caller unchanged.
//
// Implementations should embed BaseVisitor and override only the kinds they
// care about: new fragment kinds add methods here and embedding keeps
// existing visitors compiling and behaving as before.
type Visitor interface {
	// VisitUnknown is called for every fragment without dedicated method,
	// including fragments marked as ignored.
	VisitUnknown(*UnknownFragment) error
	VisitLines(*LineFragment) error
	VisitFileChecksums(*FileChecksumFragment) error
	VisitInlineeLines(*InlineeLinesFragment) error
	VisitStringTable(*StringTableFragment) error
	// Finished is called once after the last fragment when nothing failed.
	Finished() error
}

// BaseVisitor implements Visitor treating every fragment as handled.
type BaseVisitor struct{}

func (BaseVisitor) VisitUnknown(*UnknownFragment) error            { return nil }
func (BaseVisitor) VisitLines(*LineFragment) error                 { return nil }
func (BaseVisitor) VisitFileChecksums(*FileChecksumFragment) error { return nil }
func (BaseVisitor) VisitInlineeLines(*InlineeLinesFragment) error  { return nil }
func (BaseVisitor) VisitStringTable(*StringTableFragment) error    { return nil }
func (BaseVisitor) Finished() error                                { return nil }

var _ Visitor = BaseVisitor{}
