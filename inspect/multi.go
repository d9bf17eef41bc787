package inspect

import "cvdump/codeview"

// multi passes every fragment to all visitors in order, the first failing
// visitor stops the call.
type multi []codeview.Visitor

// Multi combines visitors so a single traversal feeds all of them.
func Multi(visitors ...codeview.Visitor) codeview.Visitor {
	if len(visitors) == 1 {
		return visitors[0]
	}
	return multi(visitors)
}

func (m multi) each(fn func(codeview.Visitor) error) error {
	for _, v := range m {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

func (m multi) VisitUnknown(f *codeview.UnknownFragment) error {
	return m.each(func(v codeview.Visitor) error { return v.VisitUnknown(f) })
}

func (m multi) VisitLines(f *codeview.LineFragment) error {
	return m.each(func(v codeview.Visitor) error { return v.VisitLines(f) })
}

func (m multi) VisitFileChecksums(f *codeview.FileChecksumFragment) error {
	return m.each(func(v codeview.Visitor) error { return v.VisitFileChecksums(f) })
}

func (m multi) VisitInlineeLines(f *codeview.InlineeLinesFragment) error {
	return m.each(func(v codeview.Visitor) error { return v.VisitInlineeLines(f) })
}

func (m multi) VisitStringTable(f *codeview.StringTableFragment) error {
	return m.each(func(v codeview.Visitor) error { return v.VisitStringTable(f) })
}

func (m multi) Finished() error {
	return m.each(codeview.Visitor.Finished)
}
