package codeview

import "iter"

// VisitFragment decodes single record and calls visitor method for its kind.
//
// Fragments of kinds without decoder (and fragments marked as ignored) go to
// VisitUnknown as is. For kinds with decoder payload is validated first, on
// failure error wrapping ErrMalformedFragment is returned and visitor is not
// called. Visitor errors are returned unchanged.
func VisitFragment(r Record, v Visitor) error {
	if r.Kind().Ignored() {
		return v.VisitUnknown(&UnknownFragment{Kind: r.Kind(), Data: r.Data()})
	}

	switch r.Kind() {
	case KindLines:
		f, err := DecodeLines(r.Data())
		if err != nil {
			return err
		}
		return v.VisitLines(f)
	case KindFileChecksums:
		f, err := DecodeFileChecksums(r.Data())
		if err != nil {
			return err
		}
		return v.VisitFileChecksums(f)
	case KindInlineeLines:
		f, err := DecodeInlineeLines(r.Data())
		if err != nil {
			return err
		}
		return v.VisitInlineeLines(f)
	case KindStringTable:
		f, err := DecodeStringTable(r.Data())
		if err != nil {
			return err
		}
		return v.VisitStringTable(f)
	default:
		return v.VisitUnknown(&UnknownFragment{Kind: r.Kind(), Data: r.Data()})
	}
}

// VisitFragments dispatches records in sequence order and calls
// v.Finished once after the last one, even when there were no records.
//
// The first error - from the sequence itself, from decoding or from the
// visitor - stops traversal and is returned, Finished is not called then.
func VisitFragments(records iter.Seq2[Record, error], v Visitor) error {
	for r, err := range records {
		if err != nil {
			return err
		}
		if err := VisitFragment(r, v); err != nil {
			return err
		}
	}
	return v.Finished()
}
