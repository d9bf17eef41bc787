package codeview

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedFragment is returned when fragment kind claims structured
	// payload which cannot be decoded. Handler is never called in this case.
	ErrMalformedFragment = errors.New("malformed fragment")

	// ErrMalformedStream is returned when fragment framing itself is broken.
	ErrMalformedStream = errors.New("malformed fragment stream")
)

func malformed(kind Kind, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedFragment, kind, fmt.Sprintf(format, args...))
}
