// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/encoding"
)

// Filter selects archive entries visited by Walk. Empty lists match
// everything.
type Filter struct {
	// Entry name must start with one of the prefixes, case sensitive.
	Prefixes []string
	// Entry name must end with one of the extensions, case insensitive.
	Extensions []string
}

func (flt Filter) match(name string) bool {
	if len(flt.Prefixes) > 0 && !hasAny(name, flt.Prefixes, strings.HasPrefix) {
		return false
	}
	if len(flt.Extensions) > 0 {
		return hasAny(path.Ext(name), flt.Extensions, strings.EqualFold)
	}
	return true
}

func hasAny(s string, list []string, pred func(string, string) bool) bool {
	for _, p := range list {
		if pred(s, p) {
			return true
		}
	}
	return false
}

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The archive argument contains path to archive passed to Walk
// The file argument is the zip.File structure for file in archive which satisfies
// filter. If an error is returned, processing stops.
type WalkFunc func(archive string, file *zip.File) error

// Walk walks the all files in the archive which satisfy filter, calling
// walkFn for each item. Archive with entries having path traversal
// components ("..") or absolute paths is rejected.
func Walk(archive string, filter Filter, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || !filter.match(name) {
			continue
		}
		if err := walkFn(archive, f); err != nil {
			return err
		}
	}
	return nil
}

// EntryName returns name of archive entry. Since zip "standard" does not
// define file name encoding, names not flagged as UTF-8 are decoded with cp
// when it is not nil.
func EntryName(f *zip.File, cp encoding.Encoding) (string, error) {
	name := f.FileHeader.Name
	if cp == nil || !f.FileHeader.NonUTF8 {
		return name, nil
	}
	decoded, err := cp.NewDecoder().String(name)
	if err != nil {
		return name, fmt.Errorf("unable to decode entry name %q: %w", name, err)
	}
	return decoded, nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
