package objfile

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"cvdump/archive"
)

// ErrInputsFailed is returned by Walk when some of the inputs found in
// directory or archive could not be processed.
var ErrInputsFailed = errors.New("some inputs failed")

// VisitFunc processes loaded object.
type VisitFunc func(ctx context.Context, f *File) error

// Stats counts objects seen by Walk.
type Stats struct {
	Processed int
	Failed    int
	Skipped   int
}

// Walker resolves source specification to object files. Source could be
// object file, directory tree, zip archive or path inside zip archive
// ("build.zip/x64/debug").
type Walker struct {
	// Extensions select files in directories and archives.
	Extensions []string
	// Prefixes additionally select archive entries.
	Prefixes []string
	// CodePage decodes non UTF-8 archive entry names when set.
	CodePage encoding.Encoding
	Log      *zap.Logger
}

// Walk calls fn for every object found. Failures for individual objects in
// directories and archives are logged and counted, when any happened
// ErrInputsFailed is returned after all inputs were tried. Explicitly named
// single file reports its error directly.
func (w *Walker) Walk(ctx context.Context, src string, fn VisitFunc) (Stats, error) {
	var stats Stats
	if w.Log == nil {
		w.Log = zap.NewNop()
	}

	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return stats, fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := w.walkDir(ctx, head, fn, &stats); err != nil {
				return stats, err
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return stats, fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		format, err := SniffFile(head)
		if err != nil {
			return stats, fmt.Errorf("unable to check file type: %w", err)
		}
		if format == FormatZip {
			// we need to look inside to see if path makes sense
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			if err := w.walkArchive(ctx, head, filepath.ToSlash(tail), "", fn, &stats); err != nil {
				return stats, fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}
		if len(tail) != 0 {
			return stats, fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		f, err := Open(head)
		if err != nil {
			return stats, err
		}
		if err := fn(ctx, f); err != nil {
			stats.Failed++
			return stats, err
		}
		stats.Processed++
		return stats, nil
	}
	if len(head) == 0 {
		return stats, fmt.Errorf("input source was not found (%s)", src)
	}
	if stats.Failed > 0 {
		return stats, fmt.Errorf("%w: %d of %d", ErrInputsFailed, stats.Failed, stats.Failed+stats.Processed)
	}
	return stats, nil
}

func (w *Walker) selected(name string) bool {
	if len(w.Extensions) == 0 {
		return true
	}
	ext := path.Ext(name)
	for _, e := range w.Extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// visit runs fn accounting for the outcome.
func (w *Walker) visit(ctx context.Context, f *File, fn VisitFunc, stats *Stats) {
	if err := fn(ctx, f); err != nil {
		stats.Failed++
		w.Log.Error("Unable to process object", zap.String("object", f.Name), zap.Error(err))
		return
	}
	stats.Processed++
}

func (w *Walker) walkDir(ctx context.Context, dir string, fn VisitFunc, stats *Stats) error {
	count := stats.Processed + stats.Failed
	defer func() {
		if stats.Processed+stats.Failed == count {
			w.Log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			w.Log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		format, err := SniffFile(path)
		if err != nil {
			w.Log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))

		if format == FormatZip {
			if err := w.walkArchive(ctx, path, "", filepath.Dir(rel), fn, stats); err != nil {
				stats.Failed++
				w.Log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
			}
			return nil
		}
		if !w.selected(path) {
			stats.Skipped++
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			stats.Failed++
			w.Log.Error("Unable to read file", zap.String("file", path), zap.Error(err))
			return nil
		}
		f, err := Load(rel, data)
		if err != nil {
			if errors.Is(err, ErrNoDebugInfo) || errors.Is(err, ErrUnsupported) {
				stats.Skipped++
				w.Log.Debug("Skipping file", zap.String("file", path), zap.Error(err))
			} else {
				stats.Failed++
				w.Log.Error("Unable to load object", zap.String("file", path), zap.Error(err))
			}
			return nil
		}
		w.visit(ctx, f, fn, stats)
		return nil
	})
}

// walkArchive processes objects inside archive under "pathIn", naming them
// with "pathOut" prefix.
func (w *Walker) walkArchive(ctx context.Context, arc, pathIn, pathOut string, fn VisitFunc, stats *Stats) error {
	count := stats.Processed + stats.Failed
	defer func() {
		if stats.Processed+stats.Failed == count {
			w.Log.Debug("Nothing to process", zap.String("archive", arc))
		}
	}()

	filter := archive.Filter{Extensions: w.Extensions}
	for _, p := range w.Prefixes {
		if len(pathIn) == 0 || strings.HasPrefix(p, pathIn) {
			filter.Prefixes = append(filter.Prefixes, p)
		} else if strings.HasPrefix(pathIn, p) {
			filter.Prefixes = append(filter.Prefixes, pathIn)
		}
	}
	if len(filter.Prefixes) == 0 {
		if len(w.Prefixes) > 0 {
			// requested path is outside of configured prefixes
			return nil
		}
		if len(pathIn) > 0 {
			filter.Prefixes = []string{pathIn}
		}
	}

	return archive.Walk(arc, filter, func(archivePath string, zf *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		name, err := archive.EntryName(zf, w.CodePage)
		if err != nil {
			w.Log.Warn("Unable to convert archive name from specified encoding", zap.String("path", name), zap.Error(err))
		}
		name = filepath.Join(pathOut, filepath.Base(archivePath), filepath.FromSlash(name))

		data, err := readEntry(zf)
		if err != nil {
			stats.Failed++
			w.Log.Error("Unable to read file in archive", zap.String("archive", archivePath), zap.String("file", zf.Name), zap.Error(err))
			return nil
		}
		f, err := Load(name, data)
		if err != nil {
			if errors.Is(err, ErrNoDebugInfo) || errors.Is(err, ErrUnsupported) {
				stats.Skipped++
				w.Log.Debug("Skipping file in archive", zap.String("archive", archivePath), zap.String("file", zf.Name), zap.Error(err))
			} else {
				stats.Failed++
				w.Log.Error("Unable to load object from archive", zap.String("archive", archivePath), zap.String("file", zf.Name), zap.Error(err))
			}
			return nil
		}
		w.visit(ctx, f, fn, stats)
		return nil
	})
}

func readEntry(zf *zip.File) ([]byte, error) {
	r, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
