package inspect

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"cvdump/codeview"
	"cvdump/config"
)

var (
	// ErrNoChecksums is returned when module without file checksums
	// fragment is verified and checksums are required.
	ErrNoChecksums = errors.New("no file checksums")
	// ErrChecksumMismatch is returned when source file does not match its
	// recorded checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrMissingSource is returned when source file is absent and that is not
	// allowed.
	ErrMissingSource = errors.New("missing source file")
	// ErrUnreadableSource is returned when source file exists but cannot be
	// read.
	ErrUnreadableSource = errors.New("unreadable source file")
)

// Status of a single file verification.
type Status string

const (
	// checksum recorded, sources were not checked
	StatusListed      Status = "listed"
	StatusOK          Status = "ok"
	StatusMismatch    Status = "mismatch"
	StatusMissing     Status = "missing"
	StatusUnreadable  Status = "unreadable"
	StatusNoChecksum  Status = "none"
	StatusUnsupported Status = "unsupported"
)

// FileStatus is the verification result of a file from checksums table.
type FileStatus struct {
	File     string
	Path     string
	Kind     codeview.ChecksumKind
	Expected string
	Actual   string
	Status   Status
	// Err is set for unreadable sources.
	Err error
}

type entry struct {
	nameOffset uint32
	kind       codeview.ChecksumKind
	sum        []byte
}

// ChecksumVerifier checks that module has file checksums and, when source
// root is configured, that sources on disk match them.
type ChecksumVerifier struct {
	codeview.BaseVisitor

	cfg     config.VerifyConfig
	log     *zap.Logger
	seen    bool
	entries []entry
	strtab  *codeview.StringTableFragment
	results []FileStatus
}

func NewChecksumVerifier(cfg config.VerifyConfig, log *zap.Logger) *ChecksumVerifier {
	return &ChecksumVerifier{cfg: cfg, log: log}
}

func (v *ChecksumVerifier) VisitFileChecksums(f *codeview.FileChecksumFragment) error {
	v.seen = true
	for _, e := range f.Entries() {
		v.entries = append(v.entries, entry{
			nameOffset: e.FileNameOffset,
			kind:       e.Kind,
			sum:        bytes.Clone(e.Checksum),
		})
	}
	return nil
}

func (v *ChecksumVerifier) VisitStringTable(f *codeview.StringTableFragment) error {
	v.strtab = f
	return nil
}

// Results returns per file results sorted by file name.
func (v *ChecksumVerifier) Results() []FileStatus {
	return v.results
}

func (v *ChecksumVerifier) Finished() error {
	defer func() { v.strtab = nil }()

	if !v.seen {
		if v.cfg.RequireChecksums {
			return ErrNoChecksums
		}
		v.log.Debug("Module has no file checksums")
		return nil
	}

	var mismatched, missing, unreadable int
	v.results = make([]FileStatus, 0, len(v.entries))
	for _, e := range v.entries {
		st := v.check(e)
		switch st.Status {
		case StatusMismatch:
			mismatched++
			v.log.Warn("Checksum mismatch", zap.String("file", st.File), zap.String("path", st.Path),
				zap.String("expected", st.Expected), zap.String("actual", st.Actual))
		case StatusMissing:
			if !v.cfg.AllowMissingFiles {
				missing++
			}
			v.log.Debug("Source file is missing", zap.String("file", st.File), zap.String("path", st.Path))
		case StatusUnreadable:
			unreadable++
			v.log.Warn("Unable to read source file", zap.String("file", st.File), zap.String("path", st.Path), zap.Error(st.Err))
		default:
			v.log.Debug("Source file checked", zap.String("file", st.File), zap.String("status", string(st.Status)))
		}
		v.results = append(v.results, st)
	}
	sort.SliceStable(v.results, func(i, j int) bool {
		return natural.Less(v.results[i].File, v.results[j].File)
	})

	var errs []error
	if mismatched > 0 {
		errs = append(errs, fmt.Errorf("%w: %d of %d files", ErrChecksumMismatch, mismatched, len(v.results)))
	}
	if missing > 0 {
		errs = append(errs, fmt.Errorf("%w: %d of %d files", ErrMissingSource, missing, len(v.results)))
	}
	if unreadable > 0 {
		errs = append(errs, fmt.Errorf("%w: %d of %d files", ErrUnreadableSource, unreadable, len(v.results)))
	}
	return errors.Join(errs...)
}

func (v *ChecksumVerifier) name(off uint32) string {
	if v.strtab != nil {
		if name, err := v.strtab.Lookup(off); err == nil {
			return name
		}
	}
	return fmt.Sprintf("<name 0x%x>", off)
}

func newHash(kind codeview.ChecksumKind) hash.Hash {
	switch kind {
	case codeview.ChecksumMD5:
		return md5.New()
	case codeview.ChecksumSHA1:
		return sha1.New()
	case codeview.ChecksumSHA256:
		return sha256.New()
	default:
		return nil
	}
}

// sourcePath maps recorded file name to a file under source root. Names
// recorded by compilers are usually absolute build machine paths, when such
// path does not exist base name is looked up under the root.
func (v *ChecksumVerifier) sourcePath(name string) string {
	native := filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
	if !filepath.IsAbs(native) && !isWindowsAbs(name) {
		return filepath.Join(v.cfg.SourceRoot, native)
	}
	if _, err := os.Stat(native); err == nil {
		return native
	}
	return filepath.Join(v.cfg.SourceRoot, filepath.Base(native))
}

// isWindowsAbs recognizes drive letter paths on any platform.
func isWindowsAbs(name string) bool {
	return len(name) >= 3 && name[1] == ':' && (name[2] == '\\' || name[2] == '/')
}

func (v *ChecksumVerifier) check(e entry) FileStatus {
	st := FileStatus{
		File:     v.name(e.nameOffset),
		Kind:     e.kind,
		Expected: hex.EncodeToString(e.sum),
		Status:   StatusListed,
	}

	h := newHash(e.kind)
	switch {
	case e.kind == codeview.ChecksumNone:
		st.Status = StatusNoChecksum
		return st
	case h == nil:
		st.Status = StatusUnsupported
		return st
	case len(v.cfg.SourceRoot) == 0:
		return st
	}

	st.Path = v.sourcePath(st.File)
	f, err := os.Open(st.Path)
	if err != nil {
		st.Status = StatusMissing
		if !errors.Is(err, fs.ErrNotExist) {
			st.Status, st.Err = StatusUnreadable, err
		}
		return st
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		st.Status, st.Err = StatusUnreadable, err
		return st
	}
	sum := h.Sum(nil)
	st.Actual = hex.EncodeToString(sum)
	if bytes.Equal(sum, e.sum) {
		st.Status = StatusOK
	} else {
		st.Status = StatusMismatch
	}
	return st
}
