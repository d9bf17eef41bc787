package lineindex

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite/sqlitex"

	"cvdump/codeview"
)

type lineRow struct {
	block      int
	fileOffset uint32
	segment    uint16
	codeOffset uint32
	start, end uint32
	statement  bool
	columns    *codeview.ColumnEntry
}

type fileRow struct {
	offset     uint32
	nameOffset uint32
	kind       codeview.ChecksumKind
	sum        []byte
}

// ModuleWriter is a visitor collecting line information of a single module.
// Everything is written in one transaction when traversal finishes, failed
// traversal leaves index untouched.
type ModuleWriter struct {
	codeview.BaseVisitor

	x      *Index
	name   string
	id     uuid.UUID
	blocks int
	lines  []lineRow
	files  []fileRow
	strtab *codeview.StringTableFragment
}

// Visitor returns writer for the module. Module indexed earlier under the
// same name is replaced.
func (x *Index) Visitor(module string) *ModuleWriter {
	return &ModuleWriter{x: x, name: module}
}

// ID returns id assigned to module, valid after successful traversal.
func (w *ModuleWriter) ID() uuid.UUID {
	return w.id
}

func (w *ModuleWriter) VisitLines(f *codeview.LineFragment) error {
	for _, b := range f.Blocks() {
		for i, e := range b.Lines {
			row := lineRow{
				block:      w.blocks,
				fileOffset: b.NameIndex,
				segment:    f.Header.RelocSegment,
				codeOffset: f.Header.RelocOffset + e.Offset,
				start:      e.Start(),
				end:        e.End(),
				statement:  e.IsStatement(),
			}
			if b.Columns != nil {
				row.columns = &b.Columns[i]
			}
			w.lines = append(w.lines, row)
		}
		w.blocks++
	}
	return nil
}

func (w *ModuleWriter) VisitFileChecksums(f *codeview.FileChecksumFragment) error {
	// the last one wins when module has several
	w.files = w.files[:0]
	for _, e := range f.Entries() {
		w.files = append(w.files, fileRow{
			offset:     e.Offset,
			nameOffset: e.FileNameOffset,
			kind:       e.Kind,
			sum:        bytes.Clone(e.Checksum),
		})
	}
	return nil
}

func (w *ModuleWriter) VisitStringTable(f *codeview.StringTableFragment) error {
	w.strtab = f
	return nil
}

func (w *ModuleWriter) Finished() (err error) {
	defer func() { w.strtab = nil }()

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("unable to generate module id: %w", err)
	}

	conn := w.x.conn
	defer sqlitex.Save(conn)(&err)

	if err := w.x.removeModule(w.name); err != nil {
		return fmt.Errorf("unable to remove previous copy of %s: %w", w.name, err)
	}
	if err := sqlitex.Execute(conn, `INSERT INTO modules (id, name, indexed_at) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{id.String(), w.name, time.Now().UTC().Format(time.RFC3339Nano)}}); err != nil {
		return fmt.Errorf("unable to add module %s: %w", w.name, err)
	}

	for _, f := range w.files {
		var name any
		if w.strtab != nil {
			if s, err := w.strtab.Lookup(f.nameOffset); err == nil {
				name = s
			}
		}
		if err := sqlitex.Execute(conn,
			`INSERT INTO files (module, file_offset, name_offset, name, checksum_kind, checksum) VALUES (?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{id.String(), int64(f.offset), int64(f.nameOffset), name, f.kind.String(), f.sum}}); err != nil {
			return fmt.Errorf("unable to add file 0x%x of %s: %w", f.offset, w.name, err)
		}
	}

	for _, l := range w.lines {
		var colStart, colEnd any
		if l.columns != nil {
			colStart, colEnd = int64(l.columns.Start), int64(l.columns.End)
		}
		var stmt int64
		if l.statement {
			stmt = 1
		}
		if err := sqlitex.Execute(conn,
			`INSERT INTO lines (module, block, file_offset, segment, code_offset, line_start, line_end, is_statement, column_start, column_end)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{id.String(), int64(l.block), int64(l.fileOffset), int64(l.segment),
				int64(l.codeOffset), int64(l.start), int64(l.end), stmt, colStart, colEnd}}); err != nil {
			return fmt.Errorf("unable to add line of %s: %w", w.name, err)
		}
	}

	w.id = id
	w.x.log.Debug("Module indexed", zap.String("module", w.name), zap.Stringer("id", id),
		zap.Int("files", len(w.files)), zap.Int("lines", len(w.lines)))
	return nil
}
