// Package lineindex keeps line information of indexed modules in SQLite
// database and answers "where is code for file:line" queries.
package lineindex

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS modules (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	indexed_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS modules_by_name ON modules(name);

CREATE TABLE IF NOT EXISTS files (
	module        TEXT NOT NULL,
	file_offset   INTEGER NOT NULL,
	name_offset   INTEGER NOT NULL,
	name          TEXT,
	checksum_kind TEXT NOT NULL,
	checksum      BLOB,
	PRIMARY KEY (module, file_offset)
);

CREATE TABLE IF NOT EXISTS lines (
	module       TEXT NOT NULL,
	block        INTEGER NOT NULL,
	file_offset  INTEGER NOT NULL,
	segment      INTEGER NOT NULL,
	code_offset  INTEGER NOT NULL,
	line_start   INTEGER NOT NULL,
	line_end     INTEGER NOT NULL,
	is_statement INTEGER NOT NULL,
	column_start INTEGER,
	column_end   INTEGER
);
CREATE INDEX IF NOT EXISTS lines_by_file ON lines(module, file_offset, line_start);
`

// Index is a line index database. Not safe for concurrent use.
type Index struct {
	conn *sqlite.Conn
	log  *zap.Logger
}

// Open creates or opens index database at path.
func Open(path string, log *zap.Logger) (*Index, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("unable to open line index %s: %w", path, err)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to prepare line index schema: %w", err)
	}
	return &Index{conn: conn, log: log}, nil
}

func (x *Index) Close() error {
	return x.conn.Close()
}

// Module is an indexed module.
type Module struct {
	ID        uuid.UUID
	Name      string
	IndexedAt time.Time
}

// Modules lists indexed modules ordered by name.
func (x *Index) Modules() ([]Module, error) {
	var out []Module
	err := sqlitex.Execute(x.conn, `SELECT id, name, indexed_at FROM modules ORDER BY name, indexed_at`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			id, err := uuid.Parse(stmt.ColumnText(0))
			if err != nil {
				return fmt.Errorf("bad module id: %w", err)
			}
			at, err := time.Parse(time.RFC3339Nano, stmt.ColumnText(2))
			if err != nil {
				return fmt.Errorf("bad module time: %w", err)
			}
			out = append(out, Module{ID: id, Name: stmt.ColumnText(1), IndexedAt: at})
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("unable to list modules: %w", err)
	}
	return out, nil
}

// Location is code address range start for a source line.
type Location struct {
	Module     string
	File       string
	Segment    uint16
	CodeOffset uint32
	LineStart  uint32
	LineEnd    uint32
	Statement  bool
}

// Lookup finds code locations for the line of the file. File matches
// recorded name exactly or as a trailing path component sequence, so
// "main.c" finds "c:\src\main.c".
func (x *Index) Lookup(file string, line int) ([]Location, error) {
	const query = `
SELECT m.name, f.name, l.segment, l.code_offset, l.line_start, l.line_end, l.is_statement
FROM lines l
JOIN files f ON f.module = l.module AND f.file_offset = l.file_offset
JOIN modules m ON m.id = l.module
WHERE (f.name = ?1 OR f.name LIKE '%/' || ?1 OR f.name LIKE '%\' || ?1)
  AND l.line_start <= ?2 AND l.line_end >= ?2
ORDER BY m.name, l.segment, l.code_offset`

	var out []Location
	err := sqlitex.Execute(x.conn, query, &sqlitex.ExecOptions{
		Args: []any{file, int64(line)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			out = append(out, Location{
				Module:     stmt.ColumnText(0),
				File:       stmt.ColumnText(1),
				Segment:    uint16(stmt.ColumnInt64(2)),
				CodeOffset: uint32(stmt.ColumnInt64(3)),
				LineStart:  uint32(stmt.ColumnInt64(4)),
				LineEnd:    uint32(stmt.ColumnInt64(5)),
				Statement:  stmt.ColumnInt64(6) != 0,
			})
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("unable to look up %s:%d: %w", file, line, err)
	}
	return out, nil
}

// removeModule drops every earlier copy of the module.
func (x *Index) removeModule(name string) error {
	for _, q := range []string{
		`DELETE FROM lines WHERE module IN (SELECT id FROM modules WHERE name = ?)`,
		`DELETE FROM files WHERE module IN (SELECT id FROM modules WHERE name = ?)`,
		`DELETE FROM modules WHERE name = ?`,
	} {
		if err := sqlitex.Execute(x.conn, q, &sqlitex.ExecOptions{Args: []any{name}}); err != nil {
			return err
		}
	}
	return nil
}
