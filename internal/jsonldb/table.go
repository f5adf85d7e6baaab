// Package jsonldb loads read-only datasets from JSONL or JSON files.
//
// A JSONL file holds one JSON object per line. Its first line may be a schema
// header of the form {"version": "1.0", "columns": [...]}, which is kept
// apart from the rows. A .json file holds a single array of objects.
package jsonldb

import (
	"bufio"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/maruel/jsondb/internal/errors"
	"github.com/maruel/jsondb/internal/jsondb"
)

// maxLineSize bounds a single JSONL row.
const maxLineSize = 16 << 20

// Column describes one column in a schema header.
type Column struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description,omitempty"`
}

// Header is the optional first line of a JSONL file.
type Header struct {
	Version string   `json:"version"`
	Columns []Column `json:"columns"`
}

// Validate checks that the header is well-formed.
func (h *Header) Validate() error {
	if h.Version == "" {
		return fmt.Errorf("schema version is required")
	}
	for i, col := range h.Columns {
		if col.Name == "" {
			return fmt.Errorf("column %d: name is required", i)
		}
		if col.Type == "" {
			return fmt.Errorf("column %d: type is required", i)
		}
	}
	return nil
}

// Table holds the records of one dataset file in memory.
type Table struct {
	path string
	mu   sync.RWMutex

	header *Header
	rows   []jsondb.Record
}

// NewTable creates a new Table and loads all data from the file.
func NewTable(path string) (*Table, error) {
	t := &Table{path: path}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// Path returns the file the table is loaded from.
func (t *Table) Path() string {
	return t.path
}

// Reload reads the file again and replaces the rows. On error the previous
// rows are kept.
func (t *Table) Reload() error {
	var header *Header
	var rows []jsondb.Record
	var err error
	if strings.EqualFold(filepath.Ext(t.path), ".json") {
		rows, err = loadJSON(t.path)
	} else {
		header, rows, err = loadJSONL(t.path)
	}
	if err != nil {
		return errors.Dataset(t.path, err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.header = header
	t.rows = rows
	return nil
}

// Header returns the schema header, or nil if the file has none.
func (t *Table) Header() *Header {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.header
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// All returns an iterator over clones of all rows.
func (t *Table) All() iter.Seq[jsondb.Record] {
	return func(yield func(jsondb.Record) bool) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		for _, row := range t.rows {
			if !yield(row.Clone()) {
				return
			}
		}
	}
}

// Rows returns a copy of all rows.
func (t *Table) Rows() []jsondb.Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rows := make([]jsondb.Record, len(t.rows))
	for i, row := range t.rows {
		rows[i] = row.Clone()
	}
	return rows
}

func loadJSONL(path string) (*Header, []jsondb.Record, error) {
	f, err := os.Open(path) //nolint:gosec // Dataset paths come from the catalog configuration.
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	var header *Header
	rows := []jsondb.Record{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		if lineNo == 1 {
			if h, ok := parseHeader(line); ok {
				if err := h.Validate(); err != nil {
					return nil, nil, fmt.Errorf("line 1: invalid schema header: %w", err)
				}
				header = h
				continue
			}
		}
		var row jsondb.Record
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, nil, fmt.Errorf("line %d: failed to unmarshal row: %w", lineNo, err)
		}
		if row == nil {
			return nil, nil, fmt.Errorf("line %d: row must be an object", lineNo)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read: %w", err)
	}
	return header, rows, nil
}

// parseHeader reports whether line is a schema header: an object with
// exactly the keys "version" and "columns".
func parseHeader(line []byte) (*Header, bool) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(line, &keys); err != nil || len(keys) != 2 {
		return nil, false
	}
	if _, ok := keys["version"]; !ok {
		return nil, false
	}
	if _, ok := keys["columns"]; !ok {
		return nil, false
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return nil, false
	}
	return &h, true
}

func loadJSON(path string) ([]jsondb.Record, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Dataset paths come from the catalog configuration.
	if err != nil {
		return nil, err
	}
	var rows []jsondb.Record
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rows: %w", err)
	}
	for i, row := range rows {
		if row == nil {
			return nil, fmt.Errorf("row %d: row must be an object", i)
		}
	}
	if rows == nil {
		rows = []jsondb.Record{}
	}
	return rows, nil
}
