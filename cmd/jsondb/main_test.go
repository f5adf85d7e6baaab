package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/maruel/jsondb/internal/catalog"
	"github.com/maruel/jsondb/internal/jsondb"
)

func TestParseQuery(t *testing.T) {
	t.Run("inline", func(t *testing.T) {
		q, err := parseQuery(`{"filter":{"tags":{"$in":[2,3]}},"sort":{"name":"v","dir":"desc"},"skip":1,"limit":0}`)
		if err != nil {
			t.Fatal(err)
		}
		if len(q.Filter) != 1 || q.Filter[0].Op != jsondb.OpIn {
			t.Errorf("unexpected filter: %+v", q.Filter)
		}
		if q.Sort == nil || q.Sort.Dir != jsondb.SortDesc || q.Skip != 1 {
			t.Errorf("unexpected query: %+v", q)
		}
		if q.Limit == nil || *q.Limit != 0 {
			t.Errorf("explicit limit 0 must be kept, got %v", q.Limit)
		}
	})

	t.Run("empty", func(t *testing.T) {
		q, err := parseQuery("")
		if err != nil {
			t.Fatal(err)
		}
		if q.Filter != nil || q.Sort != nil || q.Limit != nil {
			t.Errorf("expected empty query, got %+v", q)
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "q.json")
		if err := os.WriteFile(path, []byte(`{"filter":{"name":"a"}}`), 0o644); err != nil {
			t.Fatal(err)
		}
		q, err := parseQuery("@" + path)
		if err != nil {
			t.Fatal(err)
		}
		if len(q.Filter) != 1 || q.Filter[0].Value != "a" {
			t.Errorf("unexpected filter: %+v", q.Filter)
		}
	})

	t.Run("errors", func(t *testing.T) {
		for _, arg := range []string{
			`{`,
			`{"filter":{"v":{"$gt":1}}}`,
			`{"sort":{"name":"v","dir":"up"}}`,
			`{"skip":-1}`,
			"@" + filepath.Join(t.TempDir(), "missing.json"),
		} {
			if _, err := parseQuery(arg); err == nil {
				t.Errorf("parseQuery(%q) expected error", arg)
			}
		}
	})
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	config := `
version: 1
collections:
  - name: items
    path: items.jsonl
views:
  - name: cheap
    collection: items
    filter: {price: {$lte: 10}}
    sort: {name: price, dir: asc}
`
	items := `{"name":"pen","price":2}
{"name":"book","price":12}
{"name":"cup","price":5}
`
	for name, content := range map[string]string{"jsondb.yaml": config, "items.jsonl": items} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cat, err := catalog.Open(filepath.Join(dir, "jsondb.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := t.Context()

	t.Run("view rows", func(t *testing.T) {
		name, q, err := resolveQuery(cat, "cheap", "", "")
		if err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		if err := run(ctx, &buf, cat, name, q, outputRows); err != nil {
			t.Fatal(err)
		}
		var rows []map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
			t.Fatalf("invalid output %q: %v", buf.String(), err)
		}
		if len(rows) != 2 || rows[0]["name"] != "pen" || rows[1]["name"] != "cup" {
			t.Errorf("unexpected rows: %v", rows)
		}
	})

	t.Run("count", func(t *testing.T) {
		name, q, err := resolveQuery(cat, "", "items", `{"filter":{"price":{"$gte":5}}}`)
		if err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		if err := run(ctx, &buf, cat, name, q, outputCount); err != nil {
			t.Fatal(err)
		}
		var out map[string]int
		if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
			t.Fatal(err)
		}
		if out["count"] != 2 {
			t.Errorf("count = %d, want 2", out["count"])
		}
	})

	t.Run("page", func(t *testing.T) {
		var buf bytes.Buffer
		if err := run(ctx, &buf, cat, "items", &jsondb.Query{Limit: jsondb.Limit(1)}, outputPage); err != nil {
			t.Fatal(err)
		}
		var p jsondb.Page
		if err := json.Unmarshal(buf.Bytes(), &p); err != nil {
			t.Fatal(err)
		}
		if p.Total != 3 || len(p.Rows) != 1 {
			t.Errorf("unexpected page: %+v", p)
		}
	})

	t.Run("flag errors", func(t *testing.T) {
		if _, _, err := resolveQuery(cat, "cheap", "items", ""); err == nil {
			t.Error("expected error combining -view and -collection")
		}
		if _, _, err := resolveQuery(cat, "", "", ""); err == nil {
			t.Error("expected error without -collection")
		}
		if _, _, err := resolveQuery(cat, "missing", "", ""); err == nil {
			t.Error("expected error for unknown view")
		}
	})
}
