package jsondb

import (
	"context"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"github.com/maruel/jsondb/internal/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Finder resolves records for a query. *Engine implements it; relationship
// collaborators must at least support an $in filter.
type Finder interface {
	Find(ctx context.Context, q *Query) ([]Record, error)
}

// Relationship expands Key on each result row with the records of API whose
// RightKey is one of the values in the row's LeftKey.
type Relationship struct {
	Key      string
	LeftKey  string
	RightKey string
	API      Finder
}

// Options configures an Engine.
type Options struct {
	Relationships []Relationship
	// Locale drives string collation when sorting. Defaults to language.Und.
	Locale language.Tag
	// Concurrency bounds in-flight relationship lookups per Find. Defaults to
	// GOMAXPROCS.
	Concurrency int
}

// Engine evaluates queries over an in-memory dataset.
//
// The dataset is copied on construction and never modified afterwards, so an
// Engine is safe for concurrent use.
type Engine struct {
	records       []Record
	relationships []Relationship
	locale        language.Tag
	concurrency   int
}

// New creates an Engine over a copy of records.
func New(records []Record, opts *Options) *Engine {
	e := &Engine{
		records:     make([]Record, len(records)),
		concurrency: runtime.GOMAXPROCS(0),
	}
	for i, r := range records {
		if r == nil {
			r = Record{}
		}
		e.records[i] = r.Clone()
	}
	if opts != nil {
		e.relationships = slices.Clone(opts.Relationships)
		e.locale = opts.Locale
		if opts.Concurrency > 0 {
			e.concurrency = opts.Concurrency
		}
	}
	return e
}

// WithoutRelationships returns an Engine over the same dataset that does not
// expand relationships. Use it as a collaborator to keep expansion one level
// deep.
func (e *Engine) WithoutRelationships() *Engine {
	c := *e
	c.relationships = nil
	return &c
}

// Len returns the number of records in the dataset.
func (e *Engine) Len() int {
	return len(e.records)
}

// Find returns the records matching q.Filter, ordered by q.Sort, paged by
// q.Skip and q.Limit, with relationships expanded. Returned records are
// copies owned by the caller.
func (e *Engine) Find(ctx context.Context, q *Query) ([]Record, error) {
	if q == nil {
		q = &Query{}
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	var rows []Record
	if len(q.Filter) > 0 {
		rows = q.Filter.apply(e.records)
	} else {
		rows = slices.Clone(e.records)
	}
	matched := len(rows)
	if q.Sort != nil {
		sortRecords(collate.New(e.locale), rows, q.Sort)
	}
	rows = paginate(rows, q.Skip, q.Limit)

	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	if err := e.expand(ctx, out); err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "jsondb: find", "matched", matched, "returned", len(out), "dur", time.Since(start))
	return out, nil
}

// Count returns the number of records matching q.Filter. Sort, pagination
// and relationships are ignored.
func (e *Engine) Count(ctx context.Context, q *Query) (int, error) {
	if q == nil || len(q.Filter) == 0 {
		return len(e.records), nil
	}
	if err := q.Filter.Validate(); err != nil {
		return 0, err
	}
	n := 0
	for _, r := range e.records {
		if q.Filter.Match(r) {
			n++
		}
	}
	slog.DebugContext(ctx, "jsondb: count", "matched", n)
	return n, nil
}

// FindPage runs Find and Count for q.
func (e *Engine) FindPage(ctx context.Context, q *Query) (*Page, error) {
	if q == nil {
		q = &Query{}
	}
	rows, err := e.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	total, err := e.Count(ctx, q)
	if err != nil {
		return nil, err
	}
	return &Page{Rows: rows, Total: total, Skip: q.Skip, Limit: q.Limit}, nil
}

// expand resolves every relationship for every row. Lookups run
// concurrently; each writes its own slot and rows are only updated once all
// lookups succeeded, so lookups see the rows as they were before expansion.
func (e *Engine) expand(ctx context.Context, rows []Record) error {
	if len(e.relationships) == 0 || len(rows) == 0 {
		return nil
	}
	results := make([][]Record, len(e.relationships)*len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := range e.relationships {
		rel := &e.relationships[i]
		for j, row := range rows {
			v, ok := row.lookup(rel.LeftKey)
			if !ok {
				continue
			}
			ids, ok := asSlice(v)
			if !ok {
				ids = []any{v}
			} else if ids == nil {
				ids = []any{}
			}
			slot := i*len(rows) + j
			g.Go(func() error {
				q := &Query{Filter: Filter{{Field: rel.RightKey, Op: OpIn, Values: ids}}}
				items, err := rel.API.Find(gctx, q)
				if err != nil {
					return errors.RelationshipFailed(rel.Key, err)
				}
				if items == nil {
					items = []Record{}
				}
				results[slot] = items
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i := range e.relationships {
		key := e.relationships[i].Key
		for j, row := range rows {
			if items := results[i*len(rows)+j]; items != nil {
				row[key] = items
			}
		}
	}
	return nil
}
