// Package catalog serves named collections and saved views described by a
// YAML configuration file.
//
// Each collection is a dataset file loaded into a [jsondb.Engine].
// Relationships between collections resolve through the catalog on every
// call, so a reloaded collection is immediately visible to the collections
// that reference it.
package catalog

import (
	"context"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"sync"

	"github.com/maruel/jsondb/internal/errors"
	"github.com/maruel/jsondb/internal/jsondb"
	"github.com/maruel/jsondb/internal/jsonldb"
)

// Catalog holds one engine per configured collection.
type Catalog struct {
	cfg   *Config
	views map[string]*ViewConfig

	mu      sync.RWMutex
	tables  map[string]*jsonldb.Table
	engines map[string]*jsondb.Engine
}

// Open loads the configuration at path and every dataset it names.
func Open(path string) (*Catalog, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return New(cfg, filepath.Dir(path))
}

// New loads every dataset of cfg. Relative dataset paths are resolved
// against dir.
func New(cfg *Config, dir string) (*Catalog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Catalog{
		cfg:     cfg,
		views:   make(map[string]*ViewConfig, len(cfg.Views)),
		tables:  make(map[string]*jsonldb.Table, len(cfg.Collections)),
		engines: make(map[string]*jsondb.Engine, len(cfg.Collections)),
	}
	for i := range cfg.Views {
		c.views[cfg.Views[i].Name] = &cfg.Views[i]
	}
	for i := range cfg.Collections {
		col := &cfg.Collections[i]
		path := col.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, errors.Dataset(path, err)
		}
		table, err := jsonldb.NewTable(abs)
		if err != nil {
			return nil, err
		}
		c.tables[col.Name] = table
		c.engines[col.Name] = c.build(col, table)
		slog.Debug("Loaded collection", "collection", col.Name, "rows", table.Len(), "path", abs)
	}
	return c, nil
}

// build creates the engine of a collection from the current table rows.
func (c *Catalog) build(col *CollectionConfig, table *jsonldb.Table) *jsondb.Engine {
	rels := make([]jsondb.Relationship, len(col.Relationships))
	for i, r := range col.Relationships {
		rels[i] = jsondb.Relationship{
			Key:      r.Key,
			LeftKey:  r.LeftKey,
			RightKey: r.RightKey,
			API:      &collectionRef{c: c, name: r.Collection},
		}
	}
	return jsondb.New(table.Rows(), &jsondb.Options{
		Relationships: rels,
		Locale:        c.cfg.locale(),
		Concurrency:   c.cfg.Concurrency,
	})
}

// Collections returns the collection names in sorted order.
func (c *Catalog) Collections() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.engines))
}

// Views returns the saved view names in sorted order.
func (c *Catalog) Views() []string {
	return slices.Sorted(maps.Keys(c.views))
}

// Engine returns the current engine of a collection.
func (c *Catalog) Engine(name string) (*jsondb.Engine, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.engines[name]
	if !ok {
		return nil, errors.CollectionNotFound(name)
	}
	return e, nil
}

// View returns the collection and query of a saved view.
func (c *Catalog) View(name string) (string, *jsondb.Query, error) {
	v, ok := c.views[name]
	if !ok {
		return "", nil, errors.ViewNotFound(name)
	}
	q, err := v.Query()
	if err != nil {
		return "", nil, err
	}
	return v.Collection, q, nil
}

// Find runs q on a collection.
func (c *Catalog) Find(ctx context.Context, collection string, q *jsondb.Query) ([]jsondb.Record, error) {
	e, err := c.Engine(collection)
	if err != nil {
		return nil, err
	}
	return e.Find(ctx, q)
}

// Count counts the records of a collection matching q's filter.
func (c *Catalog) Count(ctx context.Context, collection string, q *jsondb.Query) (int, error) {
	e, err := c.Engine(collection)
	if err != nil {
		return 0, err
	}
	return e.Count(ctx, q)
}

// FindPage runs q on a collection and counts all matching records.
func (c *Catalog) FindPage(ctx context.Context, collection string, q *jsondb.Query) (*jsondb.Page, error) {
	e, err := c.Engine(collection)
	if err != nil {
		return nil, err
	}
	return e.FindPage(ctx, q)
}

// Reload reads the dataset file of a collection again and swaps its engine.
// On error the previous engine stays in place.
func (c *Catalog) Reload(name string) error {
	c.mu.RLock()
	table, ok := c.tables[name]
	c.mu.RUnlock()
	if !ok {
		return errors.CollectionNotFound(name)
	}
	if err := table.Reload(); err != nil {
		return err
	}
	col := c.collection(name)
	e := c.build(col, table)
	c.mu.Lock()
	c.engines[name] = e
	c.mu.Unlock()
	return nil
}

func (c *Catalog) collection(name string) *CollectionConfig {
	for i := range c.cfg.Collections {
		if c.cfg.Collections[i].Name == name {
			return &c.cfg.Collections[i]
		}
	}
	return nil
}

// collectionRef resolves relationships against the current engine of a
// collection, without expanding that collection's own relationships.
type collectionRef struct {
	c    *Catalog
	name string
}

func (r *collectionRef) Find(ctx context.Context, q *jsondb.Query) ([]jsondb.Record, error) {
	e, err := r.c.Engine(r.name)
	if err != nil {
		return nil, err
	}
	return e.WithoutRelationships().Find(ctx, q)
}
