// Parses the catalog configuration file.

package catalog

import (
	"fmt"
	"os"

	"github.com/maruel/jsondb/internal/errors"
	"github.com/maruel/jsondb/internal/jsondb"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Config defines the structure of a catalog configuration file.
type Config struct {
	Version     int                `yaml:"version"`
	Locale      string             `yaml:"locale,omitempty"`
	Concurrency int                `yaml:"concurrency,omitempty"`
	Collections []CollectionConfig `yaml:"collections"`
	Views       []ViewConfig       `yaml:"views,omitempty"`
}

// CollectionConfig defines one named dataset.
type CollectionConfig struct {
	Name          string               `yaml:"name"`
	Path          string               `yaml:"path"` // relative to the configuration file
	Relationships []RelationshipConfig `yaml:"relationships,omitempty"`
}

// RelationshipConfig expands Key with the records of Collection whose
// RightKey is in the row's LeftKey.
type RelationshipConfig struct {
	Key        string `yaml:"key"`
	LeftKey    string `yaml:"left_key"`
	RightKey   string `yaml:"right_key"`
	Collection string `yaml:"collection"`
}

// ViewConfig defines a saved view: a named query on a collection.
type ViewConfig struct {
	Name       string         `yaml:"name"`
	Collection string         `yaml:"collection"`
	Filter     map[string]any `yaml:"filter,omitempty"`
	Sort       *SortConfig    `yaml:"sort,omitempty"`
	Skip       int            `yaml:"skip,omitempty"`
	Limit      *int           `yaml:"limit,omitempty"`
}

// SortConfig defines a sort criterion.
type SortConfig struct {
	Name string `yaml:"name"`
	Dir  string `yaml:"dir"` // "asc" or "desc"
}

// Query builds the query of the view.
func (v *ViewConfig) Query() (*jsondb.Query, error) {
	f, err := jsondb.ParseFilter(v.Filter)
	if err != nil {
		return nil, err
	}
	q := &jsondb.Query{Filter: f, Skip: v.Skip, Limit: v.Limit}
	if v.Sort != nil {
		q.Sort = &jsondb.Sort{Name: v.Sort.Name, Dir: jsondb.SortDir(v.Sort.Dir)}
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// LoadConfig reads and parses a catalog configuration from a file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-specified configuration path
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses a catalog configuration from bytes.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.InvalidConfig("failed to parse config").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return errors.InvalidConfig(fmt.Sprintf("unsupported config version: %d", c.Version))
	}
	if c.Locale != "" {
		if _, err := language.Parse(c.Locale); err != nil {
			return errors.InvalidConfig(fmt.Sprintf("invalid locale %q", c.Locale)).Wrap(err)
		}
	}
	if c.Concurrency < 0 {
		return errors.InvalidConfig("concurrency must not be negative")
	}
	if len(c.Collections) == 0 {
		return errors.InvalidConfig("at least one collection is required")
	}

	names := make(map[string]bool, len(c.Collections))
	for i := range c.Collections {
		col := &c.Collections[i]
		if col.Name == "" {
			return errors.InvalidConfig(fmt.Sprintf("collection %d: name is required", i))
		}
		if names[col.Name] {
			return errors.InvalidConfig(fmt.Sprintf("collection %q: duplicate name", col.Name))
		}
		names[col.Name] = true
		if col.Path == "" {
			return errors.InvalidConfig(fmt.Sprintf("collection %q: path is required", col.Name))
		}
	}

	for i := range c.Collections {
		col := &c.Collections[i]
		keys := make(map[string]bool, len(col.Relationships))
		for j := range col.Relationships {
			rel := &col.Relationships[j]
			if rel.Key == "" || rel.LeftKey == "" || rel.RightKey == "" {
				return errors.InvalidConfig(fmt.Sprintf("collection %q: relationship %d: key, left_key and right_key are required", col.Name, j))
			}
			if keys[rel.Key] {
				return errors.InvalidConfig(fmt.Sprintf("collection %q: duplicate relationship key %q", col.Name, rel.Key))
			}
			keys[rel.Key] = true
			if !names[rel.Collection] {
				return errors.InvalidConfig(fmt.Sprintf("collection %q: relationship %q: unknown collection %q", col.Name, rel.Key, rel.Collection))
			}
		}
	}

	views := make(map[string]bool, len(c.Views))
	for i := range c.Views {
		v := &c.Views[i]
		if v.Name == "" {
			return errors.InvalidConfig(fmt.Sprintf("view %d: name is required", i))
		}
		if views[v.Name] {
			return errors.InvalidConfig(fmt.Sprintf("view %q: duplicate name", v.Name))
		}
		views[v.Name] = true
		if !names[v.Collection] {
			return errors.InvalidConfig(fmt.Sprintf("view %q: unknown collection %q", v.Name, v.Collection))
		}
		if _, err := v.Query(); err != nil {
			return errors.InvalidConfig(fmt.Sprintf("view %q", v.Name)).Wrap(err)
		}
	}
	return nil
}

// locale returns the configured collation locale.
func (c *Config) locale() language.Tag {
	if c.Locale == "" {
		return language.Und
	}
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Und
	}
	return tag
}
