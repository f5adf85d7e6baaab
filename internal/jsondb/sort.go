// Sort comparator with the absent-values-last policy.

package jsondb

import (
	"fmt"
	"slices"

	"github.com/maruel/jsondb/internal/errors"
	"golang.org/x/text/collate"
)

// SortDir defines the sort direction.
type SortDir string

const (
	// SortAsc sorts in ascending order.
	SortAsc SortDir = "asc"
	// SortDesc sorts in descending order.
	SortDesc SortDir = "desc"
)

// Sort defines the sort order on one field.
type Sort struct {
	Name string  `json:"name" jsonschema:"description=Field to sort by"`
	Dir  SortDir `json:"dir" jsonschema:"enum=asc,enum=desc,description=Sort direction"`
}

// Validate checks that the sort names a field and a known direction.
func (s *Sort) Validate() error {
	if s.Name == "" {
		return errors.InvalidSort("sort name is required")
	}
	switch s.Dir {
	case SortAsc, SortDesc:
		return nil
	default:
		return errors.InvalidSort(fmt.Sprintf("sort dir must be %q or %q, got %q", SortAsc, SortDesc, s.Dir))
	}
}

// compare orders a before b (-1), after b (1) or as equal (0).
//
// Absent values always sort after present ones, in both directions. Strings
// are compared with coll against the string form of b.
func compare(coll *collate.Collator, a, b any, aok, bok bool, dir SortDir) int {
	multiplier := 1
	if dir == SortDesc {
		multiplier = -1
	}
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	}
	if s, ok := a.(string); ok {
		return coll.CompareString(s, stringOf(b)) * multiplier
	}
	c, ok := compareOrdered(a, b)
	if !ok {
		return 0
	}
	return c * multiplier
}

// sortRecords sorts records in place, keeping the input order of equal keys.
func sortRecords(coll *collate.Collator, records []Record, s *Sort) {
	slices.SortStableFunc(records, func(a, b Record) int {
		va, aok := a.lookup(s.Name)
		vb, bok := b.lookup(s.Name)
		return compare(coll, va, vb, aok, bok, s.Dir)
	})
}
