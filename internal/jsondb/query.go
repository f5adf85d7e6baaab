package jsondb

import (
	"github.com/maruel/jsondb/internal/errors"
)

// Query selects, orders and pages records.
type Query struct {
	Filter Filter `json:"filter,omitempty" jsonschema:"description=Filter document; every field condition must match"`
	Sort   *Sort  `json:"sort,omitempty" jsonschema:"description=Sort order"`
	Skip   int    `json:"skip,omitempty" jsonschema:"minimum=0,description=Number of leading records to drop"`
	// Limit is nil when unset; an explicit zero returns no records.
	Limit *int `json:"limit,omitempty" jsonschema:"minimum=0,description=Maximum number of records to return"`
}

// Limit returns a pointer to n, for Query.Limit.
func Limit(n int) *int {
	return &n
}

// Validate checks the filter, sort and pagination.
func (q *Query) Validate() error {
	if err := q.Filter.Validate(); err != nil {
		return err
	}
	if q.Sort != nil {
		if err := q.Sort.Validate(); err != nil {
			return err
		}
	}
	if q.Skip < 0 {
		return errors.InvalidPagination("skip must not be negative")
	}
	if q.Limit != nil && *q.Limit < 0 {
		return errors.InvalidPagination("limit must not be negative")
	}
	return nil
}

// Page is one page of results with the total number of matching records.
type Page struct {
	Rows  []Record `json:"rows"`
	Total int      `json:"total"`
	Skip  int      `json:"skip"`
	Limit *int     `json:"limit,omitempty"`
}

// paginate drops the first skip records and keeps at most limit of the rest.
func paginate(records []Record, skip int, limit *int) []Record {
	if skip > 0 {
		if skip >= len(records) {
			return records[:0]
		}
		records = records[skip:]
	}
	if limit != nil && *limit < len(records) {
		records = records[:*limit]
	}
	return records
}
