// Filter conditions and their evaluation.

package jsondb

import (
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/maruel/jsondb/internal/errors"
)

// Op is a filter operator.
type Op string

const (
	// OpIn matches when the field shares at least one value with the operand list.
	OpIn Op = "$in"
	// OpGte matches when the field is greater than or equal to the operand.
	OpGte Op = "$gte"
	// OpLte matches when the field is less than or equal to the operand.
	OpLte Op = "$lte"
	// OpNe matches when the field is not strictly equal to the operand.
	OpNe Op = "$ne"
	// OpExists matches on whether the field holds a non-empty value.
	OpExists Op = "$exists"
	// OpRegex matches when the pattern matches the string form of the field.
	OpRegex Op = "$regex"
	// OpEq matches when the field is strictly equal to the operand. A literal
	// value in a filter document is an implicit OpEq.
	OpEq Op = "$eq"
)

// Condition is one predicate on one field.
type Condition struct {
	Field   string
	Op      Op
	Value   any            // operand of $eq, $ne, $gte, $lte and $exists
	Values  []any          // operand of $in
	Pattern *regexp.Regexp // operand of $regex
}

type predicate func(c *Condition, v any, present bool) bool

var predicates = map[Op]predicate{
	OpIn:     matchIn,
	OpGte:    matchGte,
	OpLte:    matchLte,
	OpNe:     matchNe,
	OpExists: matchExists,
	OpRegex:  matchRegex,
	OpEq:     matchEq,
}

// Match reports whether r satisfies the condition. The condition must be valid.
func (c *Condition) Match(r Record) bool {
	v, ok := r.lookup(c.Field)
	return predicates[c.Op](c, v, ok)
}

// Validate checks that the condition has a known operator and a usable operand.
func (c *Condition) Validate() error {
	if c.Field == "" {
		return errors.InvalidFilter(c.Field, "field name is required")
	}
	if _, ok := predicates[c.Op]; !ok {
		return errors.UnknownOperator(c.Field, string(c.Op))
	}
	switch c.Op {
	case OpIn:
		if c.Values == nil {
			return errors.InvalidFilter(c.Field, "$in requires a sequence")
		}
	case OpRegex:
		if c.Pattern == nil {
			return errors.InvalidFilter(c.Field, "$regex requires a pattern")
		}
	case OpExists:
		if _, ok := c.Value.(bool); !ok {
			return errors.InvalidFilter(c.Field, "$exists requires a boolean")
		}
	case OpEq, OpNe, OpGte, OpLte:
		if !isScalar(c.Value) {
			return errors.InvalidFilter(c.Field, fmt.Sprintf("%s requires a string, number or boolean", c.Op))
		}
	}
	return nil
}

func matchIn(c *Condition, v any, present bool) bool {
	if !present {
		return false
	}
	if items, ok := asSlice(v); ok {
		for _, item := range items {
			if containsEqual(c.Values, item) {
				return true
			}
		}
		return false
	}
	return containsEqual(c.Values, v)
}

func matchGte(c *Condition, v any, present bool) bool {
	if !present {
		return false
	}
	r, ok := compareOrdered(v, c.Value)
	return ok && r >= 0
}

func matchLte(c *Condition, v any, present bool) bool {
	if !present {
		return false
	}
	r, ok := compareOrdered(v, c.Value)
	return ok && r <= 0
}

func matchNe(c *Condition, v any, present bool) bool {
	return !present || !equal(v, c.Value)
}

func matchExists(c *Condition, v any, present bool) bool {
	want, _ := c.Value.(bool)
	return nonEmpty(v, present) == want
}

func matchRegex(c *Condition, v any, present bool) bool {
	return present && c.Pattern.MatchString(stringOf(v))
}

func matchEq(c *Condition, v any, present bool) bool {
	return present && equal(v, c.Value)
}

func containsEqual(values []any, v any) bool {
	for _, x := range values {
		if equal(x, v) {
			return true
		}
	}
	return false
}

// nonEmpty reports whether a value is present and, for strings and
// sequences, has at least one element.
func nonEmpty(v any, present bool) bool {
	if !present {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	if items, ok := asSlice(v); ok {
		return len(items) > 0
	}
	return true
}

func isScalar(v any) bool {
	if _, ok := toFloat(v); ok {
		return true
	}
	switch v.(type) {
	case string, bool:
		return true
	}
	return false
}

// Filter is a conjunction of conditions. A record matches when it satisfies
// every condition.
type Filter []Condition

// Validate checks every condition.
func (f Filter) Validate() error {
	for i := range f {
		if err := f[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Match reports whether r satisfies every condition.
func (f Filter) Match(r Record) bool {
	for i := range f {
		if !f[i].Match(r) {
			return false
		}
	}
	return true
}

// apply returns the records matching f, preserving their relative order.
func (f Filter) apply(records []Record) []Record {
	result := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			result = append(result, r)
		}
	}
	return result
}

// ParseFilter builds a Filter from a filter document such as
//
//	{"tags": {"$in": [2, 3]}, "name": "Alice", "title": {"$regex": "^a", "$options": "i"}}
//
// A field maps to an operator object, a literal (implicit $eq) or a
// *regexp.Regexp. Fields are processed in name order, operators of one field
// in operator order. Unknown operators are rejected.
func ParseFilter(doc map[string]any) (Filter, error) {
	var f Filter
	for _, field := range slices.Sorted(maps.Keys(doc)) {
		conds, err := parseField(field, doc[field])
		if err != nil {
			return nil, err
		}
		f = append(f, conds...)
	}
	return f, nil
}

func parseField(field string, val any) ([]Condition, error) {
	switch v := val.(type) {
	case *regexp.Regexp:
		return []Condition{{Field: field, Op: OpRegex, Pattern: v}}, nil
	case map[string]any:
		return parseOperators(field, v)
	}
	if isScalar(val) {
		return []Condition{{Field: field, Op: OpEq, Value: val}}, nil
	}
	return nil, errors.InvalidFilter(field, fmt.Sprintf("unsupported condition of type %T", val))
}

func parseOperators(field string, ops map[string]any) ([]Condition, error) {
	if _, ok := ops["$options"]; ok {
		if _, ok := ops["$regex"]; !ok {
			return nil, errors.InvalidFilter(field, "$options requires $regex")
		}
	}
	var conds []Condition
	for _, name := range slices.Sorted(maps.Keys(ops)) {
		if name == "$options" {
			continue
		}
		operand := ops[name]
		c := Condition{Field: field, Op: Op(name)}
		switch c.Op {
		case OpIn:
			items, ok := asSlice(operand)
			if !ok {
				return nil, errors.InvalidFilter(field, "$in requires a sequence")
			}
			c.Values = items
			if c.Values == nil {
				c.Values = []any{}
			}
		case OpRegex:
			re, err := compilePattern(field, operand, ops["$options"])
			if err != nil {
				return nil, err
			}
			c.Pattern = re
		case OpEq, OpNe, OpGte, OpLte, OpExists:
			c.Value = operand
		default:
			return nil, errors.UnknownOperator(field, name)
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return conds, nil
}

func compilePattern(field string, pattern, options any) (*regexp.Regexp, error) {
	if re, ok := pattern.(*regexp.Regexp); ok && options == nil {
		return re, nil
	}
	p, ok := pattern.(string)
	if !ok {
		return nil, errors.InvalidFilter(field, "$regex requires a string pattern")
	}
	if options != nil {
		flags, ok := options.(string)
		if !ok || strings.Trim(flags, "ims") != "" {
			return nil, errors.InvalidFilter(field, fmt.Sprintf("unsupported $options %v", options))
		}
		if flags != "" {
			p = "(?" + flags + ")" + p
		}
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, errors.InvalidFilter(field, "invalid $regex").Wrap(err)
	}
	return re, nil
}

// Document returns the filter document form of f, the inverse of ParseFilter.
func (f Filter) Document() map[string]any {
	byField := make(map[string][]*Condition)
	var order []string
	for i := range f {
		c := &f[i]
		if _, ok := byField[c.Field]; !ok {
			order = append(order, c.Field)
		}
		byField[c.Field] = append(byField[c.Field], c)
	}
	doc := make(map[string]any, len(order))
	for _, field := range order {
		conds := byField[field]
		if len(conds) == 1 && conds[0].Op == OpEq {
			doc[field] = conds[0].Value
			continue
		}
		ops := make(map[string]any, len(conds))
		for _, c := range conds {
			switch c.Op {
			case OpIn:
				ops[string(c.Op)] = c.Values
			case OpRegex:
				if c.Pattern != nil {
					ops[string(c.Op)] = c.Pattern.String()
				}
			default:
				ops[string(c.Op)] = c.Value
			}
		}
		doc[field] = ops
	}
	return doc
}

// MarshalJSON encodes the filter as a filter document.
func (f Filter) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Document())
}

// UnmarshalJSON decodes a filter document.
func (f *Filter) UnmarshalJSON(data []byte) error {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	parsed, err := ParseFilter(doc)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
