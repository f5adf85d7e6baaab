package jsondb

import (
	"github.com/invopop/jsonschema"
)

// JSONSchema describes the filter document. Operators are open-ended per
// field so the schema only constrains the top-level shape.
func (Filter) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "object",
		Description: "Filter document: field name to a literal or an operator object ($in, $gte, $lte, $ne, $exists, $regex, $eq)",
	}
}

// QuerySchema returns the JSON Schema of a Query document.
func QuerySchema() *jsonschema.Schema {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	return r.Reflect(&Query{})
}
