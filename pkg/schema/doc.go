// Package schema validates the configuration maps of graph nodes.
//
// A Schema maps config keys to types. Keys are required unless wrapped in
// Optional, and keys the schema does not declare are rejected, so every node
// type has a closed configuration shape:
//
//	s := schema.Schema{
//	    "source":       schema.String(),
//	    "itemVariable": schema.Optional(schema.String()),
//	    "limit":        schema.Optional(schema.Int()),
//	    "columns": schema.Slice(schema.Object(schema.Schema{
//	        "header":   schema.Optional(schema.String()),
//	        "template": schema.String(),
//	    })),
//	}
//
//	if err := schema.Validate(s, node.Config); err != nil {
//	    for _, e := range schema.ValidationErrors(err) { ... }
//	}
//
// Schemas serialize to JSON as a map of key to type name ("string", "int?",
// "[string]", "enum(info|warning)") and can be parsed back with ParseTypeMap.
// The package has no dependencies beyond the standard library.
package schema
