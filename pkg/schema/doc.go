// Package schema describes and checks the payloads of machine events.
//
// A Schema maps payload keys to Types. Keys are required unless wrapped in
// Optional, and keys the schema does not name are ignored:
//
//	connect := schema.Schema{
//	    "delay": schema.Optional(schema.Int()),
//	}
//
//	if err := schema.Validate(connect, ev.Payload); err != nil {
//	    // err lists every failing key
//	}
//
// Payloads are checked in their JSON shape: numbers arrive as float64 and
// nested values as map[string]any. Object nests a schema inside a key.
//
// SanitizeInput cleans free text before it enters a machine.
package schema
