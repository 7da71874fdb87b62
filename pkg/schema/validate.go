package schema

import "sort"

// Schema is a map of payload keys to their expected types.
type Schema map[string]Type

// Validate checks data against the schema and reports every failing key.
// A nil schema accepts anything.
func Validate(schema Schema, data map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	keys := make([]string, 0, len(schema))
	for k := range schema {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		fieldType := schema[key]
		value, exists := data[key]
		if !exists {
			if _, optional := fieldType.(*OptionalType); optional {
				continue
			}
			errs = append(errs, &ValidationError{Key: key, Reason: "required"})
			continue
		}
		if err := fieldType.Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: key, Reason: err.Error(), Value: value})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
