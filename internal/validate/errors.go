package validate

import "fmt"

// ParseError means no valid JSON could be extracted or decoded from the
// model output. Recoverable: callers retry once, then fall back.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("JSON parsing failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("JSON parsing failed: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError means the JSON parsed but failed field-presence, type, or
// range checks against the expected shape. Same recovery path as
// ParseError.
type SchemaError struct {
	Shape  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema validation failed for %s: %s", e.Shape, e.Reason)
}
