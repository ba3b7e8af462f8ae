package request

// MalformedError reports a body or query argument that could not be parsed.
type MalformedError struct {
	Field   string
	Message string
}

func (e *MalformedError) Error() string {
	return e.Message
}

// ValidationError reports a well-formed payload whose content is invalid:
// a missing required key or a field of the wrong type.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
