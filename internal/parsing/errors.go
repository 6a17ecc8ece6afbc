package parsing

import "fmt"

// ShapeError represents a response body that does not have the shape the
// endpoint promises.
type ShapeError struct {
	Message string
	Cause   error
}

func (e *ShapeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("unexpected response shape: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("unexpected response shape: %s", e.Message)
}

func (e *ShapeError) Unwrap() error {
	return e.Cause
}

// ParseError represents an error parsing the API response
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
