package ingest

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidRequest marks input that never reaches the broker.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEncode is returned when a LogRecord cannot be serialized.
	ErrEncode = errors.New("failed to encode log record")
	// ErrProduce is returned when the broker did not accept the record.
	ErrProduce = errors.New("failed to produce log record")
)

// FieldError describes one rejected request field by its JSON name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}
