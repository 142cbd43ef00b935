package canon

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError is a single field-level rule violation, pathed to the field
// it concerns (e.g. "programs[1].tasks[0].post_url").
type FieldError struct {
	Path    string
	Message string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationError carries every violation found in one document. Documents
// are checked field by field rather than failing on the first breach, so
// an operator correcting a quarantined file sees the full list at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.String()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// HasField reports whether any violation is pathed at path.
func (e *ValidationError) HasField(path string) bool {
	for _, f := range e.Fields {
		if f.Path == path {
			return true
		}
	}
	return false
}

// IsValidationError reports whether err is a ValidationError, unwrapping
// as needed.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// violations accumulates field errors during a validation pass.
type violations struct {
	fields []FieldError
}

func (v *violations) add(path, format string, args ...any) {
	v.fields = append(v.fields, FieldError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *violations) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}
