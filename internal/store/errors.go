package store

import (
	"errors"
	"fmt"
)

// DatabaseError indicates a persistence failure. The document being
// projected is preserved unmodified in quarantine, so retry can simply be
// re-run once the store is healthy.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// IsDatabaseError reports whether err is a DatabaseError, unwrapping as
// needed.
func IsDatabaseError(err error) bool {
	var de *DatabaseError
	return errors.As(err, &de)
}

// NotFoundError indicates a record lookup by id found nothing.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// IsNotFound reports whether err is a NotFoundError, unwrapping as needed.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
