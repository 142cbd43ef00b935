package jsonrepair

import (
	"errors"
	"fmt"
	"strings"
)

// ParseError indicates the repair engine exhausted its strategies without
// producing parseable JSON. Repairs lists the strategies that were applied
// before the final parse still failed.
type ParseError struct {
	Err     error
	Repairs []string
}

func (e *ParseError) Error() string {
	if len(e.Repairs) > 0 {
		return fmt.Sprintf("unparseable after repair (%s): %v", strings.Join(e.Repairs, ", "), e.Err)
	}
	return fmt.Sprintf("unparseable: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is a ParseError, unwrapping as needed.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
