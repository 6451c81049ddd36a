package school

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrInvalidReference is returned when an assessment points at a student or criterion that does not exist.
	ErrInvalidReference = errors.New("referenced student or criterion does not exist")
)

// DuplicateKeyError reports a unique-key collision, independent of the SQL driver that detected it.
type DuplicateKeyError struct {
	Entity string
	Field  string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s with this %s already exists", e.Entity, e.Field)
}

// IsDuplicate reports whether err carries a DuplicateKeyError.
func IsDuplicate(err error) bool {
	var dup *DuplicateKeyError
	return errors.As(err, &dup)
}
