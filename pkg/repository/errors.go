package repository

import "errors"

// Sentinel errors shared by all repositories. Concrete repositories wrap
// them with fmt.Errorf("...: %w") so callers can match with errors.Is.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
)

// IsNotFoundError checks if an error is a "not found" error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}
