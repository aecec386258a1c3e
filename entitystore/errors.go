package entitystore

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by GetByID, Update and Delete when the id is not in the collection.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateID is returned by Create when the caller supplies an id that is already taken.
	ErrDuplicateID = errors.New("record id already exists")
)

// PersistenceError wraps failures of the storage medium for one collection:
// unreadable/unwritable storage or data that does not deserialize.
type PersistenceError struct {
	Collection string
	Op         string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Collection, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistenceErr(collection, op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Collection: collection, Op: op, Err: err}
}

// IsNotFound reports whether err (or its cause) is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

// IsDuplicateID reports whether err (or its cause) is ErrDuplicateID.
func IsDuplicateID(err error) bool {
	return errors.Cause(err) == ErrDuplicateID
}

// IsPersistence reports whether err (or its cause) is a *PersistenceError.
func IsPersistence(err error) bool {
	_, ok := errors.Cause(err).(*PersistenceError)
	return ok
}
