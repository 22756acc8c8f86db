package domain

import "errors"

// ErrTaskNotFound indicates that an operation referenced an id absent from
// the collection.
var ErrTaskNotFound = errors.New("task not found")

// ValidationError rejects bad input before any mutation takes place.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// PersistenceError reports a rejected storage write. The in-memory mutation
// it accompanies has already been applied and is not rolled back; the store
// stays authoritative for the rest of the session.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "persist after " + e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }
