package core

import (
	"errors"
	"fmt"
)

// ValidationError marks a missing or out-of-range field. The action is
// rejected before any state change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// ConflictError marks a business-rule violation, e.g. starting a session
// while one is already open or deleting the home supplier.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

// NotFoundError marks an operation on an id that no longer exists.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// RemoteError wraps a persistence gateway failure. MissingTables marks the
// first-run condition where the remote schema has not been created yet;
// callers surface it as a prompt to run setup.
type RemoteError struct {
	Op            string
	Err           error
	MissingTables bool
}

func (e *RemoteError) Error() string {
	if e.MissingTables {
		return fmt.Sprintf("remote %s: tables missing, run setup", e.Op)
	}
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func Conflict(reason string) error {
	return &ConflictError{Reason: reason}
}

func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// IsMissingTables reports the distinguished first-run remote condition.
func IsMissingTables(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.MissingTables
}
