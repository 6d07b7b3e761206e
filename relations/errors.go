package relations

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRelationAlreadyDefined is returned when two relations with the
	// same name are declared on one owning type
	ErrRelationAlreadyDefined = errors.New("relation already defined")

	// ErrUnknownTargetType is returned when a relation's target type has
	// not been registered
	ErrUnknownTargetType = errors.New("unknown target type")
)

// RecordNotFoundError is returned when a requested id has no
// corresponding target record
type RecordNotFoundError struct {
	Type string
	ID   string
}

// Error implements the error interface
func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("%s record not found: %s", e.Type, e.ID)
}

// UnsupportedFinderOptionError is returned when a finder option cannot
// be honored given how the foreign keys are stored
type UnsupportedFinderOptionError struct {
	Options []string
}

// Error implements the error interface
func (e *UnsupportedFinderOptionError) Error() string {
	return fmt.Sprintf("unsupported finder option(s): %s", strings.Join(e.Options, ", "))
}

// TypeMismatchError is returned when a record of the wrong type is added
// to or set on a non-polymorphic relation
type TypeMismatchError struct {
	Relation string
	Expected string
	Actual   string
}

// Error implements the error interface
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("relation %s expects %s records, got %s", e.Relation, e.Expected, e.Actual)
}

// IsRecordNotFound returns true if the error is a RecordNotFoundError
func IsRecordNotFound(err error) bool {
	var target *RecordNotFoundError
	return errors.As(err, &target)
}

// IsUnsupportedFinderOption returns true if the error is an
// UnsupportedFinderOptionError
func IsUnsupportedFinderOption(err error) bool {
	var target *UnsupportedFinderOptionError
	return errors.As(err, &target)
}

// IsTypeMismatch returns true if the error is a TypeMismatchError
func IsTypeMismatch(err error) bool {
	var target *TypeMismatchError
	return errors.As(err, &target)
}
