// Package errors defines structured error types for query evaluation and
// catalog loading.
package errors

import (
	"fmt"
)

// ErrorCode defines specific error types.
type ErrorCode string

const (
	// ErrInvalidFilter is returned when a filter condition is malformed.
	ErrInvalidFilter ErrorCode = "INVALID_FILTER"
	// ErrUnknownOperator is returned when a filter uses an unsupported operator.
	ErrUnknownOperator ErrorCode = "UNKNOWN_OPERATOR"
	// ErrInvalidSort is returned when a sort specification is malformed.
	ErrInvalidSort ErrorCode = "INVALID_SORT"
	// ErrInvalidPagination is returned when skip or limit is negative.
	ErrInvalidPagination ErrorCode = "INVALID_PAGINATION"

	// ErrRelationshipFailed is returned when a collaborator failed to resolve a relationship.
	ErrRelationshipFailed ErrorCode = "RELATIONSHIP_FAILED"

	// ErrCollectionNotFound is returned when a collection is not configured.
	ErrCollectionNotFound ErrorCode = "COLLECTION_NOT_FOUND"
	// ErrViewNotFound is returned when a saved view is not configured.
	ErrViewNotFound ErrorCode = "VIEW_NOT_FOUND"
	// ErrInvalidConfig is returned when the catalog configuration is invalid.
	ErrInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrDataset is returned when a dataset file cannot be read or decoded.
	ErrDataset ErrorCode = "DATASET_ERROR"
)

// Error is a concrete error type with a code and optional details.
type Error struct {
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		code:    code,
		message: message,
		details: make(map[string]any),
	}
}

// Newf creates a new Error with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// WithDetail adds a single detail to the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *Error) Wrap(err error) *Error {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *Error) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *Error) Unwrap() error {
	return e.wrappedErr
}

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, errors.New(code, "")) matches on code alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.code == e.code
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// Predefined error constructors for common cases

// InvalidFilter creates an INVALID_FILTER error for field.
func InvalidFilter(field, message string) *Error {
	return Newf(ErrInvalidFilter, "filter on %q: %s", field, message).WithDetail("field", field)
}

// UnknownOperator creates an UNKNOWN_OPERATOR error.
func UnknownOperator(field, op string) *Error {
	return Newf(ErrUnknownOperator, "filter on %q: unknown operator %q", field, op).
		WithDetail("field", field).
		WithDetail("operator", op)
}

// InvalidSort creates an INVALID_SORT error.
func InvalidSort(message string) *Error {
	return New(ErrInvalidSort, message)
}

// InvalidPagination creates an INVALID_PAGINATION error.
func InvalidPagination(message string) *Error {
	return New(ErrInvalidPagination, message)
}

// RelationshipFailed creates a RELATIONSHIP_FAILED error wrapping the collaborator error.
func RelationshipFailed(key string, err error) *Error {
	return Newf(ErrRelationshipFailed, "expanding relationship %q", key).WithDetail("key", key).Wrap(err)
}

// CollectionNotFound creates a COLLECTION_NOT_FOUND error.
func CollectionNotFound(name string) *Error {
	return Newf(ErrCollectionNotFound, "collection %q not found", name).WithDetail("collection", name)
}

// ViewNotFound creates a VIEW_NOT_FOUND error.
func ViewNotFound(name string) *Error {
	return Newf(ErrViewNotFound, "view %q not found", name).WithDetail("view", name)
}

// InvalidConfig creates an INVALID_CONFIG error.
func InvalidConfig(message string) *Error {
	return New(ErrInvalidConfig, message)
}

// Dataset creates a DATASET_ERROR wrapping err for the file at path.
func Dataset(path string, err error) *Error {
	return Newf(ErrDataset, "dataset %s", path).WithDetail("path", path).Wrap(err)
}
