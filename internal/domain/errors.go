package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidDate = errors.New("invalid date")
	ErrValidation  = errors.New("validation error")
)

// InvalidDateError is returned when a year/month/day combination is not a calendar date.
// Month and Day are zero when they were not supplied.
type InvalidDateError struct {
	Year  int
	Month int
	Day   int
}

func (e *InvalidDateError) Error() string {
	switch {
	case e.Month == 0:
		return fmt.Sprintf("invalid date: year %d", e.Year)
	case e.Day == 0:
		return fmt.Sprintf("invalid date: %04d-%02d", e.Year, e.Month)
	}
	return fmt.Sprintf("invalid date: %04d-%02d-%02d", e.Year, e.Month, e.Day)
}

func (e *InvalidDateError) Unwrap() error { return ErrInvalidDate }

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// AggregationError aborts a billing run; it names the project whose hours failed.
type AggregationError struct {
	ProjectID string
	Err       error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregate hours for project %s: %v", e.ProjectID, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

// StoreError wraps a persistence failure at the storage boundary.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}
