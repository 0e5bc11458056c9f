package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is wrapped by every ValidationError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when no todo item has the requested id.
	ErrNotFound = errors.New("todo item not found")
	// ErrPastDue is returned when a mutation targets a past due item.
	ErrPastDue = errors.New("todo item is past due")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// ItemError ties ErrNotFound or ErrPastDue to the item it concerns.
type ItemError struct {
	ID  uint
	Err error
}

func (e *ItemError) Error() string {
	switch e.Err {
	case ErrNotFound:
		return fmt.Sprintf("todo item %d not found", e.ID)
	case ErrPastDue:
		return fmt.Sprintf("todo item %d is past due and cannot be modified", e.ID)
	default:
		return fmt.Sprintf("todo item %d: %v", e.ID, e.Err)
	}
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
