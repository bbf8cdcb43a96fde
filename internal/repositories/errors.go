package repositories

import "errors"

var (
	// ErrNotFound is wrapped by every lookup that finds no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateReference is returned when an order already exists for a payment reference.
	ErrDuplicateReference = errors.New("order already exists for payment reference")
	// ErrDuplicateEmail is returned when a user with the same email exists.
	ErrDuplicateEmail = errors.New("email already registered")
)
