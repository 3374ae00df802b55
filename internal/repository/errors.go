package repository

import "errors"

var (
	// ErrNotFound indicates a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness conflict.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrConflict indicates a conditional write was rejected.
	ErrConflict = errors.New("conditional write rejected")
)
