package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrAlreadyTerminal = errors.New("job already terminal")
	ErrNoImage         = errors.New("No image in response")
	ErrStorageFailure  = errors.New("storage failure")
)
