package storage

import "errors"

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrIndexNotFound is returned when the target index does not exist.
var ErrIndexNotFound = errors.New("index not found")

// ErrInvalidResponse is returned when the backend response cannot be decoded.
var ErrInvalidResponse = errors.New("invalid response format")
