package gallery

import "errors"

// ErrNotFound is returned when the referenced record is not in the collection.
var ErrNotFound = errors.New("photo not found")

// ErrInvalidInput is returned for malformed operation arguments, e.g. a
// missing id list where one is required.
var ErrInvalidInput = errors.New("invalid input")
