package repositories

import "errors"

// ErrNotFound is returned (wrapped) when the requested record does not exist.
var ErrNotFound = errors.New("record not found")
