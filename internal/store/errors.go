package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrConnectionConflict is returned when a connection id collides
	// with an existing row. Ids carry 128 bits of entropy, so this only
	// signals a caller bug.
	ErrConnectionConflict = errors.New("connection id already exists")
)
