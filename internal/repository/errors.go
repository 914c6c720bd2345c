package repository

import "errors"

var (
	// ErrNotFound indicates the record targeted by a write does not exist.
	// Finders report a miss as (nil, nil) instead.
	ErrNotFound = errors.New("repository: not found")
	// ErrCorruptRecord indicates a stored row no longer decodes into a valid entity.
	ErrCorruptRecord = errors.New("repository: corrupt record")
)
