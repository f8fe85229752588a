package catalog

import "errors"

var (
	// ErrNotFound indicates the requested manga, volume, or bookmark does not exist.
	ErrNotFound = errors.New("catalog: not found")
	// ErrDuplicateSlug indicates a manga with the same slug already exists.
	ErrDuplicateSlug = errors.New("catalog: slug already exists")
)
