package capture

import "errors"

var (
	// ErrInvalidCapacity is returned when a ring is created with capacity < 1.
	ErrInvalidCapacity = errors.New("ring capacity must be at least 1")

	// ErrEmptyMirrorDir is returned when a file mirror has no directory.
	ErrEmptyMirrorDir = errors.New("mirror directory is empty")
)
