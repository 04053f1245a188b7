package aoi

import "github.com/pkg/errors"

var (
	// ErrAlreadyTracked is returned when adding an entity that is already in the index
	ErrAlreadyTracked = errors.New("entity already tracked")
	// ErrNotTracked is returned when removing or moving an entity that is not in the index
	ErrNotTracked = errors.New("entity not tracked")
	// ErrInvalidShapeBounds is returned when the grid can not be built from the given extents
	ErrInvalidShapeBounds = errors.New("invalid shape bounds")
	// ErrWatcherStarted is returned when starting a watcher twice
	ErrWatcherStarted = errors.New("watcher already started")
	// ErrWatcherDestroyed is returned when starting a destroyed watcher
	ErrWatcherDestroyed = errors.New("watcher destroyed")
)
