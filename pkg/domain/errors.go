package domain

import "errors"

// ErrUnknownMachine is returned when a machine id does not name a running instance.
var ErrUnknownMachine = errors.New("unknown machine")

// ErrInvalidEvent is returned when an event payload cannot be decoded.
var ErrInvalidEvent = errors.New("invalid event")

// ErrSnapshotNotFound is returned when a store holds no snapshot for a key.
var ErrSnapshotNotFound = errors.New("snapshot not found")
