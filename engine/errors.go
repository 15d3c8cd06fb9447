package engine

import "errors"

var (
	// ErrNotInitialized is returned by operations that need a running or
	// stopped engine.
	ErrNotInitialized = errors.New("engine not initialized")
	// ErrUnknownCommand is returned by Control for a command it does not handle.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrTickPanic wraps a panic recovered during a tick.
	ErrTickPanic = errors.New("tick panicked")
	// ErrNodeExists is returned when inserting a node whose ID is taken.
	ErrNodeExists = errors.New("node already exists")
)
