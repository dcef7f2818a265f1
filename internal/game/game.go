package game

import (
	"errors"
	"fmt"

	"gameshub/internal/surface"
)

// Game is one mountable mini-game.
type Game interface {
	// Init builds the game's elements, attaches its handlers and starts any
	// background activity. It is called exactly once per instance.
	Init() error
	// Destroy stops everything Init started and detaches the game's
	// handlers. It must be safe to call even if Init failed half way.
	Destroy()
}

// Factory constructs a game bound to the shared container. Factories must
// only store the container; all setup belongs in Init.
type Factory func(container *surface.Surface) (Game, error)

var (
	// ErrNotFound is returned when loading a game id nobody registered.
	ErrNotFound = errors.New("game not found")
	// ErrInitialization marks a failed construction or Init.
	ErrInitialization = errors.New("game initialization failed")
)

// InitError reports why a game could not be loaded.
type InitError struct {
	GameID string
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize game %q: %v", e.GameID, e.Err)
}

func (e *InitError) Unwrap() []error {
	return []error{ErrInitialization, e.Err}
}

// EventKind names a lifecycle transition.
type EventKind string

const (
	EventLoaded   EventKind = "loaded"
	EventUnloaded EventKind = "unloaded"
	EventFailed   EventKind = "failed"
	EventNotFound EventKind = "not_found"
)

// Event describes one lifecycle transition of the manager.
type Event struct {
	InstanceID string    `json:"instanceId,omitempty"`
	GameID     string    `json:"gameId"`
	Kind       EventKind `json:"kind"`
	Detail     string    `json:"detail,omitempty"`
}
