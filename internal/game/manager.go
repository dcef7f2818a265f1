package game

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"gameshub/internal/surface"
)

// Manager holds the registered games and the one game currently mounted on
// the shared container. It is not safe for concurrent use: callers serialize
// access (the hub runs it on its event loop).
type Manager struct {
	container *surface.Surface
	factories map[string]Factory
	order     []string

	active     Game
	activeID   string
	instanceID string

	log     *slog.Logger
	observe func(Event)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithObserver registers fn to receive every lifecycle event.
func WithObserver(fn func(Event)) Option {
	return func(m *Manager) { m.observe = fn }
}

// NewManager creates a manager that mounts games on container.
func NewManager(container *surface.Surface, opts ...Option) *Manager {
	m := &Manager{
		container: container,
		factories: make(map[string]Factory),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register stores f under id. Registering an id again replaces its factory
// and keeps its first position in ListAvailable.
func (m *Manager) Register(id string, f Factory) {
	if _, exists := m.factories[id]; !exists {
		m.order = append(m.order, id)
	}
	m.factories[id] = f
	m.log.Debug("game registered", "game", id)
}

// ListAvailable returns the registered ids in registration order.
func (m *Manager) ListAvailable() []string {
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	return ids
}

// Active returns the id of the mounted game.
func (m *Manager) Active() (string, bool) {
	if m.active == nil {
		return "", false
	}
	return m.activeID, true
}

// Load mounts the game registered under id and reports whether it is now
// active. Failures are logged; see TryLoad for the error.
func (m *Manager) Load(id string) bool {
	return m.TryLoad(id) == nil
}

// TryLoad mounts the game registered under id. An unknown id returns
// ErrNotFound and leaves the current game mounted. Otherwise the current game
// is torn down first; if the new game cannot be built the manager is left
// with no active game and an *InitError is returned.
func (m *Manager) TryLoad(id string) error {
	f, ok := m.factories[id]
	if !ok {
		m.log.Error("game not found", "game", id)
		m.emit(Event{GameID: id, Kind: EventNotFound})
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	m.UnloadCurrent()

	instanceID := uuid.NewString()
	g, err := m.mount(f)
	if err != nil {
		m.container.Clear()
		ierr := &InitError{GameID: id, Err: err}
		m.log.Error("load game", "game", id, "instance", instanceID, "err", err)
		m.emit(Event{InstanceID: instanceID, GameID: id, Kind: EventFailed, Detail: err.Error()})
		return ierr
	}

	m.active = g
	m.activeID = id
	m.instanceID = instanceID
	m.log.Info("game loaded", "game", id, "instance", instanceID)
	m.emit(Event{InstanceID: instanceID, GameID: id, Kind: EventLoaded})
	return nil
}

// mount constructs and initializes a game. A game that fails Init is
// destroyed before mount returns.
func (m *Manager) mount(f Factory) (g Game, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil && g != nil {
			destroyQuietly(g)
			g = nil
		}
	}()

	g, err = f(m.container)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, errors.New("factory returned nil game")
	}
	if err := g.Init(); err != nil {
		return g, err
	}
	return g, nil
}

func destroyQuietly(g Game) {
	defer func() { recover() }()
	g.Destroy()
}

// UnloadCurrent tears down the mounted game and clears the container.
// It does nothing when no game is active.
func (m *Manager) UnloadCurrent() {
	if m.active == nil {
		return
	}
	g, id, instanceID := m.active, m.activeID, m.instanceID
	m.active, m.activeID, m.instanceID = nil, "", ""

	g.Destroy()
	m.container.Clear()
	m.log.Info("game unloaded", "game", id, "instance", instanceID)
	m.emit(Event{InstanceID: instanceID, GameID: id, Kind: EventUnloaded})
}

func (m *Manager) emit(e Event) {
	if m.observe != nil {
		m.observe(e)
	}
}
