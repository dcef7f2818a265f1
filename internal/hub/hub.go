// Package hub is the goroutine-safe entry point to the game manager.
//
// The manager, the surface and the mounted game all live on one event loop.
// Hub methods marshal every call onto that loop, so HTTP handlers and
// websocket readers can use it freely.
package hub

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gameshub/internal/eventloop"
	"gameshub/internal/game"
	"gameshub/internal/storage"
	"gameshub/internal/surface"
)

// LastGameKey is the preference holding the last successfully loaded game.
const LastGameKey = "last_game"

// Catalog lists the registered games and the active one.
type Catalog struct {
	Games  []string `json:"games"`
	Active string   `json:"active,omitempty"`
}

// Hub owns the loop-bound manager and persists its lifecycle.
type Hub struct {
	loop    *eventloop.Loop
	surface *surface.Surface
	games   *game.Manager
	store   *storage.Store
	log     *slog.Logger
}

// New creates a hub whose games run on loop. The loop must be running
// before any other method is called.
func New(loop *eventloop.Loop, store *storage.Store, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	h := &Hub{
		loop:    loop,
		surface: surface.New(loop),
		store:   store,
		log:     log,
	}
	h.games = game.NewManager(h.surface,
		game.WithLogger(log),
		game.WithObserver(h.record),
	)
	return h
}

// record runs on the loop for every lifecycle event.
func (h *Hub) record(e game.Event) {
	ctx := context.Background()
	row := storage.EventRow{
		InstanceID: e.InstanceID,
		GameID:     e.GameID,
		Kind:       string(e.Kind),
		Detail:     e.Detail,
	}
	if err := h.store.RecordEvent(ctx, row); err != nil {
		h.log.Warn("record lifecycle event", "game", e.GameID, "kind", e.Kind, "err", err)
	}
	if e.Kind == game.EventLoaded {
		if err := h.store.SetPreference(ctx, LastGameKey, e.GameID); err != nil {
			h.log.Warn("save last game", "game", e.GameID, "err", err)
		}
	}
}

// Register adds a game factory under id.
func (h *Hub) Register(ctx context.Context, id string, f game.Factory) error {
	return h.loop.Do(ctx, func() { h.games.Register(id, f) })
}

// Games returns the registered ids in registration order and the active id.
func (h *Hub) Games(ctx context.Context) (Catalog, error) {
	var c Catalog
	err := h.loop.Do(ctx, func() {
		c.Games = h.games.ListAvailable()
		c.Active, _ = h.games.Active()
	})
	return c, err
}

// Load switches to the game registered under id. The error wraps
// game.ErrNotFound or game.ErrInitialization on failure.
func (h *Hub) Load(ctx context.Context, id string) error {
	var loadErr error
	if err := h.loop.Do(ctx, func() { loadErr = h.games.TryLoad(id) }); err != nil {
		return err
	}
	return loadErr
}

// Unload tears down the active game, if any.
func (h *Hub) Unload(ctx context.Context) error {
	return h.loop.Do(ctx, h.games.UnloadCurrent)
}

// Dispatch delivers a client action to whatever handler the mounted game
// attached for it. It returns surface.ErrNoHandler when none did.
func (h *Hub) Dispatch(ctx context.Context, action string, payload json.RawMessage) error {
	var dispatchErr error
	if err := h.loop.Do(ctx, func() { dispatchErr = h.surface.Dispatch(action, payload) }); err != nil {
		return err
	}
	return dispatchErr
}

// View returns a snapshot of the surface.
func (h *Hub) View(ctx context.Context) (surface.View, error) {
	var v surface.View
	err := h.loop.Do(ctx, func() { v = h.surface.View() })
	return v, err
}

// Subscribe calls fn with the current view and then after every change.
// fn runs on the loop goroutine and must not block. The returned function
// cancels the subscription.
func (h *Hub) Subscribe(ctx context.Context, fn func(surface.View)) (func(), error) {
	var unsubscribe func()
	err := h.loop.Do(ctx, func() {
		unsubscribe = h.surface.Subscribe(fn)
		fn(h.surface.View())
	})
	if err != nil {
		return nil, err
	}
	return func() { h.loop.Post(unsubscribe) }, nil
}

// History returns recent lifecycle events, newest first.
func (h *Hub) History(ctx context.Context, limit int) ([]storage.EventRow, error) {
	return h.store.ListEvents(ctx, limit)
}

// Restore loads the last game played, falling back to fallback when there
// is none or it can no longer be loaded.
func (h *Hub) Restore(ctx context.Context, fallback string) error {
	last, err := h.store.GetPreference(ctx, LastGameKey)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		last = ""
	case err != nil:
		h.log.Warn("read last game", "err", err)
		last = ""
	}

	if last != "" {
		err := h.Load(ctx, last)
		if err == nil {
			return nil
		}
		if last == fallback {
			return fmt.Errorf("restore %s: %w", last, err)
		}
		h.log.Warn("restore last game, using fallback", "game", last, "fallback", fallback, "err", err)
	}
	if fallback == "" {
		return nil
	}
	if err := h.Load(ctx, fallback); err != nil {
		return fmt.Errorf("load %s: %w", fallback, err)
	}
	return nil
}

// CleanupLoop prunes lifecycle history older than maxAge every interval
// until ctx is cancelled.
func (h *Hub) CleanupLoop(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.cleanup(ctx, maxAge)
		}
	}
}

func (h *Hub) cleanup(ctx context.Context, maxAge time.Duration) {
	n, err := h.store.PruneEvents(ctx, time.Now().Add(-maxAge))
	if err != nil {
		h.log.Warn("prune history", "err", err)
		return
	}
	if n > 0 {
		h.log.Info("pruned history", "events", n)
	}
}
