package plinko

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"gameshub/internal/eventloop"
	"gameshub/internal/game"
	"gameshub/internal/surface"
)

// Element and action names mounted by the game.
const (
	BoardID       = "plinko-board"
	DropButtonID  = "drop-disc"
	ResetButtonID = "reset-game"
	LastLandingID = "plinko-last-landing"
	TotalID       = "plinko-total"
	ActionMove    = "move"
)

// DefaultFrameInterval is how often the board is stepped.
const DefaultFrameInterval = 16 * time.Millisecond

// Config tunes a Plinko game.
type Config struct {
	Width, Height float64
	FrameInterval time.Duration
	Logger        *slog.Logger
}

// Game mounts a Simulation on a surface and drives it with a frame timer.
type Game struct {
	container *surface.Surface
	cfg       Config
	sim       *Simulation
	frames    eventloop.Timer
	total     int
	dirty     bool
}

var _ game.Game = (*Game)(nil)

// Factory returns a game.Factory producing Plinko games with cfg.
func Factory(cfg Config) game.Factory {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = DefaultWidth, DefaultHeight
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return func(c *surface.Surface) (game.Game, error) {
		return &Game{container: c, cfg: cfg}, nil
	}
}

// Simulation exposes the board being driven.
func (g *Game) Simulation() *Simulation {
	return g.sim
}

// Init builds the board, mounts its elements and starts the frame timer.
func (g *Game) Init() error {
	g.sim = NewSimulation(g.cfg.Width, g.cfg.Height)

	elements := []surface.Element{
		{ID: BoardID, Kind: surface.KindCanvas, Class: "game-canvas plinko-board", Data: g.sim.Snapshot()},
		{ID: DropButtonID, Kind: surface.KindButton, Text: "Drop Disc"},
		{ID: ResetButtonID, Kind: surface.KindButton, Text: "Reset Game"},
		{ID: LastLandingID, Kind: surface.KindText},
		{ID: TotalID, Kind: surface.KindText, Text: "Total: 0"},
	}
	for _, el := range elements {
		if err := g.container.Append(el); err != nil {
			return fmt.Errorf("mount %s: %w", el.ID, err)
		}
	}

	g.container.On(DropButtonID, g.handleDrop)
	g.container.On(BoardID, g.handleDrop)
	g.container.On(ResetButtonID, g.handleReset)
	g.container.On(ActionMove, g.handleMove)

	g.frames = g.container.Every(g.cfg.FrameInterval, g.frame)
	g.cfg.Logger.Info("plinko initialized", "pegs", len(g.sim.pegs), "slots", len(g.sim.slots))
	return nil
}

// Destroy stops the frame timer and detaches the game's handlers.
func (g *Game) Destroy() {
	if g.frames != nil {
		g.frames.Stop()
		g.frames = nil
	}
	for _, action := range []string{DropButtonID, BoardID, ResetButtonID, ActionMove} {
		g.container.Off(action)
	}
	if g.sim != nil {
		g.sim.Reset()
	}
	g.cfg.Logger.Info("plinko destroyed")
}

type movePayload struct {
	X float64 `json:"x"`
}

func (g *Game) handleDrop(json.RawMessage) error {
	g.sim.Drop()
	g.dirty = true
	return nil
}

func (g *Game) handleReset(json.RawMessage) error {
	g.sim.Reset()
	g.total = 0
	g.setText(TotalID, "Total: 0")
	g.setText(LastLandingID, "")
	g.dirty = true
	return nil
}

func (g *Game) handleMove(payload json.RawMessage) error {
	var mv movePayload
	if err := json.Unmarshal(payload, &mv); err != nil {
		return fmt.Errorf("invalid move payload: %w", err)
	}
	g.sim.SetDropX(mv.X)
	g.dirty = true
	return nil
}

// frame steps the board by the elapsed wall time and republishes it when
// anything moved.
func (g *Game) frame(elapsed time.Duration) {
	live := g.sim.Discs() > 0
	landings := g.sim.Step(float64(elapsed) / float64(FrameUnit))
	for _, l := range landings {
		g.total += l.Points
		g.cfg.Logger.Debug("disc landed", "disc", l.DiscID, "slot", l.Slot, "points", l.Points)
		g.setText(LastLandingID, "Disc landed in slot with "+strconv.Itoa(l.Points)+" points!")
	}
	if len(landings) > 0 {
		g.setText(TotalID, "Total: "+strconv.Itoa(g.total))
	}
	if !live && !g.dirty {
		return
	}
	g.dirty = false
	snap := g.sim.Snapshot()
	g.update(BoardID, func(e *surface.Element) { e.Data = snap })
}

// update applies fn to element id. The surface only rejects unknown ids,
// which means the game's own layout is out of step; log and carry on.
func (g *Game) update(id string, fn func(*surface.Element)) {
	if err := g.container.Update(id, fn); err != nil {
		g.cfg.Logger.Debug("update element", "id", id, "err", err)
	}
}

func (g *Game) setText(id, text string) {
	g.update(id, func(e *surface.Element) { e.Text = text })
}
