// Package coinflip implements a heads-or-tails guessing game.
package coinflip

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"gameshub/internal/eventloop"
	"gameshub/internal/game"
	"gameshub/internal/surface"
)

// Element and action names.
const (
	ScoreID      = "score-value"
	StreakID     = "streak"
	CoinID       = "coin"
	ResultID     = "result-message"
	HeadsButton  = "guess-heads"
	TailsButton  = "guess-tails"
	DefaultDelay = 1500 * time.Millisecond
)

// Side is a face of the coin.
type Side string

const (
	Heads Side = "heads"
	Tails Side = "tails"
)

// Config tunes a coin flip game.
type Config struct {
	// FlipDelay is how long the coin spins before the result is shown.
	FlipDelay time.Duration
	// Rand picks results; a time-seeded source is used when nil.
	Rand   *rand.Rand
	Logger *slog.Logger
}

// Game is one coin flip session.
type Game struct {
	container *surface.Surface
	cfg       Config

	score    int
	streak   int
	last     Side
	flipping bool
	pending  eventloop.Timer
}

var _ game.Game = (*Game)(nil)

// Factory returns a game.Factory producing coin flip games with cfg.
func Factory(cfg Config) game.Factory {
	if cfg.FlipDelay <= 0 {
		cfg.FlipDelay = DefaultDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return func(c *surface.Surface) (game.Game, error) {
		g := &Game{container: c, cfg: cfg}
		if g.cfg.Rand == nil {
			g.cfg.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
		}
		return g, nil
	}
}

func (g *Game) Init() error {
	elements := []surface.Element{
		{ID: ScoreID, Kind: surface.KindText, Class: "score-value", Text: "0"},
		{ID: StreakID, Kind: surface.KindText, Class: "streak"},
		{ID: CoinID, Kind: surface.KindGroup, Class: "coin"},
		{ID: ResultID, Kind: surface.KindText, Class: "result-message"},
		{ID: HeadsButton, Kind: surface.KindButton, Class: "guess-button", Text: "Heads"},
		{ID: TailsButton, Kind: surface.KindButton, Class: "guess-button", Text: "Tails"},
	}
	for _, el := range elements {
		if err := g.container.Append(el); err != nil {
			return fmt.Errorf("mount %s: %w", el.ID, err)
		}
	}
	g.container.On(HeadsButton, func(json.RawMessage) error { g.Guess(Heads); return nil })
	g.container.On(TailsButton, func(json.RawMessage) error { g.Guess(Tails); return nil })
	g.cfg.Logger.Info("coin flip initialized")
	return nil
}

// Guess flips the coin. Guesses made while the coin is in the air are
// ignored.
func (g *Game) Guess(guess Side) {
	if g.flipping {
		return
	}
	g.flipping = true
	g.update(ResultID, func(e *surface.Element) { e.Text = "" })

	result := Heads
	if g.cfg.Rand.Float64() >= 0.5 {
		result = Tails
	}
	g.update(CoinID, func(e *surface.Element) { e.Class = "coin flipping" })

	g.pending = g.container.AfterFunc(g.cfg.FlipDelay, func() {
		g.pending = nil
		g.reveal(guess, result)
	})
}

func (g *Game) reveal(guess, result Side) {
	g.update(CoinID, func(e *surface.Element) { e.Class = "coin " + string(result) + "-result" })

	if guess == result {
		g.score++
		g.streak++
		g.update(ResultID, func(e *surface.Element) {
			e.Text = "Correct!"
			e.Class = "result-message correct"
		})
	} else {
		g.streak = 0
		g.update(ResultID, func(e *surface.Element) {
			e.Text = "Wrong!"
			e.Class = "result-message wrong"
		})
	}
	g.setText(ScoreID, strconv.Itoa(g.score))

	streak := ""
	if g.streak > 1 {
		streak = "Streak: " + strconv.Itoa(g.streak)
	}
	g.setText(StreakID, streak)

	g.last = result
	g.flipping = false
}

// Score returns the current score and streak.
func (g *Game) Score() (score, streak int) {
	return g.score, g.streak
}

// LastResult returns the most recent revealed side, if any.
func (g *Game) LastResult() Side {
	return g.last
}

func (g *Game) Destroy() {
	if g.pending != nil {
		g.pending.Stop()
		g.pending = nil
	}
	g.container.Off(HeadsButton)
	g.container.Off(TailsButton)
	g.flipping = false
	g.cfg.Logger.Info("coin flip destroyed")
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
