// Package updown implements a higher-or-lower card game played through a
// single shuffled deck.
package updown

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
	ScoreID       = "updown-score-value"
	CardsLeftID   = "updown-cards-left"
	CurrentCardID = "current-card-container"
	NextCardID    = "next-card-container"
	MessageID     = "updown-message"
	HigherButton  = "guess-higher"
	LowerButton   = "guess-lower"
	NewGameButton = "new-game"
)

// DefaultDelay is how long a revealed card stays before play continues.
const DefaultDelay = 1500 * time.Millisecond

const prompt = "Will the next card be higher or lower?"

// Guess is a player's call on the next card.
type Guess string

const (
	Higher Guess = "higher"
	Lower  Guess = "lower"
)

// Card is one playing card.
type Card struct {
	Suit  string `json:"suit"`
	Rank  string `json:"rank"`
	Value int    `json:"value"`
}

var (
	suits = []string{"hearts", "diamonds", "clubs", "spades"}
	ranks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

	suitSymbols = map[string]string{
		"hearts": "♥", "diamonds": "♦", "clubs": "♣", "spades": "♠",
	}
)

// String returns a label like "Q♠".
func (c Card) String() string {
	return c.Rank + suitSymbols[c.Suit]
}

// rankValue maps a rank to its comparison value. Aces are high.
func rankValue(rank string) int {
	switch rank {
	case "J":
		return 11
	case "Q":
		return 12
	case "K":
		return 13
	case "A":
		return 14
	}
	v, _ := strconv.Atoi(rank)
	return v
}

// NewDeck returns the 52 cards in suit-major order.
func NewDeck() []Card {
	deck := make([]Card, 0, len(suits)*len(ranks))
	for _, s := range suits {
		for _, r := range ranks {
			deck = append(deck, Card{Suit: s, Rank: r, Value: rankValue(r)})
		}
	}
	return deck
}

// Config tunes an up/down game.
type Config struct {
	RevealDelay time.Duration
	// Rand shuffles the deck; a time-seeded source is used when nil.
	Rand   *rand.Rand
	Logger *slog.Logger
}

// Game is one up/down session.
type Game struct {
	container *surface.Surface
	cfg       Config

	deck      []Card
	current   Card
	score     int
	revealing bool
	over      bool
	pending   eventloop.Timer
}

var _ game.Game = (*Game)(nil)

// Factory returns a game.Factory producing up/down games with cfg.
func Factory(cfg Config) game.Factory {
	if cfg.RevealDelay <= 0 {
		cfg.RevealDelay = DefaultDelay
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
		{ID: ScoreID, Kind: surface.KindText, Text: "0"},
		{ID: CardsLeftID, Kind: surface.KindText, Text: "51"},
		{ID: CurrentCardID, Kind: surface.KindGroup, Class: "updown-card-container"},
		{ID: NextCardID, Kind: surface.KindGroup, Class: "updown-card-container"},
		{ID: MessageID, Kind: surface.KindText, Class: "updown-message"},
		{ID: HigherButton, Kind: surface.KindButton, Class: "updown-button", Text: "UP"},
		{ID: LowerButton, Kind: surface.KindButton, Class: "updown-button", Text: "DOWN"},
		{ID: NewGameButton, Kind: surface.KindButton, Class: "updown-button new-game", Text: "New Game", Hidden: true},
	}
	for _, el := range elements {
		if err := g.container.Append(el); err != nil {
			return fmt.Errorf("mount %s: %w", el.ID, err)
		}
	}
	g.NewGame()

	g.container.On(HigherButton, func(json.RawMessage) error { g.Guess(Higher); return nil })
	g.container.On(LowerButton, func(json.RawMessage) error { g.Guess(Lower); return nil })
	g.container.On(NewGameButton, func(json.RawMessage) error { g.NewGame(); return nil })
	g.cfg.Logger.Info("up/down initialized")
	return nil
}

// NewGame shuffles a fresh deck and deals the first card.
func (g *Game) NewGame() {
	if g.pending != nil {
		g.pending.Stop()
		g.pending = nil
	}
	g.deck = NewDeck()
	g.cfg.Rand.Shuffle(len(g.deck), func(i, j int) {
		g.deck[i], g.deck[j] = g.deck[j], g.deck[i]
	})
	g.score = 0
	g.over = false
	g.revealing = false
	g.current = g.draw()

	g.setText(ScoreID, "0")
	g.setText(CardsLeftID, strconv.Itoa(len(g.deck)))
	g.setMessage(prompt, "updown-message")
	g.showButtons(true)
	g.showCard(CurrentCardID, &g.current)
	g.showCard(NextCardID, nil)
}

func (g *Game) draw() Card {
	c := g.deck[len(g.deck)-1]
	g.deck = g.deck[:len(g.deck)-1]
	return c
}

// Guess draws the next card and scores the call. Guesses are ignored while
// a card is being revealed or once the deck is exhausted.
func (g *Game) Guess(guess Guess) {
	if g.revealing || g.over || len(g.deck) == 0 {
		return
	}
	g.revealing = true

	next := g.draw()
	g.setText(CardsLeftID, strconv.Itoa(len(g.deck)))
	g.showCard(NextCardID, &next)

	switch {
	case next.Value == g.current.Value:
		g.setMessage("It's a draw! Cards have the same value.", "updown-message draw")
	case guess == Higher && next.Value > g.current.Value,
		guess == Lower && next.Value < g.current.Value:
		g.score++
		g.setText(ScoreID, strconv.Itoa(g.score))
		g.setMessage("Correct!", "updown-message correct")
	default:
		g.setMessage("Wrong!", "updown-message wrong")
	}

	g.pending = g.container.AfterFunc(g.cfg.RevealDelay, func() {
		g.pending = nil
		g.advance(next)
	})
}

// advance makes next the current card and ends the game when the deck is
// empty.
func (g *Game) advance(next Card) {
	g.current = next
	g.showCard(CurrentCardID, &g.current)
	g.showCard(NextCardID, nil)

	if len(g.deck) == 0 {
		g.over = true
		g.setMessage("Game over! Final score: "+strconv.Itoa(g.score), "updown-message")
		g.showButtons(false)
		g.cfg.Logger.Info("up/down finished", "score", g.score)
		return
	}
	g.setMessage(prompt, "updown-message")
	g.revealing = false
}

func (g *Game) setMessage(text, class string) {
	g.update(MessageID, func(e *surface.Element) {
		e.Text = text
		e.Class = class
	})
}

func (g *Game) showButtons(playing bool) {
	g.update(HigherButton, func(e *surface.Element) { e.Hidden = !playing })
	g.update(LowerButton, func(e *surface.Element) { e.Hidden = !playing })
	g.update(NewGameButton, func(e *surface.Element) { e.Hidden = playing })
}

func (g *Game) showCard(id string, c *Card) {
	g.update(id, func(e *surface.Element) {
		if c == nil {
			e.Text, e.Data = "", nil
			return
		}
		e.Text = c.String()
		e.Data = *c
	})
}

// Score returns the current score.
func (g *Game) Score() int { return g.score }

// CardsLeft returns how many cards remain in the deck.
func (g *Game) CardsLeft() int { return len(g.deck) }

// Current returns the face-up card.
func (g *Game) Current() Card { return g.current }

// Over reports whether the deck has been played out.
func (g *Game) Over() bool { return g.over }

func (g *Game) Destroy() {
	if g.pending != nil {
		g.pending.Stop()
		g.pending = nil
	}
	for _, action := range []string{HigherButton, LowerButton, NewGameButton} {
		g.container.Off(action)
	}
	g.cfg.Logger.Info("up/down destroyed")
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
