// Package tictactoe implements noughts and crosses against the computer.
package tictactoe

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
	StatusID      = "ttt-status"
	BoardID       = "ttt-board"
	NewGameButton = "ttt-new-game"
	DefaultDelay  = 400 * time.Millisecond
)

// CellID returns the element (and action) id of cell i.
func CellID(i int) string { return "ttt-cell-" + strconv.Itoa(i) }

// Mark is the content of a cell.
type Mark int

const (
	Empty Mark = iota
	X          // the player
	O          // the computer
)

func (m Mark) String() string {
	switch m {
	case X:
		return "X"
	case O:
		return "O"
	}
	return ""
}

// Board is the 3x3 grid, row major.
type Board [9]Mark

var winLines = [][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // cols
	{0, 4, 8}, {2, 4, 6}, // diags
}

// Wins reports whether mark holds a complete line.
func (b *Board) Wins(mark Mark) bool {
	for _, line := range winLines {
		if b[line[0]] == mark && b[line[1]] == mark && b[line[2]] == mark {
			return true
		}
	}
	return false
}

// Full reports whether no cell is empty.
func (b *Board) Full() bool {
	for _, v := range b {
		if v == Empty {
			return false
		}
	}
	return true
}

// Place puts mark on cell.
func (b *Board) Place(cell int, mark Mark) error {
	if cell < 0 || cell > 8 {
		return fmt.Errorf("cell %d out of range", cell)
	}
	if b[cell] != Empty {
		return fmt.Errorf("cell %d already occupied", cell)
	}
	b[cell] = mark
	return nil
}

// BestMove picks the computer's reply: win if possible, otherwise block,
// otherwise take the centre, otherwise a random free corner or edge.
// It returns -1 on a full board.
func (b *Board) BestMove(me Mark, r *rand.Rand) int {
	them := X
	if me == X {
		them = O
	}
	for _, mark := range []Mark{me, them} {
		for i := range b {
			if b[i] != Empty {
				continue
			}
			b[i] = mark
			won := b.Wins(mark)
			b[i] = Empty
			if won {
				return i
			}
		}
	}
	if b[4] == Empty {
		return 4
	}
	for _, group := range [][]int{{0, 2, 6, 8}, {1, 3, 5, 7}} {
		var free []int
		for _, i := range group {
			if b[i] == Empty {
				free = append(free, i)
			}
		}
		if len(free) > 0 {
			return free[r.IntN(len(free))]
		}
	}
	return -1
}

// Outcome is the result of a finished game.
type Outcome string

const (
	Playing Outcome = ""
	Win     Outcome = "win"
	Lose    Outcome = "lose"
	Draw    Outcome = "draw"
)

// Config tunes a tic-tac-toe game.
type Config struct {
	// ReplyDelay is how long the computer "thinks" before answering.
	ReplyDelay time.Duration
	Rand       *rand.Rand
	Logger     *slog.Logger
}

// Game is one player-versus-computer session.
type Game struct {
	container *surface.Surface
	cfg       Config

	board    Board
	outcome  Outcome
	thinking bool
	pending  eventloop.Timer
	wins     int
	losses   int
}

var _ game.Game = (*Game)(nil)

// Factory returns a game.Factory producing tic-tac-toe games with cfg.
func Factory(cfg Config) game.Factory {
	if cfg.ReplyDelay <= 0 {
		cfg.ReplyDelay = DefaultDelay
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
		{ID: StatusID, Kind: surface.KindText, Class: "ttt-status", Text: "Your move"},
		{ID: BoardID, Kind: surface.KindGroup, Class: "ttt-board"},
	}
	for i := range g.board {
		elements = append(elements, surface.Element{ID: CellID(i), Kind: surface.KindButton, Class: "ttt-cell"})
	}
	elements = append(elements, surface.Element{ID: NewGameButton, Kind: surface.KindButton, Text: "New Game", Hidden: true})
	for _, el := range elements {
		if err := g.container.Append(el); err != nil {
			return fmt.Errorf("mount %s: %w", el.ID, err)
		}
	}

	for i := range g.board {
		cell := i
		g.container.On(CellID(i), func(json.RawMessage) error { return g.Play(cell) })
	}
	g.container.On(NewGameButton, func(json.RawMessage) error { g.NewGame(); return nil })
	g.cfg.Logger.Info("tictactoe initialized")
	return nil
}

// Play places the player's X on cell and schedules the computer's reply.
func (g *Game) Play(cell int) error {
	if g.outcome != Playing || g.thinking {
		return nil
	}
	if err := g.board.Place(cell, X); err != nil {
		return err
	}
	g.showCell(cell)
	if g.settle() {
		return nil
	}
	g.thinking = true
	g.setText(StatusID, "Thinking...")
	g.pending = g.container.AfterFunc(g.cfg.ReplyDelay, g.reply)
	return nil
}

func (g *Game) reply() {
	g.pending = nil
	g.thinking = false
	cell := g.board.BestMove(O, g.cfg.Rand)
	if cell < 0 {
		return
	}
	g.board.Place(cell, O)
	g.showCell(cell)
	if !g.settle() {
		g.setText(StatusID, "Your move")
	}
}

// settle ends the game if the board is decided and reports whether it did.
func (g *Game) settle() bool {
	switch {
	case g.board.Wins(X):
		g.outcome = Win
		g.wins++
	case g.board.Wins(O):
		g.outcome = Lose
		g.losses++
	case g.board.Full():
		g.outcome = Draw
	default:
		return false
	}
	text := map[Outcome]string{Win: "You win!", Lose: "Computer wins!", Draw: "Draw!"}[g.outcome]
	g.update(StatusID, func(e *surface.Element) {
		e.Text = fmt.Sprintf("%s (%d-%d)", text, g.wins, g.losses)
		e.Class = "ttt-status " + string(g.outcome)
	})
	g.update(NewGameButton, func(e *surface.Element) { e.Hidden = false })
	return true
}

// NewGame clears the board. The running score is kept.
func (g *Game) NewGame() {
	if g.pending != nil {
		g.pending.Stop()
		g.pending = nil
	}
	g.board = Board{}
	g.outcome = Playing
	g.thinking = false
	for i := range g.board {
		g.showCell(i)
	}
	g.update(StatusID, func(e *surface.Element) {
		e.Text = "Your move"
		e.Class = "ttt-status"
	})
	g.update(NewGameButton, func(e *surface.Element) { e.Hidden = true })
}

func (g *Game) showCell(i int) {
	g.setText(CellID(i), g.board[i].String())
}

// Board returns a copy of the grid.
func (g *Game) Board() Board { return g.board }

// Outcome returns the result of the current game, Playing while undecided.
func (g *Game) Outcome() Outcome { return g.outcome }

func (g *Game) Destroy() {
	if g.pending != nil {
		g.pending.Stop()
		g.pending = nil
	}
	for i := range g.board {
		g.container.Off(CellID(i))
	}
	g.container.Off(NewGameButton)
	g.cfg.Logger.Info("tictactoe destroyed")
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
