package tictactoe

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"gameshub/internal/eventloop/eventlooptest"
	"gameshub/internal/surface"
)

const testDelay = 10 * time.Millisecond

func newTestGame(t *testing.T) (*Game, *surface.Surface, *eventlooptest.Scheduler) {
	t.Helper()
	sched := &eventlooptest.Scheduler{}
	s := surface.New(sched)
	g, err := Factory(Config{
		ReplyDelay: testDelay,
		Rand:       rand.New(rand.NewPCG(3, 0)),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})(s)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if err := g.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	return g.(*Game), s, sched
}

func TestPlace(t *testing.T) {
	var b Board
	if err := b.Place(4, X); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b[4] != X {
		t.Fatalf("expected X at cell 4, got %v", b[4])
	}
	if err := b.Place(4, O); err == nil {
		t.Fatal("expected error for occupied cell")
	}
	if err := b.Place(9, O); err == nil {
		t.Fatal("expected error for out of range cell")
	}
}

func TestWins(t *testing.T) {
	for _, line := range winLines {
		var b Board
		for _, c := range line {
			b[c] = O
		}
		if !b.Wins(O) {
			t.Fatalf("expected %v to win", line)
		}
		if b.Wins(X) {
			t.Fatalf("X must not win on %v", line)
		}
	}
}

func TestFull(t *testing.T) {
	b := Board{X, O, X, X, O, O, O, X, X}
	if !b.Full() {
		t.Fatal("expected full board")
	}
	if b.Wins(X) || b.Wins(O) {
		t.Fatal("expected a drawn board")
	}
}

func TestBestMove(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 0))

	// Completes its own line before blocking.
	b := Board{O, O, Empty, X, X, Empty, Empty, Empty, Empty}
	if got := b.BestMove(O, r); got != 2 {
		t.Fatalf("expected winning move 2, got %d", got)
	}
	// Blocks.
	b = Board{X, X, Empty, Empty, O, Empty, Empty, Empty, Empty}
	if got := b.BestMove(O, r); got != 2 {
		t.Fatalf("expected block at 2, got %d", got)
	}
	// Centre.
	b = Board{X}
	if got := b.BestMove(O, r); got != 4 {
		t.Fatalf("expected centre, got %d", got)
	}
	// A corner when the centre is gone.
	b = Board{Empty, Empty, Empty, Empty, X}
	switch got := b.BestMove(O, r); got {
	case 0, 2, 6, 8:
	default:
		t.Fatalf("expected a corner, got %d", got)
	}
	b = Board{X, O, X, X, O, O, O, X, X}
	if got := b.BestMove(O, r); got != -1 {
		t.Fatalf("expected -1 on a full board, got %d", got)
	}
}

func TestPlayAndReply(t *testing.T) {
	g, s, sched := newTestGame(t)

	if err := s.Dispatch(CellID(0), nil); err != nil {
		t.Fatalf("play: %v", err)
	}
	if el, _ := s.Get(CellID(0)); el.Text != "X" {
		t.Fatalf("expected X shown, got %q", el.Text)
	}
	if el, _ := s.Get(StatusID); el.Text != "Thinking..." {
		t.Fatalf("expected thinking status, got %q", el.Text)
	}

	// Moves while the computer is thinking are ignored.
	s.Dispatch(CellID(1), nil)
	if g.Board()[1] != Empty {
		t.Fatal("move during reply must be ignored")
	}

	sched.Advance(testDelay)
	if g.Board()[4] != O {
		t.Fatalf("expected computer to take the centre, got %v", g.Board())
	}
	if el, _ := s.Get(CellID(4)); el.Text != "O" {
		t.Fatalf("expected O shown, got %q", el.Text)
	}
	if el, _ := s.Get(StatusID); el.Text != "Your move" {
		t.Fatalf("expected your move, got %q", el.Text)
	}

	if err := s.Dispatch(CellID(0), nil); err == nil {
		t.Fatal("expected error for an occupied cell")
	}
}

func TestComputerWins(t *testing.T) {
	g, s, sched := newTestGame(t)
	// X: 0, 1 ... O must block at 2; then X: 3, O wins on the diagonal 2-4-6.
	for _, cell := range []int{0, 1, 3} {
		if err := g.Play(cell); err != nil {
			t.Fatalf("play %d: %v", cell, err)
		}
		sched.Advance(testDelay)
	}
	if g.Outcome() != Lose {
		t.Fatalf("expected the computer to win, got %q (%v)", g.Outcome(), g.Board())
	}
	if el, _ := s.Get(NewGameButton); el.Hidden {
		t.Fatal("expected new game button shown")
	}
	if el, _ := s.Get(StatusID); el.Text != "Computer wins! (0-1)" {
		t.Fatalf("unexpected status %q", el.Text)
	}

	g.Play(5)
	if g.Board()[5] != Empty {
		t.Fatal("moves after the game ends must be ignored")
	}

	if err := s.Dispatch(NewGameButton, nil); err != nil {
		t.Fatalf("new game: %v", err)
	}
	if g.Board() != (Board{}) || g.Outcome() != Playing {
		t.Fatal("expected a cleared board")
	}
	if el, _ := s.Get(CellID(0)); el.Text != "" {
		t.Fatalf("expected cleared cell, got %q", el.Text)
	}
}

func TestDestroyCancelsReply(t *testing.T) {
	g, s, sched := newTestGame(t)
	g.Play(0)
	g.Destroy()

	sched.Advance(time.Second)
	if g.Board()[4] != Empty {
		t.Fatal("reply ran after destroy")
	}
	if err := s.Dispatch(CellID(1), nil); err == nil {
		t.Fatal("expected handlers detached")
	}
}
