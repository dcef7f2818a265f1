// Package plinko implements the disc-drop board: a stepped physics world of
// falling discs, fixed pegs and scoring slots, and the game that mounts it.
package plinko

import "time"

const (
	DefaultWidth  = 800.0
	DefaultHeight = 600.0

	Gravity    = 0.2
	PegRadius  = 8.0
	DiscRadius = 15.0
	DropY      = 50.0

	PegRows    = 8
	PegSpacing = 60.0
	PegStartY  = 120.0

	SlotCount  = 9
	SlotWidth  = 80.0
	SlotHeight = 60.0

	WallDamping    = 0.7
	PegRestitution = 0.8
	SlotDamping    = 0.9
	SlotCenterPull = 0.1

	// FrameUnit is the elapsed time that counts as one step unit (~60 fps).
	FrameUnit = 16670 * time.Microsecond

	basePegsPerRow = 5
)

// Peg is a fixed circular obstacle.
type Peg struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// Slot is a scoring band along the bottom edge.
type Slot struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Points int     `json:"points"`
}

// Center returns the slot's horizontal midpoint.
func (s Slot) Center() float64 {
	return s.X + s.Width/2
}

// Disc is a falling body.
type Disc struct {
	ID     uint64  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Radius float64 `json:"radius"`
}

// Landing reports a disc that settled into a slot.
type Landing struct {
	DiscID uint64 `json:"discId"`
	Slot   int    `json:"slot"`
	Points int    `json:"points"`
}

// LayoutPegs returns the triangular peg field for a board width. Row r has
// r+5 pegs, centred horizontally, PegSpacing apart.
func LayoutPegs(width float64) []Peg {
	pegs := make([]Peg, 0, PegRows*basePegsPerRow+PegRows*(PegRows-1)/2)
	for row := 0; row < PegRows; row++ {
		n := row + basePegsPerRow
		rowWidth := float64(n-1) * PegSpacing
		startX := (width - rowWidth) / 2
		y := PegStartY + float64(row)*PegSpacing
		for i := 0; i < n; i++ {
			pegs = append(pegs, Peg{X: startX + float64(i)*PegSpacing, Y: y, Radius: PegRadius})
		}
	}
	return pegs
}

// LayoutSlots returns the scoring slots for a board. The outer slots are
// worth 1 point; every other slot is worth its index.
func LayoutSlots(width, height float64) []Slot {
	startX := (width - SlotCount*SlotWidth) / 2
	slots := make([]Slot, SlotCount)
	for i := range slots {
		points := i
		if i == 0 || i == SlotCount-1 {
			points = 1
		}
		slots[i] = Slot{
			X:      startX + float64(i)*SlotWidth,
			Y:      height - SlotHeight,
			Width:  SlotWidth,
			Height: SlotHeight,
			Points: points,
		}
	}
	return slots
}
