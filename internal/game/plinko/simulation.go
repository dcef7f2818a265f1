package plinko

import "math"

// Simulation is the physical state of one board. It is not safe for
// concurrent use.
type Simulation struct {
	width, height float64
	pegs          []Peg
	slots         []Slot
	discs         []Disc
	dropX         float64
	nextID        uint64
}

// Snapshot is a read-only copy of a board for presentation.
type Snapshot struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Pegs   []Peg   `json:"pegs"`
	Slots  []Slot  `json:"slots"`
	Discs  []Disc  `json:"discs"`
	DropX  float64 `json:"dropX"`
	DropY  float64 `json:"dropY"`
}

// NewSimulation creates a board of the given size with the drop position
// in the middle.
func NewSimulation(width, height float64) *Simulation {
	s := &Simulation{}
	s.Setup(width, height)
	s.dropX = width / 2
	return s
}

// Setup lays out pegs and slots for the given dimensions, replacing any
// existing layout. Live discs are kept.
func (s *Simulation) Setup(width, height float64) {
	s.width, s.height = width, height
	s.pegs = LayoutPegs(width)
	s.slots = LayoutSlots(width, height)
	s.SetDropX(s.dropX)
}

// SetDropX moves the spawn position of the next disc, clamped to the board.
func (s *Simulation) SetDropX(x float64) {
	s.dropX = math.Max(DiscRadius, math.Min(x, s.width-DiscRadius))
}

// DropX returns the spawn position of the next disc.
func (s *Simulation) DropX() float64 {
	return s.dropX
}

// Drop spawns a disc at rest at the drop position.
func (s *Simulation) Drop() Disc {
	s.nextID++
	d := Disc{ID: s.nextID, X: s.dropX, Y: DropY, Radius: DiscRadius}
	s.discs = append(s.discs, d)
	return d
}

// Reset removes every live disc.
func (s *Simulation) Reset() {
	s.discs = nil
}

// Discs returns the number of live discs.
func (s *Simulation) Discs() int {
	return len(s.discs)
}

// Step advances every live disc by dt frame units and returns the discs that
// landed. dt is used as given; large values can tunnel through pegs.
func (s *Simulation) Step(dt float64) []Landing {
	var landings []Landing
	kept := s.discs[:0]
	for i := range s.discs {
		d := s.discs[i]
		if l, landed := s.advance(&d, dt); landed {
			landings = append(landings, l)
			continue
		}
		kept = append(kept, d)
	}
	clear(s.discs[len(kept):])
	s.discs = kept
	return landings
}

// advance applies one step to d. It reports a landing when d has left the
// board through a slot.
func (s *Simulation) advance(d *Disc, dt float64) (Landing, bool) {
	d.VY += Gravity * dt
	d.X += d.VX * dt
	d.Y += d.VY * dt

	if d.X-d.Radius < 0 {
		d.X = d.Radius
		d.VX = -d.VX * WallDamping
	} else if d.X+d.Radius > s.width {
		d.X = s.width - d.Radius
		d.VX = -d.VX * WallDamping
	}

	// Pegs are resolved one at a time in layout order; two overlapping pegs
	// both push the disc in the same step.
	for _, p := range s.pegs {
		collidePeg(d, p)
	}

	if d.Y+d.Radius <= s.height-SlotHeight {
		return Landing{}, false
	}
	for i, slot := range s.slots {
		if d.X <= slot.X || d.X >= slot.X+slot.Width {
			continue
		}
		d.VX *= SlotDamping
		d.X += (slot.Center() - d.X) * SlotCenterPull
		if d.Y+d.Radius > s.height {
			return Landing{DiscID: d.ID, Slot: i, Points: slot.Points}, true
		}
	}
	return Landing{}, false
}

// collidePeg pushes d out of p until the circles touch and reflects its
// velocity about the contact normal, keeping PegRestitution of it.
func collidePeg(d *Disc, p Peg) {
	dx := d.X - p.X
	dy := d.Y - p.Y
	dist := math.Hypot(dx, dy)
	minDist := d.Radius + p.Radius
	if dist >= minDist {
		return
	}

	nx, ny := 0.0, -1.0
	if dist > 0 {
		nx, ny = dx/dist, dy/dist
	}
	depth := minDist - dist
	d.X += nx * depth
	d.Y += ny * depth

	dot := d.VX*nx + d.VY*ny
	d.VX = (d.VX - 2*dot*nx) * PegRestitution
	d.VY = (d.VY - 2*dot*ny) * PegRestitution
}

// Snapshot returns a copy of the board state.
func (s *Simulation) Snapshot() Snapshot {
	return Snapshot{
		Width:  s.width,
		Height: s.height,
		Pegs:   append([]Peg(nil), s.pegs...),
		Slots:  append([]Slot(nil), s.slots...),
		Discs:  append([]Disc{}, s.discs...),
		DropX:  s.dropX,
		DropY:  DropY,
	}
}
