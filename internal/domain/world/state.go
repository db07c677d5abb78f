package world

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidState    = errors.New("invalid world state")
	ErrOutOfBounds     = errors.New("position out of bounds")
	ErrInvalidGridSize = errors.New("invalid grid size")
)

type Item struct {
	Type     string `json:"type" yaml:"type"`
	Position Point  `json:"position" yaml:"position"`
}

// State is the authoritative snapshot of one world.
type State struct {
	Width         int        `json:"width"`
	Height        int        `json:"height"`
	Grid          [][]string `json:"grid"`
	AgentPosition Point      `json:"agent_position"`
	Inventory     []string   `json:"inventory"`
	Items         []Item     `json:"items"`
	Turn          int        `json:"turn"`
}

// NewState returns a width x height grid of floor tiles with the agent at origin.
func NewState(width, height int) (State, error) {
	if width <= 0 || height <= 0 {
		return State{}, ErrInvalidGridSize
	}
	grid := make([][]string, height)
	for y := range grid {
		row := make([]string, width)
		for x := range row {
			row[x] = TileFloor
		}
		grid[y] = row
	}
	return State{
		Width:     width,
		Height:    height,
		Grid:      grid,
		Inventory: []string{},
		Items:     []Item{},
	}, nil
}

func (s State) InBounds(p Point) bool {
	return p.X >= 0 && p.X < s.Width && p.Y >= 0 && p.Y < s.Height
}

// TileAt returns the symbol at p. Cells outside the grid read as walls.
func (s State) TileAt(p Point) string {
	if !s.InBounds(p) || p.Y >= len(s.Grid) || p.X >= len(s.Grid[p.Y]) {
		return TileWall
	}
	return s.Grid[p.Y][p.X]
}

func (s State) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return ErrInvalidGridSize
	}
	if len(s.Grid) != s.Height {
		return fmt.Errorf("%w: grid has %d rows, want %d", ErrInvalidState, len(s.Grid), s.Height)
	}
	for y, row := range s.Grid {
		if len(row) != s.Width {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidState, y, len(row), s.Width)
		}
	}
	if !s.InBounds(s.AgentPosition) {
		return fmt.Errorf("%w: agent at %s", ErrOutOfBounds, s.AgentPosition)
	}
	for _, it := range s.Items {
		if !s.InBounds(it.Position) {
			return fmt.Errorf("%w: item %q at %s", ErrOutOfBounds, it.Type, it.Position)
		}
	}
	return nil
}

func (s State) Clone() State {
	out := s
	if s.Grid != nil {
		out.Grid = make([][]string, len(s.Grid))
		for i, row := range s.Grid {
			out.Grid[i] = append([]string(nil), row...)
		}
	}
	if s.Inventory != nil {
		out.Inventory = append([]string{}, s.Inventory...)
	}
	if s.Items != nil {
		out.Items = append([]Item{}, s.Items...)
	}
	return out
}

// ItemsAt lists items lying on p, in world order.
func (s State) ItemsAt(p Point) []Item {
	var out []Item
	for _, it := range s.Items {
		if it.Position == p {
			out = append(out, it)
		}
	}
	return out
}

// Apply merges d into a copy of s. A delta that would move the agent off the
// grid is refused and s is returned unchanged.
func (s State) Apply(d Delta) (State, error) {
	next := s.Clone()
	if d.AgentPosition != nil {
		if !s.InBounds(*d.AgentPosition) {
			return s, fmt.Errorf("%w: %s", ErrOutOfBounds, *d.AgentPosition)
		}
		next.AgentPosition = *d.AgentPosition
	}
	if d.Inventory != nil {
		next.Inventory = append([]string{}, d.Inventory...)
	}
	if d.Items != nil {
		next.Items = append([]Item{}, d.Items...)
	}
	if d.Turn != nil {
		next.Turn = *d.Turn
	}
	return next, nil
}

// Describe renders a short text description of the world for prompts.
func (s State) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Grid %dx%d (x grows east, y grows south). Agent at %s. Turn %d.\n", s.Width, s.Height, s.AgentPosition, s.Turn)
	if len(s.Inventory) > 0 {
		fmt.Fprintf(&b, "Inventory: %s.\n", strings.Join(s.Inventory, ", "))
	} else {
		b.WriteString("Inventory: empty.\n")
	}
	if len(s.Items) > 0 {
		parts := make([]string, 0, len(s.Items))
		for _, it := range s.Items {
			parts = append(parts, it.Type+"@"+it.Position.String())
		}
		fmt.Fprintf(&b, "Items: %s.\n", strings.Join(parts, ", "))
	}
	b.WriteString("Map:\n")
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			if (Point{X: x, Y: y}) == s.AgentPosition {
				b.WriteByte('@')
				continue
			}
			b.WriteString(s.TileAt(Point{X: x, Y: y}))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
