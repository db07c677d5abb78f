package world

// Snapshot is the agent's local view of a world.
type Snapshot struct {
	Center     Point      `json:"center"`
	ViewRadius int        `json:"view_radius"`
	Tiles      [][]string `json:"tiles"`
	Items      []Item     `json:"items"`
}

// Observe builds a (2r+1)x(2r+1) window around the agent. Cells beyond the
// grid edge are reported as walls so the observer sees the boundary.
func Observe(s State, radius int) Snapshot {
	if radius < 0 {
		radius = 0
	}
	center := s.AgentPosition
	size := radius*2 + 1
	tiles := make([][]string, size)
	for dy := 0; dy < size; dy++ {
		row := make([]string, size)
		for dx := 0; dx < size; dx++ {
			row[dx] = s.TileAt(center.Add(dx-radius, dy-radius))
		}
		tiles[dy] = row
	}
	items := []Item{}
	for _, it := range s.Items {
		if abs(it.Position.X-center.X) <= radius && abs(it.Position.Y-center.Y) <= radius {
			items = append(items, it)
		}
	}
	return Snapshot{Center: center, ViewRadius: radius, Tiles: tiles, Items: items}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
