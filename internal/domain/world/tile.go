package world

// Tile symbols used in WorldState grids.
const (
	TileFloor = "."
	TileWall  = "#"
	TileWater = "~"
	TileGrass = ","
)

func IsPassable(symbol string) bool {
	return symbol != TileWall
}
