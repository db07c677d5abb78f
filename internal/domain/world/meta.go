package world

// Meta identifies a world and the game type whose action set drives it.
type Meta struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	GameType string `json:"game_type" yaml:"game_type"`
}
