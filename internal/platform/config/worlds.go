package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"agentworld/internal/domain/schema"
	"agentworld/internal/domain/world"

	"gopkg.in/yaml.v3"
)

var ErrInvalidWorldSeed = errors.New("invalid world seed")

// WorldSeed is one world definition in the seed file. Rows spell the grid one
// tile symbol per character; when Rows is empty the grid is Width x Height of
// floor.
type WorldSeed struct {
	ID       string     `yaml:"id"`
	Name     string     `yaml:"name"`
	GameType string     `yaml:"game_type"`
	Width    int        `yaml:"width"`
	Height   int        `yaml:"height"`
	Rows     []string   `yaml:"rows"`
	Agent    [2]int     `yaml:"agent"`
	Items    []ItemSeed `yaml:"items"`
}

type ItemSeed struct {
	Type string `yaml:"type"`
	At   [2]int `yaml:"at"`
}

type Seeded struct {
	Meta  world.Meta
	State world.State
}

// LoadWorlds reads the multi-document (or list) YAML seed file at path.
func LoadWorlds(path string) ([]Seeded, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read world seeds: %w", err)
	}
	return ParseWorlds(raw)
}

func ParseWorlds(raw []byte) ([]Seeded, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	var seeds []WorldSeed
	for i := 0; ; i++ {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: document %d: %v", ErrInvalidWorldSeed, i, err)
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			var list []WorldSeed
			if err := node.Decode(&list); err != nil {
				return nil, fmt.Errorf("%w: document %d: %v", ErrInvalidWorldSeed, i, err)
			}
			seeds = append(seeds, list...)
			continue
		}
		var one WorldSeed
		if err := node.Decode(&one); err != nil {
			return nil, fmt.Errorf("%w: document %d: %v", ErrInvalidWorldSeed, i, err)
		}
		seeds = append(seeds, one)
	}

	out := make([]Seeded, 0, len(seeds))
	seen := map[string]bool{}
	for _, s := range seeds {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: world without id", ErrInvalidWorldSeed)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("%w: duplicate world id %q", ErrInvalidWorldSeed, s.ID)
		}
		seen[s.ID] = true
		state, err := s.state()
		if err != nil {
			return nil, fmt.Errorf("%w: world %q: %v", ErrInvalidWorldSeed, s.ID, err)
		}
		gameType := s.GameType
		if gameType == "" {
			gameType = schema.GameTypeGridNavigation
		}
		name := s.Name
		if name == "" {
			name = s.ID
		}
		out = append(out, Seeded{Meta: world.Meta{ID: s.ID, Name: name, GameType: gameType}, State: state})
	}
	return out, nil
}

func (s WorldSeed) state() (world.State, error) {
	w, h := s.Width, s.Height
	if len(s.Rows) > 0 {
		h = len(s.Rows)
		w = len([]rune(s.Rows[0]))
	}
	state, err := world.NewState(w, h)
	if err != nil {
		return world.State{}, err
	}
	for y, row := range s.Rows {
		cells := []rune(row)
		if len(cells) != w {
			return world.State{}, fmt.Errorf("row %d has %d tiles, want %d", y, len(cells), w)
		}
		for x, c := range cells {
			state.Grid[y][x] = string(c)
		}
	}
	state.AgentPosition = world.Point{X: s.Agent[0], Y: s.Agent[1]}
	for _, it := range s.Items {
		state.Items = append(state.Items, world.Item{Type: it.Type, Position: world.Point{X: it.At[0], Y: it.At[1]}})
	}
	if err := state.Validate(); err != nil {
		return world.State{}, err
	}
	return state, nil
}
