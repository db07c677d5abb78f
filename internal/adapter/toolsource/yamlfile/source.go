package yamlfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"agentworld/internal/app/catalog"

	"gopkg.in/yaml.v3"
)

// Record is one YAML document in the tool definition file.
type Record struct {
	AgentID     string `yaml:"agent_id,omitempty"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	ActionID    string `yaml:"action_id"`
	GameType    string `yaml:"game_type,omitempty"`
}

// Source reads tool definitions from an append-only, multi-document YAML
// file. The file is never rewritten: Append only adds a document at the end.
type Source struct {
	Path string

	mu sync.Mutex
}

func New(path string) *Source {
	return &Source{Path: path}
}

func (s *Source) Load(_ context.Context, agentID string) ([]catalog.ToolDefinition, error) {
	records, err := s.Records()
	if err != nil {
		return nil, err
	}
	out := make([]catalog.ToolDefinition, 0, len(records))
	for _, r := range records {
		if r.AgentID != "" && r.AgentID != agentID {
			continue
		}
		out = append(out, catalog.ToolDefinition{
			Name:        r.Name,
			Description: r.Description,
			ActionID:    r.ActionID,
			GameType:    r.GameType,
		})
	}
	return out, nil
}

// Records decodes every document in file order.
func (s *Source) Records() ([]Record, error) {
	s.mu.Lock()
	raw, err := os.ReadFile(s.Path)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", catalog.ErrToolDiscovery, s.Path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	var out []Record
	for i := 0; ; i++ {
		var r Record
		err := dec.Decode(&r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s document %d: %v", catalog.ErrToolDiscovery, s.Path, i, err)
		}
		if r.Name == "" && r.ActionID == "" {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Source) Append(_ context.Context, records ...Record) error {
	if len(records) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, r := range records {
		b, err := yaml.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode tool %q: %w", r.Name, err)
		}
		buf.WriteString("---\n")
		buf.Write(b)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Save appends definitions accepted by the catalog for an agent.
func (s *Source) Save(ctx context.Context, agentID, gameType string, defs []catalog.ToolDefinition) error {
	records := make([]Record, 0, len(defs))
	for _, d := range defs {
		gt := d.GameType
		if gt == "" {
			gt = gameType
		}
		records = append(records, Record{
			AgentID:     agentID,
			Name:        d.Name,
			Description: d.Description,
			ActionID:    d.ActionID,
			GameType:    gt,
		})
	}
	return s.Append(ctx, records...)
}
