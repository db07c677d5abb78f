package schema

import (
	"errors"
	"fmt"
	"math"
)

type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
	ParamBoolean ParamType = "boolean"
	ParamArray   ParamType = "array"
	ParamObject  ParamType = "object"
)

type Category string

const (
	CategoryMovement    Category = "movement"
	CategoryInteraction Category = "interaction"
	CategoryUtility     Category = "utility"
)

var (
	ErrInvalidActionSet  = errors.New("invalid action set")
	ErrDuplicateActionID = errors.New("duplicate action id")
	ErrInvalidDefault    = errors.New("invalid parameter default")
)

type ActionParameter struct {
	Name        string    `json:"name" yaml:"name"`
	Type        ParamType `json:"type" yaml:"type"`
	Description string    `json:"description,omitempty" yaml:"description"`
	Required    bool      `json:"required" yaml:"required"`
	Default     any       `json:"default" yaml:"default"`
	Enum        []string  `json:"enum,omitempty" yaml:"enum"`
	Pattern     string    `json:"pattern,omitempty" yaml:"pattern"`
	Minimum     *int      `json:"minimum,omitempty" yaml:"minimum"`
}

type GameAction struct {
	ID          string            `json:"action_id" yaml:"action_id"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Category    Category          `json:"category" yaml:"category"`
	Parameters  []ActionParameter `json:"parameters" yaml:"parameters"`
}

type GameActionSet struct {
	GameType string       `json:"game_type" yaml:"game_type"`
	Actions  []GameAction `json:"actions" yaml:"actions"`
}

func (s GameActionSet) Action(id string) (GameAction, bool) {
	for _, a := range s.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return GameAction{}, false
}

func (s GameActionSet) Has(id string) bool {
	_, ok := s.Action(id)
	return ok
}

func (s GameActionSet) ActionIDs() []string {
	out := make([]string, 0, len(s.Actions))
	for _, a := range s.Actions {
		out = append(out, a.ID)
	}
	return out
}

// ByCategory groups actions for listings, keeping declaration order within a group.
func (s GameActionSet) ByCategory() map[Category][]GameAction {
	out := map[Category][]GameAction{}
	for _, a := range s.Actions {
		c := a.Category
		if c == "" {
			c = CategoryUtility
		}
		out[c] = append(out[c], a)
	}
	return out
}

func (s GameActionSet) Validate() error {
	if s.GameType == "" {
		return fmt.Errorf("%w: empty game type", ErrInvalidActionSet)
	}
	seen := make(map[string]struct{}, len(s.Actions))
	for _, a := range s.Actions {
		if a.ID == "" {
			return fmt.Errorf("%w: action with empty id in %q", ErrInvalidActionSet, s.GameType)
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("%w: %q in %q", ErrDuplicateActionID, a.ID, s.GameType)
		}
		seen[a.ID] = struct{}{}
		for _, p := range a.Parameters {
			if err := p.Validate(); err != nil {
				return fmt.Errorf("action %q: %w", a.ID, err)
			}
		}
	}
	return nil
}

func (p ActionParameter) Validate() error {
	switch p.Type {
	case ParamString, ParamInteger, ParamBoolean, ParamArray, ParamObject:
	default:
		return fmt.Errorf("%w: parameter %q has unknown type %q", ErrInvalidActionSet, p.Name, p.Type)
	}
	if p.Required || p.Default == nil {
		return nil
	}
	if !p.Type.Accepts(p.Default) {
		return fmt.Errorf("%w: parameter %q default %v is not %s", ErrInvalidDefault, p.Name, p.Default, p.Type)
	}
	return nil
}

// Accepts reports whether v is a value of t as decoded from JSON or YAML.
func (t ParamType) Accepts(v any) bool {
	switch t {
	case ParamString:
		_, ok := v.(string)
		return ok
	case ParamBoolean:
		_, ok := v.(bool)
		return ok
	case ParamInteger:
		_, ok := AsInt(v)
		return ok
	case ParamArray:
		switch v.(type) {
		case []any, []string, []int:
			return true
		}
		return false
	case ParamObject:
		_, ok := v.(map[string]any)
		return ok
	}
	return false
}

// AsInt converts integral numeric values (including float64 from JSON) to int.
// Values that do not fit in an int are rejected.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	default:
		return 0, false
	}
}

// float64(math.MaxInt) rounds up to 2^63 (2^31 on 32-bit), so the upper bound
// is exclusive.
func floatToInt(n float64) (int, bool) {
	if n != math.Trunc(n) || n < math.MinInt || n >= math.MaxInt {
		return 0, false
	}
	return int(n), true
}
