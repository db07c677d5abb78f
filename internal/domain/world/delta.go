package world

import "encoding/json"

// Delta is a partial update to State. Nil fields are left untouched; a non-nil
// slice replaces the whole field, so an empty non-nil slice clears it.
type Delta struct {
	AgentPosition *Point
	Inventory     []string
	Items         []Item
	Turn          *int
}

func (d Delta) IsEmpty() bool {
	return d.AgentPosition == nil && d.Inventory == nil && d.Items == nil && d.Turn == nil
}

// Fields returns the delta as a field->value map, the shape carried on the wire.
func (d Delta) Fields() map[string]any {
	out := map[string]any{}
	if d.AgentPosition != nil {
		out["agent_position"] = *d.AgentPosition
	}
	if d.Inventory != nil {
		out["inventory"] = d.Inventory
	}
	if d.Items != nil {
		out["items"] = d.Items
	}
	if d.Turn != nil {
		out["turn"] = *d.Turn
	}
	return out
}

func (d Delta) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Fields())
}

func (d *Delta) UnmarshalJSON(data []byte) error {
	var raw struct {
		AgentPosition *Point   `json:"agent_position"`
		Inventory     []string `json:"inventory"`
		Items         []Item   `json:"items"`
		Turn          *int     `json:"turn"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = Delta{AgentPosition: raw.AgentPosition, Inventory: raw.Inventory, Items: raw.Items, Turn: raw.Turn}
	return nil
}
