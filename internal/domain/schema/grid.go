package schema

const GameTypeGridNavigation = "grid_navigation"

const (
	ActionMove   = "move"
	ActionPickup = "pickup"
	ActionWait   = "wait"
)

func GridNavigationActions() GameActionSet {
	one := 1
	return GameActionSet{
		GameType: GameTypeGridNavigation,
		Actions: []GameAction{
			{
				ID:          ActionMove,
				Name:        "Move",
				Description: "Step the agent across the grid in a cardinal direction.",
				Category:    CategoryMovement,
				Parameters: []ActionParameter{
					{Name: "direction", Type: ParamString, Required: true, Description: "north, south, east or west", Pattern: `(?i)^(north|south|east|west)$`},
					{Name: "steps", Type: ParamInteger, Default: 1, Minimum: &one, Description: "number of tiles to move"},
				},
			},
			{
				ID:          ActionPickup,
				Name:        "Pick up",
				Description: "Pick up an item lying on the agent's tile.",
				Category:    CategoryInteraction,
				Parameters: []ActionParameter{
					{Name: "item_type", Type: ParamString, Description: "item type to pick up; any item when omitted"},
				},
			},
			{
				ID:          ActionWait,
				Name:        "Wait",
				Description: "Let turns pass without moving.",
				Category:    CategoryUtility,
				Parameters: []ActionParameter{
					{Name: "turns", Type: ParamInteger, Default: 1, Minimum: &one, Description: "number of turns to wait"},
				},
			},
		},
	}
}
