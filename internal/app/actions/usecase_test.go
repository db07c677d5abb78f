package actions

import (
	"context"
	"errors"
	"testing"

	"agentworld/internal/app/ports"
	"agentworld/internal/domain/schema"
	"agentworld/internal/domain/world"
)

type stubDirectory map[string]world.Meta

func (d stubDirectory) Meta(worldID string) (world.Meta, bool) {
	m, ok := d[worldID]
	return m, ok
}

func TestUseCase_GroupsActionsByCategory(t *testing.T) {
	uc := UseCase{
		Worlds:  stubDirectory{"w1": {ID: "w1", Name: "Meadow", GameType: schema.GameTypeGridNavigation}},
		Actions: schema.DefaultRegistry(),
	}
	resp, err := uc.Execute(context.Background(), Request{WorldID: "w1"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if resp.World.Name != "Meadow" {
		t.Fatalf("world meta mismatch: %+v", resp.World)
	}
	movement := resp.Actions[schema.CategoryMovement]
	if len(movement) != 1 || movement[0].ID != schema.ActionMove {
		t.Fatalf("movement actions mismatch: %+v", movement)
	}
	if len(resp.Actions[schema.CategoryInteraction]) != 1 || len(resp.Actions[schema.CategoryUtility]) != 1 {
		t.Fatalf("unexpected grouping: %+v", resp.Actions)
	}
}

func TestUseCase_Errors(t *testing.T) {
	uc := UseCase{
		Worlds:  stubDirectory{"arena": {ID: "arena", GameType: "arena"}},
		Actions: schema.DefaultRegistry(),
	}
	if _, err := uc.Execute(context.Background(), Request{WorldID: " "}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := uc.Execute(context.Background(), Request{WorldID: "nope"}); !errors.Is(err, ports.ErrWorldNotFound) {
		t.Fatalf("expected ErrWorldNotFound, got %v", err)
	}
	if _, err := uc.Execute(context.Background(), Request{WorldID: "arena"}); !errors.Is(err, ErrUnsupportedGameType) {
		t.Fatalf("expected ErrUnsupportedGameType, got %v", err)
	}
}
