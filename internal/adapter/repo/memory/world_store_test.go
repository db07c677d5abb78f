package memory

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"agentworld/internal/app/ports"
	"agentworld/internal/domain/world"
)

func seededWorldStore(t *testing.T) WorldStore {
	t.Helper()
	ws := NewWorldStore(NewStore())
	s, err := world.NewState(5, 5)
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	s.AgentPosition = world.Point{X: 1, Y: 1}
	s.Items = []world.Item{{Type: "key", Position: world.Point{X: 3, Y: 3}}}
	if err := ws.Put(world.Meta{ID: "w1", Name: "Meadow", GameType: "grid_navigation"}, s); err != nil {
		t.Fatalf("put: %v", err)
	}
	return ws
}

func TestWorldStore_GetIsIdempotent(t *testing.T) {
	ws := seededWorldStore(t)
	first, ok := ws.Get("w1")
	if !ok {
		t.Fatalf("expected world")
	}
	first.Items[0].Type = "mutated"
	first.Grid[0][0] = world.TileWall
	second, _ := ws.Get("w1")
	third, _ := ws.Get("w1")
	if !reflect.DeepEqual(second, third) {
		t.Fatalf("consecutive gets differ:\n%+v\n%+v", second, third)
	}
	if second.Items[0].Type != "key" || second.Grid[0][0] != world.TileFloor {
		t.Fatalf("caller mutation leaked into store")
	}
}

func TestWorldStore_GetUnknown(t *testing.T) {
	ws := seededWorldStore(t)
	if _, ok := ws.Get("nope"); ok {
		t.Fatalf("unknown world must not resolve")
	}
	if _, ok := ws.Meta("nope"); ok {
		t.Fatalf("unknown world must not have meta")
	}
}

func TestWorldStore_UpdatePosition(t *testing.T) {
	ws := seededWorldStore(t)
	ws.UpdatePosition("nope", world.Point{X: 2, Y: 2})
	ws.UpdatePosition("w1", world.Point{X: 9, Y: 9})
	s, _ := ws.Get("w1")
	if s.AgentPosition != (world.Point{X: 1, Y: 1}) {
		t.Fatalf("out-of-bounds update must be ignored, got %v", s.AgentPosition)
	}
	ws.UpdatePosition("w1", world.Point{X: 4, Y: 0})
	s, _ = ws.Get("w1")
	if s.AgentPosition != (world.Point{X: 4, Y: 0}) {
		t.Fatalf("position mismatch: got=%v", s.AgentPosition)
	}
}

func TestWorldStore_SetKeepsMetaAndRejectsInvalid(t *testing.T) {
	ws := seededWorldStore(t)
	s, _ := world.NewState(2, 2)
	ws.Set("w1", s)
	got, _ := ws.Get("w1")
	if got.Width != 2 {
		t.Fatalf("set did not replace state")
	}
	meta, _ := ws.Meta("w1")
	if meta.Name != "Meadow" {
		t.Fatalf("set must keep metadata, got %+v", meta)
	}

	bad := s
	bad.AgentPosition = world.Point{X: 7, Y: 7}
	ws.Set("w1", bad)
	got, _ = ws.Get("w1")
	if got.AgentPosition != (world.Point{}) {
		t.Fatalf("invalid state must be ignored")
	}
}

func TestWorldStore_Apply(t *testing.T) {
	ws := seededWorldStore(t)
	pos := world.Point{X: 2, Y: 1}
	next, err := ws.Apply("w1", world.Delta{AgentPosition: &pos})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if next.AgentPosition != pos {
		t.Fatalf("returned state mismatch: %v", next.AgentPosition)
	}
	if _, err := ws.Apply("nope", world.Delta{}); !errors.Is(err, ports.ErrWorldNotFound) {
		t.Fatalf("expected ErrWorldNotFound, got %v", err)
	}
	off := world.Point{X: -1, Y: 1}
	if _, err := ws.Apply("w1", world.Delta{AgentPosition: &off}); !errors.Is(err, world.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	s, _ := ws.Get("w1")
	if s.AgentPosition != pos {
		t.Fatalf("rejected delta changed state: %v", s.AgentPosition)
	}
}

func TestWorldStore_ConcurrentApply(t *testing.T) {
	ws := seededWorldStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pos := world.Point{X: i % 5, Y: (i / 5) % 5}
			_, _ = ws.Apply("w1", world.Delta{AgentPosition: &pos})
			_, _ = ws.Get("w1")
		}(i)
	}
	wg.Wait()
	s, _ := ws.Get("w1")
	if err := s.Validate(); err != nil {
		t.Fatalf("state invalid after concurrent merges: %v", err)
	}
}

func TestDeploymentEventRepo(t *testing.T) {
	store := NewStore()
	repo := NewDeploymentEventRepo(store)
	ctx := context.Background()
	if _, err := repo.ListByDeploymentID(ctx, "d1", 0); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	for i := 0; i < 3; i++ {
		_ = repo.Append(ctx, ports.DeploymentEventRecord{DeploymentID: "d1", Seq: i, EventType: "text"})
	}
	out, err := repo.ListByDeploymentID(ctx, "d1", 2)
	if err != nil || len(out) != 2 || out[1].Seq != 1 {
		t.Fatalf("unexpected list: %v %+v", err, out)
	}
}
