package avatar

import (
	"testing"

	"github.com/loot-dogs/gameserver/internal/geom"
	"github.com/loot-dogs/gameserver/internal/loot"
)

func TestSetDirectionEmptyPreservesFacingZeroesVelocity(t *testing.T) {
	a := New(1, "A", "tok", "map1", geom.Position{})
	a.SetDirection(East, false, 1)
	if a.Facing != East {
		t.Fatalf("Facing = %v, want East", a.Facing)
	}
	a.SetDirection(0, true, 1)
	if a.Facing != East {
		t.Fatalf("Facing changed on stop command: %v", a.Facing)
	}
	if a.Velocity != (geom.Velocity{}) {
		t.Fatalf("Velocity = %+v, want zero after stop", a.Velocity)
	}
}

func TestSetDirectionResetsIdleTime(t *testing.T) {
	a := New(1, "A", "tok", "map1", geom.Position{})
	a.IdleTime = 500
	a.SetDirection(North, false, 1)
	if a.IdleTime != 0 {
		t.Fatalf("IdleTime = %v, want 0 after a move command", a.IdleTime)
	}
}

func TestAdvanceAccumulatesIdleWhenStoppedByBoundary(t *testing.T) {
	a := New(1, "A", "tok", "map1", geom.Position{X: 9, Y: 0})
	a.SetDirection(East, false, 1)
	move := MoveResult{
		StartPos:        geom.Position{X: 9, Y: 0},
		EndPos:          geom.Position{X: 10.4, Y: 0},
		Duration:        1400,
		ReachedBoundary: true,
	}
	outcome := a.Advance(2000, move, 100_000)
	if outcome != Continue {
		t.Fatalf("outcome = %v, want Continue", outcome)
	}
	if a.Velocity != (geom.Velocity{}) {
		t.Fatalf("expected velocity zeroed after hitting road boundary")
	}
	if a.IdleTime != 600 {
		t.Fatalf("IdleTime = %v, want 600 (2000-1400)", a.IdleTime)
	}
	if a.Position != move.EndPos {
		t.Fatalf("Position = %+v, want %+v", a.Position, move.EndPos)
	}
}

func TestAdvanceRetiresAtIdleLimit(t *testing.T) {
	a := New(1, "A", "tok", "map1", geom.Position{})
	move := MoveResult{StartPos: a.Position, EndPos: a.Position, Duration: 0}
	outcome := a.Advance(1500, move, 1000)
	if outcome != Retired {
		t.Fatalf("outcome = %v, want Retired", outcome)
	}
	if a.TotalTime != 1000 {
		t.Fatalf("TotalTime = %v, want 1000 (credited only up to the idle limit)", a.TotalTime)
	}
	rec := a.Retirement()
	if rec.TotalTimeSecs != 1.0 {
		t.Fatalf("Retirement().TotalTimeSecs = %v, want 1.0", rec.TotalTimeSecs)
	}
}

func TestCollectAndEmptyBag(t *testing.T) {
	a := New(1, "A", "tok", "map1", geom.Position{})
	a.Collect(loot.Item{ID: 1, Type: 0, Value: 5})
	a.Collect(loot.Item{ID: 2, Type: 0, Value: 3})
	if len(a.Bag) != 2 {
		t.Fatalf("len(Bag) = %d, want 2", len(a.Bag))
	}
	a.EmptyBag()
	if a.Score != 8 {
		t.Fatalf("Score = %d, want 8", a.Score)
	}
	if len(a.Bag) != 0 {
		t.Fatalf("Bag not cleared: %+v", a.Bag)
	}
}
