package session

import (
	"testing"

	"github.com/loot-dogs/gameserver/internal/avatar"
	"github.com/loot-dogs/gameserver/internal/geom"
	"github.com/loot-dogs/gameserver/internal/loot"
	"github.com/loot-dogs/gameserver/internal/mapdata"
)

func straightMap() *mapdata.Map {
	m := &mapdata.Map{
		ID:   "map1",
		Name: "Straight Road",
		Roads: []mapdata.Road{
			mapdata.NewRoad(geom.Point{X: 0, Y: 0}, geom.Point{X: 20, Y: 0}),
		},
		LootTypes:    []mapdata.LootType{{Value: 10, Name: "key"}},
		DefaultSpeed: 1,
		BagCapacity:  3,
		IdleLimitMs:  60_000,
	}
	m.Build()
	return m
}

func idGen(start int64) func() int64 {
	next := start
	return func() int64 {
		id := next
		next++
		return id
	}
}

func TestAdvanceMovesAvatarAlongRoad(t *testing.T) {
	m := straightMap()
	s := New(1, m, false, loot.New(loot.Config{}), 1)
	a := avatar.New(1, "dog", "tok", m.ID, geom.Position{X: 0, Y: 0})
	a.SetDirection(avatar.East, false, 1)
	s.AddAvatar(a)

	s.Advance(10, idGen(1), func(*avatar.Avatar) {})

	if a.Position.X != 10 {
		t.Fatalf("Position.X = %v, want 10", a.Position.X)
	}
}

func TestAdvanceCollectsLootInPath(t *testing.T) {
	m := straightMap()
	s := New(1, m, false, loot.New(loot.Config{}), 1)
	a := avatar.New(1, "dog", "tok", m.ID, geom.Position{X: 0, Y: 0})
	a.SetDirection(avatar.East, false, 1)
	s.AddAvatar(a)
	s.RestoreLoot(map[int64]*loot.Dropped{
		5: {Item: loot.Item{ID: 5, Type: 0, Value: 10}, Position: geom.Position{X: 5, Y: 0}},
	})

	s.Advance(100, idGen(100), func(*avatar.Avatar) {})

	if len(a.Bag) != 1 {
		t.Fatalf("len(Bag) = %d, want 1", len(a.Bag))
	}
	if len(s.Loot()) != 0 {
		t.Fatalf("expected loot removed from ground after pickup")
	}
}

func TestAdvanceRespectsBagCapacity(t *testing.T) {
	m := straightMap()
	m.BagCapacity = 1
	s := New(1, m, false, loot.New(loot.Config{}), 1)
	a := avatar.New(1, "dog", "tok", m.ID, geom.Position{X: 0, Y: 0})
	a.Collect(loot.Item{ID: 1, Type: 0, Value: 10})
	a.SetDirection(avatar.East, false, 1)
	s.AddAvatar(a)
	s.RestoreLoot(map[int64]*loot.Dropped{
		5: {Item: loot.Item{ID: 5, Type: 0, Value: 10}, Position: geom.Position{X: 5, Y: 0}},
	})

	s.Advance(100, idGen(100), func(*avatar.Avatar) {})

	if len(a.Bag) != 1 {
		t.Fatalf("len(Bag) = %d, want 1 (capacity enforced)", len(a.Bag))
	}
	if len(s.Loot()) != 1 {
		t.Fatalf("expected loot to remain on ground when bag is full")
	}
}

func TestAdvanceDropsOffAtOffice(t *testing.T) {
	m := straightMap()
	m.Offices = []mapdata.Office{{ID: "o1", Position: geom.Point{X: 5, Y: 0}}}
	s := New(1, m, false, loot.New(loot.Config{}), 1)
	a := avatar.New(1, "dog", "tok", m.ID, geom.Position{X: 0, Y: 0})
	a.Collect(loot.Item{ID: 1, Type: 0, Value: 7})
	a.SetDirection(avatar.East, false, 1)
	s.AddAvatar(a)

	s.Advance(100, idGen(1), func(*avatar.Avatar) {})

	if a.Score != 7 {
		t.Fatalf("Score = %d, want 7 after office drop-off", a.Score)
	}
	if len(a.Bag) != 0 {
		t.Fatalf("expected bag emptied at office")
	}
}

func TestAdvanceFiresRetirementHookAndRemovesAvatar(t *testing.T) {
	m := straightMap()
	m.IdleLimitMs = 500
	s := New(1, m, false, loot.New(loot.Config{}), 1)
	a := avatar.New(1, "dog", "tok", m.ID, geom.Position{X: 0, Y: 0})
	s.AddAvatar(a)

	var retired *avatar.Avatar
	s.Advance(1000, idGen(1), func(r *avatar.Avatar) { retired = r })

	if retired == nil || retired.ID != 1 {
		t.Fatalf("expected retirement hook to fire for avatar 1")
	}
	if _, ok := s.Avatar(1); ok {
		t.Fatalf("expected retired avatar removed from session")
	}
}

func TestAdvanceSpawnsLootWhenConfigured(t *testing.T) {
	m := straightMap()
	s := New(1, m, false, loot.New(loot.Config{Period: 1, Probability: 1}), 1)
	a := avatar.New(1, "dog", "tok", m.ID, geom.Position{X: 0, Y: 0})
	s.AddAvatar(a)

	s.Advance(1000, idGen(1), func(*avatar.Avatar) {})

	if len(s.Loot()) == 0 {
		t.Fatalf("expected loot generator to spawn at least one item")
	}
}

func TestAdvancePanicInOnRetireDoesNotPropagate(t *testing.T) {
	m := straightMap()
	m.IdleLimitMs = 500
	s := New(1, m, false, loot.New(loot.Config{}), 1)
	a := avatar.New(1, "dog", "tok", m.ID, geom.Position{X: 0, Y: 0})
	s.AddAvatar(a)

	s.Advance(1000, idGen(1), func(*avatar.Avatar) { panic("persistence failure") })
}
