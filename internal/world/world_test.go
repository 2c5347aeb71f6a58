package world

import (
	"context"
	"testing"

	"github.com/loot-dogs/gameserver/internal/avatar"
	"github.com/loot-dogs/gameserver/internal/geom"
	"github.com/loot-dogs/gameserver/internal/loot"
	"github.com/loot-dogs/gameserver/internal/mapdata"
)

type fakeSink struct {
	saved []avatar.RetirementRecord
}

func (f *fakeSink) Save(_ context.Context, rec avatar.RetirementRecord) error {
	f.saved = append(f.saved, rec)
	return nil
}

func testMap(id string, idleLimitMs float64) *mapdata.Map {
	m := &mapdata.Map{
		ID:           id,
		Name:         id,
		Roads:        []mapdata.Road{mapdata.NewRoad(geom.Point{X: 0, Y: 0}, geom.Point{X: 10, Y: 0})},
		LootTypes:    []mapdata.LootType{{Value: 1, Name: "coin"}},
		DefaultSpeed: 1,
		BagCapacity:  3,
		IdleLimitMs:  idleLimitMs,
	}
	m.Build()
	return m
}

func TestJoinUnknownMapReturnsNotFound(t *testing.T) {
	w := New(nil, loot.Config{}, false, 1, nil, nil)
	if _, err := w.Join("nope", "dog"); err == nil {
		t.Fatalf("expected error joining unknown map")
	}
}

func TestJoinAssignsUniqueTokensAndIDs(t *testing.T) {
	w := New([]*mapdata.Map{testMap("map1", 60_000)}, loot.Config{}, false, 1, nil, nil)

	a1, err := w.Join("map1", "dog1")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	a2, err := w.Join("map1", "dog2")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if a1.ID == a2.ID || a1.Token == a2.Token {
		t.Fatalf("expected unique ids/tokens, got %+v %+v", a1, a2)
	}

	found, ok := w.PlayerByToken(a1.Token)
	if !ok || found.ID != a1.ID {
		t.Fatalf("PlayerByToken failed to resolve joined avatar")
	}
}

func TestAdvanceRetirementInvokesSink(t *testing.T) {
	sink := &fakeSink{}
	w := New([]*mapdata.Map{testMap("map1", 500)}, loot.Config{}, false, 1, sink, nil)

	a, err := w.Join("map1", "dog")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	w.Advance(1000)

	if len(sink.saved) != 1 || sink.saved[0].Name != "dog" {
		t.Fatalf("expected sink to record one retirement, got %+v", sink.saved)
	}
	if _, ok := w.PlayerByToken(a.Token); ok {
		t.Fatalf("expected retired player removed from token registry")
	}
}

func TestAdvanceIteratesSessionsInMapIDOrder(t *testing.T) {
	w := New([]*mapdata.Map{testMap("b", 60_000), testMap("a", 60_000)}, loot.Config{}, false, 1, nil, nil)
	if got := w.MapIDs(); got[0] != "a" || got[1] != "b" {
		t.Fatalf("MapIDs() = %v, want sorted [a b]", got)
	}
	w.Advance(100) // must not panic regardless of construction order
}
