package mapdata

import (
	"strings"
	"testing"
)

const sampleWorldJSON = `{
	"defaultDogSpeed": 3,
	"defaultBagCapacity": 2,
	"lootGeneratorConfig": {"period": 5, "probability": 0.5},
	"maps": [
		{
			"id": "map1",
			"name": "First Map",
			"roads": [{"x0": 0, "y0": 0, "x1": 20}, {"x0": 0, "y0": 0, "y1": 20}],
			"buildings": [{"x": 5, "y": 5, "w": 3, "h": 3}],
			"offices": [{"id": "office1", "x": 0, "y": 0, "offsetX": 1, "offsetY": 1}],
			"lootTypes": [{"name": "coin", "value": 10}]
		}
	]
}`

func TestLoadConfigParsesMapAndLootGenerator(t *testing.T) {
	maps, lootCfg, err := LoadConfig(strings.NewReader(sampleWorldJSON))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(maps) != 1 {
		t.Fatalf("expected 1 map, got %d", len(maps))
	}
	m := maps[0]
	if m.ID != "map1" || m.Name != "First Map" {
		t.Fatalf("unexpected map identity: %+v", m)
	}
	if len(m.Roads) != 2 {
		t.Fatalf("expected 2 roads, got %d", len(m.Roads))
	}
	if len(m.Offices) != 1 || m.Offices[0].ID != "office1" {
		t.Fatalf("unexpected offices: %+v", m.Offices)
	}
	if len(m.LootTypes) != 1 || m.LootTypes[0].Value != 10 {
		t.Fatalf("unexpected loot types: %+v", m.LootTypes)
	}
	if m.DefaultSpeed != 0.003 {
		t.Fatalf("expected wire speed 3/sec converted to 0.003/ms, got %v", m.DefaultSpeed)
	}
	if m.BagCapacity != 2 {
		t.Fatalf("expected default bag capacity 2, got %d", m.BagCapacity)
	}
	if m.IdleLimitMs != defaultIdleLimitSeconds*1000 {
		t.Fatalf("expected default idle limit, got %v", m.IdleLimitMs)
	}

	if lootCfg.Period != 5000 {
		t.Fatalf("expected loot period 5000ms, got %v", lootCfg.Period)
	}
	if lootCfg.Probability != 0.5 {
		t.Fatalf("expected loot probability 0.5, got %v", lootCfg.Probability)
	}
}

func TestLoadConfigPerMapOverridesWinOverDefaults(t *testing.T) {
	const doc = `{
		"defaultDogSpeed": 1,
		"maps": [{
			"id": "m",
			"name": "m",
			"dogSpeed": 4,
			"bagCapacity": 9,
			"roads": [{"x0": 0, "y0": 0, "x1": 10}],
			"lootTypes": [{"name": "coin", "value": 1}]
		}]
	}`
	maps, _, err := LoadConfig(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if maps[0].DefaultSpeed != 0.004 {
		t.Fatalf("expected per-map speed override, got %v", maps[0].DefaultSpeed)
	}
	if maps[0].BagCapacity != 9 {
		t.Fatalf("expected per-map bag capacity override, got %d", maps[0].BagCapacity)
	}
}

func TestLoadConfigRejectsMapWithNoRoads(t *testing.T) {
	const doc = `{"maps": [{"id": "m", "name": "m", "lootTypes": [{"name": "coin", "value": 1}]}]}`
	if _, _, err := LoadConfig(strings.NewReader(doc)); err == nil {
		t.Fatal("expected error for map with no roads")
	}
}

func TestLoadConfigRejectsMapWithNoLootTypes(t *testing.T) {
	const doc = `{"maps": [{"id": "m", "name": "m", "roads": [{"x0": 0, "y0": 0, "x1": 10}]}]}`
	if _, _, err := LoadConfig(strings.NewReader(doc)); err == nil {
		t.Fatal("expected error for map with no loot types")
	}
}

func TestLoadConfigRejectsMalformedJSON(t *testing.T) {
	if _, _, err := LoadConfig(strings.NewReader("{not json")); err == nil {
		t.Fatal("expected decode error")
	}
}
