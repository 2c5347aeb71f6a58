package mapdata

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/loot-dogs/gameserver/internal/geom"
	"github.com/loot-dogs/gameserver/internal/loot"
)

// wireConfig mirrors the JSON world descriptor served to operators and
// loaded at startup. Optional per-map fields fall back to the top-level
// defaults, which in turn fall back to package defaults when absent.
type wireConfig struct {
	DefaultDogSpeed     *float64    `json:"defaultDogSpeed"`
	DefaultBagCapacity  *int        `json:"defaultBagCapacity"`
	DogRetirementTime   *float64    `json:"dogRetirementTime"`
	LootGeneratorConfig wireLootGen `json:"lootGeneratorConfig"`
	Maps                []wireMap   `json:"maps"`
}

type wireLootGen struct {
	Period      float64 `json:"period"` // seconds
	Probability float64 `json:"probability"`
}

type wireMap struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Roads       []wireRoad   `json:"roads"`
	Buildings   []wireBuild  `json:"buildings"`
	Offices     []wireOffice `json:"offices"`
	LootTypes   []wireLoot   `json:"lootTypes"`
	DogSpeed    *float64     `json:"dogSpeed"`
	BagCapacity *int         `json:"bagCapacity"`
}

type wireRoad struct {
	X0 int  `json:"x0"`
	Y0 int  `json:"y0"`
	X1 *int `json:"x1"`
	Y1 *int `json:"y1"`
}

type wireBuild struct {
	X, Y, W, H int
}

func (b *wireBuild) UnmarshalJSON(data []byte) error {
	var raw struct {
		X int `json:"x"`
		Y int `json:"y"`
		W int `json:"w"`
		H int `json:"h"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = wireBuild{X: raw.X, Y: raw.Y, W: raw.W, H: raw.H}
	return nil
}

type wireOffice struct {
	ID      string `json:"id"`
	X, Y    int
	OffsetX int `json:"offsetX"`
	OffsetY int `json:"offsetY"`
}

func (o *wireOffice) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      string `json:"id"`
		X       int    `json:"x"`
		Y       int    `json:"y"`
		OffsetX int    `json:"offsetX"`
		OffsetY int    `json:"offsetY"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = wireOffice{ID: raw.ID, X: raw.X, Y: raw.Y, OffsetX: raw.OffsetX, OffsetY: raw.OffsetY}
	return nil
}

type wireLoot struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// defaultIdleLimitSeconds is used when dogRetirementTime is absent from the
// descriptor, matching original_source/model.cpp's built-in default.
const defaultIdleLimitSeconds = 60

// LoadConfig parses the JSON world descriptor from r into a set of Maps plus
// the shared loot generator configuration. Returned maps have already had
// Build called.
func LoadConfig(r io.Reader) ([]*Map, loot.Config, error) {
	var wc wireConfig
	if err := json.NewDecoder(r).Decode(&wc); err != nil {
		return nil, loot.Config{}, fmt.Errorf("mapdata: decode world config: %w", err)
	}

	defaultSpeed := 1.0
	if wc.DefaultDogSpeed != nil {
		defaultSpeed = *wc.DefaultDogSpeed
	}
	defaultBagCapacity := 3
	if wc.DefaultBagCapacity != nil {
		defaultBagCapacity = *wc.DefaultBagCapacity
	}
	idleLimitSeconds := defaultIdleLimitSeconds
	if wc.DogRetirementTime != nil {
		idleLimitSeconds = int(*wc.DogRetirementTime)
	}

	maps := make([]*Map, 0, len(wc.Maps))
	for _, wm := range wc.Maps {
		m, err := buildMap(wm, defaultSpeed, defaultBagCapacity, float64(idleLimitSeconds)*1000)
		if err != nil {
			return nil, loot.Config{}, fmt.Errorf("mapdata: map %q: %w", wm.ID, err)
		}
		maps = append(maps, m)
	}

	lootCfg := loot.Config{
		Period:      wc.LootGeneratorConfig.Period * 1000,
		Probability: wc.LootGeneratorConfig.Probability,
	}
	return maps, lootCfg, nil
}

func buildMap(wm wireMap, defaultSpeed float64, defaultBagCapacity int, idleLimitMs float64) (*Map, error) {
	speed := defaultSpeed
	if wm.DogSpeed != nil {
		speed = *wm.DogSpeed
	}
	bagCapacity := defaultBagCapacity
	if wm.BagCapacity != nil {
		bagCapacity = *wm.BagCapacity
	}

	roads := make([]Road, 0, len(wm.Roads))
	for _, wr := range wm.Roads {
		start := geom.Point{X: wr.X0, Y: wr.Y0}
		switch {
		case wr.X1 != nil:
			roads = append(roads, NewRoad(start, geom.Point{X: *wr.X1, Y: wr.Y0}))
		case wr.Y1 != nil:
			roads = append(roads, NewRoad(start, geom.Point{X: wr.X0, Y: *wr.Y1}))
		default:
			return nil, fmt.Errorf("road at (%d,%d) has neither x1 nor y1", wr.X0, wr.Y0)
		}
	}
	if len(roads) == 0 {
		return nil, fmt.Errorf("map has no roads")
	}

	buildingList := make([]Building, len(wm.Buildings))
	for i, wb := range wm.Buildings {
		buildingList[i] = Building{
			Origin: geom.Point{X: wb.X, Y: wb.Y},
			Size:   geom.Size{Width: wb.W, Height: wb.H},
		}
	}

	offices := make([]Office, len(wm.Offices))
	for i, wo := range wm.Offices {
		offices[i] = Office{
			ID:       wo.ID,
			Position: geom.Point{X: wo.X, Y: wo.Y},
			Offset:   geom.Offset{DX: wo.OffsetX, DY: wo.OffsetY},
		}
	}

	lootTypes := make([]LootType, len(wm.LootTypes))
	for i, wl := range wm.LootTypes {
		lootTypes[i] = LootType{Value: wl.Value, Name: wl.Name}
	}
	if len(lootTypes) == 0 {
		return nil, fmt.Errorf("map has no loot types")
	}

	m := &Map{
		ID:           wm.ID,
		Name:         wm.Name,
		Roads:        roads,
		Buildings:    buildingList,
		Offices:      offices,
		LootTypes:    lootTypes,
		DefaultSpeed: speed / 1000, // wire units/sec -> internal units/ms
		BagCapacity:  bagCapacity,
		IdleLimitMs:  idleLimitMs,
	}
	m.Build()
	return m, nil
}
