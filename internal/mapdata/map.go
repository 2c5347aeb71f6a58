package mapdata

import (
	"math"
	"sort"

	"github.com/loot-dogs/gameserver/internal/geom"
)

// Building is purely informational to the simulation core; collision with
// buildings is handled implicitly by road clamping.
type Building struct {
	Origin geom.Point
	Size   geom.Size
}

// officeRadius is the collision radius of a stationary office item.
const officeRadius = 0.25

// Office is a stationary drop-off point. On contact with an avatar, its
// effect is "empty bag, credit score".
type Office struct {
	ID       string
	Position geom.Point
	Offset   geom.Offset
}

// LootType describes one kind of collectible item a map can spawn.
type LootType struct {
	Value int
	Name  string
}

// Map is the static, immutable per-map geometry and ruleset loaded once at
// startup. Road lookup is split into two hash indices (by row Y, by column
// X) so RoadsAt only scans the roads on the point's nearest row and column.
type Map struct {
	ID, Name     string
	Roads        []Road
	Buildings    []Building
	Offices      []Office
	LootTypes    []LootType
	DefaultSpeed float64 // grid units per millisecond
	BagCapacity  int
	IdleLimitMs  float64

	horizontalByY map[int][]Road
	verticalByX   map[int][]Road
}

// Build finalizes the road indices. Must be called once after Roads is
// fully populated and before the map is used by any session.
func (m *Map) Build() {
	m.horizontalByY = make(map[int][]Road)
	m.verticalByX = make(map[int][]Road)
	for _, r := range m.Roads {
		if r.Axis == Horizontal {
			m.horizontalByY[r.Start.Y] = append(m.horizontalByY[r.Start.Y], r)
		} else {
			m.verticalByX[r.Start.X] = append(m.verticalByX[r.Start.X], r)
		}
	}
}

// RoadsAt returns up to one road per axis whose drivable zone contains p.
//
// Edge policy: when p's fractional part on an axis falls strictly within
// (0.4, 0.6), the point sits mid-cell perpendicular to a road on that axis,
// so the OTHER axis's lookup is suppressed. This hysteresis band keeps an
// avatar committed to its current road until it reaches an intersection.
// Grounded on original_source/model.cpp: Map::GetRoadsByCoordinates.
func (m *Map) RoadsAt(p geom.Position) (vertical, horizontal *Road) {
	suppressVertical := isFractionInRange(p.X)
	suppressHorizontal := isFractionInRange(p.Y)

	x := int(math.Round(p.X))
	y := int(math.Round(p.Y))

	if !suppressVertical {
		for _, r := range m.verticalByX[x] {
			if r.Contains(p) {
				road := r
				vertical = &road
				break
			}
		}
	}
	if !suppressHorizontal {
		for _, r := range m.horizontalByY[y] {
			if r.Contains(p) {
				road := r
				horizontal = &road
				break
			}
		}
	}
	return
}

const fractionEpsilon = 1e-6

func isFractionInRange(v float64) bool {
	_, frac := math.Modf(v)
	if frac < 0 {
		frac = -frac
	}
	return frac > 0.4+fractionEpsilon && frac < 0.6-fractionEpsilon
}

// DefaultSpawnPoint returns the start of the map's first road, used when
// spawn-point randomization is disabled.
func (m *Map) DefaultSpawnPoint() geom.Position {
	start := m.Roads[0].Start
	return geom.Position{X: float64(start.X), Y: float64(start.Y)}
}

// RandomSpawnPoint returns a uniformly-length-weighted random point along a
// uniformly-random road, using rnd01 and rndRoad (both in [0,1)) supplied by
// the caller's RNG. Road selection is uniform over roads, matching
// original_source/model.cpp: GameSession::GetRandomCoordinates.
func (m *Map) RandomSpawnPoint(rndRoad, rnd01 float64) geom.Position {
	idx := int(rndRoad * float64(len(m.Roads)))
	if idx >= len(m.Roads) {
		idx = len(m.Roads) - 1
	}
	return m.Roads[idx].RandomPoint(rnd01)
}

// OfficeIDs returns office ids in sorted order, useful for
// deterministic iteration in tests and snapshotting.
func (m *Map) OfficeIDs() []string {
	ids := make([]string, len(m.Offices))
	for i, o := range m.Offices {
		ids[i] = o.ID
	}
	sort.Strings(ids)
	return ids
}

// OfficeRadius returns the fixed collision radius shared by all offices.
func OfficeRadius() float64 { return officeRadius }
