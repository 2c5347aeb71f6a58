package mapdata

import "github.com/loot-dogs/gameserver/internal/geom"

// Axis identifies the orientation of a Road.
type Axis int

const (
	Horizontal Axis = iota
	Vertical
)

// roadHalfWidth is the perpendicular inflation applied to a road segment to
// form its drivable rectangle; Map.RoadsAt's fractional hysteresis band
// (0.4, 0.6) is written there as literals. Grounded on original_source/model.cpp, which
// inflates roads by 0.4 on the perpendicular axis and treats the fraction
// range (0.4, 0.6) as "mid-cell".
const roadHalfWidth = 0.4

// Road is an oriented axis-aligned segment. Exactly one of Start.X==End.X or
// Start.Y==End.Y holds.
type Road struct {
	Start, End geom.Point
	Axis       Axis
}

// NewRoad builds a Road and infers its axis from the endpoints. Panics if
// neither axis-alignment invariant holds — a malformed map descriptor is a
// config-load error the caller should have rejected earlier.
func NewRoad(start, end geom.Point) Road {
	switch {
	case start.Y == end.Y:
		return Road{Start: start, End: end, Axis: Horizontal}
	case start.X == end.X:
		return Road{Start: start, End: end, Axis: Vertical}
	default:
		panic("mapdata: road is neither horizontal nor vertical")
	}
}

// DrivableZone returns the rectangle (in continuous coordinates) a dog may
// occupy while on this road: the segment inflated by 0.4 on the
// perpendicular axis and extended 0.4 past each endpoint along its axis.
func (r Road) DrivableZone() (minX, maxX, minY, maxY float64) {
	minX = float64(min(r.Start.X, r.End.X)) - roadHalfWidth
	maxX = float64(max(r.Start.X, r.End.X)) + roadHalfWidth
	minY = float64(min(r.Start.Y, r.End.Y)) - roadHalfWidth
	maxY = float64(max(r.Start.Y, r.End.Y)) + roadHalfWidth
	return
}

// Contains reports whether p lies within this road's drivable zone.
func (r Road) Contains(p geom.Position) bool {
	minX, maxX, minY, maxY := r.DrivableZone()
	return p.X >= minX && p.X <= maxX && p.Y >= minY && p.Y <= maxY
}

// RandomPoint returns a point uniformly distributed along the road's length
// (start to end), parameterised by t in [0, 1].
func (r Road) RandomPoint(t float64) geom.Position {
	if r.Axis == Vertical {
		return geom.Position{
			X: float64(r.Start.X),
			Y: float64(r.Start.Y) + t*float64(r.End.Y-r.Start.Y),
		}
	}
	return geom.Position{
		X: float64(r.Start.X) + t*float64(r.End.X-r.Start.X),
		Y: float64(r.Start.Y),
	}
}
