// Package collision finds interactions between moving "gatherers" (avatar
// motion segments within one tick) and stationary "items" (loot and
// offices), ordered by time-along-segment.
//
// Grounded 1:1 on original_source/collision_detector.cpp
// (TryCollectPoint / FindGatherEvents).
package collision

import (
	"sort"

	"github.com/loot-dogs/gameserver/internal/geom"
)

// Gatherer is a moving segment swept during one tick.
type Gatherer struct {
	Start, End geom.Position
	Width      float64
}

// Item is a stationary point with a collision radius.
type Item struct {
	Position geom.Position
	Width    float64
}

// Event records one (gatherer, item) interaction.
type Event struct {
	GathererIdx int
	ItemIdx     int
	SqDistance  float64
	Time        float64 // projection ratio in [0, 1] along the gatherer's segment
}

// FindGatherEvents returns every (gatherer, item) pair where the minimum
// distance from the item's position to the gatherer's segment is within
// their combined widths, sorted ascending by Time. Gatherers with zero
// displacement are skipped — they are not considered moving.
func FindGatherEvents(gatherers []Gatherer, items []Item) []Event {
	var events []Event
	for gi, g := range gatherers {
		if g.Start == g.End {
			continue
		}
		for ii, it := range items {
			sqDistance, t, ok := tryCollect(g, it)
			if ok && sqDistance <= squared(g.Width+it.Width) {
				events = append(events, Event{
					GathererIdx: gi,
					ItemIdx:     ii,
					SqDistance:  sqDistance,
					Time:        t,
				})
			}
		}
	}
	sortByTimeStable(events)
	return events
}

// tryCollect computes the squared distance from item c to the segment
// (a=g.Start, b=g.End) and the projection ratio of c's foot-of-perpendicular
// along that segment. ok is false when the projection falls outside [0,1];
// the caller still receives sqDistance/t for symmetry with the reference
// algorithm but must not emit an event.
func tryCollect(g Gatherer, item Item) (sqDistance, projRatio float64, ok bool) {
	a, b, c := g.Start, g.End, item.Position
	if a == b {
		// Precondition violation: zero-length gatherer. FindGatherEvents
		// never calls this for such gatherers; guard here anyway so a
		// future caller gets a safe zero instead of a NaN from div-by-0.
		return 0, 0, false
	}
	ux, uy := c.X-a.X, c.Y-a.Y
	vx, vy := b.X-a.X, b.Y-a.Y
	uDotV := ux*vx + uy*vy
	uLen2 := ux*ux + uy*uy
	vLen2 := vx*vx + vy*vy

	projRatio = uDotV / vLen2
	sqDistance = uLen2 - (uDotV*uDotV)/vLen2

	return sqDistance, projRatio, projRatio >= 0 && projRatio <= 1
}

func squared(v float64) float64 { return v * v }

// sortByTimeStable sorts events ascending by Time. Ties may land in any
// stable order — consumers process items exclusively (first event that
// still finds the item wins) — so stability just preserves gatherer/item
// enumeration order as the tiebreak, which is enough to make tests
// deterministic.
func sortByTimeStable(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})
}
