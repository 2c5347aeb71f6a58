// Package session implements the per-map simulation container — the heart
// of the engine. Grounded on original_source/model.cpp's
// GameSession::UpdateTime.
package session

import (
	"math"
	"math/rand"
	"sort"

	"github.com/loot-dogs/gameserver/internal/avatar"
	"github.com/loot-dogs/gameserver/internal/collision"
	"github.com/loot-dogs/gameserver/internal/geom"
	"github.com/loot-dogs/gameserver/internal/loot"
	"github.com/loot-dogs/gameserver/internal/mapdata"
)

// gathererWidth is the fixed collision radius of a moving avatar.
const gathererWidth = 0.3

// Session is the per-map simulation container: a set of avatars, a set of
// outstanding loot, and the single tick-advancement operation that
// orchestrates motion, collision detection and loot spawning.
//
// A Session exclusively owns its loot map. It shares its avatars with the
// caller's player registry (both may look them up; the registry removes an
// entry on retire, driven by the OnRetire callback passed to Advance).
type Session struct {
	ID              int
	Map             *mapdata.Map
	SpawnRandomized bool

	avatars map[int]*avatar.Avatar
	loot    map[int64]*loot.Dropped
	lootGen *loot.Generator
	rng     *rand.Rand
}

// New builds an empty session bound to m.
func New(id int, m *mapdata.Map, spawnRandomized bool, lootGen *loot.Generator, seed int64) *Session {
	return &Session{
		ID:              id,
		Map:             m,
		SpawnRandomized: spawnRandomized,
		avatars:         make(map[int]*avatar.Avatar),
		loot:            make(map[int64]*loot.Dropped),
		lootGen:         lootGen,
		rng:             rand.New(rand.NewSource(seed)),
	}
}

// SpawnPoint returns where a newly-joined avatar should appear, honoring
// SpawnRandomized.
func (s *Session) SpawnPoint() geom.Position {
	if s.SpawnRandomized {
		return s.Map.RandomSpawnPoint(s.rng.Float64(), s.rng.Float64())
	}
	return s.Map.DefaultSpawnPoint()
}

// AddAvatar registers a (already-spawned) avatar with this session. The
// avatar's MapID must equal Map.ID.
func (s *Session) AddAvatar(a *avatar.Avatar) {
	s.avatars[a.ID] = a
}

// Avatar looks up a live avatar by id.
func (s *Session) Avatar(id int) (*avatar.Avatar, bool) {
	a, ok := s.avatars[id]
	return a, ok
}

// Avatars returns all live avatars, sorted by id for deterministic
// iteration.
func (s *Session) Avatars() []*avatar.Avatar {
	out := make([]*avatar.Avatar, 0, len(s.avatars))
	for _, a := range s.avatars {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Loot returns a snapshot of the loot map, sorted by item id.
func (s *Session) Loot() []*loot.Dropped {
	out := make([]*loot.Dropped, 0, len(s.loot))
	for _, d := range s.loot {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item.ID < out[j].Item.ID })
	return out
}

// RestoreLoot replaces the loot map wholesale — used only by the snapshot
// codec on restore.
func (s *Session) RestoreLoot(items map[int64]*loot.Dropped) {
	s.loot = items
}

// planned is the per-avatar result of the motion-planning step.
type planned struct {
	avatarID int
	move     avatar.MoveResult
}

// Advance runs exactly one tick: plan motion for every avatar, detect
// collisions between avatars and (loot ∪ offices), apply pickup/drop-off
// effects, retire idle avatars, then spawn fresh loot.
//
// onRetire is invoked once per retiring avatar, after it has been removed
// from this session's avatar set, so the caller can remove it from the
// World's registries and notify the leaderboard sink. A panic inside
// onRetire is recovered and swallowed — a persistence failure must not take
// down the simulation tick; the caller should
// log from within onRetire if it wants the error recorded.
func (s *Session) Advance(dtMillis float64, nextLootID func() int64, onRetire func(*avatar.Avatar)) {
	avatars := s.Avatars()

	// 1. Plan motion.
	gatherers := make([]collision.Gatherer, 0, len(avatars))
	planByGatherer := make([]planned, 0, len(avatars))
	for _, a := range avatars {
		vertical, horizontal := s.Map.RoadsAt(a.Position)
		road := pickRoad(a.Velocity, vertical, horizontal)
		move := s.planMove(a, dtMillis, road)

		gatherers = append(gatherers, collision.Gatherer{
			Start: move.StartPos,
			End:   move.EndPos,
			Width: gathererWidth,
		})
		planByGatherer = append(planByGatherer, planned{avatarID: a.ID, move: move})
	}

	// 2. Build items: loot first (tracked by id), then offices (untracked).
	lootOrder := s.Loot()
	items := make([]collision.Item, 0, len(lootOrder)+len(s.Map.Offices))
	for _, d := range lootOrder {
		items = append(items, collision.Item{Position: d.Position, Width: 0})
	}
	officeStart := len(lootOrder)
	for _, o := range s.Map.Offices {
		items = append(items, collision.Item{
			Position: geom.Position{X: float64(o.Position.X), Y: float64(o.Position.Y)},
			Width:    mapdata.OfficeRadius(),
		})
	}

	// 3. Apply each avatar's planned motion before resolving collisions,
	// move first, then collide, so a dog can't pick up loot it hasn't reached yet.
	retiring := make([]*avatar.Avatar, 0)
	for _, p := range planByGatherer {
		a := s.avatars[p.avatarID]
		if a == nil {
			continue
		}
		if a.Advance(dtMillis, p.move, s.Map.IdleLimitMs) == avatar.Retired {
			retiring = append(retiring, a)
		}
	}

	// 4. Run collisions and process events in ascending time order.
	events := collision.FindGatherEvents(gatherers, items)
	for _, ev := range events {
		a := s.avatars[planByGatherer[ev.GathererIdx].avatarID]
		if a == nil {
			continue
		}
		if ev.ItemIdx >= officeStart {
			a.EmptyBag()
			continue
		}
		dropped := lootOrder[ev.ItemIdx]
		if _, stillOnGround := s.loot[dropped.Item.ID]; stillOnGround && len(a.Bag) < s.Map.BagCapacity {
			a.Collect(dropped.Item)
			delete(s.loot, dropped.Item.ID)
		}
	}

	// 5. Retire losers.
	for _, a := range retiring {
		delete(s.avatars, a.ID)
		safeCall(onRetire, a)
	}

	// 6. Spawn loot last, so it is never consumed by the tick that just ran.
	s.generateLoot(dtMillis, nextLootID)
}

func (s *Session) planMove(a *avatar.Avatar, dtMillis float64, road *mapdata.Road) avatar.MoveResult {
	start := a.Position
	if road == nil {
		// No road under the avatar at all — a bug elsewhere let it drift
		// off the graph. Treat as stationary rather than crash the tick.
		return avatar.MoveResult{StartPos: start, EndPos: start, Duration: 0}
	}

	minX, maxX, minY, maxY := road.DrivableZone()
	dest := start.Add(a.Velocity, dtMillis)
	clamped := dest.Clamp(minX, maxX, minY, maxY)

	reachedBoundary := clamped != dest
	var duration float64
	switch {
	case reachedBoundary:
		dx, dy := clamped.X-start.X, clamped.Y-start.Y
		distance := hypot(dx, dy)
		speed := hypot(a.Velocity.X, a.Velocity.Y)
		if speed > 0 {
			duration = distance / speed
		}
	case a.Velocity.X == 0 && a.Velocity.Y == 0:
		duration = 0
	default:
		duration = dtMillis
	}

	return avatar.MoveResult{
		StartPos:        start,
		EndPos:          clamped,
		Duration:        duration,
		ReachedBoundary: reachedBoundary,
	}
}

// pickRoad selects the road aligned with the avatar's velocity axis,
// falling back to the other axis so a stopped avatar sitting at an
// intersection can still start moving on either road.
func pickRoad(v geom.Velocity, vertical, horizontal *mapdata.Road) *mapdata.Road {
	movingHorizontally := v.X != 0
	movingVertically := v.Y != 0

	switch {
	case movingHorizontally && horizontal != nil:
		return horizontal
	case movingVertically && vertical != nil:
		return vertical
	case horizontal != nil:
		return horizontal
	default:
		return vertical
	}
}

func (s *Session) generateLoot(dtMillis float64, nextLootID func() int64) {
	n := s.lootGen.Generate(dtMillis, len(s.loot), len(s.avatars))
	for i := 0; i < n; i++ {
		lootType := s.rng.Intn(len(s.Map.LootTypes))
		item := loot.Item{
			ID:    nextLootID(),
			Type:  lootType,
			Value: s.Map.LootTypes[lootType].Value,
		}
		pos := s.Map.RandomSpawnPoint(s.rng.Float64(), s.rng.Float64())
		s.loot[item.ID] = &loot.Dropped{Item: item, Position: pos}
	}
}

func safeCall(fn func(*avatar.Avatar), a *avatar.Avatar) {
	defer func() { _ = recover() }()
	fn(a)
}

func hypot(x, y float64) float64 {
	return math.Sqrt(x*x + y*y)
}
