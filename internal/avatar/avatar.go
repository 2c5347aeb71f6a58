// Package avatar holds the per-player kinematic state machine: position,
// velocity, facing, bag, score and idle/play timers. It never reaches back
// into its owning session — callers
// pass whatever map parameters (speed, bag capacity, idle limit) an
// operation needs.
package avatar

import (
	"github.com/loot-dogs/gameserver/internal/geom"
	"github.com/loot-dogs/gameserver/internal/loot"
)

// Outcome is the result of one Advance call.
type Outcome int

const (
	Continue Outcome = iota
	Retired
)

// MoveResult is handed to Advance by the session, which alone knows the
// road graph and can compute clamped motion.
type MoveResult struct {
	StartPos        geom.Position
	EndPos          geom.Position
	Duration        float64 // milliseconds actually spent moving
	ReachedBoundary bool
}

// Avatar is a player's in-world entity ("dog").
type Avatar struct {
	ID       int
	Name     string
	Token    string
	MapID    string
	Position geom.Position
	Velocity geom.Velocity
	Facing   Direction
	Bag      []loot.Item
	Score     int
	IdleTime  float64 // milliseconds
	TotalTime float64 // milliseconds
}

// New constructs an Avatar at spawn with zero velocity, facing North (the
// original's default), matching original_source/player.h's Player ctor.
func New(id int, name, token, mapID string, spawn geom.Position) *Avatar {
	return &Avatar{
		ID:       id,
		Name:     name,
		Token:    token,
		MapID:    mapID,
		Position: spawn,
		Facing:   North,
	}
}

// SetDirection updates facing and velocity from (facing, speed). Commanding
// an empty direction ("" -> stop=true) zeroes velocity but preserves
// facing. Any non-empty direction resets idle time to zero.
func (a *Avatar) SetDirection(d Direction, stop bool, speed float64) {
	if stop {
		a.Velocity = geom.Velocity{}
		return
	}
	a.Facing = d
	a.IdleTime = 0
	switch d {
	case North:
		a.Velocity = geom.Velocity{X: 0, Y: -speed}
	case South:
		a.Velocity = geom.Velocity{X: 0, Y: speed}
	case West:
		a.Velocity = geom.Velocity{X: -speed, Y: 0}
	case East:
		a.Velocity = geom.Velocity{X: speed, Y: 0}
	}
}

// Advance applies one tick's worth of motion (already computed by the
// session) to the avatar and updates its timers. It returns Retired exactly
// once, the tick idle time crosses idleLimitMs; the caller is responsible
// for removing the avatar and firing the retirement hook.
func (a *Avatar) Advance(dtMillis float64, move MoveResult, idleLimitMs float64) Outcome {
	timeUntilRetirement := idleLimitMs - a.IdleTime
	a.IdleTime += dtMillis - move.Duration

	if move.ReachedBoundary {
		a.Velocity = geom.Velocity{}
	}
	a.Position = move.EndPos

	if a.IdleTime >= idleLimitMs {
		a.TotalTime += timeUntilRetirement
		return Retired
	}
	a.TotalTime += dtMillis
	return Continue
}

// Collect appends item to the bag. The caller enforces capacity.
func (a *Avatar) Collect(item loot.Item) {
	a.Bag = append(a.Bag, item)
}

// EmptyBag sums the bag's values into score and clears it.
func (a *Avatar) EmptyBag() {
	for _, item := range a.Bag {
		a.Score += item.Value
	}
	a.Bag = a.Bag[:0]
}

// RetirementRecord is the leaderboard-bound record emitted exactly once,
// when an avatar retires.
type RetirementRecord struct {
	Name          string
	TotalTimeSecs float64
	Score         int
}

// Retirement builds the record to hand to the leaderboard sink.
func (a *Avatar) Retirement() RetirementRecord {
	return RetirementRecord{Name: a.Name, TotalTimeSecs: a.TotalTime / 1000, Score: a.Score}
}
