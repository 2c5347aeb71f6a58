// Package world is the top-level registry tying maps, sessions and players
// together. It owns every Session directly (no cyclic back-pointers) and
// exposes the per-tick operations Simulate and DispatchEvents, plus Advance,
// which runs both.
package world

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/loot-dogs/gameserver/internal/apperr"
	"github.com/loot-dogs/gameserver/internal/avatar"
	"github.com/loot-dogs/gameserver/internal/core/event"
	"github.com/loot-dogs/gameserver/internal/loot"
	"github.com/loot-dogs/gameserver/internal/mapdata"
	"github.com/loot-dogs/gameserver/internal/session"
	"github.com/loot-dogs/gameserver/internal/snapshot"
	"go.uber.org/zap"
)

// RetirementSink persists a retiring avatar's leaderboard record. Errors are
// logged by World, never propagated back into the tick.
type RetirementSink interface {
	Save(ctx context.Context, rec avatar.RetirementRecord) error
}

// World is safe for concurrent use: the HTTP handlers read from it from
// arbitrary goroutines while the tick driver calls Advance from its own.
type World struct {
	log  *zap.Logger
	bus  *event.Bus
	sink RetirementSink

	mu              sync.RWMutex
	maps            map[string]*mapdata.Map
	mapOrder        []string
	sessions        map[string]*session.Session // by map id
	playersByID     map[int]*avatar.Avatar
	playersByToken  map[string]*avatar.Avatar
	playerSession   map[int]string // avatar id -> map id
	nextPlayerID    int
	nextLootID      int64
	spawnRandomized bool
}

// New builds an empty World over the given maps. lootCfg applies uniformly
// to every session; seed feeds each session's RNG deterministically (seed+i
// for the i-th map, in map order) so a fixed seed reproduces a fixed run.
func New(maps []*mapdata.Map, lootCfg loot.Config, spawnRandomized bool, seed int64, sink RetirementSink, log *zap.Logger) *World {
	w := &World{
		log:             log,
		bus:             event.NewBus(),
		sink:            sink,
		maps:            make(map[string]*mapdata.Map, len(maps)),
		sessions:        make(map[string]*session.Session, len(maps)),
		playersByID:     make(map[int]*avatar.Avatar),
		playersByToken:  make(map[string]*avatar.Avatar),
		playerSession:   make(map[int]string),
		nextPlayerID:    1,
		nextLootID:      1,
		spawnRandomized: spawnRandomized,
	}
	for i, m := range maps {
		w.maps[m.ID] = m
		w.mapOrder = append(w.mapOrder, m.ID)
		w.sessions[m.ID] = session.New(i+1, m, spawnRandomized, loot.New(lootCfg), seed+int64(i))
	}
	sort.Strings(w.mapOrder)
	return w
}

// Bus exposes the shared event bus for subscribers set up at startup.
func (w *World) Bus() *event.Bus { return w.bus }

// MapIDs returns every map id, sorted.
func (w *World) MapIDs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, len(w.mapOrder))
	copy(out, w.mapOrder)
	return out
}

// Map looks up a map descriptor by id.
func (w *World) Map(id string) (*mapdata.Map, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	m, ok := w.maps[id]
	return m, ok
}

// Join admits a new player onto mapID under name, returning the freshly
// spawned avatar and its bearer token. Returns apperr.NotFound if mapID is
// unknown.
func (w *World) Join(mapID, name string) (*avatar.Avatar, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	sess, ok := w.sessions[mapID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, fmt.Sprintf("unknown map %q", mapID))
	}

	token, err := newToken()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "generate player token", err)
	}

	id := w.nextPlayerID
	w.nextPlayerID++
	a := avatar.New(id, name, token, mapID, sess.SpawnPoint())

	sess.AddAvatar(a)
	w.playersByID[id] = a
	w.playersByToken[token] = a
	w.playerSession[id] = mapID

	event.Emit(w.bus, event.PlayerJoined{SessionID: sess.ID, AvatarID: id, Name: name})
	return a, nil
}

// PlayerByToken resolves a bearer token to its avatar.
func (w *World) PlayerByToken(token string) (*avatar.Avatar, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	a, ok := w.playersByToken[token]
	return a, ok
}

// SetDirection applies a player's move command under World's lock, since it
// mutates the same Avatar fields (Facing, Velocity, IdleTime) that Simulate
// advances on the tick goroutine. HTTP handlers must never call
// avatar.Avatar.SetDirection directly for exactly this reason.
func (w *World) SetDirection(playerID int, d avatar.Direction, stop bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	a, ok := w.playersByID[playerID]
	if !ok {
		return apperr.New(apperr.NotFound, "player not found")
	}
	mapID := w.playerSession[playerID]
	m, ok := w.maps[mapID]
	if !ok {
		return apperr.New(apperr.Internal, "player's map vanished")
	}
	a.SetDirection(d, stop, m.DefaultSpeed)
	return nil
}

// SessionForPlayer returns the session a live player belongs to.
func (w *World) SessionForPlayer(id int) (*session.Session, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	mapID, ok := w.playerSession[id]
	if !ok {
		return nil, false
	}
	return w.sessions[mapID], true
}

// PlayersInSession returns every live avatar sharing id's session.
func (w *World) PlayersInSession(id int) ([]*avatar.Avatar, bool) {
	sess, ok := w.SessionForPlayer(id)
	if !ok {
		return nil, false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return sess.Avatars(), true
}

// Advance runs exactly one tick across every session, in map-id order for
// determinism, then dispatches the buffered event bus. It is a convenience
// wrapper around Simulate followed by DispatchEvents; main.go instead drives
// these two halves as separate phases through a system.Runner, followed by
// an optional periodic-snapshot phase.
func (w *World) Advance(dtMillis float64) {
	w.Simulate(dtMillis)
	w.DispatchEvents(dtMillis)
}

// Simulate runs motion, collision resolution, retirement and loot spawning
// for every session, in map-id order for determinism. It does not touch the
// event bus; pair it with DispatchEvents to flush buffered events.
func (w *World) Simulate(dtMillis float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	nextLootID := func() int64 {
		id := w.nextLootID
		w.nextLootID++
		return id
	}
	onRetire := w.makeRetireHandler()

	for _, mapID := range w.mapOrder {
		w.sessions[mapID].Advance(dtMillis, nextLootID, onRetire)
	}
}

// DispatchEvents emits the tick's WorldTicked event, swaps the event bus's
// buffers and delivers everything queued during Simulate to subscribers.
func (w *World) DispatchEvents(dtMillis float64) {
	event.Emit(w.bus, event.WorldTicked{DtMillis: dtMillis})
	w.bus.SwapBuffers()
	w.bus.DispatchAll()
}

// makeRetireHandler builds the onRetire callback passed into each session's
// Advance. Must be called with w.mu held; the returned closure itself
// re-enters no lock, since Session.Advance invokes it synchronously while
// World's own lock is already held by the caller.
func (w *World) makeRetireHandler() func(*avatar.Avatar) {
	return func(a *avatar.Avatar) {
		delete(w.playersByID, a.ID)
		delete(w.playersByToken, a.Token)
		mapID := w.playerSession[a.ID]
		delete(w.playerSession, a.ID)

		rec := a.Retirement()
		if w.sink != nil {
			if err := w.sink.Save(context.Background(), rec); err != nil && w.log != nil {
				w.log.Error("save retired player", zap.String("name", rec.Name), zap.Error(err))
			}
		}
		sessID := 0
		if s, ok := w.sessions[mapID]; ok {
			sessID = s.ID
		}
		event.Emit(w.bus, event.PlayerRetired{SessionID: sessID, Record: rec})
	}
}

// Snapshot captures every live player and every session's outstanding loot
// into a restorable State.
func (w *World) Snapshot() snapshot.State {
	w.mu.RLock()
	defer w.mu.RUnlock()

	state := snapshot.State{
		Players:      make(map[int]snapshot.PlayerRecord, len(w.playersByID)),
		SessionLoot:  make(map[int][]loot.Dropped, len(w.sessions)),
		NextPlayerID: w.nextPlayerID,
		NextLootID:   w.nextLootID,
	}
	for id, a := range w.playersByID {
		state.Players[id] = snapshot.PlayerRecord{
			ID:        a.ID,
			Name:      a.Name,
			Token:     a.Token,
			MapID:     a.MapID,
			Position:  a.Position,
			Velocity:  a.Velocity,
			Facing:    a.Facing,
			Bag:       a.Bag,
			Score:     a.Score,
			IdleTime:  a.IdleTime,
			TotalTime: a.TotalTime,
		}
	}
	for _, sess := range w.sessions {
		dropped := sess.Loot()
		items := make([]loot.Dropped, len(dropped))
		for i, d := range dropped {
			items[i] = *d
		}
		state.SessionLoot[sess.ID] = items
	}
	return state
}

// RestoreState repopulates a freshly-built World from a previously saved
// State. It must be called before the tick driver starts.
func (w *World) RestoreState(state snapshot.State) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, rec := range state.Players {
		a := &avatar.Avatar{
			ID:        rec.ID,
			Name:      rec.Name,
			Token:     rec.Token,
			MapID:     rec.MapID,
			Position:  rec.Position,
			Velocity:  rec.Velocity,
			Facing:    rec.Facing,
			Bag:       rec.Bag,
			Score:     rec.Score,
			IdleTime:  rec.IdleTime,
			TotalTime: rec.TotalTime,
		}
		sess, ok := w.sessions[rec.MapID]
		if !ok {
			continue
		}
		sess.AddAvatar(a)
		w.playersByID[a.ID] = a
		w.playersByToken[a.Token] = a
		w.playerSession[a.ID] = a.MapID
	}
	for _, sess := range w.sessions {
		items, ok := state.SessionLoot[sess.ID]
		if !ok {
			continue
		}
		byID := make(map[int64]*loot.Dropped, len(items))
		for i := range items {
			byID[items[i].Item.ID] = &items[i]
		}
		sess.RestoreLoot(byID)
	}
	if state.NextPlayerID > w.nextPlayerID {
		w.nextPlayerID = state.NextPlayerID
	}
	if state.NextLootID > w.nextLootID {
		w.nextLootID = state.NextLootID
	}
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
