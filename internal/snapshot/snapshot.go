// Package snapshot persists and restores the full in-memory world state to
// a single JSON file, so a restart doesn't strand connected players or
// reset the map's loot. Grounded on
// wricardo-tesla-road-trip-game/game/session/file_persistence.go's JSON
// session persistence; the atomic temp-then-rename write is grounded on
// original_source/model_serialization.cpp's SaveGameStateInFile.
package snapshot

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/loot-dogs/gameserver/internal/apperr"
	"github.com/loot-dogs/gameserver/internal/avatar"
	"github.com/loot-dogs/gameserver/internal/geom"
	"github.com/loot-dogs/gameserver/internal/loot"
)

// PlayerRecord is one avatar's full restorable state.
type PlayerRecord struct {
	ID        int              `json:"id"`
	Name      string           `json:"name"`
	Token     string           `json:"token"`
	MapID     string           `json:"mapId"`
	Position  geom.Position    `json:"position"`
	Velocity  geom.Velocity    `json:"velocity"`
	Facing    avatar.Direction `json:"facing"`
	Bag       []loot.Item      `json:"bag"`
	Score     int              `json:"score"`
	IdleTime  float64          `json:"idleTime"`
	TotalTime float64          `json:"totalTime"`
}

// State is the full restorable world state.
type State struct {
	Players      map[int]PlayerRecord   `json:"players"`
	SessionLoot  map[int][]loot.Dropped `json:"sessionLoot"`
	NextPlayerID int                    `json:"nextPlayerId"`
	NextLootID   int64                  `json:"nextLootId"`
}

// Save writes state to path atomically: it writes to a temp file in the
// same directory, then renames over the destination, so a crash mid-write
// never leaves a truncated or partially-written file in place.
func Save(path string, state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.Internal, "marshal snapshot", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return apperr.Wrap(apperr.Internal, "create temp snapshot file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperr.Wrap(apperr.Internal, "write temp snapshot file", err)
	}
	if err := tmp.Close(); err != nil {
		return apperr.Wrap(apperr.Internal, "close temp snapshot file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return apperr.Wrap(apperr.Internal, "rename snapshot into place", err)
	}
	return nil
}

// Load reads state from path. A missing file is not an error — it returns
// an empty State so startup can proceed with a cold world. A file that
// exists but fails to parse is reported as apperr.CorruptSnapshot.
func Load(path string) (State, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return State{Players: map[int]PlayerRecord{}, SessionLoot: map[int][]loot.Dropped{}}, nil
	}
	if err != nil {
		return State{}, apperr.Wrap(apperr.Internal, "read snapshot file", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, apperr.Wrap(apperr.CorruptSnapshot, "parse snapshot file", err)
	}
	if state.Players == nil {
		state.Players = map[int]PlayerRecord{}
	}
	if state.SessionLoot == nil {
		state.SessionLoot = map[int][]loot.Dropped{}
	}
	return state, nil
}
