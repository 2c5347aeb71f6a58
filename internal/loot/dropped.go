package loot

import "github.com/loot-dogs/gameserver/internal/geom"

// Dropped is a loot Item lying on the ground at a fixed position, awaiting
// collection or the session's teardown.
type Dropped struct {
	Item     Item
	Position geom.Position
}
