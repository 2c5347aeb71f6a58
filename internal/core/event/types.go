package event

import "github.com/loot-dogs/gameserver/internal/avatar"

// WorldTicked is emitted once per completed tick, after every session has
// advanced and before the next tick's motion is planned.
type WorldTicked struct {
	DtMillis float64
}

// PlayerJoined is emitted when a new avatar is admitted into a session.
type PlayerJoined struct {
	SessionID int
	AvatarID  int
	Name      string
}

// PlayerRetired is emitted once per avatar, the tick it goes idle for too
// long. Subscribers receive it after the avatar has already been removed
// from its session and its record handed to the World's RetirementSink.
type PlayerRetired struct {
	SessionID int
	Record    avatar.RetirementRecord
}
