package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseSimulate   Phase = iota // 0: advance every session's world state
	PhaseDispatch                // 1: flush the event bus to subscribers
	PhasePersist                 // 2: periodic snapshot writes
)

// System is the interface every tick-phase participant implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
