package bridge

import "ibt-bridge/pkg/types"

// State is the orchestrator's position in a transfer
type State string

const (
	StateIdle               State = "idle"
	StateBurningSource      State = "burning_source"
	StateMintingDestination State = "minting_destination"
	StateCompleted          State = "completed"
	StateFailed             State = "failed"
)

// IsTerminal reports whether no further transition can happen
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Observer is notified of every state change during a transfer
type Observer func(state State, direction types.Direction)
