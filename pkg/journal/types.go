package journal

import (
	"fmt"
	"time"

	"ibt-bridge/pkg/types"
)

// State is the lifecycle stage of a recorded transfer
type State string

const (
	StatePending         State = "pending"          // Accepted, source burn not confirmed
	StateSourceConfirmed State = "source_confirmed" // Source burn confirmed, destination not credited
	StateCompleted       State = "completed"        // Destination mint confirmed
	StateFailed          State = "failed"           // A phase failed; terminal
)

// Phase names the half of a transfer that failed
type Phase string

const (
	PhaseSource      Phase = "source"
	PhaseDestination Phase = "destination"
)

// ParseState validates a state name
func ParseState(s string) (State, error) {
	switch state := State(s); state {
	case StatePending, StateSourceConfirmed, StateCompleted, StateFailed:
		return state, nil
	}
	return "", fmt.Errorf("unknown state '%s' (expected pending, source_confirmed, completed or failed)", s)
}

// Transfer is the durable record of one bridge transfer
type Transfer struct {
	ID          string    `json:"id"`
	Created     time.Time `json:"created"`
	LastUpdated time.Time `json:"last_updated"`

	Direction          types.Direction `json:"direction"`
	Amount             string          `json:"amount"`              // As requested, in tokens
	SourceAmount       string          `json:"source_amount"`       // Burned, in source smallest units
	DestinationAmount  string          `json:"destination_amount"`  // Minted, in destination smallest units
	SourceAccount      string          `json:"source_account"`
	DestinationAccount string          `json:"destination_account"`

	State         State      `json:"state"`
	SourceTxHash  string     `json:"source_tx_hash,omitempty"`
	DestTxHash    string     `json:"dest_tx_hash,omitempty"`
	FailedPhase   Phase      `json:"failed_phase,omitempty"`
	FailedTxHash  string     `json:"failed_tx_hash,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	CompletedTime *time.Time `json:"completed_time,omitempty"`
}

// Validate checks that a record has the fields every state needs
func (t *Transfer) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("transfer id is required")
	}
	if t.Direction != types.EthToSui && t.Direction != types.SuiToEth {
		return fmt.Errorf("invalid direction '%s'", t.Direction)
	}
	if t.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	if t.SourceAccount == "" || t.DestinationAccount == "" {
		return fmt.Errorf("source and destination accounts are required")
	}
	if _, err := ParseState(string(t.State)); err != nil {
		return err
	}
	return nil
}

// IsTerminal returns true once nothing more will happen to the transfer
func (t *Transfer) IsTerminal() bool {
	return t.State == StateCompleted || t.State == StateFailed
}

// IsStuck returns true when value may have left the source chain but never
// reached the destination. A source failure counts once its transaction was
// broadcast, since the burn may still have landed. These need manual
// reconciliation.
func (t *Transfer) IsStuck() bool {
	switch t.State {
	case StateSourceConfirmed:
		return true
	case StateFailed:
		switch t.FailedPhase {
		case PhaseDestination:
			return true
		case PhaseSource:
			return t.FailedTxHash != ""
		}
		return false
	default:
		return false
	}
}

// TransferSummary provides a simplified view of a transfer for listing
type TransferSummary struct {
	ID        string          `json:"id"`
	Direction types.Direction `json:"direction"`
	Amount    string          `json:"amount"`
	State     State           `json:"state"`
	Stuck     bool            `json:"stuck"`
	Created   time.Time       `json:"created"`
}

// ToSummary converts a Transfer to a TransferSummary
func (t *Transfer) ToSummary() *TransferSummary {
	return &TransferSummary{
		ID:        t.ID,
		Direction: t.Direction,
		Amount:    t.Amount,
		State:     t.State,
		Stuck:     t.IsStuck(),
		Created:   t.Created,
	}
}
