package bridge

import (
	"errors"
	"fmt"

	"ibt-bridge/pkg/types"
)

// ErrTransferInProgress is returned when a transfer is submitted while
// another one is still running on the same orchestrator.
var ErrTransferInProgress = errors.New("a transfer is already in progress")

// ValidationError rejects a request before any chain call
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NoFundsError means the Sui source owns no coin of the bridged type
type NoFundsError struct {
	Owner    string
	CoinType string
}

func (e *NoFundsError) Error() string {
	return fmt.Sprintf("no %s coins found for %s", e.CoinType, e.Owner)
}

// ChainCallError wraps a failed chain interaction. The underlying message is
// kept verbatim.
type ChainCallError struct {
	Chain types.Chain
	Op    string
	Phase State
	// TxHash is set when the failing transaction was broadcast
	TxHash string
	Err    error
}

func (e *ChainCallError) Error() string {
	return fmt.Sprintf("failed to %s on %s: %v", e.Op, e.Chain.DisplayName(), e.Err)
}

func (e *ChainCallError) Unwrap() error {
	return e.Err
}
