// Package bridge moves IBT between Ethereum and Sui by burning on the source
// chain and minting on the destination chain.
//
// The two phases are sequential and not atomic. When the destination mint
// fails after a confirmed source burn the burn stays in place; the transfer
// journal keeps such transfers visible for manual reconciliation.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ibt-bridge/pkg/chain"
	"ibt-bridge/pkg/journal"
	"ibt-bridge/pkg/parser"
	"ibt-bridge/pkg/types"
	"ibt-bridge/pkg/units"
)

// EthereumLedger is the Ethereum side of the bridge
type EthereumLedger interface {
	BalanceOf(ctx context.Context, account string) (*big.Int, error)
	Burn(ctx context.Context, account string, amount *big.Int) (string, error)
	Mint(ctx context.Context, account string, amount *big.Int) (string, error)
}

// SuiLedger is the Sui side of the bridge
type SuiLedger interface {
	CoinType() string
	Balance(ctx context.Context, owner string) (uint64, error)
	Coins(ctx context.Context, owner string) ([]chain.Coin, error)
	MergeCoins(ctx context.Context, primary chain.Coin, others []chain.Coin) (chain.Coin, error)
	SplitCoin(ctx context.Context, coin chain.Coin, amount uint64) (chain.Coin, error)
	Mint(ctx context.Context, amount uint64, recipient string) (string, error)
	Burn(ctx context.Context, coin chain.Coin) (string, error)
}

// Journal records transfer progress durably
type Journal interface {
	Start(t *journal.Transfer) (*journal.Transfer, error)
	MarkSourceConfirmed(id, txHash string) error
	MarkCompleted(id, txHash string) error
	MarkFailed(id string, phase journal.Phase, txHash, message string) error
}

// Result describes a finished transfer, successful or not
type Result struct {
	TransferID        string          `json:"transfer_id"`
	Direction         types.Direction `json:"direction"`
	Amount            string          `json:"amount"`
	SourceAmount      string          `json:"source_amount"`
	DestinationAmount string          `json:"destination_amount"`
	Truncated         string          `json:"truncated,omitempty"` // wei dropped by the 18 to 9 decimal conversion
	State             State           `json:"state"`
	SourceTx          string          `json:"source_tx,omitempty"`
	DestinationTx     string          `json:"destination_tx,omitempty"`
	Balances          *types.Balances `json:"balances,omitempty"`
}

// Orchestrator runs one transfer at a time
type Orchestrator struct {
	eth      EthereumLedger
	sui      SuiLedger
	journal  Journal
	logger   *zap.Logger
	observer Observer

	mu    sync.Mutex
	busy  bool
	state State
}

// NewOrchestrator creates an orchestrator. journal may be nil, in which case
// nothing is recorded.
func NewOrchestrator(eth EthereumLedger, sui SuiLedger, j Journal, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		eth:     eth,
		sui:     sui,
		journal: j,
		logger:  logger.Named("bridge"),
		state:   StateIdle,
	}
}

// SetObserver registers a callback for state changes
func (o *Orchestrator) SetObserver(observer Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observer = observer
}

// State returns the state of the current or most recent transfer
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) acquire() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy {
		return false
	}
	o.busy = true
	o.state = StateIdle
	return true
}

func (o *Orchestrator) release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.busy = false
}

func (o *Orchestrator) transition(state State, direction types.Direction) {
	o.mu.Lock()
	o.state = state
	observer := o.observer
	o.mu.Unlock()

	if observer != nil {
		observer(state, direction)
	}
}

// transfer carries the converted amounts of a validated request
type transfer struct {
	req       types.TransferRequest
	id        string
	wei       *big.Int
	mist      uint64
	truncated *big.Int
	coins     []chain.Coin
}

// Transfer burns on the source chain, waits for confirmation, then mints on
// the destination chain. The returned Result is non-nil whenever the request
// got past validation, including on failure.
func (o *Orchestrator) Transfer(ctx context.Context, req types.TransferRequest) (*Result, error) {
	if !o.acquire() {
		return nil, ErrTransferInProgress
	}
	defer o.release()

	t, err := o.prepare(req)
	if err != nil {
		return nil, err
	}

	if req.Direction == types.SuiToEth {
		if err := o.loadCoins(ctx, t); err != nil {
			return nil, err
		}
	}

	if err := o.open(t); err != nil {
		return nil, err
	}

	result := &Result{
		TransferID:        t.id,
		Direction:         req.Direction,
		Amount:            req.Amount,
		SourceAmount:      t.sourceAmount(),
		DestinationAmount: t.destinationAmount(),
		State:             StateBurningSource,
	}
	if t.truncated != nil && t.truncated.Sign() > 0 {
		result.Truncated = t.truncated.String()
	}

	o.logger.Info("transfer started",
		zap.String("id", t.id),
		zap.String("direction", string(req.Direction)),
		zap.String("amount", req.Amount),
		zap.String("source", req.SourceAccount),
		zap.String("destination", req.DestinationAccount))

	// Phase 1: burn on the source chain
	o.transition(StateBurningSource, req.Direction)

	var sourceTx string
	if req.Direction == types.EthToSui {
		sourceTx, err = o.burnOnEthereum(ctx, t)
	} else {
		sourceTx, err = o.burnOnSui(ctx, t)
	}
	if err != nil {
		return o.fail(t, result, journal.PhaseSource, err)
	}
	result.SourceTx = sourceTx

	o.logger.Info("source burn confirmed", zap.String("id", t.id), zap.String("tx", sourceTx))
	if o.journal != nil {
		if err := o.journal.MarkSourceConfirmed(t.id, sourceTx); err != nil {
			o.logger.Warn("failed to record source confirmation", zap.String("id", t.id), zap.Error(err))
		}
	}

	// Phase 2: mint on the destination chain
	o.transition(StateMintingDestination, req.Direction)
	result.State = StateMintingDestination

	var destTx string
	if req.Direction == types.EthToSui {
		destTx, err = o.mintOnSui(ctx, t)
	} else {
		destTx, err = o.mintOnEthereum(ctx, t)
	}
	if err != nil {
		return o.fail(t, result, journal.PhaseDestination, err)
	}
	result.DestinationTx = destTx

	o.logger.Info("destination mint confirmed", zap.String("id", t.id), zap.String("tx", destTx))
	if o.journal != nil {
		if err := o.journal.MarkCompleted(t.id, destTx); err != nil {
			o.logger.Warn("failed to record completion", zap.String("id", t.id), zap.Error(err))
		}
	}

	o.transition(StateCompleted, req.Direction)
	result.State = StateCompleted

	ethAccount, suiAccount := req.SourceAccount, req.DestinationAccount
	if req.Direction == types.SuiToEth {
		ethAccount, suiAccount = suiAccount, ethAccount
	}
	balances, err := o.Balances(ctx, ethAccount, suiAccount)
	if err != nil {
		o.logger.Warn("failed to refresh balances", zap.String("id", t.id), zap.Error(err))
	} else {
		result.Balances = balances
	}

	return result, nil
}

// prepare validates the request and converts the amount for both chains.
// Sui to Ethereum amounts with more than 9 decimals are rejected, not
// truncated, so the Ethereum mint always equals the Sui burn.
func (o *Orchestrator) prepare(req types.TransferRequest) (*transfer, error) {
	if err := parser.ValidateTransferRequest(&req); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	if req.Direction != types.EthToSui && req.Direction != types.SuiToEth {
		return nil, validationErrorf("unknown direction '%s'", req.Direction)
	}

	t := &transfer{req: req}

	switch req.Direction {
	case types.EthToSui:
		wei, err := units.ParseAmount(req.Amount)
		if err != nil {
			return nil, &ValidationError{Reason: err.Error()}
		}
		if wei.Sign() <= 0 {
			return nil, validationErrorf("amount must be greater than 0")
		}
		mist, truncated, err := units.ToSui(wei)
		if err != nil {
			return nil, &ValidationError{Reason: err.Error()}
		}
		if mist == 0 {
			return nil, validationErrorf("amount %s is smaller than the smallest Sui unit", req.Amount)
		}
		t.wei, t.mist, t.truncated = wei, mist, truncated

	case types.SuiToEth:
		mist, err := units.ParseSuiAmount(req.Amount)
		if err != nil {
			return nil, &ValidationError{Reason: err.Error()}
		}
		if mist == 0 {
			return nil, validationErrorf("amount must be greater than 0")
		}
		t.mist, t.wei = mist, units.FromSui(mist)
	}

	return t, nil
}

// loadCoins reads the Sui source coins before anything is written on chain
func (o *Orchestrator) loadCoins(ctx context.Context, t *transfer) error {
	coins, err := o.sui.Coins(ctx, t.req.SourceAccount)
	if err != nil {
		return &ChainCallError{Chain: types.ChainSui, Op: "list coins", Phase: StateIdle, Err: err}
	}
	if len(coins) == 0 {
		return &NoFundsError{Owner: t.req.SourceAccount, CoinType: o.sui.CoinType()}
	}

	var total uint64
	for _, coin := range coins {
		total += coin.Balance
	}
	if total < t.mist {
		return validationErrorf("insufficient balance on Sui: have %s, need %s",
			units.FormatMist(total), units.FormatMist(t.mist))
	}

	t.coins = coins
	return nil
}

// open records the transfer as pending and assigns its id
func (o *Orchestrator) open(t *transfer) error {
	if o.journal == nil {
		t.id = uuid.New().String()
		return nil
	}

	record, err := o.journal.Start(&journal.Transfer{
		Direction:          t.req.Direction,
		Amount:             t.req.Amount,
		SourceAmount:       t.sourceAmount(),
		DestinationAmount:  t.destinationAmount(),
		SourceAccount:      t.req.SourceAccount,
		DestinationAccount: t.req.DestinationAccount,
	})
	if err != nil {
		return fmt.Errorf("failed to record transfer: %w", err)
	}
	t.id = record.ID
	return nil
}

func (o *Orchestrator) fail(t *transfer, result *Result, phase journal.Phase, err error) (*Result, error) {
	var txHash string
	var cce *ChainCallError
	if errors.As(err, &cce) {
		txHash = cce.TxHash
	}

	o.logger.Error("transfer failed",
		zap.String("id", t.id),
		zap.String("phase", string(phase)),
		zap.Error(err))

	if o.journal != nil {
		if jerr := o.journal.MarkFailed(t.id, phase, txHash, err.Error()); jerr != nil {
			o.logger.Warn("failed to record failure", zap.String("id", t.id), zap.Error(jerr))
		}
	}

	o.transition(StateFailed, t.req.Direction)
	result.State = StateFailed
	return result, err
}

func (o *Orchestrator) burnOnEthereum(ctx context.Context, t *transfer) (string, error) {
	hash, err := o.eth.Burn(ctx, t.req.SourceAccount, t.wei)
	if err != nil {
		return "", &ChainCallError{Chain: types.ChainEthereum, Op: "burn", Phase: StateBurningSource, TxHash: hash, Err: err}
	}
	return hash, nil
}

func (o *Orchestrator) burnOnSui(ctx context.Context, t *transfer) (string, error) {
	merged := t.coins[0]
	if len(t.coins) > 1 {
		var err error
		merged, err = o.sui.MergeCoins(ctx, t.coins[0], t.coins[1:])
		if err != nil {
			return "", &ChainCallError{Chain: types.ChainSui, Op: "merge coins", Phase: StateBurningSource, Err: err}
		}
	}

	split, err := o.sui.SplitCoin(ctx, merged, t.mist)
	if err != nil {
		return "", &ChainCallError{Chain: types.ChainSui, Op: "split coin", Phase: StateBurningSource, Err: err}
	}

	digest, err := o.sui.Burn(ctx, split)
	if err != nil {
		return "", &ChainCallError{Chain: types.ChainSui, Op: "burn", Phase: StateBurningSource, Err: err}
	}
	return digest, nil
}

func (o *Orchestrator) mintOnSui(ctx context.Context, t *transfer) (string, error) {
	digest, err := o.sui.Mint(ctx, t.mist, t.req.DestinationAccount)
	if err != nil {
		return "", &ChainCallError{Chain: types.ChainSui, Op: "mint", Phase: StateMintingDestination, Err: err}
	}
	return digest, nil
}

func (o *Orchestrator) mintOnEthereum(ctx context.Context, t *transfer) (string, error) {
	hash, err := o.eth.Mint(ctx, t.req.DestinationAccount, t.wei)
	if err != nil {
		return "", &ChainCallError{Chain: types.ChainEthereum, Op: "mint", Phase: StateMintingDestination, TxHash: hash, Err: err}
	}
	return hash, nil
}

// Balances reads both balances concurrently. An empty account is skipped and
// reported as "".
func (o *Orchestrator) Balances(ctx context.Context, ethAccount, suiAccount string) (*types.Balances, error) {
	var balances types.Balances
	g, gctx := errgroup.WithContext(ctx)

	if ethAccount != "" {
		g.Go(func() error {
			wei, err := o.eth.BalanceOf(gctx, ethAccount)
			if err != nil {
				return &ChainCallError{Chain: types.ChainEthereum, Op: "read balance", Err: err}
			}
			balances.Ethereum = units.FormatWei(wei)
			return nil
		})
	}

	if suiAccount != "" {
		g.Go(func() error {
			mist, err := o.sui.Balance(gctx, suiAccount)
			if err != nil {
				return &ChainCallError{Chain: types.ChainSui, Op: "read balance", Err: err}
			}
			balances.Sui = units.FormatMist(mist)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &balances, nil
}

func (t *transfer) sourceAmount() string {
	if t.req.Direction == types.SuiToEth {
		return fmt.Sprintf("%d", t.mist)
	}
	return t.wei.String()
}

func (t *transfer) destinationAmount() string {
	if t.req.Direction == types.SuiToEth {
		return t.wei.String()
	}
	return fmt.Sprintf("%d", t.mist)
}
