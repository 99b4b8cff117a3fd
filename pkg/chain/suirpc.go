package chain

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/block-vision/sui-go-sdk/models"
	"github.com/block-vision/sui-go-sdk/signer"
	"github.com/block-vision/sui-go-sdk/sui"

	"ibt-bridge/config"
)

const (
	coinPageLimit      = 50
	waitForExecution   = "WaitForLocalExecution"
	executionSucceeded = "success"
)

// suiRPC is the part of the block-vision client the adapter uses
type suiRPC interface {
	SuiXGetCoins(ctx context.Context, req models.SuiXGetCoinsRequest) (models.PaginatedCoinsResponse, error)
	MergeCoins(ctx context.Context, req models.MergeCoinsRequest) (models.TxnMetaData, error)
	SplitCoin(ctx context.Context, req models.SplitCoinRequest) (models.TxnMetaData, error)
	MoveCall(ctx context.Context, req models.MoveCallRequest) (models.TxnMetaData, error)
	SignAndExecuteTransactionBlock(ctx context.Context, req models.SignAndExecuteTransactionBlockRequest) (models.SuiTransactionBlockResponse, error)
}

// SuiRPCClient implements SuiClient over the Sui JSON-RPC API
type SuiRPCClient struct {
	rpc    suiRPC
	signer *signer.Signer
	config config.SuiConfig
}

// DialSui creates a JSON-RPC client. Without a mnemonic the client is read-only.
func DialSui(cfg config.SuiConfig) (*SuiRPCClient, error) {
	if cfg.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not configured for sui")
	}

	var account *signer.Signer
	if cfg.Mnemonic != "" {
		var err error
		account, err = signer.NewSignertWithMnemonic(cfg.Mnemonic)
		if err != nil {
			return nil, fmt.Errorf("invalid sui mnemonic: %w", err)
		}
	}

	return newSuiRPCClient(sui.NewSuiClient(cfg.RPCUrl), account, cfg), nil
}

func newSuiRPCClient(rpc suiRPC, account *signer.Signer, cfg config.SuiConfig) *SuiRPCClient {
	return &SuiRPCClient{
		rpc:    rpc,
		signer: account,
		config: cfg,
	}
}

// Address returns the signing address, or "" without a mnemonic
func (c *SuiRPCClient) Address() string {
	if c.signer == nil {
		return ""
	}
	return c.signer.Address
}

// GetCoins returns one page of coins of coinType owned by owner
func (c *SuiRPCClient) GetCoins(ctx context.Context, owner, coinType, cursor string) (CoinPage, error) {
	req := models.SuiXGetCoinsRequest{
		Owner:    owner,
		CoinType: coinType,
		Limit:    coinPageLimit,
	}
	if cursor != "" {
		req.Cursor = cursor
	}

	resp, err := c.rpc.SuiXGetCoins(ctx, req)
	if err != nil {
		return CoinPage{}, err
	}

	page := CoinPage{
		Coins:      make([]Coin, 0, len(resp.Data)),
		NextCursor: resp.NextCursor,
		HasNext:    resp.HasNextPage,
	}
	for _, data := range resp.Data {
		balance, err := strconv.ParseUint(data.Balance, 10, 64)
		if err != nil {
			return CoinPage{}, fmt.Errorf("invalid balance %q for coin %s: %w", data.Balance, data.CoinObjectId, err)
		}
		page.Coins = append(page.Coins, Coin{ObjectID: data.CoinObjectId, Balance: balance})
	}

	return page, nil
}

// MergeCoins merges coin into primary
func (c *SuiRPCClient) MergeCoins(ctx context.Context, primary, coin string) (string, error) {
	if c.signer == nil {
		return "", ErrNoSigner
	}

	txn, err := c.rpc.MergeCoins(ctx, models.MergeCoinsRequest{
		Signer:      c.signer.Address,
		PrimaryCoin: primary,
		CoinToMerge: coin,
		Gas:         c.gasObject(),
		GasBudget:   c.config.GasBudget,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build merge transaction: %w", err)
	}

	resp, err := c.execute(ctx, txn)
	if err != nil {
		return "", err
	}
	return resp.Digest, nil
}

// SplitCoin splits amount off coin into a new coin object
func (c *SuiRPCClient) SplitCoin(ctx context.Context, coin string, amount uint64) (string, string, error) {
	if c.signer == nil {
		return "", "", ErrNoSigner
	}

	txn, err := c.rpc.SplitCoin(ctx, models.SplitCoinRequest{
		Signer:       c.signer.Address,
		CoinObjectId: coin,
		SplitAmounts: []string{strconv.FormatUint(amount, 10)},
		Gas:          c.gasObject(),
		GasBudget:    c.config.GasBudget,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to build split transaction: %w", err)
	}

	resp, err := c.execute(ctx, txn)
	if err != nil {
		return "", "", err
	}

	newCoin := createdCoin(resp, c.config.CoinType())
	if newCoin == "" {
		return "", resp.Digest, fmt.Errorf("split transaction %s created no %s coin", resp.Digest, c.config.CoinType())
	}
	return newCoin, resp.Digest, nil
}

// MoveCall executes an entry function of packageID::module
func (c *SuiRPCClient) MoveCall(ctx context.Context, packageID, module string, call MoveCall) (string, error) {
	if c.signer == nil {
		return "", ErrNoSigner
	}

	txn, err := c.rpc.MoveCall(ctx, models.MoveCallRequest{
		Signer:          c.signer.Address,
		PackageObjectId: packageID,
		Module:          module,
		Function:        call.Function,
		TypeArguments:   []interface{}{},
		Arguments:       call.Arguments,
		Gas:             c.gasObject(),
		GasBudget:       c.config.GasBudget,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build %s::%s transaction: %w", module, call.Function, err)
	}

	resp, err := c.execute(ctx, txn)
	if err != nil {
		return "", err
	}
	return resp.Digest, nil
}

// execute signs txn, waits for local execution and checks the effects status
func (c *SuiRPCClient) execute(ctx context.Context, txn models.TxnMetaData) (models.SuiTransactionBlockResponse, error) {
	resp, err := c.rpc.SignAndExecuteTransactionBlock(ctx, models.SignAndExecuteTransactionBlockRequest{
		TxnMetaData: txn,
		PriKey:      c.signer.PriKey,
		Options: models.SuiTransactionBlockOptions{
			ShowEffects:       true,
			ShowObjectChanges: true,
		},
		RequestType: waitForExecution,
	})
	if err != nil {
		return resp, fmt.Errorf("failed to execute transaction: %w", err)
	}

	if status := resp.Effects.Status.Status; status != executionSucceeded {
		return resp, fmt.Errorf("transaction %s failed: %s", resp.Digest, resp.Effects.Status.Error)
	}
	return resp, nil
}

func (c *SuiRPCClient) gasObject() *string {
	if c.config.GasObject == "" {
		return nil
	}
	gas := c.config.GasObject
	return &gas
}

// createdCoin finds the coin object of coinType a transaction created
func createdCoin(resp models.SuiTransactionBlockResponse, coinType string) string {
	want := "::coin::Coin<" + coinType + ">"
	for _, change := range resp.ObjectChanges {
		if change.Type == "created" && strings.HasSuffix(change.ObjectType, want) {
			return change.ObjectId
		}
	}
	return ""
}
