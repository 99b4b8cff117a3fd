package chain

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"ibt-bridge/config"
)

// Coin is a single Sui coin object of the bridged coin type
type Coin struct {
	ObjectID string `json:"object_id"`
	Balance  uint64 `json:"balance"`
}

// CoinPage is one page of an owner's coin listing
type CoinPage struct {
	Coins      []Coin
	NextCursor string
	HasNext    bool
}

// MoveCall describes an entry function call on the bridge package
type MoveCall struct {
	Function  string
	Arguments []interface{}
}

// SuiClient is the transport the Sui gateway drives. Every mutating method
// signs, executes and waits for effects before returning the digest.
type SuiClient interface {
	Address() string
	GetCoins(ctx context.Context, owner, coinType, cursor string) (CoinPage, error)
	MergeCoins(ctx context.Context, primary, coin string) (string, error)
	SplitCoin(ctx context.Context, coin string, amount uint64) (newCoin string, digest string, err error)
	MoveCall(ctx context.Context, packageID, module string, call MoveCall) (string, error)
}

// SuiGateway wraps the IBT Move package on Sui
type SuiGateway struct {
	config config.SuiConfig
	client SuiClient
	logger *zap.Logger
}

// NewSuiGateway creates a gateway over a Sui client
func NewSuiGateway(client SuiClient, cfg config.SuiConfig, logger *zap.Logger) *SuiGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuiGateway{
		config: cfg,
		client: client,
		logger: logger.Named("sui"),
	}
}

// Address returns the signing account, or "" when the gateway is read-only
func (s *SuiGateway) Address() string {
	return s.client.Address()
}

// CoinType returns the Move type of the bridged coin
func (s *SuiGateway) CoinType() string {
	return s.config.CoinType()
}

// Coins lists every coin object of the bridged type owned by owner
func (s *SuiGateway) Coins(ctx context.Context, owner string) ([]Coin, error) {
	var coins []Coin
	cursor := ""

	for {
		page, err := s.client.GetCoins(ctx, owner, s.CoinType(), cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to get coins: %w", err)
		}
		coins = append(coins, page.Coins...)

		if !page.HasNext || page.NextCursor == "" || page.NextCursor == cursor {
			break
		}
		cursor = page.NextCursor
	}

	return coins, nil
}

// Balance returns the total balance of owner in 9-decimal units
func (s *SuiGateway) Balance(ctx context.Context, owner string) (uint64, error) {
	coins, err := s.Coins(ctx, owner)
	if err != nil {
		return 0, err
	}

	var total uint64
	for _, coin := range coins {
		total += coin.Balance
	}
	return total, nil
}

// MergeCoins folds every coin in others into primary, one transaction per coin
func (s *SuiGateway) MergeCoins(ctx context.Context, primary Coin, others []Coin) (Coin, error) {
	merged := primary
	for _, coin := range others {
		digest, err := s.client.MergeCoins(ctx, merged.ObjectID, coin.ObjectID)
		if err != nil {
			return merged, fmt.Errorf("failed to merge coin %s into %s: %w", coin.ObjectID, merged.ObjectID, err)
		}
		merged.Balance += coin.Balance

		s.logger.Debug("coin merged",
			zap.String("primary", merged.ObjectID),
			zap.String("coin", coin.ObjectID),
			zap.String("digest", digest))
	}
	return merged, nil
}

// SplitCoin splits amount off coin and returns the new coin
func (s *SuiGateway) SplitCoin(ctx context.Context, coin Coin, amount uint64) (Coin, error) {
	newCoin, digest, err := s.client.SplitCoin(ctx, coin.ObjectID, amount)
	if err != nil {
		return Coin{}, fmt.Errorf("failed to split %d from coin %s: %w", amount, coin.ObjectID, err)
	}

	s.logger.Debug("coin split",
		zap.String("source", coin.ObjectID),
		zap.String("coin", newCoin),
		zap.Uint64("amount", amount),
		zap.String("digest", digest))

	return Coin{ObjectID: newCoin, Balance: amount}, nil
}

// Mint calls <package>::<module>::mint(cap, amount, recipient)
func (s *SuiGateway) Mint(ctx context.Context, amount uint64, recipient string) (string, error) {
	digest, err := s.client.MoveCall(ctx, s.config.PackageID, s.config.Module, MoveCall{
		Function: "mint",
		Arguments: []interface{}{
			s.config.TreasuryCapID,
			strconv.FormatUint(amount, 10),
			recipient,
		},
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug("minted", zap.Uint64("amount", amount), zap.String("recipient", recipient), zap.String("digest", digest))
	return digest, nil
}

// Burn calls <package>::<module>::burn(cap, coin)
func (s *SuiGateway) Burn(ctx context.Context, coin Coin) (string, error) {
	digest, err := s.client.MoveCall(ctx, s.config.PackageID, s.config.Module, MoveCall{
		Function: "burn",
		Arguments: []interface{}{
			s.config.TreasuryCapID,
			coin.ObjectID,
		},
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug("burned", zap.String("coin", coin.ObjectID), zap.Uint64("amount", coin.Balance), zap.String("digest", digest))
	return digest, nil
}
