// Package chain holds the Ethereum and Sui gateways the bridge drives.
package chain

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ibt-bridge/config"
	"ibt-bridge/pkg/types"
)

// Gateways bundles both sides of the bridge
type Gateways struct {
	Ethereum *EthereumGateway
	Sui      *SuiGateway
}

// Open connects to both chains using the loaded configuration
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Gateways, error) {
	eth, err := DialEthereum(ctx, cfg.Ethereum, logger)
	if err != nil {
		return nil, fmt.Errorf("ethereum: %w", err)
	}

	client, err := DialSui(cfg.Sui)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("sui: %w", err)
	}

	return &Gateways{
		Ethereum: eth,
		Sui:      NewSuiGateway(client, cfg.Sui, logger),
	}, nil
}

// AccountFor returns the signing account configured for a chain
func (g *Gateways) AccountFor(chain types.Chain) string {
	switch chain {
	case types.ChainEthereum:
		return g.Ethereum.Address()
	case types.ChainSui:
		return g.Sui.Address()
	default:
		return ""
	}
}

// Connected returns the chains that have a signing key configured
func (g *Gateways) Connected() []types.Chain {
	connected := make([]types.Chain, 0, 2)
	if g.Ethereum.Address() != "" {
		connected = append(connected, types.ChainEthereum)
	}
	if g.Sui.Address() != "" {
		connected = append(connected, types.ChainSui)
	}
	return connected
}

// Close releases the chain connections
func (g *Gateways) Close() {
	if g.Ethereum != nil {
		g.Ethereum.Close()
	}
}
