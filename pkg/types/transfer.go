package types

import (
	"fmt"
	"strings"
)

// Chain identifies one side of the bridge
type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainSui      Chain = "sui"
)

// DisplayName returns the human readable chain name
func (c Chain) DisplayName() string {
	switch c {
	case ChainEthereum:
		return "Ethereum"
	case ChainSui:
		return "Sui"
	default:
		return string(c)
	}
}

// Direction is the route a transfer takes
type Direction string

const (
	EthToSui Direction = "eth-to-sui"
	SuiToEth Direction = "sui-to-eth"
)

// ParseDirection accepts the canonical direction names
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case EthToSui:
		return EthToSui, nil
	case SuiToEth:
		return SuiToEth, nil
	}
	return "", fmt.Errorf("unknown direction %q (expected %s or %s)", s, EthToSui, SuiToEth)
}

// Source returns the chain tokens are burned on
func (d Direction) Source() Chain {
	if d == SuiToEth {
		return ChainSui
	}
	return ChainEthereum
}

// Destination returns the chain tokens are minted on
func (d Direction) Destination() Chain {
	if d == SuiToEth {
		return ChainEthereum
	}
	return ChainSui
}

// TransferRequest represents a user's bridge command
type TransferRequest struct {
	Direction          Direction
	Amount             string
	SourceAccount      string
	DestinationAccount string
}

// Balances holds both sides of the bridge in display units
type Balances struct {
	Ethereum string `json:"ethereum"`
	Sui      string `json:"sui"`
}
