package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"ibt-bridge/pkg/types"
)

var suiAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)

var transferPattern = regexp.MustCompile(`^(\d*\.?\d+|\d+\.)\s+(?:IBT\s+)?(?:FROM\s+)?([A-Z]+)\s+TO\s+([A-Z]+)$`)

// ParseTransferCommand parses a natural language bridge command
// Examples:
//   - "5 eth to sui"
//   - "bridge 1.5 IBT from sui to ethereum"
//   - "0.25 a to b"
func ParseTransferCommand(command string) (*types.TransferRequest, error) {
	// Normalize the command
	command = strings.Join(strings.Fields(strings.ToUpper(command)), " ")
	command = strings.TrimPrefix(command, "BRIDGE ")

	matches := transferPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid transfer command format. Expected: '<amount> <chain> to <chain>' (e.g., '5 eth to sui')")
	}

	source, err := NormalizeChain(matches[2])
	if err != nil {
		return nil, err
	}
	dest, err := NormalizeChain(matches[3])
	if err != nil {
		return nil, err
	}

	direction, err := DirectionBetween(source, dest)
	if err != nil {
		return nil, err
	}

	return &types.TransferRequest{
		Direction: direction,
		Amount:    matches[1],
	}, nil
}

// DirectionBetween returns the bridge direction for a source/destination pair
func DirectionBetween(source, dest types.Chain) (types.Direction, error) {
	switch {
	case source == types.ChainEthereum && dest == types.ChainSui:
		return types.EthToSui, nil
	case source == types.ChainSui && dest == types.ChainEthereum:
		return types.SuiToEth, nil
	default:
		return "", fmt.Errorf("cannot bridge from %s to %s", source.DisplayName(), dest.DisplayName())
	}
}

// NormalizeChain maps chain aliases to a bridge chain
func NormalizeChain(name string) (types.Chain, error) {
	name = strings.TrimSpace(strings.ToLower(name))

	aliases := map[string]types.Chain{
		"eth":      types.ChainEthereum,
		"ethereum": types.ChainEthereum,
		"evm":      types.ChainEthereum,
		"a":        types.ChainEthereum,
		"sui":      types.ChainSui,
		"b":        types.ChainSui,
	}

	if chain, exists := aliases[name]; exists {
		return chain, nil
	}

	return "", fmt.Errorf("unsupported chain: %s (supported: ethereum, sui)", name)
}

// ValidateTransferRequest validates that a transfer request has all required fields
func ValidateTransferRequest(req *types.TransferRequest) error {
	if req.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	if req.Direction == "" {
		return fmt.Errorf("direction is required")
	}
	if req.SourceAccount == "" {
		return fmt.Errorf("%s account is not connected", req.Direction.Source().DisplayName())
	}
	if req.DestinationAccount == "" {
		return fmt.Errorf("%s account is not connected", req.Direction.Destination().DisplayName())
	}
	if err := ValidateAccount(req.Direction.Source(), req.SourceAccount); err != nil {
		return err
	}
	return ValidateAccount(req.Direction.Destination(), req.DestinationAccount)
}

// ValidateAccount checks that account is well-formed for chain
func ValidateAccount(chain types.Chain, account string) error {
	switch chain {
	case types.ChainEthereum:
		if !common.IsHexAddress(account) {
			return fmt.Errorf("invalid Ethereum address: %s", account)
		}
	case types.ChainSui:
		if !suiAddressPattern.MatchString(account) {
			return fmt.Errorf("invalid Sui address: %s", account)
		}
	default:
		return fmt.Errorf("unsupported chain: %s", chain)
	}
	return nil
}
