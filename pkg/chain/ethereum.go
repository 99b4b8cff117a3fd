package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"ibt-bridge/config"
)

// IBTABI is the subset of the IBT token contract the bridge calls
const IBTABI = `[
	{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"mint","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"constant":false,"inputs":[{"name":"from","type":"address"},{"name":"amount","type":"uint256"}],"name":"burn","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"constant":true,"inputs":[],"name":"owner","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

// ErrNoSigner is returned when a state-changing call is made on a read-only gateway
var ErrNoSigner = errors.New("no signing key configured")

// EthereumBackend is the part of ethclient.Client the gateway needs
type EthereumBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// EthereumGateway wraps the IBT token contract on Ethereum
type EthereumGateway struct {
	config     config.EthereumConfig
	backend    EthereumBackend
	contract   common.Address
	abi        abi.ABI
	chainID    *big.Int
	privateKey *ecdsa.PrivateKey
	account    common.Address
	logger     *zap.Logger
	closer     func()
}

// DialEthereum connects to the configured RPC endpoint
func DialEthereum(ctx context.Context, cfg config.EthereumConfig, logger *zap.Logger) (*EthereumGateway, error) {
	if cfg.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not configured for ethereum")
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	gw, err := NewEthereumGateway(ctx, client, cfg, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	gw.closer = client.Close

	return gw, nil
}

// NewEthereumGateway builds a gateway over an existing backend. Without a
// private key the gateway can only read.
func NewEthereumGateway(ctx context.Context, backend EthereumBackend, cfg config.EthereumConfig, logger *zap.Logger) (*EthereumGateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid token contract address: %s", cfg.ContractAddress)
	}

	parsedABI, err := abi.JSON(strings.NewReader(IBTABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse IBT ABI: %w", err)
	}

	gw := &EthereumGateway{
		config:   cfg,
		backend:  backend,
		contract: common.HexToAddress(cfg.ContractAddress),
		abi:      parsedABI,
		logger:   logger.Named("ethereum"),
	}

	if cfg.PrivateKey != "" {
		privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		gw.privateKey = privateKey
		gw.account = crypto.PubkeyToAddress(privateKey.PublicKey)

		if cfg.ChainID > 0 {
			gw.chainID = big.NewInt(cfg.ChainID)
		} else {
			chainID, err := backend.ChainID(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to get chain id: %w", err)
			}
			gw.chainID = chainID
		}
	}

	return gw, nil
}

// Address returns the signing account, or "" when the gateway is read-only
func (e *EthereumGateway) Address() string {
	if e.privateKey == nil {
		return ""
	}
	return e.account.Hex()
}

// Contract returns the token contract address
func (e *EthereumGateway) Contract() common.Address {
	return e.contract
}

// BalanceOf returns the token balance of an account in wei
func (e *EthereumGateway) BalanceOf(ctx context.Context, account string) (*big.Int, error) {
	if !common.IsHexAddress(account) {
		return nil, fmt.Errorf("invalid ethereum address: %s", account)
	}

	out, err := e.call(ctx, "balanceOf", common.HexToAddress(account))
	if err != nil {
		return nil, err
	}

	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T", out[0])
	}
	return balance, nil
}

// Owner returns the contract owner, the only account allowed to mint
func (e *EthereumGateway) Owner(ctx context.Context) (common.Address, error) {
	out, err := e.call(ctx, "owner")
	if err != nil {
		return common.Address{}, err
	}

	owner, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected owner result type %T", out[0])
	}
	return owner, nil
}

// Burn destroys amount wei of IBT held by account and waits for the receipt
func (e *EthereumGateway) Burn(ctx context.Context, account string, amount *big.Int) (string, error) {
	if !common.IsHexAddress(account) {
		return "", fmt.Errorf("invalid ethereum address: %s", account)
	}
	return e.transact(ctx, "burn", common.HexToAddress(account), amount)
}

// Mint creates amount wei of IBT for account and waits for the receipt
func (e *EthereumGateway) Mint(ctx context.Context, account string, amount *big.Int) (string, error) {
	if !common.IsHexAddress(account) {
		return "", fmt.Errorf("invalid ethereum address: %s", account)
	}
	return e.transact(ctx, "mint", common.HexToAddress(account), amount)
}

func (e *EthereumGateway) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := e.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s data: %w", method, err)
	}

	msg := ethereum.CallMsg{
		To:   &e.contract,
		Data: data,
	}

	result, err := e.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	out, err := e.abi.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty %s result", method)
	}
	return out, nil
}

// transact signs and sends a contract call, then blocks until it is mined
func (e *EthereumGateway) transact(ctx context.Context, method string, args ...interface{}) (string, error) {
	if e.privateKey == nil {
		return "", ErrNoSigner
	}

	data, err := e.abi.Pack(method, args...)
	if err != nil {
		return "", fmt.Errorf("failed to pack %s data: %w", method, err)
	}

	nonce, err := e.backend.PendingNonceAt(ctx, e.account)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := e.getGasPrice(ctx)
	if err != nil {
		return "", err
	}

	gasLimit, err := e.getGasLimit(ctx, data)
	if err != nil {
		return "", err
	}

	tx := types.NewTransaction(nonce, e.contract, big.NewInt(0), gasLimit, gasPrice, data)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(e.chainID), e.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := e.backend.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	hash := signedTx.Hash().Hex()
	e.logger.Debug("transaction sent",
		zap.String("method", method),
		zap.String("tx", hash),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas_limit", gasLimit))

	receipt, err := bind.WaitMined(ctx, e.backend, signedTx)
	if err != nil {
		return hash, fmt.Errorf("failed waiting for %s transaction %s: %w", method, hash, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return hash, fmt.Errorf("%s transaction %s reverted in block %s", method, hash, receipt.BlockNumber)
	}

	e.logger.Debug("transaction confirmed",
		zap.String("method", method),
		zap.String("tx", hash),
		zap.Uint64("gas_used", receipt.GasUsed))

	return hash, nil
}

// getGasPrice returns the gas price to use for transactions
func (e *EthereumGateway) getGasPrice(ctx context.Context) (*big.Int, error) {
	// Use configured gas price if available
	if e.config.GasPrice != nil {
		return big.NewInt(*e.config.GasPrice), nil
	}

	gasPrice, err := e.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return gasPrice, nil
}

// getGasLimit returns the configured limit or an estimate with a 20% buffer.
// An estimation failure usually means the call would revert, so it is returned.
func (e *EthereumGateway) getGasLimit(ctx context.Context, data []byte) (uint64, error) {
	if e.config.GasLimit != nil {
		return *e.config.GasLimit, nil
	}

	estimated, err := e.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: e.account,
		To:   &e.contract,
		Data: data,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return estimated * 120 / 100, nil
}

// Close closes the client connection
func (e *EthereumGateway) Close() {
	if e.closer != nil {
		e.closer()
	}
}
