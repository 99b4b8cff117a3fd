package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibt-bridge/config"
)

// Well-known hardhat development key #0
const (
	testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAccount    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	otherAccount   = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

// fakeBackend emulates the IBT contract by decoding calldata with the real ABI
type fakeBackend struct {
	mu            sync.Mutex
	abi           abi.ABI
	chainID       *big.Int
	balances      map[common.Address]*big.Int
	owner         common.Address
	sent          []*types.Transaction
	receiptStatus uint64
	estimateErr   error
	sendErr       error
	estimates     int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(IBTABI))
	require.NoError(t, err)
	return &fakeBackend{
		abi:           parsed,
		chainID:       big.NewInt(31337),
		balances:      make(map[common.Address]*big.Int),
		owner:         common.HexToAddress(testAccount),
		receiptStatus: types.ReceiptStatusSuccessful,
	}
}

func (f *fakeBackend) decode(data []byte) (*abi.Method, []interface{}, error) {
	method, err := f.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	return method, args, err
}

func (f *fakeBackend) balance(addr common.Address) *big.Int {
	if b, ok := f.balances[addr]; ok {
		return b
	}
	return big.NewInt(0)
}

func (f *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return f.chainID, nil
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.estimates++
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	return 50_000, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	if f.receiptStatus != types.ReceiptStatusSuccessful {
		return nil
	}

	method, args, err := f.decode(tx.Data())
	if err != nil {
		return err
	}
	account := args[0].(common.Address)
	amount := args[1].(*big.Int)
	switch method.Name {
	case "mint":
		f.balances[account] = new(big.Int).Add(f.balance(account), amount)
	case "burn":
		if f.balance(account).Cmp(amount) < 0 {
			return errors.New("execution reverted: burn amount exceeds balance")
		}
		f.balances[account] = new(big.Int).Sub(f.balance(account), amount)
	}
	return nil
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	method, args, err := f.decode(msg.Data)
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "balanceOf":
		return method.Outputs.Pack(f.balance(args[0].(common.Address)))
	case "owner":
		return method.Outputs.Pack(f.owner)
	}
	return nil, fmt.Errorf("unexpected call %s", method.Name)
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return &types.Receipt{
		Status:      f.receiptStatus,
		TxHash:      txHash,
		BlockNumber: big.NewInt(7),
		GasUsed:     42_000,
	}, nil
}

func (f *fakeBackend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func testEthereumConfig() config.EthereumConfig {
	return config.EthereumConfig{
		RPCUrl:          "http://127.0.0.1:8545",
		ChainID:         31337,
		ContractAddress: config.DefaultContractAddress,
		PrivateKey:      testPrivateKey,
	}
}

func TestEthereumGatewayAddress(t *testing.T) {
	backend := newFakeBackend(t)

	gw, err := NewEthereumGateway(context.Background(), backend, testEthereumConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, testAccount, gw.Address())
	assert.Equal(t, common.HexToAddress(config.DefaultContractAddress), gw.Contract())

	cfg := testEthereumConfig()
	cfg.PrivateKey = ""
	readOnly, err := NewEthereumGateway(context.Background(), backend, cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, readOnly.Address())

	_, err = readOnly.Burn(context.Background(), testAccount, big.NewInt(1))
	assert.ErrorIs(t, err, ErrNoSigner)
}

func TestEthereumGatewayRejectsBadConfig(t *testing.T) {
	backend := newFakeBackend(t)

	cfg := testEthereumConfig()
	cfg.ContractAddress = "not-an-address"
	_, err := NewEthereumGateway(context.Background(), backend, cfg, nil)
	assert.Error(t, err)

	cfg = testEthereumConfig()
	cfg.PrivateKey = "0xzz"
	_, err = NewEthereumGateway(context.Background(), backend, cfg, nil)
	assert.Error(t, err)
}

func TestEthereumGatewayReads(t *testing.T) {
	backend := newFakeBackend(t)
	backend.balances[common.HexToAddress(testAccount)] = big.NewInt(12345)

	gw, err := NewEthereumGateway(context.Background(), backend, testEthereumConfig(), nil)
	require.NoError(t, err)

	balance, err := gw.BalanceOf(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), balance.Int64())

	owner, err := gw.Owner(context.Background())
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAccount), owner)

	_, err = gw.BalanceOf(context.Background(), "bogus")
	assert.Error(t, err)
}

func TestEthereumGatewayBurnAndMint(t *testing.T) {
	backend := newFakeBackend(t)
	account := common.HexToAddress(testAccount)
	backend.balances[account] = big.NewInt(1000)

	gw, err := NewEthereumGateway(context.Background(), backend, testEthereumConfig(), nil)
	require.NoError(t, err)

	hash, err := gw.Burn(context.Background(), testAccount, big.NewInt(400))
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)
	assert.Equal(t, backend.sent[0].Hash().Hex(), hash)

	tx := backend.sent[0]
	assert.Equal(t, common.HexToAddress(config.DefaultContractAddress), *tx.To())
	assert.Equal(t, uint64(60_000), tx.Gas(), "estimate plus 20%")
	assert.Zero(t, tx.Value().Sign())

	sender, err := types.Sender(types.NewEIP155Signer(big.NewInt(31337)), tx)
	require.NoError(t, err)
	assert.Equal(t, account, sender)

	method, args, err := backend.decode(tx.Data())
	require.NoError(t, err)
	assert.Equal(t, "burn", method.Name)
	assert.Equal(t, account, args[0])
	assert.Equal(t, int64(400), args[1].(*big.Int).Int64())

	_, err = gw.Mint(context.Background(), otherAccount, big.NewInt(250))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), backend.sent[1].Nonce())

	assert.Equal(t, int64(600), backend.balance(account).Int64())
	assert.Equal(t, int64(250), backend.balance(common.HexToAddress(otherAccount)).Int64())
}

func TestEthereumGatewayUsesConfiguredGas(t *testing.T) {
	backend := newFakeBackend(t)
	cfg := testEthereumConfig()
	gasLimit := uint64(90_000)
	gasPrice := int64(3_000_000_000)
	cfg.GasLimit = &gasLimit
	cfg.GasPrice = &gasPrice

	gw, err := NewEthereumGateway(context.Background(), backend, cfg, nil)
	require.NoError(t, err)

	_, err = gw.Mint(context.Background(), testAccount, big.NewInt(1))
	require.NoError(t, err)

	assert.Zero(t, backend.estimates)
	assert.Equal(t, gasLimit, backend.sent[0].Gas())
	assert.Equal(t, gasPrice, backend.sent[0].GasPrice().Int64())
}

func TestEthereumGatewayFailures(t *testing.T) {
	t.Run("estimate fails", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.estimateErr = errors.New("execution reverted: Ownable: caller is not the owner")

		gw, err := NewEthereumGateway(context.Background(), backend, testEthereumConfig(), nil)
		require.NoError(t, err)

		_, err = gw.Mint(context.Background(), testAccount, big.NewInt(1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "caller is not the owner")
		assert.Empty(t, backend.sent)
	})

	t.Run("send fails", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.sendErr = errors.New("user rejected transaction")

		gw, err := NewEthereumGateway(context.Background(), backend, testEthereumConfig(), nil)
		require.NoError(t, err)

		_, err = gw.Burn(context.Background(), testAccount, big.NewInt(1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "user rejected transaction")
	})

	t.Run("receipt reverted", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.receiptStatus = types.ReceiptStatusFailed

		gw, err := NewEthereumGateway(context.Background(), backend, testEthereumConfig(), nil)
		require.NoError(t, err)

		hash, err := gw.Burn(context.Background(), testAccount, big.NewInt(1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reverted")
		assert.NotEmpty(t, hash)
	})
}
