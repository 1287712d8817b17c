package testutils

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/michaelpento.lv/arbbot/chain"
	"github.com/stretchr/testify/require"
)

var (
	ChainID = big.NewInt(1313161554)

	Router1 = common.HexToAddress("0x1111111111111111111111111111111111111111")
	Router2 = common.HexToAddress("0x2222222222222222222222222222222222222222")
	WETH    = common.HexToAddress("0x3333333333333333333333333333333333333333")
	USDC    = common.HexToAddress("0x4444444444444444444444444444444444444444")
	Arb     = common.HexToAddress("0x5555555555555555555555555555555555555555")
)

// EstimateFunc answers estimateDualDexTrade calls
type EstimateFunc func(router1, router2, token1, token2 common.Address, amount *big.Int) (*big.Int, error)

// FakeBackend is an in-memory chain.Backend. Zero value is not usable; call NewFakeBackend.
type FakeBackend struct {
	mu sync.Mutex

	balances   map[common.Address]*big.Int
	balanceErr map[common.Address]error

	Estimate EstimateFunc
	// OnTrade runs when a dualDexTrade transaction is sent, e.g. to move balances
	OnTrade func(router1, router2, token1, token2 common.Address, amount *big.Int)

	SendErr       error
	ReceiptStatus uint64

	nonce     uint64
	sent      []*types.Transaction
	receipts  map[common.Hash]*types.Receipt
	callCount map[string]int
}

var _ chain.Backend = (*FakeBackend)(nil)

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		balances:      make(map[common.Address]*big.Int),
		balanceErr:    make(map[common.Address]error),
		receipts:      make(map[common.Hash]*types.Receipt),
		callCount:     make(map[string]int),
		ReceiptStatus: types.ReceiptStatusSuccessful,
	}
}

// SetBalance sets the balance the arbitrage contract holds of token
func (f *FakeBackend) SetBalance(token common.Address, v *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[token] = new(big.Int).Set(v)
	delete(f.balanceErr, token)
}

// FailBalance makes balance queries for token fail with err
func (f *FakeBackend) FailBalance(token common.Address, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balanceErr[token] = err
}

// AddBalance adjusts a balance in place; used from OnTrade hooks
func (f *FakeBackend) AddBalance(token common.Address, delta *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.balances[token]
	if !ok {
		cur = new(big.Int)
	}
	f.balances[token] = new(big.Int).Add(cur, delta)
}

// Calls returns how often method was invoked through CallContract or SendTransaction
func (f *FakeBackend) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount[method]
}

// Sent returns the transactions sent so far
func (f *FakeBackend) Sent() []*types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.Transaction(nil), f.sent...)
}

func (f *FakeBackend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (f *FakeBackend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (f *FakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(call.Data) < 4 {
		return nil, errors.New("call data too short")
	}

	if method, err := chain.ERC20().MethodById(call.Data[:4]); err == nil {
		f.count(method.Name)
		f.mu.Lock()
		balErr := f.balanceErr[*call.To]
		bal, ok := f.balances[*call.To]
		f.mu.Unlock()
		if balErr != nil {
			return nil, balErr
		}
		if !ok {
			bal = new(big.Int)
		}
		return method.Outputs.Pack(bal)
	}

	method, err := chain.ArbABI().MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	f.count(method.Name)
	if method.Name != chain.MethodEstimateDualDexTrade {
		return nil, errors.New("unexpected call to " + method.Name)
	}

	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}
	if f.Estimate == nil {
		return nil, errors.New("execution reverted")
	}
	out, err := f.Estimate(args[0].(common.Address), args[1].(common.Address), args[2].(common.Address), args[3].(common.Address), args[4].(*big.Int))
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out)
}

func (f *FakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(100), BaseFee: big.NewInt(1_000_000_000)}, nil
}

func (f *FakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce, nil
}

func (f *FakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

func (f *FakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *FakeBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 250_000, nil
}

func (f *FakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	method, err := chain.ArbABI().MethodById(tx.Data()[:4])
	if err != nil {
		return err
	}
	f.count(method.Name)
	if f.SendErr != nil {
		return f.SendErr
	}

	args, err := method.Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.nonce++
	f.sent = append(f.sent, tx)
	status := f.ReceiptStatus
	f.receipts[tx.Hash()] = &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		BlockNumber: big.NewInt(101),
		GasUsed:     180_000,
	}
	f.mu.Unlock()

	if status == types.ReceiptStatusSuccessful && f.OnTrade != nil {
		f.OnTrade(args[0].(common.Address), args[1].(common.Address), args[2].(common.Address), args[3].(common.Address), args[4].(*big.Int))
	}
	return nil
}

func (f *FakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *FakeBackend) count(method string) {
	f.mu.Lock()
	f.callCount[method]++
	f.mu.Unlock()
}

// NewTransactOpts creates keyed transactor options signing for ChainID
func NewTransactOpts(t *testing.T) (*bind.TransactOpts, *ecdsa.PrivateKey) {
	privateKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	opts, err := bind.NewKeyedTransactorWithChainID(privateKey, ChainID)
	require.NoError(t, err)
	return opts, privateKey
}
