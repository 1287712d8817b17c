package trader

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/michaelpento.lv/arbbot/chain"
	"github.com/michaelpento.lv/arbbot/types"
	"go.uber.org/zap"
)

var (
	// ErrExecution covers failures to build, sign, send or confirm a trade
	ErrExecution = errors.New("trade execution failed")
	// ErrReverted means the trade was mined with a failed status
	ErrReverted = errors.New("trade reverted")
	// ErrTradeInFlight is returned when a second trade is submitted before the first settles
	ErrTradeInFlight = errors.New("trade already in flight")
)

// BalanceQuerier reads the arbitrage contract's balance of a token
type BalanceQuerier interface {
	BalanceOf(ctx context.Context, token common.Address) (*uint256.Int, error)
}

type Config struct {
	Contract common.Address
	// ConfirmTimeout bounds the wait for the trade to be mined
	ConfirmTimeout time.Duration
}

// Executor submits dualDexTrade transactions and waits for them to be mined.
// At most one trade is in flight at a time.
type Executor struct {
	contract *bind.BoundContract
	backend  chain.Backend
	opts     *bind.TransactOpts
	balances BalanceQuerier
	cfg      Config
	logger   *zap.Logger

	inFlight atomic.Bool
}

// NewExecutor creates a trade executor signing with opts
func NewExecutor(backend chain.Backend, opts *bind.TransactOpts, balances BalanceQuerier, cfg Config, logger *zap.Logger) (*Executor, error) {
	if opts == nil || opts.Signer == nil {
		return nil, fmt.Errorf("transact opts with a signer are required")
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 2 * time.Minute
	}

	return &Executor{
		contract: bind.NewBoundContract(cfg.Contract, *chain.ArbABI(), backend, backend, nil),
		backend:  backend,
		opts:     opts,
		balances: balances,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// InFlight reports whether a trade is currently being executed
func (e *Executor) InFlight() bool {
	return e.inFlight.Load()
}

// Execute commits the dual trade for route with tradeSize of route.Token1 and
// blocks until it is mined or the confirm timeout passes.
func (e *Executor) Execute(ctx context.Context, route types.Route, tradeSize *uint256.Int) (*types.TradeReceipt, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, ErrTradeInFlight
	}
	defer e.inFlight.Store(false)

	logger := e.logger.With(
		zap.String("trade_id", uuid.NewString()),
		zap.Stringer("route", route))

	before, err := e.balances.BalanceOf(ctx, route.Token1)
	if err != nil {
		logger.Warn("Failed to read balance before trade", zap.Error(err))
	}

	opts := *e.opts
	opts.Context = ctx
	tx, err := e.contract.Transact(&opts, chain.MethodDualDexTrade,
		route.Router1,
		route.Router2,
		route.Token1,
		route.Token2,
		tradeSize.ToBig(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send trade: %v", ErrExecution, err)
	}

	logger.Info("Trade sent",
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.Stringer("size", tradeSize),
		zap.Uint64("nonce", tx.Nonce()))

	waitCtx, cancel := context.WithTimeout(ctx, e.cfg.ConfirmTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, e.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: waiting for %s: %v", ErrExecution, tx.Hash().Hex(), err)
	}

	result := &types.TradeReceipt{
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber,
		GasUsed:     receipt.GasUsed,
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		logger.Error("Trade reverted",
			zap.String("tx_hash", receipt.TxHash.Hex()),
			zap.Uint64("gas_used", receipt.GasUsed))
		return result, fmt.Errorf("%w: %s", ErrReverted, receipt.TxHash.Hex())
	}

	if before != nil {
		after, err := e.balances.BalanceOf(ctx, route.Token1)
		if err != nil {
			logger.Warn("Failed to read balance after trade", zap.Error(err))
		} else {
			result.RealizedReturn = realizedReturn(before, after, tradeSize)
		}
	}

	logger.Info("Trade mined",
		zap.String("tx_hash", receipt.TxHash.Hex()),
		zap.Stringer("block", receipt.BlockNumber),
		zap.Uint64("gas_used", receipt.GasUsed),
		zap.Stringer("realized_return", result.RealizedReturn))
	return result, nil
}

// realizedReturn is the amount of token1 that came back: after - before + size
func realizedReturn(before, after, size *uint256.Int) *big.Int {
	out := new(big.Int).Sub(after.ToBig(), before.ToBig())
	return out.Add(out, size.ToBig())
}
