package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/michaelpento.lv/arbbot/config"
	"github.com/michaelpento.lv/arbbot/types"
	bpsmath "github.com/michaelpento.lv/arbbot/utils/math"
	"go.uber.org/zap"
)

var (
	ErrInitialization = errors.New("ledger initialization failed")
	ErrQuery          = errors.New("balance query failed")
	ErrUnknownAsset   = errors.New("unknown asset")
	ErrDivisionByZero = bpsmath.ErrDivisionByZero
)

// BalanceQuerier reads the arbitrage contract's balance of a token
type BalanceQuerier interface {
	BalanceOf(ctx context.Context, token common.Address) (*uint256.Int, error)
}

type entry struct {
	symbol  string
	address common.Address
	start   uint256.Int
	current uint256.Int
	// issued counts refreshes started; applied is the newest one written
	issued  uint64
	applied uint64
}

// Ledger tracks start and current balances of the configured base assets.
// Writes go through Refresh only; readers always see whole values.
type Ledger struct {
	querier BalanceQuerier
	logger  *zap.Logger

	mu      sync.RWMutex
	entries []entry
}

// Initialize queries every asset once and records it as both start and current
// balance. Any failed query fails the whole ledger.
func Initialize(ctx context.Context, querier BalanceQuerier, assets []config.Asset, logger *zap.Logger) (*Ledger, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("%w: no assets configured", ErrInitialization)
	}

	entries := make([]entry, len(assets))
	for i, asset := range assets {
		bal, err := querier.BalanceOf(ctx, asset.Address)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInitialization, asset.Symbol, err)
		}
		entries[i] = entry{symbol: asset.Symbol, address: asset.Address}
		entries[i].start.Set(bal)
		entries[i].current.Set(bal)

		logger.Info("Initial balance",
			zap.String("symbol", asset.Symbol),
			zap.String("address", asset.Address.Hex()),
			zap.Stringer("balance", bal))
	}

	return &Ledger{
		querier: querier,
		logger:  logger,
		entries: entries,
	}, nil
}

// Len returns the number of tracked assets
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Refresh re-queries one asset and overwrites its current balance. On failure
// the previous value is kept and the error is returned.
//
// Concurrent refreshes of the same asset are ordered by when they started: a
// query that finishes after a newer one has been written is dropped, and the
// newer value is returned instead.
func (l *Ledger) Refresh(ctx context.Context, index int) (*uint256.Int, error) {
	if index < 0 || index >= len(l.entries) {
		return nil, fmt.Errorf("%w: index %d", ErrUnknownAsset, index)
	}

	l.mu.Lock()
	e := &l.entries[index]
	e.issued++
	ticket := e.issued
	l.mu.Unlock()

	// query outside the lock so readers never wait on the network
	bal, err := l.querier.BalanceOf(ctx, e.address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrQuery, e.symbol, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if ticket < e.applied {
		l.logger.Debug("Dropping stale balance",
			zap.String("symbol", e.symbol),
			zap.Stringer("stale", bal),
			zap.Stringer("current", &e.current))
		return new(uint256.Int).Set(&e.current), nil
	}
	e.current.Set(bal)
	e.applied = ticket
	return new(uint256.Int).Set(bal), nil
}

// RefreshToken refreshes every tracked asset with the given address. Tokens
// that are not tracked are ignored.
func (l *Ledger) RefreshToken(ctx context.Context, token common.Address) error {
	var errs []error
	for i := range l.entries {
		if l.entries[i].address != token {
			continue
		}
		if _, err := l.Refresh(ctx, i); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RefreshAll refreshes every asset, continuing past failures
func (l *Ledger) RefreshAll(ctx context.Context) error {
	var errs []error
	for i := range l.entries {
		if _, err := l.Refresh(ctx, i); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Snapshot returns a consistent copy of all balances
func (l *Ledger) Snapshot() []types.AssetBalance {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]types.AssetBalance, len(l.entries))
	for i := range l.entries {
		out[i] = types.AssetBalance{
			Symbol:  l.entries[i].symbol,
			Address: l.entries[i].address,
			Current: new(uint256.Int).Set(&l.entries[i].current),
			Start:   new(uint256.Int).Set(&l.entries[i].start),
		}
	}
	return out
}

// Balance returns a copy of one asset's balance
func (l *Ledger) Balance(index int) (types.AssetBalance, error) {
	if index < 0 || index >= len(l.entries) {
		return types.AssetBalance{}, fmt.Errorf("%w: index %d", ErrUnknownAsset, index)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	e := &l.entries[index]
	return types.AssetBalance{
		Symbol:  e.symbol,
		Address: e.address,
		Current: new(uint256.Int).Set(&e.current),
		Start:   new(uint256.Int).Set(&e.start),
	}, nil
}

// BasisPointDelta returns (current - start) * 10000 / start for one asset
func (l *Ledger) BasisPointDelta(index int) (*big.Int, error) {
	bal, err := l.Balance(index)
	if err != nil {
		return nil, err
	}
	bps, err := bpsmath.BasisPointDelta(bal.Current, bal.Start)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", bal.Symbol, err)
	}
	return bps, nil
}

// TradeSize returns the current balance of the first asset holding a positive
// balance, along with that asset. With no funded asset it returns zero and ok=false.
func (l *Ledger) TradeSize() (size *uint256.Int, asset common.Address, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := range l.entries {
		if l.entries[i].current.Sign() > 0 {
			return new(uint256.Int).Set(&l.entries[i].current), l.entries[i].address, true
		}
	}
	return new(uint256.Int), common.Address{}, false
}
