package reporter

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/michaelpento.lv/arbbot/types"
	bpsmath "github.com/michaelpento.lv/arbbot/utils/math"
	"github.com/michaelpento.lv/arbbot/utils/metrics"
	"go.uber.org/zap"
)

// Ledger is what the reporter needs from the balance ledger
type Ledger interface {
	Len() int
	Refresh(ctx context.Context, index int) (*uint256.Int, error)
	Balance(index int) (types.AssetBalance, error)
}

// Record is emitted once per asset per report
type Record struct {
	Symbol          string
	Balance         types.AssetBalance
	BasisPointDelta *big.Int
}

type Sink interface {
	Emit(ctx context.Context, record Record) error
}

type Config struct {
	// RefreshBalances re-queries every asset before computing deltas
	RefreshBalances bool
	Metrics         *metrics.ReporterMetrics
}

// Reporter computes per-asset basis-point deltas and hands them to a sink.
// It only reads the ledger, apart from the optional explicit refresh.
type Reporter struct {
	ledger Ledger
	sink   Sink
	cfg    Config
	logger *zap.Logger
}

func New(ledger Ledger, sink Sink, cfg Config, logger *zap.Logger) *Reporter {
	return &Reporter{
		ledger: ledger,
		sink:   sink,
		cfg:    cfg,
		logger: logger,
	}
}

// Report runs one reporting pass. Failures for one asset do not stop the
// others; every failure is returned joined.
func (r *Reporter) Report(ctx context.Context) error {
	var errs []error

	for i := 0; i < r.ledger.Len(); i++ {
		if r.cfg.RefreshBalances {
			if _, err := r.ledger.Refresh(ctx, i); err != nil {
				// the stale balance is still reported
				r.logger.Warn("Failed to refresh balance", zap.Int("asset", i), zap.Error(err))
				r.countRefreshError(i)
				errs = append(errs, err)
			}
		}

		bal, err := r.ledger.Balance(i)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		// derived from the same copy that is emitted, so a concurrent refresh
		// cannot split the record
		bps, err := bpsmath.BasisPointDelta(bal.Current, bal.Start)
		if err != nil {
			r.logger.Error("Failed to compute basis points",
				zap.String("symbol", bal.Symbol),
				zap.Error(err))
			if m := r.cfg.Metrics; m != nil {
				m.ComputeErrors.WithLabelValues(bal.Symbol).Inc()
			}
			errs = append(errs, fmt.Errorf("%s: %w", bal.Symbol, err))
			continue
		}

		if err := r.sink.Emit(ctx, Record{Symbol: bal.Symbol, Balance: bal, BasisPointDelta: bps}); err != nil {
			errs = append(errs, fmt.Errorf("emit %s: %w", bal.Symbol, err))
		}
	}

	if m := r.cfg.Metrics; m != nil {
		m.Reports.Inc()
	}
	return errors.Join(errs...)
}

func (r *Reporter) countRefreshError(index int) {
	m := r.cfg.Metrics
	if m == nil {
		return
	}
	symbol := "unknown"
	if bal, err := r.ledger.Balance(index); err == nil {
		symbol = bal.Symbol
	}
	m.RefreshErrors.WithLabelValues(symbol).Inc()
}
