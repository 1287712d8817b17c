package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/michaelpento.lv/arbbot/routes"
	"github.com/michaelpento.lv/arbbot/types"
	"github.com/michaelpento.lv/arbbot/utils/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// State is the engine's position in one iteration
type State int32

const (
	StateSelectingRoute State = iota
	StateSizing
	StateEstimating
	StateDeciding
	StateExecuting
	StateWaiting
)

func (s State) String() string {
	switch s {
	case StateSelectingRoute:
		return "selecting_route"
	case StateSizing:
		return "sizing"
	case StateEstimating:
		return "estimating"
	case StateDeciding:
		return "deciding"
	case StateExecuting:
		return "executing"
	case StateWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// Outcome summarises how an iteration ended
type Outcome int

const (
	OutcomeNoRoute Outcome = iota
	OutcomeEstimateFailed
	OutcomeUnprofitable
	OutcomeExecuted
	OutcomeExecutionFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoRoute:
		return "no_route"
	case OutcomeEstimateFailed:
		return "estimate_failed"
	case OutcomeUnprofitable:
		return "unprofitable"
	case OutcomeExecuted:
		return "executed"
	case OutcomeExecutionFailed:
		return "execution_failed"
	default:
		return "unknown"
	}
}

type RouteSource interface {
	Next(ctx context.Context) (types.Route, routes.Mode, error)
}

type Estimator interface {
	Estimate(ctx context.Context, route types.Route, tradeSize *uint256.Int) (*uint256.Int, error)
}

type Executor interface {
	Execute(ctx context.Context, route types.Route, tradeSize *uint256.Int) (*types.TradeReceipt, error)
}

// Ledger is the part of the balance ledger the engine sizes trades from and refreshes
type Ledger interface {
	TradeSize() (*uint256.Int, common.Address, bool)
	RefreshToken(ctx context.Context, token common.Address) error
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

type Config struct {
	MinBasisPoints uint64
	// Backoff is the wait after any iteration that did not execute a trade
	Backoff time.Duration
	Metrics *metrics.EngineMetrics
	Sleep   SleepFunc
}

// Engine runs the select, size, estimate, decide, execute loop. Iterations are
// strictly sequential.
type Engine struct {
	source    RouteSource
	estimator Estimator
	executor  Executor
	ledger    Ledger
	cfg       Config
	logger    *zap.Logger

	state atomic.Int32
}

func NewEngine(source RouteSource, estimator Estimator, executor Executor, ledger Ledger, cfg Config, logger *zap.Logger) *Engine {
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleep
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewEngineMetrics(prometheus.NewRegistry(), metrics.Namespace)
	}

	return &Engine{
		source:    source,
		estimator: estimator,
		executor:  executor,
		ledger:    ledger,
		cfg:       cfg,
		logger:    logger,
	}
}

// State returns the state the engine is currently in
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Run loops until ctx is cancelled. Every iteration that does not end in a
// successful trade is followed by the backoff wait.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("Starting execution engine",
		zap.Uint64("min_bps", e.cfg.MinBasisPoints),
		zap.Duration("backoff", e.cfg.Backoff))

	for ctx.Err() == nil {
		outcome, err := e.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			e.logger.Warn("Iteration failed",
				zap.Stringer("outcome", outcome),
				zap.Error(err))
		}
		if outcome == OutcomeExecuted {
			continue
		}

		e.setState(StateWaiting)
		if err := e.cfg.Sleep(ctx, e.cfg.Backoff); err != nil {
			break
		}
	}

	e.logger.Info("Execution engine stopped")
	return nil
}

// RunOnce performs one iteration without the trailing wait
func (e *Engine) RunOnce(ctx context.Context) (Outcome, error) {
	m := e.cfg.Metrics
	m.Iterations.Inc()

	e.setState(StateSelectingRoute)
	route, mode, err := e.source.Next(ctx)
	if err != nil {
		if errors.Is(err, routes.ErrNoRoutesAvailable) {
			m.NoRoutes.Inc()
		}
		return OutcomeNoRoute, fmt.Errorf("route selection: %w", err)
	}
	if mode == routes.ModeDiscovery {
		m.DiscoveredRoutes.Inc()
	}

	e.setState(StateSizing)
	size, asset, funded := e.ledger.TradeSize()
	if !funded {
		e.logger.Debug("No funded asset, trade size is zero")
	}

	e.setState(StateEstimating)
	start := time.Now()
	expected, err := e.estimator.Estimate(ctx, route, size)
	m.EstimateLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		m.EstimateFailures.Inc()
		return OutcomeEstimateFailed, err
	}

	e.setState(StateDeciding)
	decision, err := Decide(size, expected, e.cfg.MinBasisPoints)
	if err != nil {
		m.Decisions.WithLabelValues("error").Inc()
		return OutcomeUnprofitable, err
	}

	logger := e.logger.With(
		zap.Stringer("route", route),
		zap.Stringer("mode", mode),
		zap.Stringer("size", decision.TradeSize),
		zap.Stringer("expected", decision.ExpectedReturn),
		zap.Stringer("threshold", decision.ProfitThreshold))

	if !decision.IsProfitable {
		m.Decisions.WithLabelValues("unprofitable").Inc()
		logger.Debug("Route not profitable")
		return OutcomeUnprofitable, nil
	}
	m.Decisions.WithLabelValues("profitable").Inc()
	logger.Info("Profitable route found", zap.String("asset", asset.Hex()))

	e.setState(StateExecuting)
	receipt, err := e.executor.Execute(ctx, route, size)
	if err != nil {
		m.Executions.WithLabelValues("failed").Inc()
		return OutcomeExecutionFailed, err
	}
	m.Executions.WithLabelValues("success").Inc()

	logger.Info("Trade executed",
		zap.String("tx_hash", receipt.TxHash.Hex()),
		zap.Stringer("realized", receipt.RealizedReturn))

	for _, token := range []common.Address{route.Token1, route.Token2} {
		if err := e.ledger.RefreshToken(ctx, token); err != nil {
			logger.Warn("Failed to refresh balance after trade",
				zap.String("token", token.Hex()),
				zap.Error(err))
		}
	}
	return OutcomeExecuted, nil
}

func (e *Engine) setState(s State) {
	if State(e.state.Swap(int32(s))) != s {
		e.logger.Debug("Engine state", zap.Stringer("state", s))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
