package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/michaelpento.lv/arbbot/chain"
	"github.com/michaelpento.lv/arbbot/config"
	"github.com/michaelpento.lv/arbbot/ledger"
	"github.com/michaelpento.lv/arbbot/reporter"
	"github.com/michaelpento.lv/arbbot/routes"
	"github.com/michaelpento.lv/arbbot/simulator"
	"github.com/michaelpento.lv/arbbot/strategies/arbitrage"
	"github.com/michaelpento.lv/arbbot/trader"
	"github.com/michaelpento.lv/arbbot/utils/metrics"
	"github.com/michaelpento.lv/arbbot/utils/schedule"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Bot represents the arbitrage bot instance
type Bot struct {
	cfg      *config.Config
	ledger   *ledger.Ledger
	source   *routes.Source
	engine   *arbitrage.Engine
	reporter *schedule.Periodic
	registry *prometheus.Registry
	logger   *zap.Logger

	done chan struct{}
	err  error
}

// New creates a new bot. It reads the starting balances, so a node that
// cannot answer balanceOf fails here with ledger.ErrInitialization.
func New(ctx context.Context, cfg *config.Config, backend chain.Backend, opts *bind.TransactOpts, registry *prometheus.Registry, logger *zap.Logger) (*Bot, error) {
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	rt := cfg.Runtime

	balances := chain.NewTokenBalances(backend, cfg.ArbContract)
	led, err := ledger.Initialize(ctx, balances, cfg.BaseAssets, logger)
	if err != nil {
		return nil, err
	}

	catalog := routes.NewFileCatalog(routes.CatalogPath(rt.RouteLogDir, cfg.Network))
	logged, err := catalog.Load()
	if err != nil {
		logger.Warn("Failed to load route log", zap.String("path", catalog.Path()), zap.Error(err))
	}
	known := routes.Merge(cfg.Routes, logged)

	sim := simulator.NewSimulator(backend, cfg.ArbContract, opts.From)
	source, err := routes.NewSource(routes.SourceConfig{
		Known: known,
		Candidates: routes.Candidates{
			Routers:    cfg.Routers,
			BaseTokens: addresses(cfg.BaseAssets),
			Tokens:     addresses(cfg.Tokens),
		},
		Budget:          rt.DiscoveryBudget,
		RejectCacheSize: rt.RejectCacheSize,
		RejectTTL:       rt.RejectTTL.Std(),
		TrialSize: func() *uint256.Int {
			size, _, _ := led.TradeSize()
			return size
		},
	}, sim, catalog, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create route source: %w", err)
	}

	executor, err := trader.NewExecutor(backend, opts, balances, trader.Config{
		Contract:       cfg.ArbContract,
		ConfirmTimeout: rt.ConfirmTimeout.Std(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create trade executor: %w", err)
	}

	engine := arbitrage.NewEngine(source, sim, executor, led, arbitrage.Config{
		MinBasisPoints: cfg.MinBasisPointsPerTrade,
		Backoff:        rt.LoopBackoff.Std(),
		Metrics:        metrics.NewEngineMetrics(registry, metrics.Namespace),
	}, logger)

	reporterMetrics := metrics.NewReporterMetrics(registry, metrics.Namespace)
	rep := reporter.New(led,
		reporter.MultiSink{reporter.NewLogSink(logger), reporter.NewMetricsSink(reporterMetrics)},
		reporter.Config{RefreshBalances: true, Metrics: reporterMetrics},
		logger)
	periodic, err := schedule.NewPeriodic("reporter", rt.ReportDelay.Std(), rt.ReportInterval.Std(), rep.Report, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create reporter schedule: %w", err)
	}

	logger.Info("Bot initialized",
		zap.String("network", cfg.Network),
		zap.String("arb_contract", cfg.ArbContract.Hex()),
		zap.Int("known_routes", source.Len()),
		zap.Int("logged_routes", len(logged)),
		zap.Stringer("mode", source.Mode()),
		zap.Strings("assets", cfg.Symbols()))

	return &Bot{
		cfg:      cfg,
		ledger:   led,
		source:   source,
		engine:   engine,
		reporter: periodic,
		registry: registry,
		logger:   logger,
	}, nil
}

// Ledger exposes the shared balance ledger
func (b *Bot) Ledger() *ledger.Ledger {
	return b.ledger
}

// Start launches the engine, the reporter and the optional metrics endpoint.
// Cancel ctx and call Stop to shut down. Done is closed if the bot exits on
// its own.
func (b *Bot) Start(ctx context.Context) error {
	if b.done != nil {
		return errors.New("bot already started")
	}
	b.logger.Info("Starting arbitrage bot...")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.engine.Run(ctx)
	})
	g.Go(func() error {
		return b.reporter.Run(ctx)
	})
	if addr := b.cfg.Runtime.MetricsAddr; addr != "" {
		g.Go(func() error {
			return b.serveMetrics(ctx, addr)
		})
	}

	b.done = make(chan struct{})
	go func() {
		b.err = g.Wait()
		close(b.done)
	}()
	return nil
}

// Done is closed once every component has returned. It is nil before Start.
func (b *Bot) Done() <-chan struct{} {
	return b.done
}

// Stop waits for every component to return
func (b *Bot) Stop() error {
	b.logger.Info("Stopping arbitrage bot...")
	if b.done == nil {
		return nil
	}
	<-b.done
	return b.err
}

// serveMetrics logs listener failures instead of failing the group
func (b *Bot) serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(b.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	b.logger.Info("Serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		b.logger.Error("Metrics server failed, continuing without it",
			zap.String("addr", addr),
			zap.Error(err))
	}
	return nil
}

func addresses(assets []config.Asset) []common.Address {
	out := make([]common.Address, len(assets))
	for i, a := range assets {
		out[i] = a.Address
	}
	return out
}
