package bot

import (
	"context"
	"errors"
	"math/big"
	"net"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/michaelpento.lv/arbbot/chain"
	"github.com/michaelpento.lv/arbbot/config"
	"github.com/michaelpento.lv/arbbot/ledger"
	"github.com/michaelpento.lv/arbbot/routes"
	"github.com/michaelpento.lv/arbbot/types"
	"github.com/michaelpento.lv/arbbot/utils/testutils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig(t *testing.T) *config.Config {
	rt := config.DefaultRuntime()
	rt.RouteLogDir = t.TempDir()
	rt.LoopBackoff = config.Duration(10 * time.Millisecond)
	rt.ReportDelay = 0
	rt.ReportInterval = config.Duration(20 * time.Millisecond)
	rt.ConfirmTimeout = config.Duration(time.Second)

	return &config.Config{
		Network: "testnet",
		Routes: []types.Route{{
			Router1: testutils.Router1,
			Router2: testutils.Router2,
			Token1:  testutils.WETH,
			Token2:  testutils.USDC,
		}},
		BaseAssets:             []config.Asset{{Address: testutils.WETH, Symbol: "WETH"}},
		MinBasisPointsPerTrade: 50,
		ArbContract:            testutils.Arb,
		Runtime:                rt,
	}
}

func TestBotTradesAndReports(t *testing.T) {
	backend := testutils.NewFakeBackend()
	backend.SetBalance(testutils.WETH, big.NewInt(1_000_000))

	var estimates atomic.Int32
	backend.Estimate = func(r1, r2, t1, t2 common.Address, amount *big.Int) (*big.Int, error) {
		if estimates.Add(1) == 1 {
			// 1% above the trade size clears the 50 bps threshold
			return new(big.Int).Div(new(big.Int).Mul(amount, big.NewInt(101)), big.NewInt(100)), nil
		}
		return amount, nil
	}
	backend.OnTrade = func(r1, r2, t1, t2 common.Address, amount *big.Int) {
		backend.AddBalance(t1, big.NewInt(10_000))
	}

	opts, _ := testutils.NewTransactOpts(t)
	b, err := New(context.Background(), testConfig(t), backend, opts, prometheus.NewRegistry(), zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.Start(ctx))

	assert.Eventually(t, func() bool {
		return backend.Calls(chain.MethodDualDexTrade) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		bal, err := b.Ledger().Balance(0)
		return err == nil && bal.Current.Eq(uint256.NewInt(1_010_000))
	}, 5*time.Second, 10*time.Millisecond)

	bps, err := b.Ledger().BasisPointDelta(0)
	require.NoError(t, err)
	assert.Equal(t, int64(100), bps.Int64())

	cancel()
	require.NoError(t, b.Stop())
	assert.Len(t, backend.Sent(), 1)
}

func TestNewFailsWithoutBalances(t *testing.T) {
	backend := testutils.NewFakeBackend()
	backend.FailBalance(testutils.WETH, errors.New("connection refused"))

	opts, _ := testutils.NewTransactOpts(t)
	_, err := New(context.Background(), testConfig(t), backend, opts, prometheus.NewRegistry(), zaptest.NewLogger(t))
	assert.ErrorIs(t, err, ledger.ErrInitialization)
}

func TestNewMergesRouteLog(t *testing.T) {
	cfg := testConfig(t)
	logged := types.Route{
		Router1: testutils.Router2,
		Router2: testutils.Router1,
		Token1:  testutils.WETH,
		Token2:  testutils.USDC,
	}
	catalog := routes.NewFileCatalog(routes.CatalogPath(cfg.Runtime.RouteLogDir, cfg.Network))
	require.NoError(t, catalog.Append(cfg.Routes[0]))
	require.NoError(t, catalog.Append(logged))

	backend := testutils.NewFakeBackend()
	backend.SetBalance(testutils.WETH, big.NewInt(1))
	opts, _ := testutils.NewTransactOpts(t)

	b, err := New(context.Background(), cfg, backend, opts, prometheus.NewRegistry(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 2, b.source.Len())
	assert.Equal(t, routes.ModeKnownGood, b.source.Mode())
}

func TestStopWithoutStart(t *testing.T) {
	backend := testutils.NewFakeBackend()
	backend.SetBalance(testutils.WETH, big.NewInt(1))
	opts, _ := testutils.NewTransactOpts(t)

	b, err := New(context.Background(), testConfig(t), backend, opts, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.NoError(t, b.Stop())
	_, statErr := os.Stat(routes.CatalogPath(b.cfg.Runtime.RouteLogDir, b.cfg.Network))
	assert.True(t, os.IsNotExist(statErr))
}

func TestMetricsServerFailureKeepsTrading(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := testConfig(t)
	cfg.Runtime.MetricsAddr = busy.Addr().String()

	backend := testutils.NewFakeBackend()
	backend.SetBalance(testutils.WETH, big.NewInt(1_000_000))
	backend.Estimate = func(r1, r2, t1, t2 common.Address, amount *big.Int) (*big.Int, error) {
		return amount, nil
	}

	opts, _ := testutils.NewTransactOpts(t)
	b, err := New(context.Background(), cfg, backend, opts, prometheus.NewRegistry(), zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.Start(ctx))

	// the engine keeps evaluating routes after the listener fails
	assert.Eventually(t, func() bool {
		return backend.Calls(chain.MethodEstimateDualDexTrade) >= 5
	}, 5*time.Second, 10*time.Millisecond)
	select {
	case <-b.Done():
		t.Fatal("bot exited because the metrics port was taken")
	default:
	}

	cancel()
	require.NoError(t, b.Stop())
	select {
	case <-b.Done():
	default:
		t.Fatal("done not closed after stop")
	}
}

func TestStartTwice(t *testing.T) {
	backend := testutils.NewFakeBackend()
	backend.SetBalance(testutils.WETH, big.NewInt(1))
	opts, _ := testutils.NewTransactOpts(t)

	b, err := New(context.Background(), testConfig(t), backend, opts, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.Start(ctx))
	assert.Error(t, b.Start(ctx))
	cancel()
	assert.NoError(t, b.Stop())
}
