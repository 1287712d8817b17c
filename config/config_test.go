package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validJSON = `{
	"routes": [
		["0x1111111111111111111111111111111111111111","0x2222222222222222222222222222222222222222","0x3333333333333333333333333333333333333333","0x4444444444444444444444444444444444444444"]
	],
	"baseAssets": [{"address": "0x3333333333333333333333333333333333333333", "sym": "WETH"}],
	"minBasisPointsPerTrade": 50,
	"arbContract": "0x5555555555555555555555555555555555555555",
	"routers": [{"address": "0x1111111111111111111111111111111111111111"}],
	"runtime": {"reportInterval": "10m", "loopBackoff": 2}
}`

const validYAML = `
routes: []
baseAssets:
  - address: "0x3333333333333333333333333333333333333333"
    sym: USDC
minBasisPointsPerTrade: 0
arbContract: "0x5555555555555555555555555555555555555555"
tokens:
  - address: "0x4444444444444444444444444444444444444444"
    sym: DAI
runtime:
  rpcTimeout: 5s
`

func TestParseJSON(t *testing.T) {
	cfg, err := Parse([]byte(validJSON), ".json")
	require.NoError(t, err)

	require.Len(t, cfg.Routes, 1)
	assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), cfg.Routes[0].Router1)
	assert.Equal(t, common.HexToAddress("0x4444444444444444444444444444444444444444"), cfg.Routes[0].Token2)
	assert.Equal(t, "WETH", cfg.BaseAssets[0].Symbol)
	assert.Equal(t, uint64(50), cfg.MinBasisPointsPerTrade)
	assert.Equal(t, common.HexToAddress("0x5555555555555555555555555555555555555555"), cfg.ArbContract)
	assert.Len(t, cfg.Routers, 1)

	assert.Equal(t, 10*time.Minute, cfg.Runtime.ReportInterval.Std())
	assert.Equal(t, 2*time.Second, cfg.Runtime.LoopBackoff.Std())
	// untouched defaults survive the merge
	assert.Equal(t, 120*time.Second, cfg.Runtime.ReportDelay.Std())
	assert.Equal(t, 64, cfg.Runtime.DiscoveryBudget)
}

func TestParseYAML(t *testing.T) {
	cfg, err := Parse([]byte(validYAML), ".yaml")
	require.NoError(t, err)

	assert.Empty(t, cfg.Routes)
	assert.Equal(t, uint64(0), cfg.MinBasisPointsPerTrade)
	assert.Equal(t, "DAI", cfg.Tokens[0].Symbol)
	assert.Equal(t, 5*time.Second, cfg.Runtime.RPCTimeout.Std())
}

func TestParseMissingFields(t *testing.T) {
	_, err := Parse([]byte(`{}`), ".json")
	require.ErrorIs(t, err, ErrInvalidConfig)
	for _, field := range []string{"routes", "baseAssets", "minBasisPointsPerTrade", "arbContract"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestParseMalformedFields(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{
			name: "short route",
			data: `{"routes":[["0x1111111111111111111111111111111111111111"]],"baseAssets":[{"address":"0x3333333333333333333333333333333333333333","sym":"A"}],"minBasisPointsPerTrade":1,"arbContract":"0x5555555555555555555555555555555555555555"}`,
			want: "routes[0] must have 4 fields",
		},
		{
			name: "negative threshold",
			data: `{"routes":[],"baseAssets":[{"address":"0x3333333333333333333333333333333333333333","sym":"A"}],"minBasisPointsPerTrade":-1,"arbContract":"0x5555555555555555555555555555555555555555"}`,
			want: "non-negative",
		},
		{
			name: "bad arb contract",
			data: `{"routes":[],"baseAssets":[{"address":"0x3333333333333333333333333333333333333333","sym":"A"}],"minBasisPointsPerTrade":1,"arbContract":"nope"}`,
			want: "arbContract is not an address",
		},
		{
			name: "bad asset",
			data: `{"routes":[],"baseAssets":[{"address":"0x12","sym":"A"}],"minBasisPointsPerTrade":1,"arbContract":"0x5555555555555555555555555555555555555555"}`,
			want: "baseAssets[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), ".json")
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aurora.json"), []byte(validJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "polygon.yml"), []byte(validYAML), 0o644))

	cfg, err := LoadConfig(dir, "aurora")
	require.NoError(t, err)
	assert.Equal(t, "aurora", cfg.Network)
	assert.Equal(t, []string{"WETH"}, cfg.Symbols())

	cfg, err = LoadConfig(dir, "polygon")
	require.NoError(t, err)
	assert.Equal(t, "polygon", cfg.Network)

	_, err = LoadConfig(dir, "mainnet")
	assert.Error(t, err)
}

func TestLoadConfigNetworkFromEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fantom.json"), []byte(validJSON), 0o644))
	t.Setenv(EnvNetwork, "fantom")

	cfg, err := LoadConfig(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "fantom", cfg.Network)
}

func TestLoadSecureConfig(t *testing.T) {
	t.Setenv(EnvRPCURL, "")
	t.Setenv(EnvPrivateKey, "")
	_, err := LoadSecureConfig()
	assert.Error(t, err)

	t.Setenv(EnvRPCURL, "http://localhost:8545")
	t.Setenv(EnvPrivateKey, "deadbeef")
	sec, err := LoadSecureConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8545", sec.RPCURL)
}
