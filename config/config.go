package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/arbbot/types"
	"gopkg.in/yaml.v2"
)

// ErrInvalidConfig is returned for missing or malformed configuration fields
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DefaultConfigDir = "./config"
	DefaultNetwork   = "aurora"
)

// Config is the validated, read-only configuration for one network
type Config struct {
	Network string

	Routes                 []types.Route
	BaseAssets             []Asset
	MinBasisPointsPerTrade uint64
	ArbContract            common.Address

	// Discovery candidates
	Routers []common.Address
	Tokens  []Asset

	Runtime RuntimeConfig
}

// Asset is a tracked or tradable ERC-20 token
type Asset struct {
	Address common.Address
	Symbol  string
}

type RuntimeConfig struct {
	LoopBackoff     Duration        `json:"loopBackoff" yaml:"loopBackoff"`
	ReportInterval  Duration        `json:"reportInterval" yaml:"reportInterval"`
	ReportDelay     Duration        `json:"reportDelay" yaml:"reportDelay"`
	RPCTimeout      Duration        `json:"rpcTimeout" yaml:"rpcTimeout"`
	ConfirmTimeout  Duration        `json:"confirmTimeout" yaml:"confirmTimeout"`
	DiscoveryBudget int             `json:"discoveryBudget" yaml:"discoveryBudget"`
	RejectCacheSize int             `json:"rejectCacheSize" yaml:"rejectCacheSize"`
	RejectTTL       Duration        `json:"rejectTTL" yaml:"rejectTTL"`
	RouteLogDir     string          `json:"routeLogDir" yaml:"routeLogDir"`
	MetricsAddr     string          `json:"metricsAddr" yaml:"metricsAddr"`
	RPCRateLimit    RateLimitConfig `json:"rpcRateLimit" yaml:"rpcRateLimit"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	BurstSize         int     `json:"burstSize" yaml:"burstSize"`
}

// Duration accepts Go duration strings ("600s", "1m") or plain seconds
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var v interface{}
	if err := unmarshal(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) set(v interface{}) error {
	switch val := v.(type) {
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(val * float64(time.Second))
	case int:
		*d = Duration(time.Duration(val) * time.Second)
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}

// fileConfig mirrors the on-disk layout. Pointers distinguish missing from empty.
type fileConfig struct {
	Routes                 *[][]string    `json:"routes" yaml:"routes"`
	BaseAssets             *[]fileAsset   `json:"baseAssets" yaml:"baseAssets"`
	MinBasisPointsPerTrade *int64         `json:"minBasisPointsPerTrade" yaml:"minBasisPointsPerTrade"`
	ArbContract            *string        `json:"arbContract" yaml:"arbContract"`
	Routers                []fileAsset    `json:"routers" yaml:"routers"`
	Tokens                 []fileAsset    `json:"tokens" yaml:"tokens"`
	Runtime                *RuntimeConfig `json:"runtime" yaml:"runtime"`
}

type fileAsset struct {
	Address string `json:"address" yaml:"address"`
	Sym     string `json:"sym" yaml:"sym"`
}

// DefaultRuntime returns the runtime settings used when the file omits them
func DefaultRuntime() RuntimeConfig {
	return RuntimeConfig{
		LoopBackoff:     Duration(time.Second),
		ReportInterval:  Duration(600 * time.Second),
		ReportDelay:     Duration(120 * time.Second),
		RPCTimeout:      Duration(15 * time.Second),
		ConfirmTimeout:  Duration(2 * time.Minute),
		DiscoveryBudget: 64,
		RejectCacheSize: 1024,
		RejectTTL:       Duration(10 * time.Minute),
		RouteLogDir:     "./data",
		RPCRateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			BurstSize:         20,
		},
	}
}

// Path returns the config file for network, preferring JSON over YAML
func Path(dir, network string) (string, error) {
	if dir == "" {
		dir = DefaultConfigDir
	}
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		p := filepath.Join(dir, network+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no config file for network %q in %s", network, dir)
}

// LoadConfig reads and validates the configuration for network from dir
func LoadConfig(dir, network string) (*Config, error) {
	if network == "" {
		network = GetEnvWithDefault(EnvNetwork, DefaultNetwork)
	}

	path, err := Path(dir, network)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Network = network
	return cfg, nil
}

// Parse decodes and validates raw configuration bytes. ext selects the format.
func Parse(data []byte, ext string) (*Config, error) {
	var raw fileConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}
	return raw.build()
}

func (f *fileConfig) build() (*Config, error) {
	var errs []string
	cfg := &Config{Runtime: DefaultRuntime()}

	if f.Routes == nil {
		errs = append(errs, "routes must be specified")
	} else {
		for i, rec := range *f.Routes {
			if len(rec) != 4 {
				errs = append(errs, fmt.Sprintf("routes[%d] must have 4 fields, got %d", i, len(rec)))
				continue
			}
			route, err := types.RouteFromRecord([4]string{rec[0], rec[1], rec[2], rec[3]})
			if err != nil {
				errs = append(errs, fmt.Sprintf("routes[%d]: %v", i, err))
				continue
			}
			cfg.Routes = append(cfg.Routes, route)
		}
	}

	if f.BaseAssets == nil || len(*f.BaseAssets) == 0 {
		errs = append(errs, "baseAssets must be specified")
	} else {
		for i, a := range *f.BaseAssets {
			asset, err := a.build()
			if err != nil {
				errs = append(errs, fmt.Sprintf("baseAssets[%d]: %v", i, err))
				continue
			}
			cfg.BaseAssets = append(cfg.BaseAssets, asset)
		}
	}

	switch {
	case f.MinBasisPointsPerTrade == nil:
		errs = append(errs, "minBasisPointsPerTrade must be specified")
	case *f.MinBasisPointsPerTrade < 0:
		errs = append(errs, "minBasisPointsPerTrade must be non-negative")
	default:
		cfg.MinBasisPointsPerTrade = uint64(*f.MinBasisPointsPerTrade)
	}

	switch {
	case f.ArbContract == nil || *f.ArbContract == "":
		errs = append(errs, "arbContract must be specified")
	case !common.IsHexAddress(*f.ArbContract):
		errs = append(errs, fmt.Sprintf("arbContract is not an address: %q", *f.ArbContract))
	default:
		cfg.ArbContract = common.HexToAddress(*f.ArbContract)
	}

	for i, r := range f.Routers {
		if !common.IsHexAddress(r.Address) {
			errs = append(errs, fmt.Sprintf("routers[%d] is not an address: %q", i, r.Address))
			continue
		}
		cfg.Routers = append(cfg.Routers, common.HexToAddress(r.Address))
	}
	for i, a := range f.Tokens {
		asset, err := a.build()
		if err != nil {
			errs = append(errs, fmt.Sprintf("tokens[%d]: %v", i, err))
			continue
		}
		cfg.Tokens = append(cfg.Tokens, asset)
	}

	if f.Runtime != nil {
		cfg.Runtime.merge(*f.Runtime)
	}
	if err := cfg.Runtime.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("runtime: %v", err))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return cfg, nil
}

func (a fileAsset) build() (Asset, error) {
	if !common.IsHexAddress(a.Address) {
		return Asset{}, fmt.Errorf("address is not valid: %q", a.Address)
	}
	return Asset{Address: common.HexToAddress(a.Address), Symbol: a.Sym}, nil
}

// merge overrides defaults with every non-zero field of o
func (r *RuntimeConfig) merge(o RuntimeConfig) {
	if o.LoopBackoff > 0 {
		r.LoopBackoff = o.LoopBackoff
	}
	if o.ReportInterval > 0 {
		r.ReportInterval = o.ReportInterval
	}
	if o.ReportDelay > 0 {
		r.ReportDelay = o.ReportDelay
	}
	if o.RPCTimeout > 0 {
		r.RPCTimeout = o.RPCTimeout
	}
	if o.ConfirmTimeout > 0 {
		r.ConfirmTimeout = o.ConfirmTimeout
	}
	if o.DiscoveryBudget != 0 {
		r.DiscoveryBudget = o.DiscoveryBudget
	}
	if o.RejectCacheSize != 0 {
		r.RejectCacheSize = o.RejectCacheSize
	}
	if o.RejectTTL > 0 {
		r.RejectTTL = o.RejectTTL
	}
	if o.RouteLogDir != "" {
		r.RouteLogDir = o.RouteLogDir
	}
	if o.MetricsAddr != "" {
		r.MetricsAddr = o.MetricsAddr
	}
	if o.RPCRateLimit.RequestsPerSecond != 0 {
		r.RPCRateLimit.RequestsPerSecond = o.RPCRateLimit.RequestsPerSecond
	}
	if o.RPCRateLimit.BurstSize != 0 {
		r.RPCRateLimit.BurstSize = o.RPCRateLimit.BurstSize
	}
}

func (r *RuntimeConfig) Validate() error {
	if r.DiscoveryBudget <= 0 {
		return fmt.Errorf("discovery budget must be positive")
	}
	if r.RejectCacheSize <= 0 {
		return fmt.Errorf("reject cache size must be positive")
	}
	return r.RPCRateLimit.Validate()
}

func (r *RateLimitConfig) Validate() error {
	if r.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive")
	}
	if r.BurstSize <= 0 {
		return fmt.Errorf("burst size must be positive")
	}
	return nil
}

// Symbols returns the base asset symbols in configuration order
func (c *Config) Symbols() []string {
	syms := make([]string, len(c.BaseAssets))
	for i, a := range c.BaseAssets {
		syms[i] = a.Symbol
	}
	return syms
}
