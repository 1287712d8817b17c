package routes

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"
	"github.com/michaelpento.lv/arbbot/simulator"
	"github.com/michaelpento.lv/arbbot/types"
	"go.uber.org/zap"
)

// ErrNoRoutesAvailable is returned when discovery exhausts its budget
var ErrNoRoutesAvailable = errors.New("no routes available")

// Mode is the selection policy used for one call to Next
type Mode int

const (
	ModeKnownGood Mode = iota
	ModeDiscovery
)

func (m Mode) String() string {
	switch m {
	case ModeKnownGood:
		return "known_good"
	case ModeDiscovery:
		return "discovery"
	default:
		return "unknown"
	}
}

// DefaultRejectTTL is how long a rejected candidate is skipped
const DefaultRejectTTL = 10 * time.Minute

// Estimator simulates a candidate route; a nil error and a non-zero return mark it viable
type Estimator interface {
	Estimate(ctx context.Context, route types.Route, tradeSize *uint256.Int) (*uint256.Int, error)
}

// Candidates are the building blocks discovery combines into routes
type Candidates struct {
	Routers    []common.Address
	BaseTokens []common.Address
	Tokens     []common.Address
}

type SourceConfig struct {
	Known      []types.Route
	Candidates Candidates
	// Budget bounds the candidates tried per discovery call
	Budget          int
	RejectCacheSize int
	RejectTTL       time.Duration
	// TrialSize supplies the trade size used to try candidates
	TrialSize func() *uint256.Int
	Rand      *rand.Rand
	Now       func() time.Time
}

// Source hands out routes: round robin over the catalog when it has entries,
// discovery otherwise.
type Source struct {
	mu      sync.Mutex
	known   []types.Route
	index   map[types.Route]struct{}
	counter uint64

	candidates Candidates
	budget     int
	trialSize  func() *uint256.Int
	rng        *rand.Rand
	now        func() time.Time
	// rejected maps a route key to the time its rejection expires
	rejected  *lru.Cache
	rejectTTL time.Duration

	estimator Estimator
	catalog   Catalog
	logger    *zap.Logger
}

// NewSource creates a route source. catalog receives every discovered route.
func NewSource(cfg SourceConfig, estimator Estimator, catalog Catalog, logger *zap.Logger) (*Source, error) {
	if cfg.Budget <= 0 {
		return nil, fmt.Errorf("discovery budget must be positive")
	}
	cacheSize := cfg.RejectCacheSize
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	rejected, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create reject cache: %w", err)
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	trialSize := cfg.TrialSize
	if trialSize == nil {
		trialSize = func() *uint256.Int { return new(uint256.Int) }
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	rejectTTL := cfg.RejectTTL
	if rejectTTL <= 0 {
		rejectTTL = DefaultRejectTTL
	}

	s := &Source{
		index:      make(map[types.Route]struct{}),
		candidates: cfg.Candidates,
		budget:     cfg.Budget,
		trialSize:  trialSize,
		rng:        rng,
		now:        now,
		rejected:   rejected,
		rejectTTL:  rejectTTL,
		estimator:  estimator,
		catalog:    catalog,
		logger:     logger,
	}
	for _, r := range cfg.Known {
		s.addLocked(r)
	}
	return s, nil
}

// Len returns the number of known-good routes
func (s *Source) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.known)
}

// Mode reports which policy the next call will use
func (s *Source) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.known) > 0 {
		return ModeKnownGood
	}
	return ModeDiscovery
}

// Next returns the next route to evaluate and the mode that produced it
func (s *Source) Next(ctx context.Context) (types.Route, Mode, error) {
	s.mu.Lock()
	if n := uint64(len(s.known)); n > 0 {
		route := s.known[s.counter%n]
		s.counter++
		s.mu.Unlock()
		return route, ModeKnownGood, nil
	}
	s.mu.Unlock()

	route, err := s.discover(ctx)
	return route, ModeDiscovery, err
}

func (s *Source) discover(ctx context.Context) (types.Route, error) {
	c := s.candidates
	if len(c.Routers) < 2 || len(c.BaseTokens) == 0 {
		return types.Route{}, fmt.Errorf("%w: discovery needs at least two routers and one base token", ErrNoRoutesAvailable)
	}
	tokens := c.Tokens
	if len(tokens) == 0 {
		tokens = c.BaseTokens
	}

	size := s.trialSize()
	tried := 0
	for attempt := 0; attempt < s.budget; attempt++ {
		if err := ctx.Err(); err != nil {
			return types.Route{}, err
		}

		route, ok := s.candidate(tokens)
		if !ok {
			continue
		}
		key := routeKey(route)
		if s.isRejected(key) || s.isKnown(route) {
			continue
		}

		tried++
		out, err := s.estimator.Estimate(ctx, route, size)
		switch {
		case errors.Is(err, simulator.ErrReverted):
			s.reject(key, route, err)
			continue
		case err != nil:
			// the node, not the route, failed; nothing is cached and the caller backs off
			return types.Route{}, fmt.Errorf("probing %s: %w", route, err)
		case out.IsZero():
			// a zero-size trial says nothing about the route
			if !size.IsZero() {
				s.reject(key, route, nil)
			}
			continue
		}

		if err := s.catalog.Append(route); err != nil {
			s.logger.Error("Failed to record discovered route",
				zap.Stringer("route", route),
				zap.Error(err))
		}

		s.mu.Lock()
		s.addLocked(route)
		s.mu.Unlock()

		s.logger.Info("Discovered route",
			zap.Stringer("route", route),
			zap.Int("attempts", attempt+1),
			zap.Stringer("estimate", out))
		return route, nil
	}

	if tried == 0 && s.rejected.Len() > 0 {
		// every draw hit the cache; start the next search from scratch
		s.logger.Debug("Discovery budget spent on rejected candidates, clearing cache",
			zap.Int("rejected", s.rejected.Len()))
		s.rejected.Purge()
	}
	return types.Route{}, fmt.Errorf("%w: no viable candidate in %d attempts", ErrNoRoutesAvailable, s.budget)
}

func (s *Source) reject(key uint64, route types.Route, err error) {
	s.rejected.Add(key, s.now().Add(s.rejectTTL))
	s.logger.Debug("Rejected candidate route",
		zap.Stringer("route", route),
		zap.Error(err))
}

func (s *Source) isRejected(key uint64) bool {
	v, ok := s.rejected.Get(key)
	if !ok {
		return false
	}
	if expires, _ := v.(time.Time); s.now().Before(expires) {
		return true
	}
	s.rejected.Remove(key)
	return false
}

// candidate draws router1 != router2 and token1 != token2
func (s *Source) candidate(tokens []common.Address) (types.Route, bool) {
	c := s.candidates
	s.mu.Lock()
	r1 := c.Routers[s.rng.IntN(len(c.Routers))]
	r2 := c.Routers[s.rng.IntN(len(c.Routers))]
	t1 := c.BaseTokens[s.rng.IntN(len(c.BaseTokens))]
	t2 := tokens[s.rng.IntN(len(tokens))]
	s.mu.Unlock()

	if r1 == r2 || t1 == t2 {
		return types.Route{}, false
	}
	return types.Route{Router1: r1, Router2: r2, Token1: t1, Token2: t2}, true
}

func (s *Source) isKnown(r types.Route) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[r]
	return ok
}

func (s *Source) addLocked(r types.Route) {
	if _, ok := s.index[r]; ok {
		return
	}
	s.index[r] = struct{}{}
	s.known = append(s.known, r)
}

func routeKey(r types.Route) uint64 {
	var buf [4 * common.AddressLength]byte
	copy(buf[0:], r.Router1[:])
	copy(buf[20:], r.Router2[:])
	copy(buf[40:], r.Token1[:])
	copy(buf[60:], r.Token2[:])
	return xxhash.Sum64(buf[:])
}
