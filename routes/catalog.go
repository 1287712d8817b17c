package routes

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/michaelpento.lv/arbbot/types"
)

// Catalog is the append-only sink for newly discovered routes
type Catalog interface {
	Append(route types.Route) error
}

// FileCatalog appends one record per line in the form
//
//	["router1","router2","token1","token2"],
//
// so the file body can be pasted into a config's routes array.
type FileCatalog struct {
	path string
	mu   sync.Mutex
}

// CatalogPath returns the route log location for a network
func CatalogPath(dir, network string) string {
	return filepath.Join(dir, network+"_RouteLog.txt")
}

func NewFileCatalog(path string) *FileCatalog {
	return &FileCatalog{path: path}
}

func (c *FileCatalog) Path() string {
	return c.path
}

// Append writes the route as a single line
func (c *FileCatalog) Append(route types.Route) error {
	line, err := json.Marshal(route.Record())
	if err != nil {
		return fmt.Errorf("failed to encode route: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create route log dir: %w", err)
	}
	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open route log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, ",\n"...)); err != nil {
		return fmt.Errorf("failed to append route: %w", err)
	}
	return nil
}

// Load reads every record in order. A missing file yields no routes.
func (c *FileCatalog) Load() ([]types.Route, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open route log: %w", err)
	}
	defer f.Close()

	var out []types.Route
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(strings.TrimSpace(scanner.Text()), ",")
		if line == "" {
			continue
		}
		var rec [4]string
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("route log line %d: %w", lineNo, err)
		}
		route, err := types.RouteFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("route log line %d: %w", lineNo, err)
		}
		out = append(out, route)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read route log: %w", err)
	}
	return out, nil
}

// Merge returns base followed by the routes of extra not already present
func Merge(base, extra []types.Route) []types.Route {
	seen := make(map[types.Route]struct{}, len(base)+len(extra))
	out := make([]types.Route, 0, len(base)+len(extra))
	for _, list := range [][]types.Route{base, extra} {
		for _, r := range list {
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}
