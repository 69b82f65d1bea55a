package appdata

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/hailam/chessdb/internal/chessdberr"
	"github.com/hailam/chessdb/internal/puzzle"
	"github.com/hailam/chessdb/internal/resultcache"
	"github.com/hailam/chessdb/internal/search"
	"github.com/hailam/chessdb/internal/store"
)

const (
	lineCacheNumCounters = 1e6
	lineCacheMaxCost     = 1 << 23 // about 8M hint entries, each costed at 1
	lineCacheBufferItems = 64
)

// State is the process-wide resource bag every core operation is threaded
// through explicitly: one connection-pool registry, one position-scan
// cache, one weak in-memory "does this exist?" hint cache, one search
// engine (which owns the concurrency-gating semaphore), one result-cache
// pool, and one puzzle-picker cache. Built once by cmd/chessdb's entry
// point and passed down — never a package-level singleton, so tests can
// construct an isolated State per case.
type State struct {
	Registry    *store.Registry
	DBCache     *search.DBCache
	LineCache   *ristretto.Cache[string, bool]
	Engine      *search.Engine
	ResultCache *store.Pool
	PuzzleCache *puzzle.Cache
}

// NewState wires a fresh State: an empty pool registry, an empty position
// scan cache, a ristretto line-cache sized for short-lived UI hints (not a
// durable store — entries may be evicted at any time under memory
// pressure, matching the "weak semantics" the line cache is specified to
// have), a search engine at the default permit count, the result-cache
// catalog opened at resultCachePath, and an empty puzzle picker.
func NewState(resultCachePath string) (*State, error) {
	lineCache, err := ristretto.NewCache(&ristretto.Config[string, bool]{
		NumCounters: lineCacheNumCounters,
		MaxCost:     lineCacheMaxCost,
		BufferItems: lineCacheBufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("create line cache: %w: %w", chessdberr.PackageManager, err)
	}

	registry := store.NewRegistry()
	dbCache := search.NewDBCache()
	engine := search.NewEngine(registry, dbCache, search.DefaultPermits)

	resultPool, err := resultcache.Open(resultCachePath)
	if err != nil {
		lineCache.Close()
		return nil, err
	}

	return &State{
		Registry:    registry,
		DBCache:     dbCache,
		LineCache:   lineCache,
		Engine:      engine,
		ResultCache: resultPool,
		PuzzleCache: puzzle.NewCache(),
	}, nil
}

// Close releases the line cache's background workers and the result-cache
// pool. It does not close any Games database pool in Registry — callers
// hold those open for the process lifetime and close them individually
// via Registry.Drop.
func (s *State) Close() error {
	s.LineCache.Close()
	return s.ResultCache.Close()
}

// lineCacheKey builds the composite (query, path) key the line cache is
// keyed by, per §5's "concurrent map keyed by (query, path)" description.
func lineCacheKey(queryFEN, databasePath string) string {
	return databasePath + "\x00" + queryFEN
}

// PositionExistsHint returns a cached "does this position exist in this
// database" answer, and false if there is no hint cached (a cache miss,
// not a negative answer). Callers that get ok==false must still ask the
// search engine for a real answer.
func (s *State) PositionExistsHint(queryFEN, databasePath string) (exists, ok bool) {
	return s.LineCache.Get(lineCacheKey(queryFEN, databasePath))
}

// SetPositionExistsHint records a short-lived hint, cost-weighted at 1
// entry each since the cached value is a single bool.
func (s *State) SetPositionExistsHint(queryFEN, databasePath string, exists bool) {
	s.LineCache.Set(lineCacheKey(queryFEN, databasePath), exists, 1)
}
