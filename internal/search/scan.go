package search

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hailam/chessdb/internal/chessdberr"
	"github.com/hailam/chessdb/internal/store"
)

// NumWorkers is the number of parallel scan shards (matches CPU cores),
// mirroring the teacher engine's NumWorkers = runtime.GOMAXPROCS(0).
var NumWorkers = runtime.GOMAXPROCS(0)

// DefaultPermits is the process-wide concurrent-search budget (§4.4.7).
const DefaultPermits = 10

// Engine executes position-search requests against the store's connection
// registry, data-parallel fork-join style: the teacher's
// internal/engine.Worker/Engine.Search shape (WaitGroup launching N
// goroutines, a shared result aggregator, a stop signal every worker
// polls), generalized from "search a position to depth D" to "scan a row
// shard for reachability/match".
type Engine struct {
	registry *store.Registry
	cache    *DBCache

	sem       *semaphore.Weighted
	available atomic.Int64
}

// NewEngine builds an Engine sharing registry's connection pools and
// cache's per-database scan vectors, admitting up to permits concurrent
// searches.
func NewEngine(registry *store.Registry, cache *DBCache, permits int64) *Engine {
	e := &Engine{registry: registry, cache: cache, sem: semaphore.NewWeighted(permits)}
	e.available.Store(permits)
	return e
}

// Search runs req to completion (or cancellation) and returns the
// aggregated continuation stats and sample-id list. progress may be nil.
//
// Cancellation: instead of the teacher's per-search atomic.Bool stop
// flag, every row worker polls the engine's shared permit counter
// (e.available). When the process-wide permit budget is saturated —
// because enough concurrent searches are already running — every running
// scan's workers observe zero permits available and abandon their shard,
// yielding chessdberr.SearchStopped. A newer search's inability to grab a
// permit *is* the cancellation signal for scans already in flight; there
// is no separate per-request cancel channel.
func (e *Engine) Search(ctx context.Context, req Request, progress ProgressFunc) (*Result, error) {
	start := time.Now()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire search permit: %w: %w", chessdberr.SearchStopped, err)
	}
	e.available.Add(-1)
	defer func() {
		e.available.Add(1)
		e.sem.Release(1)
	}()

	pool, err := e.registry.Get(req.DBPath, store.Options{WAL: true})
	if err != nil {
		return nil, err
	}

	online := resolveProvenance(ctx, pool, req.DBPath)
	var rows []CachedRow
	if online {
		rows, err = LoadOnline(ctx, pool, req.Filter)
	} else {
		rows, err = e.cache.LoadLocal(ctx, pool, req.Filter, req.Position)
	}
	if err != nil {
		return nil, err
	}

	total := len(rows)
	if total == 0 {
		if progress != nil {
			progress(Progress{TabID: req.TabID, Percent: 100, Finished: true})
		}
		return &Result{Elapsed: time.Since(start)}, nil
	}

	progressEvery := total / 20
	if progressEvery < 50000 {
		progressEvery = 50000
	}

	topK := !online && req.Filter.Sort == SortByAverageElo
	samples := newSampleBuffer(topK)
	table := newContinuationTable()

	var processed atomic.Int64
	var stopped atomic.Bool
	var wg sync.WaitGroup

	shardCount := NumWorkers
	if shardCount > total {
		shardCount = total
	}
	shardSize := (total + shardCount - 1) / shardCount

	for w := 0; w < shardCount; w++ {
		lo := w * shardSize
		hi := lo + shardSize
		if hi > total {
			hi = total
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go e.scanShard(rows[lo:hi], req, table, samples, &processed, total, progressEvery, progress, &stopped, &wg)
	}
	wg.Wait()

	if stopped.Load() {
		return nil, chessdberr.SearchStopped
	}

	if progress != nil {
		progress(Progress{TabID: req.TabID, Percent: 100, Finished: true})
	}

	return &Result{
		Continuations: table.slice(),
		SampleIDs:     samples.ids(),
		RowsScanned:   total,
		Elapsed:       time.Since(start),
	}, nil
}

func (e *Engine) scanShard(
	rows []CachedRow,
	req Request,
	table *continuationTable,
	samples *sampleBuffer,
	processed *atomic.Int64,
	total, progressEvery int,
	progress ProgressFunc,
	stopped *atomic.Bool,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for _, row := range rows {
		if e.available.Load() <= 0 {
			stopped.Store(true)
			return
		}

		outcome, err := scanRow(row, req.Filter, req.Position)
		if err == nil && outcome.Matched {
			avgElo := float64(row.WhiteElo+row.BlackElo) / 2
			samples.add(row.ID, avgElo)
			table.add(outcome.Continuation, row.Result)
		}

		n := processed.Add(1)
		if progress != nil && n%int64(progressEvery) == 0 {
			pct := int(n * 100 / int64(total))
			if pct > 99 {
				pct = 99
			}
			progress(Progress{TabID: req.TabID, Percent: pct})
		}
	}
}
