package resultcache

import (
	"context"

	"github.com/hailam/chessdb/internal/search"
	"github.com/hailam/chessdb/internal/store"
)

// SearchCached wraps engine.Search with a cache lookup: a position/database
// pair that was already searched successfully skips the scan entirely and
// fires one immediate terminal progress event instead. A cache miss runs
// the real scan and, on success, stores its result for next time.
//
// fen is the caller's canonical FEN for req.Position.Target; it is the
// cache key alongside req.DBPath, independent of the query's Exact/Partial
// shape or any row filter, matching the cache contract in §4.5.
func SearchCached(ctx context.Context, cachePool *store.Pool, engine *search.Engine, fen string, req search.Request, progress search.ProgressFunc) (*search.Result, error) {
	if cachePool != nil {
		if cached, ok, err := Lookup(ctx, cachePool, fen, req.DBPath); err == nil && ok {
			if progress != nil {
				progress(search.Progress{TabID: req.TabID, Percent: 100, Finished: true})
			}
			return cached, nil
		}
		// A lookup error is not fatal to the caller's query: fall through
		// and run the scan as if it were a miss.
	}

	result, err := engine.Search(ctx, req, progress)
	if err != nil {
		return nil, err
	}

	if cachePool != nil {
		Store(ctx, cachePool, fen, req.DBPath, result)
	}
	return result, nil
}
