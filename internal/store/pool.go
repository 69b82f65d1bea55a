// Package store is the relational storage layer: one connection pool per
// database file, schema creation and index lifecycle for the Games family
// of tables, and the batched writers the importer drives. It assumes
// modernc.org/sqlite (registered under the driver name "sqlite") and talks
// to it exclusively through database/sql.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sync"

	_ "modernc.org/sqlite"

	"golang.org/x/sync/semaphore"

	"github.com/hailam/chessdb/internal/chessdberr"
)

const (
	maxOpenConns = 32
	maxIdleConns = 4

	// perfCacheSizeKiB is negative so sqlite interprets it as KiB: ~64MB.
	perfCacheSizeKiB = -64000
	perfMmapBytes    = 256 << 20
)

// Options controls the pragma conditioning applied when a database file is
// opened. Bulk mode trades durability for import throughput; it is only
// appropriate for a freshly created database being populated by the
// importer.
type Options struct {
	// Bulk turns the journal off and foreign keys off, for maximum
	// import throughput. Never use this for a database already in
	// normal use.
	Bulk bool
	// WAL switches the journal to write-ahead-logging instead of the
	// default delete-mode journal. Ignored when Bulk is set.
	WAL bool
}

// Pool owns one *sql.DB for a single database file plus a semaphore sized
// to its connection limit, so callers can ask for a bounded acquire with a
// real timeout instead of relying on database/sql's unbounded blocking
// wait.
type Pool struct {
	db   *sql.DB
	path string
	sem  *semaphore.Weighted
}

// Open opens (creating if absent) the sqlite database at path, applying
// the pragma set described in Options. The conditioning pragmas that must
// be identical on every pooled connection (foreign_keys, busy_timeout,
// journal_mode, and — once the schema is already populated — the cache
// and mmap tuning block) are baked into the connection DSN rather than
// issued as a one-off PRAGMA statement, since database/sql hands out
// physical connections from its pool transparently and a PRAGMA executed
// against one connection does not propagate to its siblings.
func Open(path string, opts Options) (*Pool, error) {
	populated, err := schemaPopulated(path)
	if err != nil {
		return nil, err
	}

	dsn := buildDSN(path, opts, populated)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, chessdberr.Storage, err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w: %w", path, chessdberr.Storage, err)
	}

	return &Pool{
		db:   db,
		path: path,
		sem:  semaphore.NewWeighted(maxOpenConns),
	}, nil
}

func schemaPopulated(path string) (bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	probe, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		return false, fmt.Errorf("probe %s: %w: %w", path, chessdberr.Storage, err)
	}
	defer probe.Close()

	var name string
	err = probe.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='Games'`).Scan(&name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("probe schema %s: %w: %w", path, chessdberr.Storage, err)
	default:
		return true, nil
	}
}

func buildDSN(path string, opts Options, populated bool) string {
	v := url.Values{}

	if opts.Bulk {
		v.Add("_pragma", "journal_mode(OFF)")
		v.Add("_pragma", "foreign_keys(0)")
	} else {
		journal := "DELETE"
		if opts.WAL {
			journal = "WAL"
		}
		v.Add("_pragma", fmt.Sprintf("journal_mode(%s)", journal))
		v.Add("_pragma", "foreign_keys(1)")
		v.Add("_pragma", "busy_timeout(60000)")

		if populated {
			v.Add("_pragma", fmt.Sprintf("cache_size(%d)", perfCacheSizeKiB))
			v.Add("_pragma", "temp_store(2)")
			v.Add("_pragma", fmt.Sprintf("mmap_size(%d)", perfMmapBytes))
		}
	}

	return "file:" + path + "?" + v.Encode()
}

// DB returns the underlying *sql.DB for callers that need direct query
// access outside the acquire-timeout path (e.g. one-off schema checks).
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Path returns the database file path this pool was opened against.
func (p *Pool) Path() string {
	return p.path
}

// Acquire blocks (respecting ctx's deadline) until a permit is available
// and returns a dedicated *sql.Conn. The caller must call Release exactly
// once, typically via conn.Close() followed by Release.
func (p *Pool) Acquire(ctx context.Context) (*sql.Conn, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire connection from %s: %w", p.path, err)
	}
	conn, err := p.db.Conn(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, fmt.Errorf("acquire connection from %s: %w: %w", p.path, chessdberr.Storage, err)
	}
	return conn, nil
}

// Release gives back the permit taken by a matching Acquire. Call it
// after the *sql.Conn returned by Acquire has been closed.
func (p *Pool) Release() {
	p.sem.Release(1)
}

// AcquireAll blocks until every permit is available, guaranteeing no
// other caller is mid-acquire. Used before closing a pool for deletion so
// no in-flight scan is left holding a connection.
func (p *Pool) AcquireAll(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, maxOpenConns); err != nil {
		return fmt.Errorf("drain connections from %s: %w", p.path, err)
	}
	return nil
}

// Close closes the underlying *sql.DB. Callers that want to guarantee no
// scan is in flight should call AcquireAll first.
func (p *Pool) Close() error {
	return p.db.Close()
}

// Registry maps database paths, exactly as callers pass them, to their
// Pool, so repeated
// operations against the same file reuse one connection pool instead of
// opening a fresh one per call.
type Registry struct {
	mu    sync.RWMutex
	pools map[string]*Pool
}

// NewRegistry returns an empty pool registry.
func NewRegistry() *Registry {
	return &Registry{pools: make(map[string]*Pool)}
}

// Get returns the pool for path, opening it with opts if it isn't already
// registered.
func (r *Registry) Get(path string, opts Options) (*Pool, error) {
	r.mu.RLock()
	p, ok := r.pools[path]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pools[path]; ok {
		return p, nil
	}

	p, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	r.pools[path] = p
	return p, nil
}

// Drop closes and removes the pool for path, if present, after draining
// every in-flight connection. It is the caller's responsibility to have
// already deleted or intends to delete the underlying file.
func (r *Registry) Drop(ctx context.Context, path string) error {
	r.mu.Lock()
	p, ok := r.pools[path]
	if ok {
		delete(r.pools, path)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	if err := p.AcquireAll(ctx); err != nil {
		return err
	}
	return p.Close()
}
