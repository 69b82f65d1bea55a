// Package chessdberr defines the closed error taxonomy surfaced by every
// core package: importer, storage, position search, result cache, and the
// puzzle catalog all wrap one of these sentinels so callers can use
// errors.Is instead of matching on message text.
package chessdberr

import "errors"

var (
	// IO marks a filesystem failure (archive read, database file open, …).
	IO = errors.New("io error")

	// Storage marks a schema, query, or integrity failure in the
	// relational store. Any transaction in flight when this is returned
	// has been rolled back.
	Storage = errors.New("storage error")

	// FenError marks a malformed input FEN or an invalid castling mode.
	FenError = errors.New("invalid fen")

	// NoMatchFound marks a position query that produced no candidates.
	// The boolean form of this check — "does this position exist in this
	// database" — is fronted by internal/appdata.State's line cache
	// (PositionExistsHint/SetPositionExistsHint), which callers consult
	// before a full scan and populate with a scan's outcome afterward, so
	// a repeated negative query never pays for another scan.
	NoMatchFound = errors.New("no match found")

	// SearchStopped marks a scan that observed cancellation (the
	// process-wide semaphore was exhausted by a newer request, or the
	// owning database was deleted mid-scan). Partial results are
	// discarded, not cached.
	SearchStopped = errors.New("search stopped")

	// NotDistinctPlayers is returned when a player merge is requested for
	// two players who have faced each other in at least one game.
	NotDistinctPlayers = errors.New("players are not distinct")

	// NoPuzzles is returned when filtered puzzle sampling finds no
	// eligible rows.
	NoPuzzles = errors.New("no puzzles match the given filters")

	// UnsupportedFileFormat marks an importer input that could not be
	// recognized as any supported archive or catalog shape.
	UnsupportedFileFormat = errors.New("unsupported file format")

	// PackageManager is the catch-all for environmental failures that
	// don't fit any of the above (missing external tool, bad permissions
	// on app-data directories, …).
	PackageManager = errors.New("environment error")
)
