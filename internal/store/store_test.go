package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestPool(t *testing.T) *Pool {
	t.Helper()
	path := filepath.Join(t.TempDir(), "games.db3")
	p, err := Open(path, Options{})
	require.NoError(t, err)
	require.NoError(t, p.CreateGameSchema(context.Background()))
	t.Cleanup(func() { p.Close() })
	return p
}

func TestUpsertNameIsIdempotent(t *testing.T) {
	p := openTestPool(t)
	ctx := context.Background()

	tx, err := p.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	id1, err := UpsertPlayer(ctx, tx, "Carlsen, Magnus")
	require.NoError(t, err)
	require.NotZero(t, id1)

	id2, err := UpsertPlayer(ctx, tx, "Carlsen, Magnus")
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	require.NoError(t, tx.Commit())
}

func TestUpsertNameSentinelForEmpty(t *testing.T) {
	p := openTestPool(t)
	ctx := context.Background()
	tx, err := p.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	id, err := UpsertEvent(ctx, tx, "")
	require.NoError(t, err)
	require.Zero(t, id)
}

func insertGame(t *testing.T, p *Pool, white, black int64, result string) {
	t.Helper()
	b := NewGameBatch(p)
	require.NoError(t, b.Add(context.Background(), GameRecord{
		WhiteID: white, BlackID: black, Result: result,
		Moves: []byte{0, 1, 2}, PawnHome: 0xFFFF,
	}))
	require.NoError(t, b.Flush(context.Background()))
}

func TestGameBatchFlush(t *testing.T) {
	p := openTestPool(t)
	ctx := context.Background()
	tx, err := p.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	alice, err := UpsertPlayer(ctx, tx, "alice")
	require.NoError(t, err)
	bob, err := UpsertPlayer(ctx, tx, "bob")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	insertGame(t, p, alice, bob, "1-0")

	var count int
	require.NoError(t, p.db.QueryRow(`SELECT COUNT(*) FROM Games`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestMergePlayersReassignsGames(t *testing.T) {
	p := openTestPool(t)
	ctx := context.Background()

	tx, err := p.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	p1, err := UpsertPlayer(ctx, tx, "player-one")
	require.NoError(t, err)
	p2, err := UpsertPlayer(ctx, tx, "player-two")
	require.NoError(t, err)
	p3, err := UpsertPlayer(ctx, tx, "player-three")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, p.UpsertInfo(ctx, "PlayerCount", "3"))

	// p1 has played p3, never p2.
	insertGame(t, p, p1, p3, "1-0")

	require.NoError(t, p.MergePlayers(ctx, p1, p2))

	var whiteID int64
	require.NoError(t, p.db.QueryRow(`SELECT white_id FROM Games LIMIT 1`).Scan(&whiteID))
	require.Equal(t, p2, whiteID)

	var remaining int
	require.NoError(t, p.db.QueryRow(`SELECT COUNT(*) FROM Players WHERE id = ?`, p1).Scan(&remaining))
	require.Zero(t, remaining)

	value, ok, err := p.GetInfo(ctx, "PlayerCount")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", value)
}

func TestMergePlayersRefusesOpponents(t *testing.T) {
	p := openTestPool(t)
	ctx := context.Background()

	tx, err := p.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	p1, err := UpsertPlayer(ctx, tx, "rival-one")
	require.NoError(t, err)
	p2, err := UpsertPlayer(ctx, tx, "rival-two")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	insertGame(t, p, p1, p2, "1/2-1/2")

	err = p.MergePlayers(ctx, p1, p2)
	require.Error(t, err)
}

func TestCreateIndexesIsIdempotent(t *testing.T) {
	p := openTestPool(t)
	ctx := context.Background()
	require.NoError(t, p.CreateIndexes(ctx))
	require.NoError(t, p.CreateIndexes(ctx))
}
