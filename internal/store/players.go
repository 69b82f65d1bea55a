package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hailam/chessdb/internal/chessdberr"
)

// UpsertPlayer resolves name to a Players.id, inserting a new row if the
// name hasn't been seen. An empty name resolves to the sentinel id 0
// without touching the table.
func UpsertPlayer(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	return upsertName(ctx, tx, "Players", name)
}

// UpsertEvent resolves name to an Events.id, as UpsertPlayer.
func UpsertEvent(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	return upsertName(ctx, tx, "Events", name)
}

// UpsertSite resolves name to a Sites.id, as UpsertPlayer.
func UpsertSite(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	return upsertName(ctx, tx, "Sites", name)
}

func upsertName(ctx context.Context, tx *sql.Tx, table, name string) (int64, error) {
	if name == "" {
		return 0, nil
	}

	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE name = ?`, name).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case err != sql.ErrNoRows:
		return 0, fmt.Errorf("lookup %s %q: %w: %w", table, name, chessdberr.Storage, err)
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO `+table+`(name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("insert %s %q: %w: %w", table, name, chessdberr.Storage, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert %s %q: %w: %w", table, name, chessdberr.Storage, err)
	}
	return id, nil
}

// MergePlayers reassigns every Games row referencing src to dst, then
// deletes src, decrementing Info's PlayerCount. It refuses the merge with
// chessdberr.NotDistinctPlayers if src and dst have ever faced each
// other, since that game would become self-referential.
func (p *Pool) MergePlayers(ctx context.Context, src, dst int64) error {
	if src == dst {
		return fmt.Errorf("merge player %d into itself: %w", src, chessdberr.NotDistinctPlayers)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin merge tx: %w: %w", chessdberr.Storage, err)
	}
	defer tx.Rollback()

	var opponentGames int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM Games
		WHERE (white_id = ? AND black_id = ?) OR (white_id = ? AND black_id = ?)`,
		src, dst, dst, src).Scan(&opponentGames)
	if err != nil {
		return fmt.Errorf("check opponent games: %w: %w", chessdberr.Storage, err)
	}
	if opponentGames > 0 {
		return fmt.Errorf("players %d and %d have faced each other: %w", src, dst, chessdberr.NotDistinctPlayers)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE Games SET white_id = ? WHERE white_id = ?`, dst, src); err != nil {
		return fmt.Errorf("reassign white games: %w: %w", chessdberr.Storage, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE Games SET black_id = ? WHERE black_id = ?`, dst, src); err != nil {
		return fmt.Errorf("reassign black games: %w: %w", chessdberr.Storage, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM Players WHERE id = ?`, src); err != nil {
		return fmt.Errorf("delete merged player: %w: %w", chessdberr.Storage, err)
	}

	if err := decrementInfoCount(ctx, tx, "PlayerCount"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit merge tx: %w: %w", chessdberr.Storage, err)
	}
	return nil
}

func decrementInfoCount(ctx context.Context, tx *sql.Tx, name string) error {
	var value int64
	err := tx.QueryRowContext(ctx, `SELECT value FROM Info WHERE name = ?`, name).Scan(&value)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w: %w", name, chessdberr.Storage, err)
	}
	_, err = tx.ExecContext(ctx, `UPDATE Info SET value = ? WHERE name = ?`, value-1, name)
	if err != nil {
		return fmt.Errorf("decrement %s: %w: %w", name, chessdberr.Storage, err)
	}
	return nil
}
