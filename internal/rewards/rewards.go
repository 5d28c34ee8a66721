// Package rewards persists each player's durable coin balance and win
// counters, grounded on the teacher's pkg/server/internal/db package (same
// database/sql + mattn/go-sqlite3 stack, same CREATE TABLE IF NOT EXISTS
// bootstrap idiom) but narrowed to the Rewards collaborator's actual job:
// it only ever sees a completed hand/round's winners, never full table
// snapshots the way the teacher's db.go persists.
package rewards

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store issues and reads reward balances.
type Store struct {
	db *sql.DB
}

// Open creates (or reuses) the sqlite-backed reward store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("rewards: opening %q: %w", path, err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS rewards (
			player_id    TEXT PRIMARY KEY,
			coins        INTEGER NOT NULL DEFAULT 0,
			wins_poker   INTEGER NOT NULL DEFAULT 0,
			wins_uno     INTEGER NOT NULL DEFAULT 0,
			cosmetic_a   TEXT,
			cosmetic_b   TEXT,
			updated_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Balance is a player's current durable reward state.
type Balance struct {
	PlayerID  string
	Coins     int64
	WinsPoker int64
	WinsUno   int64
}

// GetBalance returns a player's balance, zero-valued if they've never earned a reward.
func (s *Store) GetBalance(ctx context.Context, playerID string) (Balance, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT player_id, coins, wins_poker, wins_uno FROM rewards WHERE player_id = ?`, playerID)
	var b Balance
	err := row.Scan(&b.PlayerID, &b.Coins, &b.WinsPoker, &b.WinsUno)
	if err == sql.ErrNoRows {
		return Balance{PlayerID: playerID}, nil
	}
	if err != nil {
		return Balance{}, fmt.Errorf("rewards: reading balance for %q: %w", playerID, err)
	}
	return b, nil
}

// GameType names which win counter a reward issuance increments.
type GameType string

const (
	GamePoker GameType = "poker"
	GameUno   GameType = "uno"
)

// IssueWin credits a player with coins and increments their win counter for
// gameType. It upserts, so a first-time winner is created implicitly.
func (s *Store) IssueWin(ctx context.Context, playerID string, gameType GameType, coins int64) error {
	var column string
	switch gameType {
	case GamePoker:
		column = "wins_poker"
	case GameUno:
		column = "wins_uno"
	default:
		return fmt.Errorf("rewards: unknown game type %q", gameType)
	}

	query := fmt.Sprintf(`
		INSERT INTO rewards (player_id, coins, %s, updated_at)
		VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(player_id) DO UPDATE SET
			coins = coins + excluded.coins,
			%s = %s + 1,
			updated_at = CURRENT_TIMESTAMP
	`, column, column, column)

	if _, err := s.db.ExecContext(ctx, query, playerID, coins); err != nil {
		return fmt.Errorf("rewards: issuing win for %q: %w", playerID, err)
	}
	return nil
}

// SetCosmetic stores an unlocked cosmetic in one of the two nullable
// cosmetic slots (slot must be "a" or "b").
func (s *Store) SetCosmetic(ctx context.Context, playerID, slot, value string) error {
	var column string
	switch slot {
	case "a":
		column = "cosmetic_a"
	case "b":
		column = "cosmetic_b"
	default:
		return fmt.Errorf("rewards: unknown cosmetic slot %q", slot)
	}
	query := fmt.Sprintf(`
		INSERT INTO rewards (player_id, %s, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(player_id) DO UPDATE SET %s = excluded.%s, updated_at = CURRENT_TIMESTAMP
	`, column, column, column)
	if _, err := s.db.ExecContext(ctx, query, playerID, value); err != nil {
		return fmt.Errorf("rewards: setting cosmetic %s for %q: %w", slot, playerID, err)
	}
	return nil
}
