// Package archive persists finished sessions' turn histories to Postgres for
// post-game analysis. The session bridge never depends on it; callers hand in
// the in-memory history after a game ends.
package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/earthwater/bridge-server-go/internal/session"
)

// Store writes session histories to a Postgres database.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewStore connects to the database and verifies the connection.
func NewStore(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to archive database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping archive database: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the archive tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			scenario   TEXT NOT NULL,
			seed       BIGINT,
			winner     TEXT,
			turns      INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS turn_records (
			session_id TEXT NOT NULL REFERENCES sessions(session_id),
			turn       INTEGER NOT NULL,
			player     TEXT NOT NULL,
			action     TEXT NOT NULL,
			arg        TEXT,
			executed_at TIMESTAMPTZ NOT NULL,
			state_before JSONB,
			state_after  JSONB,
			PRIMARY KEY (session_id, turn)
		)`,
	}
	for _, q := range ddl {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("ensure archive schema: %w", err)
		}
	}
	return nil
}

// SessionResult describes one finished game to archive.
type SessionResult struct {
	SessionID string
	Scenario  string
	Seed      *int64
	Winner    string
	History   []session.TurnRecord
}

// ArchiveSession stores a session row and its full turn history in one
// transaction. Snapshots are stored as JSONB in their wire form.
func (s *Store) ArchiveSession(ctx context.Context, result SessionResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin archive transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO sessions (session_id, scenario, seed, winner, turns) VALUES ($1, $2, $3, $4, $5)`,
		result.SessionID, result.Scenario, result.Seed, result.Winner, len(result.History),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", result.SessionID, err)
	}

	for _, record := range result.History {
		before, err := json.Marshal(record.Before)
		if err != nil {
			return fmt.Errorf("marshal state before turn %d: %w", record.Turn, err)
		}
		after, err := json.Marshal(record.After)
		if err != nil {
			return fmt.Errorf("marshal state after turn %d: %w", record.Turn, err)
		}

		var arg *string
		if record.Arg != nil {
			text := fmt.Sprint(record.Arg)
			arg = &text
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO turn_records (session_id, turn, player, action, arg, executed_at, state_before, state_after)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			result.SessionID, record.Turn, record.Player, record.Action, arg, record.Timestamp, before, after,
		)
		if err != nil {
			return fmt.Errorf("insert turn %d: %w", record.Turn, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit archive transaction: %w", err)
	}

	s.logger.Info("archived session",
		zap.String("session_id", result.SessionID),
		zap.Int("turns", len(result.History)),
		zap.String("winner", result.Winner),
	)
	return nil
}
