package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mirrelia/tweet-relay-bot/internal/modules/monitor/domain"
	"github.com/samber/oops"
)

const uniqueViolation = "23505"

// PostgresStorage persists monitors in a Postgres table, keyed on
// (channel_id, account_id). Use it when the bot shares state across restarts
// or hosts; FileStorage covers the single-node case.
type PostgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage opens the database and ensures the monitors table exists
func NewPostgresStorage(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to open database")
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, oops.Wrapf(err, "failed to connect to database")
	}

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS monitors (
		channel_id    BIGINT NOT NULL,
		account_id    BIGINT NOT NULL,
		match_pattern TEXT NOT NULL DEFAULT '',
		added_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (channel_id, account_id)
	)`)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to create monitors table")
	}

	return &PostgresStorage{db: db}, nil
}

// Close releases the underlying connection pool
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

// SelectAll returns every monitor across all channels
func (s *PostgresStorage) SelectAll(ctx context.Context) ([]domain.Monitor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel_id, account_id, match_pattern, added_at FROM monitors`)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to select monitors")
	}
	defer rows.Close()

	var monitors []domain.Monitor
	for rows.Next() {
		var m domain.Monitor
		if err := rows.Scan(&m.ChannelID, &m.AccountID, &m.MatchPattern, &m.AddedAt); err != nil {
			return nil, oops.Wrapf(err, "failed to scan monitor row")
		}
		monitors = append(monitors, m)
	}
	return monitors, rows.Err()
}

// SelectByKey returns the monitor for the (channel, account) pair, or ErrNotRegistered
func (s *PostgresStorage) SelectByKey(ctx context.Context, channelID, accountID int64) (*domain.Monitor, error) {
	var m domain.Monitor
	err := s.db.QueryRowContext(ctx,
		`SELECT channel_id, account_id, match_pattern, added_at FROM monitors
		 WHERE channel_id = $1 AND account_id = $2`,
		channelID, accountID,
	).Scan(&m.ChannelID, &m.AccountID, &m.MatchPattern, &m.AddedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotRegistered
	}
	if err != nil {
		return nil, oops.With("channel_id", channelID, "account_id", accountID).Wrapf(err, "failed to select monitor")
	}
	return &m, nil
}

// Insert adds a monitor, rejecting duplicates of the (channel, account) key
func (s *PostgresStorage) Insert(ctx context.Context, monitor *domain.Monitor) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO monitors (channel_id, account_id, match_pattern, added_at)
		 VALUES ($1, $2, $3, $4)`,
		monitor.ChannelID, monitor.AccountID, monitor.MatchPattern, monitor.AddedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("monitor (%d, %d): %w", monitor.ChannelID, monitor.AccountID, domain.ErrAlreadyRegistered)
	}
	if err != nil {
		return oops.With("channel_id", monitor.ChannelID, "account_id", monitor.AccountID).Wrapf(err, "failed to insert monitor")
	}
	return nil
}

// Delete removes the monitor for the (channel, account) pair
func (s *PostgresStorage) Delete(ctx context.Context, channelID, accountID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM monitors WHERE channel_id = $1 AND account_id = $2`,
		channelID, accountID)
	if err != nil {
		return oops.With("channel_id", channelID, "account_id", accountID).Wrapf(err, "failed to delete monitor")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("monitor (%d, %d): %w", channelID, accountID, domain.ErrNotRegistered)
	}
	return nil
}
