package clickhouse

import (
	"context"
	"fmt"
	"time"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage"
)

// LeaderboardArchive implements storage.LeaderboardArchive using ClickHouse.
type LeaderboardArchive struct {
	conn *Conn
}

// NewLeaderboardArchive creates a new LeaderboardArchive.
func NewLeaderboardArchive(conn *Conn) *LeaderboardArchive {
	return &LeaderboardArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.LeaderboardArchive = (*LeaderboardArchive)(nil)

// InsertBulk writes archived rows in one batch. The rows of a backtest form a
// new generation stamped with their latest archived_at, which supersedes the
// rows archived for it before. Fails the entire batch on invalid input.
func (s *LeaderboardArchive) InsertBulk(ctx context.Context, rows []*domain.ArchivedRow) (err error) {
	if len(rows) == 0 {
		return nil
	}
	for _, r := range rows {
		if r == nil || r.BacktestID == "" || r.Category == "" || r.Position < 0 {
			return storage.ErrInvalidInput
		}
	}

	start := time.Now()
	defer func() { observe("leaderboard_insert", start, err) }()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO leaderboard_rows (
			backtest_id, category, position, instrument_code, payload, archived_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	generations := make(map[string]time.Time)
	for _, r := range rows {
		at := r.ArchivedAt
		if at.IsZero() {
			at = start
		}
		if at.After(generations[r.BacktestID]) {
			generations[r.BacktestID] = at
		}
	}

	for _, r := range rows {
		err = batch.Append(
			r.BacktestID, r.Category, uint32(r.Position), r.InstrumentCode, r.Payload,
			generations[r.BacktestID].UTC(),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByBacktestID retrieves the latest generation of a backtest's archived
// rows, ordered by (category, position) ASC.
func (s *LeaderboardArchive) GetByBacktestID(ctx context.Context, backtestID string) (_ []*domain.ArchivedRow, err error) {
	start := time.Now()
	defer func() { observe("leaderboard_get", start, err) }()

	query := `
		SELECT backtest_id, category, position, instrument_code, payload, archived_at
		FROM leaderboard_rows FINAL
		WHERE backtest_id = ?
		  AND archived_at = (
			SELECT max(archived_at) FROM leaderboard_rows WHERE backtest_id = ?
		  )
		ORDER BY category ASC, position ASC
	`

	rows, err := s.conn.Query(ctx, query, backtestID, backtestID)
	if err != nil {
		return nil, fmt.Errorf("query by backtest id: %w", err)
	}
	defer rows.Close()

	var result []*domain.ArchivedRow
	for rows.Next() {
		var (
			r        domain.ArchivedRow
			position uint32
		)
		if err := rows.Scan(&r.BacktestID, &r.Category, &position, &r.InstrumentCode, &r.Payload, &r.ArchivedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		r.Position = int(position)
		r.ArchivedAt = r.ArchivedAt.UTC()
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard rows: %w", err)
	}
	return result, nil
}
