package storage

import (
	"context"

	"strategy-lab/internal/domain"
)

// CampaignStore provides access to the campaign_reports journal.
type CampaignStore interface {
	// Insert adds a finished campaign report. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, r *domain.CampaignReport) error

	// GetByID retrieves a report by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.CampaignReport, error)

	// List retrieves the most recent reports, ordered by started_at DESC.
	// A limit <= 0 returns every report.
	List(ctx context.Context, limit int) ([]*domain.CampaignReport, error)
}

// LeaderboardArchive provides access to leaderboard_rows storage.
type LeaderboardArchive interface {
	// InsertBulk stores the rows of one or more fetched leaderboards. The rows
	// of a backtest replace its previously archived rows.
	InsertBulk(ctx context.Context, rows []*domain.ArchivedRow) error

	// GetByBacktestID retrieves the latest archived rows of a backtest, ordered
	// by (category, position) ASC.
	GetByBacktestID(ctx context.Context, backtestID string) ([]*domain.ArchivedRow, error)
}
