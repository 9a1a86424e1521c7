package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage"
)

// CampaignStore implements storage.CampaignStore using PostgreSQL.
type CampaignStore struct {
	pool *Pool
}

// NewCampaignStore creates a new CampaignStore.
func NewCampaignStore(pool *Pool) *CampaignStore {
	return &CampaignStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CampaignStore = (*CampaignStore)(nil)

const selectCampaignColumns = `
	SELECT id, mode, succeeded, failed, refresh_error, started_at, finished_at
	FROM campaign_reports
`

// Insert adds a finished campaign report. Returns ErrDuplicateKey if id exists.
func (s *CampaignStore) Insert(ctx context.Context, r *domain.CampaignReport) (err error) {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("campaign_insert", start, err) }()

	succeeded, err := json.Marshal(outcomesOrEmpty(r.Succeeded))
	if err != nil {
		return fmt.Errorf("encode succeeded outcomes: %w", err)
	}
	failed, err := json.Marshal(outcomesOrEmpty(r.Failed))
	if err != nil {
		return fmt.Errorf("encode failed outcomes: %w", err)
	}

	query := `
		INSERT INTO campaign_reports (
			id, mode, succeeded, failed, refresh_error, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.pool.Exec(ctx, query,
		r.ID, string(r.Mode), succeeded, failed, r.RefreshError, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert campaign report: %w", err)
	}
	return nil
}

// GetByID retrieves a report by its ID. Returns ErrNotFound if not exists.
func (s *CampaignStore) GetByID(ctx context.Context, id string) (_ *domain.CampaignReport, err error) {
	start := time.Now()
	defer func() { observe("campaign_get", start, err) }()

	row := s.pool.QueryRow(ctx, selectCampaignColumns+` WHERE id = $1`, id)
	r, err := scanCampaignReport(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get campaign report by id: %w", err)
	}
	return r, nil
}

// List retrieves the most recent reports, ordered by started_at DESC.
func (s *CampaignStore) List(ctx context.Context, limit int) (_ []*domain.CampaignReport, err error) {
	start := time.Now()
	defer func() { observe("campaign_list", start, err) }()

	query := selectCampaignColumns + ` ORDER BY started_at DESC, id ASC`
	var rows pgx.Rows
	if limit > 0 {
		rows, err = s.pool.Query(ctx, query+` LIMIT $1`, limit)
	} else {
		rows, err = s.pool.Query(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list campaign reports: %w", err)
	}
	defer rows.Close()

	var result []*domain.CampaignReport
	for rows.Next() {
		r, err := scanCampaignReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign report: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaign reports: %w", err)
	}
	return result, nil
}

func scanCampaignReport(row pgx.Row) (*domain.CampaignReport, error) {
	var (
		r         domain.CampaignReport
		mode      string
		succeeded []byte
		failed    []byte
	)
	if err := row.Scan(&r.ID, &mode, &succeeded, &failed, &r.RefreshError, &r.StartedAt, &r.FinishedAt); err != nil {
		return nil, err
	}
	r.Mode = domain.CampaignMode(mode)
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if err := json.Unmarshal(succeeded, &r.Succeeded); err != nil {
		return nil, fmt.Errorf("decode succeeded outcomes: %w", err)
	}
	if err := json.Unmarshal(failed, &r.Failed); err != nil {
		return nil, fmt.Errorf("decode failed outcomes: %w", err)
	}
	return &r, nil
}

func outcomesOrEmpty(o []domain.SubmissionOutcome) []domain.SubmissionOutcome {
	if o == nil {
		return []domain.SubmissionOutcome{}
	}
	return o
}
