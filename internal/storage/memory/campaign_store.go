package memory

import (
	"context"
	"sort"
	"sync"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage"
)

// CampaignStore is an in-memory implementation of storage.CampaignStore.
type CampaignStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CampaignReport // keyed by report id
}

// NewCampaignStore creates a new in-memory campaign store.
func NewCampaignStore() *CampaignStore {
	return &CampaignStore{
		data: make(map[string]*domain.CampaignReport),
	}
}

// Insert adds a finished campaign report. Returns ErrDuplicateKey if id exists.
func (s *CampaignStore) Insert(_ context.Context, r *domain.CampaignReport) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.ID] = copyReport(r)
	return nil
}

// GetByID retrieves a report by its ID. Returns ErrNotFound if not exists.
func (s *CampaignStore) GetByID(_ context.Context, id string) (*domain.CampaignReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyReport(r), nil
}

// List retrieves the most recent reports, ordered by started_at DESC.
func (s *CampaignStore) List(_ context.Context, limit int) ([]*domain.CampaignReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.CampaignReport, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, copyReport(r))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].StartedAt.After(result[j].StartedAt)
		}
		return result[i].ID < result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// copyReport prevents callers from mutating stored outcome slices.
func copyReport(r *domain.CampaignReport) *domain.CampaignReport {
	c := *r
	c.Succeeded = append([]domain.SubmissionOutcome(nil), r.Succeeded...)
	c.Failed = append([]domain.SubmissionOutcome(nil), r.Failed...)
	return &c
}

var _ storage.CampaignStore = (*CampaignStore)(nil)
