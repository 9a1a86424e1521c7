package memory

import (
	"context"
	"sort"
	"sync"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage"
)

// LeaderboardArchive is an in-memory implementation of storage.LeaderboardArchive.
type LeaderboardArchive struct {
	mu   sync.RWMutex
	data map[string][]*domain.ArchivedRow // keyed by backtest_id
}

// NewLeaderboardArchive creates a new in-memory leaderboard archive.
func NewLeaderboardArchive() *LeaderboardArchive {
	return &LeaderboardArchive{
		data: make(map[string][]*domain.ArchivedRow),
	}
}

// InsertBulk stores archived rows. The rows of each backtest in the batch
// replace whatever was archived for it before. Fails the entire batch on
// invalid input.
func (s *LeaderboardArchive) InsertBulk(_ context.Context, rows []*domain.ArchivedRow) error {
	for _, r := range rows {
		if r == nil || r.BacktestID == "" || r.Category == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := make(map[string][]*domain.ArchivedRow)
	for _, r := range rows {
		rowCopy := *r
		replaced[r.BacktestID] = append(replaced[r.BacktestID], &rowCopy)
	}
	for id, batch := range replaced {
		s.data[id] = batch
	}
	return nil
}

// GetByBacktestID retrieves archived rows ordered by (category, position) ASC.
func (s *LeaderboardArchive) GetByBacktestID(_ context.Context, backtestID string) ([]*domain.ArchivedRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[backtestID]
	result := make([]*domain.ArchivedRow, 0, len(stored))
	for _, r := range stored {
		rowCopy := *r
		result = append(result, &rowCopy)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Category != result[j].Category {
			return result[i].Category < result[j].Category
		}
		return result[i].Position < result[j].Position
	})
	return result, nil
}

var _ storage.LeaderboardArchive = (*LeaderboardArchive)(nil)
