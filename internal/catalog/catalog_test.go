package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-lab/internal/domain"
)

type fakeService struct {
	mu         sync.Mutex
	strategies []domain.Strategy
	histories  map[string][]domain.BacktestRecord
	historyErr map[string]error
	listErr    error
	upsertErr  error
	deleteErr  error
	calls      []string
}

func newFakeService(names ...string) *fakeService {
	f := &fakeService{
		histories:  map[string][]domain.BacktestRecord{},
		historyErr: map[string]error{},
	}
	for _, name := range names {
		f.strategies = append(f.strategies, domain.Strategy{Name: name})
	}
	return f
}

func (f *fakeService) ListStrategies(ctx context.Context) ([]domain.Strategy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Strategy(nil), f.strategies...), nil
}

func (f *fakeService) UpsertStrategy(ctx context.Context, s domain.Strategy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "upsert:"+s.Name)
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for i := range f.strategies {
		if f.strategies[i].Name == s.Name {
			f.strategies[i] = s
			return nil
		}
	}
	f.strategies = append(f.strategies, s)
	return nil
}

func (f *fakeService) DeleteStrategy(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete:"+name)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	kept := f.strategies[:0]
	for _, s := range f.strategies {
		if s.Name != name {
			kept = append(kept, s)
		}
	}
	f.strategies = kept
	return nil
}

func (f *fakeService) ListBacktests(ctx context.Context, strategyName string) ([]domain.BacktestRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.historyErr[strategyName]; err != nil {
		return nil, err
	}
	return f.histories[strategyName], nil
}

func TestCatalog_ListAttachesHistories(t *testing.T) {
	svc := newFakeService("alpha", "beta")
	svc.histories["alpha"] = []domain.BacktestRecord{{ID: "a1", StrategyName: "alpha"}}
	svc.historyErr["beta"] = errors.New("boom")

	strategies, err := New(svc, nil).List(context.Background())
	require.NoError(t, err)
	require.Len(t, strategies, 2)
	assert.Len(t, strategies[0].BacktestHistory, 1)
	assert.Empty(t, strategies[1].BacktestHistory)
}

func TestCatalog_ListError(t *testing.T) {
	svc := newFakeService("alpha")
	svc.listErr = errors.New("down")

	_, err := New(svc, nil).List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, svc.listErr)
}

func TestCatalog_CreateRejectsBlankNameBeforeNetwork(t *testing.T) {
	svc := newFakeService()
	c := New(svc, nil)

	for _, name := range []string{"", "   "} {
		_, err := c.Create(context.Background(), domain.Strategy{Name: name})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
	assert.Empty(t, svc.calls)
}

func TestCatalog_CreateRefreshesInFull(t *testing.T) {
	svc := newFakeService("alpha")
	c := New(svc, nil)

	strategies, err := c.Create(context.Background(), domain.Strategy{
		Name:          " beta ",
		BuyConditions: []string{"ma5>ma10", " ", "vol>1"},
	})
	require.NoError(t, err)
	require.Len(t, strategies, 2)
	assert.Equal(t, "beta", strategies[1].Name)
	assert.Equal(t, []string{"ma5>ma10", "vol>1"}, strategies[1].BuyConditions)
	assert.Equal(t, []string{"upsert:beta", "list"}, svc.calls)
}

func TestCatalog_CreateFailureSkipsRefresh(t *testing.T) {
	svc := newFakeService("alpha")
	svc.upsertErr = errors.New("rejected")

	strategies, err := New(svc, nil).Create(context.Background(), domain.Strategy{Name: "beta"})
	require.Error(t, err)
	assert.Nil(t, strategies)
	assert.Equal(t, []string{"upsert:beta"}, svc.calls)
}

func TestCatalog_Update(t *testing.T) {
	svc := newFakeService("alpha")
	strategies, err := New(svc, nil).Update(context.Background(), domain.Strategy{
		Name:           "alpha",
		SellConditions: []string{"ret>0.1"},
	})
	require.NoError(t, err)
	require.Len(t, strategies, 1)
	assert.Equal(t, []string{"ret>0.1"}, strategies[0].SellConditions)
}

func TestCatalog_DeleteRequiresConfirmation(t *testing.T) {
	svc := newFakeService("alpha")
	c := New(svc, nil)

	strategies, deleted, err := c.Delete(context.Background(), "alpha", domain.NeverConfirm)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Nil(t, strategies)
	assert.Empty(t, svc.calls)

	strategies, deleted, err = c.Delete(context.Background(), "alpha", domain.AlwaysConfirm)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, strategies)
	assert.Equal(t, []string{"delete:alpha", "list"}, svc.calls)
}

func TestCatalog_DeleteFailure(t *testing.T) {
	svc := newFakeService("alpha")
	svc.deleteErr = errors.New("nope")

	_, deleted, err := New(svc, nil).Delete(context.Background(), "alpha", domain.AlwaysConfirm)
	require.Error(t, err)
	assert.False(t, deleted)
}
