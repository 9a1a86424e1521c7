package clickhouse_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage"
)

func TestLeaderboardArchive_InsertAndGet(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

	rows := []*domain.ArchivedRow{
		{BacktestID: "bt-1", Category: "收益排行", Position: 1, InstrumentCode: "000002", Payload: `{"股票代码":"000002"}`, ArchivedAt: at},
		{BacktestID: "bt-1", Category: "收益排行", Position: 0, InstrumentCode: "000001", Payload: `{"股票代码":"000001"}`, ArchivedAt: at},
		{BacktestID: "bt-1", Category: "个股自身收益排行", Position: 0, InstrumentCode: "000001", Payload: `{}`, ArchivedAt: at},
		{BacktestID: "bt-2", Category: "收益排行", Position: 0, InstrumentCode: "600000", Payload: `{}`, ArchivedAt: at},
	}
	require.NoError(t, archive.InsertBulk(ctx, rows))

	got, err := archive.GetByBacktestID(ctx, "bt-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "个股自身收益排行", got[0].Category)
	assert.Equal(t, "000001", got[1].InstrumentCode)
	assert.Equal(t, 1, got[2].Position)
	assert.Equal(t, `{"股票代码":"000002"}`, got[2].Payload)
	assert.True(t, got[2].ArchivedAt.Equal(at))

	none, err := archive.GetByBacktestID(ctx, "bt-missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLeaderboardArchive_RejectsInvalidBatch(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()

	err := archive.InsertBulk(ctx, []*domain.ArchivedRow{
		{BacktestID: "bt-1", Category: "收益排行"},
		{BacktestID: "bt-1"},
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	got, err := archive.GetByBacktestID(ctx, "bt-1")
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.NoError(t, archive.InsertBulk(ctx, nil))
}

func TestLeaderboardArchive_ReinsertReplacesRows(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()
	first := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Minute)

	require.NoError(t, archive.InsertBulk(ctx, []*domain.ArchivedRow{
		{BacktestID: "bt-1", Category: "收益排行", Position: 0, InstrumentCode: "600000", Payload: `{}`, ArchivedAt: first},
		{BacktestID: "bt-1", Category: "收益排行", Position: 1, InstrumentCode: "000001", Payload: `{}`, ArchivedAt: first},
		{BacktestID: "bt-1", Category: "收益排行", Position: 2, InstrumentCode: "300750", Payload: `{}`, ArchivedAt: first},
	}))
	require.NoError(t, archive.InsertBulk(ctx, []*domain.ArchivedRow{
		{BacktestID: "bt-1", Category: "收益排行", Position: 0, InstrumentCode: "000001", Payload: `{}`, ArchivedAt: second},
		{BacktestID: "bt-1", Category: "收益排行", Position: 1, InstrumentCode: "600000", Payload: `{}`, ArchivedAt: second},
	}))

	got, err := archive.GetByBacktestID(ctx, "bt-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "000001", got[0].InstrumentCode)
	assert.Equal(t, "600000", got[1].InstrumentCode)
	assert.True(t, got[0].ArchivedAt.Equal(second))
}
