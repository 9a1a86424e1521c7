package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage"
)

func TestLeaderboardArchive_InsertAndGet(t *testing.T) {
	archive := NewLeaderboardArchive()
	ctx := context.Background()
	now := time.Now().UTC()

	rows := []*domain.ArchivedRow{
		{BacktestID: "bt1", Category: "收益排行", Position: 1, InstrumentCode: "000001", Payload: `{"股票代码":"000001"}`, ArchivedAt: now},
		{BacktestID: "bt1", Category: "收益排行", Position: 0, InstrumentCode: "600000", Payload: `{"股票代码":"600000"}`, ArchivedAt: now},
		{BacktestID: "bt2", Category: "收益排行", Position: 0, InstrumentCode: "300750", Payload: `{}`, ArchivedAt: now},
	}
	if err := archive.InsertBulk(ctx, rows); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := archive.GetByBacktestID(ctx, "bt1")
	if err != nil {
		t.Fatalf("GetByBacktestID failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].InstrumentCode != "600000" || got[1].InstrumentCode != "000001" {
		t.Errorf("rows not ordered by position: %s, %s", got[0].InstrumentCode, got[1].InstrumentCode)
	}

	empty, err := archive.GetByBacktestID(ctx, "missing")
	if err != nil {
		t.Fatalf("GetByBacktestID failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no rows, got %d", len(empty))
	}
}

func TestLeaderboardArchive_InvalidBatchRejected(t *testing.T) {
	archive := NewLeaderboardArchive()
	ctx := context.Background()

	rows := []*domain.ArchivedRow{
		{BacktestID: "bt1", Category: "收益排行"},
		{BacktestID: "bt1"},
	}
	if err := archive.InsertBulk(ctx, rows); !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	got, _ := archive.GetByBacktestID(ctx, "bt1")
	if len(got) != 0 {
		t.Errorf("partial batch was stored: %d rows", len(got))
	}
}

func TestLeaderboardArchive_InsertReplacesBacktestRows(t *testing.T) {
	archive := NewLeaderboardArchive()
	ctx := context.Background()
	first := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

	initial := []*domain.ArchivedRow{
		{BacktestID: "bt1", Category: "收益排行", Position: 0, InstrumentCode: "600000", ArchivedAt: first},
		{BacktestID: "bt1", Category: "收益排行", Position: 1, InstrumentCode: "000001", ArchivedAt: first},
		{BacktestID: "bt1", Category: "收益排行", Position: 2, InstrumentCode: "300750", ArchivedAt: first},
		{BacktestID: "bt2", Category: "收益排行", Position: 0, InstrumentCode: "601318", ArchivedAt: first},
	}
	if err := archive.InsertBulk(ctx, initial); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	second := first.Add(time.Minute)
	reloaded := []*domain.ArchivedRow{
		{BacktestID: "bt1", Category: "收益排行", Position: 0, InstrumentCode: "000001", ArchivedAt: second},
		{BacktestID: "bt1", Category: "收益排行", Position: 1, InstrumentCode: "600000", ArchivedAt: second},
	}
	if err := archive.InsertBulk(ctx, reloaded); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := archive.GetByBacktestID(ctx, "bt1")
	if err != nil {
		t.Fatalf("GetByBacktestID failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows after replace, got %d", len(got))
	}
	if got[0].InstrumentCode != "000001" || !got[0].ArchivedAt.Equal(second) {
		t.Errorf("unexpected first row: %+v", got[0])
	}

	other, _ := archive.GetByBacktestID(ctx, "bt2")
	if len(other) != 1 {
		t.Errorf("other backtest touched: %d rows", len(other))
	}
}
