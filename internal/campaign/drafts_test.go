package campaign

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/timerange"
)

func TestDrafts_EditCycle(t *testing.T) {
	today := time.Date(2024, 6, 30, 15, 0, 0, 0, time.UTC)
	strategies := []domain.Strategy{strategyA, strategyB}

	d := InitDrafts(nil, strategies)
	assert.Equal(t, 2, d.Total(strategies))

	d = AddRange(d, "A")
	d = SetRange(d, "A", 1, window("2024-01-01", "2024-02-01"))
	d, err := FillPreset(d, "A", 0, timerange.PresetHalfYear, today)
	require.NoError(t, err)
	assert.Equal(t, window("2023-12-30", "2024-06-30"), d["A"][0])

	before := d
	d = RemoveRange(d, "A", 0)
	assert.Len(t, before["A"], 2)
	require.Len(t, d["A"], 1)
	assert.Equal(t, window("2024-01-01", "2024-02-01"), d["A"][0])

	assert.Equal(t, d, RemoveRange(d, "A", 5))
	assert.Equal(t, d, SetRange(d, "B", 3, window("2024-01-01", "2024-02-01")))

	_, err = FillPreset(d, "A", 0, "decade", today)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInitDrafts_KeepsSelectedOnly(t *testing.T) {
	d := Drafts{"A": {window("2024-01-01", "2024-02-01")}, "gone": {{}}}
	d = InitDrafts(d, []domain.Strategy{strategyA, strategyB})

	assert.Len(t, d, 2)
	assert.Equal(t, window("2024-01-01", "2024-02-01"), d["A"][0])
	assert.Equal(t, []domain.TimeRange{{}}, d["B"])
}

func TestAutoGenerate(t *testing.T) {
	today := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	g := Generator{Count: 3, DurationDays: 10, Cutoff: timerange.DefaultCutoff}
	strategies := []domain.Strategy{strategyA, strategyB}

	d, err := AutoGenerate(Drafts{}, strategies, g, today)
	require.NoError(t, err)
	assert.Equal(t, 6, d.Total(strategies))
	assert.Equal(t, window("2024-01-01", "2024-01-31"), d["B"][2])

	d, err = FillGenerated(d, "A", Generator{Count: 1, DurationDays: 5, Cutoff: timerange.DefaultCutoff}, today)
	require.NoError(t, err)
	assert.Equal(t, []domain.TimeRange{window("2024-01-26", "2024-01-31")}, d["A"])

	_, err = AutoGenerate(Drafts{}, nil, g, today)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = FillGenerated(d, "A", Generator{}, today)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDefaultGenerator(t *testing.T) {
	windows := DefaultGenerator.Windows(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC))
	require.Len(t, windows, 20)
	assert.Equal(t, window("2023-09-04", "2024-06-30"), windows[19])
}
