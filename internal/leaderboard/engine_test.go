package leaderboard

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/state"
)

func lbRow(code, name string, ret string, date string) domain.LeaderboardRow {
	return domain.LeaderboardRow{
		Row: domain.Row{
			Columns: []string{"股票代码", "名称", "收益率", "日期"},
			Values: map[string]domain.Value{
				"股票代码": domain.StringValue(code),
				"名称":   domain.StringValue(name),
				"收益率":  domain.NumberValue(ret),
				"日期":   domain.StringValue(date),
			},
		},
		InstrumentCode: code,
		BacktestID:     "bt",
	}
}

func sampleRows() []domain.LeaderboardRow {
	return []domain.LeaderboardRow{
		lbRow("600000", "Pudong Bank", "12.5", "2024-01-05"),
		lbRow("000001", "Ping An", "-3", "2024-02-10"),
		lbRow("600000", "Pudong Bank", "7", "2024-03-01"),
		lbRow("300750", "CATL", "25", "2024-04-15"),
		lbRow("000001", "ping an", "1", "2024-05-20"),
	}
}

func cond(column string, p domain.PredicateType, value string) domain.FilterCondition {
	return domain.FilterCondition{Column: column, Predicate: p, Value: value}
}

func codes(rows []domain.LeaderboardRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.InstrumentCode
	}
	return out
}

func TestMatch_Predicates(t *testing.T) {
	row := lbRow("600000", "Pudong Bank", "12.5", "2024-01-05").Row
	row.Columns = append(row.Columns, "文本收益")
	row.Values["文本收益"] = domain.StringValue("12.5")

	tests := []struct {
		name string
		cond domain.FilterCondition
		want bool
	}{
		{"exact ignores case", cond("名称", domain.PredicateExact, "PUDONG bank"), true},
		{"exact is not substring", cond("名称", domain.PredicateExact, "Pudong"), false},
		{"exact on number", cond("收益率", domain.PredicateExact, "12.5"), true},
		{"contains ignores case", cond("名称", domain.PredicateContains, "dong b"), true},
		{"contains miss", cond("名称", domain.PredicateContains, "xyz"), false},
		{"min inclusive", cond("收益率", domain.PredicateMin, "12.5"), true},
		{"min above", cond("收益率", domain.PredicateMin, "13"), false},
		{"max inclusive", cond("收益率", domain.PredicateMax, "12.50"), true},
		{"max below", cond("收益率", domain.PredicateMax, "10"), false},
		{"min on text fails", cond("名称", domain.PredicateMin, "0"), false},
		{"min on numeric text fails", cond("文本收益", domain.PredicateMin, "10"), false},
		{"max on numeric text fails", cond("文本收益", domain.PredicateMax, "20"), false},
		{"exact on numeric text", cond("文本收益", domain.PredicateExact, "12.5"), true},
		{"min bad threshold fails", cond("收益率", domain.PredicateMin, "abc"), false},
		{"dateMin inclusive", cond("日期", domain.PredicateDateMin, "2024-01-05"), true},
		{"dateMin after", cond("日期", domain.PredicateDateMin, "2024-01-06"), false},
		{"dateMax", cond("日期", domain.PredicateDateMax, "2024/1/31"), true},
		{"dateMax before", cond("日期", domain.PredicateDateMax, "2023-12-31"), false},
		{"date on text fails", cond("名称", domain.PredicateDateMin, "2020-01-01"), false},
		{"missing column fails", cond("missing", domain.PredicateContains, ""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(row, tt.cond))
		})
	}
}

func TestMatch_ExactEqualsLowercaseEquality(t *testing.T) {
	for _, pair := range [][2]string{{"Ping An", "ping an"}, {"ABC", "abc"}, {"abc", "abd"}, {"ÄB", "äb"}} {
		row := domain.Row{Values: map[string]domain.Value{"c": domain.StringValue(pair[0])}}
		want := strings.ToLower(pair[0]) == strings.ToLower(pair[1])
		assert.Equal(t, want, Match(row, cond("c", domain.PredicateExact, pair[1])), pair)
	}
}

func TestFilter_AndIsMonotonic(t *testing.T) {
	rows := sampleRows()
	conds := []domain.FilterCondition{
		cond("收益率", domain.PredicateMin, "0"),
		cond("名称", domain.PredicateContains, "p"),
		cond("日期", domain.PredicateDateMax, "2024-04-30"),
		cond("股票代码", domain.PredicateExact, "600000"),
	}

	previous := len(rows)
	for i := 1; i <= len(conds); i++ {
		got := Filter(rows, conds[:i])
		assert.LessOrEqual(t, len(got), previous, "after %d filters", i)
		previous = len(got)
	}
	assert.Equal(t, []string{"600000", "600000"}, codes(Filter(rows, conds)))
}

func TestFilter_NoConditionsKeepsAll(t *testing.T) {
	rows := sampleRows()
	assert.Len(t, Filter(rows, nil), len(rows))
}

func TestUnique_IdempotentAndOrderPreserving(t *testing.T) {
	rows := sampleRows()
	once := Unique(rows)
	twice := Unique(once)

	assert.Equal(t, []string{"600000", "000001", "300750"}, codes(once))
	assert.Equal(t, once, twice)
	assert.Equal(t, "12.5", once[0].Values["收益率"].Raw)
}

func TestUnique_MissingCodeIsOneKey(t *testing.T) {
	rows := []domain.LeaderboardRow{
		{BacktestID: "a"},
		{InstrumentCode: "600000", BacktestID: "a"},
		{BacktestID: "b"},
		{InstrumentCode: "600000", BacktestID: "b"},
	}
	got := Unique(rows)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"", "600000"}, codes(got))
	assert.Equal(t, "a", got[0].BacktestID)
}

func TestInstrumentCodes(t *testing.T) {
	rows := append(sampleRows(), domain.LeaderboardRow{})
	assert.Equal(t, "600000,000001,300750", InstrumentCodes(rows))
	assert.Equal(t, "", InstrumentCodes(nil))
}

func TestPagination(t *testing.T) {
	for _, tt := range []struct{ count, want int }{{0, 0}, {1, 1}, {100, 1}, {101, 2}, {250, 3}} {
		assert.Equal(t, tt.want, TotalPages(tt.count, PageSize), "count %d", tt.count)
	}

	assert.Equal(t, 1, ClampPage(0, 3))
	assert.Equal(t, 3, ClampPage(7, 3))
	assert.Equal(t, 1, ClampPage(5, 0))

	assert.Equal(t, 1, Navigate(2, 3, First))
	assert.Equal(t, 1, Navigate(1, 3, Prev))
	assert.Equal(t, 3, Navigate(3, 3, Next))
	assert.Equal(t, 3, Navigate(1, 3, Last))
	assert.Equal(t, 1, Navigate(1, 0, Last))

	items := make([]int, 250)
	for i := range items {
		items[i] = i
	}
	assert.Len(t, PageOf(items, 3, PageSize), 50)
	assert.Equal(t, 200, PageOf(items, 9, PageSize)[0])
	assert.Empty(t, PageOf([]int(nil), 1, PageSize))
}

func TestBuildFilters(t *testing.T) {
	got, err := BuildFilters([]FilterDraft{
		{Column: "名称", Predicate: "contains", Value: " bank "},
		{Column: "收益率", Predicate: "min", Value: ""},
		{Column: "", Predicate: "exact", Value: "x"},
		{Column: "股票代码", Value: "600000"},
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.FilterCondition{
		cond("名称", domain.PredicateContains, "bank"),
		cond("股票代码", domain.PredicateExact, "600000"),
	}, got)

	_, err = BuildFilters([]FilterDraft{{Column: "a"}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = BuildFilters([]FilterDraft{{Column: "a", Predicate: "regex", Value: "x"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func categorySet(id string, categories map[string][]domain.LeaderboardRow, order ...string) domain.BacktestRecord {
	return domain.BacktestRecord{
		ID:               id,
		StrategyName:     "alpha",
		Expanded:         true,
		Leaderboards:     categories,
		CategoryOrder:    order,
		SelectedCategory: order[0],
	}
}

func TestAggregate_OnlyExpandedVisibleInOrder(t *testing.T) {
	rows := sampleRows()
	r1 := categorySet("r1", map[string][]domain.LeaderboardRow{
		"收益排行":     rows[:2],
		"个股自身收益排行": rows[2:3],
	}, "收益排行", "个股自身收益排行")
	r2 := categorySet("r2", map[string][]domain.LeaderboardRow{"收益排行": rows[3:4]}, "收益排行")
	r2.Expanded = false
	r3 := categorySet("r3", map[string][]domain.LeaderboardRow{
		"收益排行":     rows[4:5],
		"连续盈利1次占比": rows[0:1],
	}, "收益排行", "连续盈利1次占比")
	r3.VisibleCategories = map[string]struct{}{"连续盈利1次占比": {}}

	strategies := []domain.Strategy{
		{Name: "alpha", BacktestHistory: []domain.BacktestRecord{r1, r2}},
		{Name: "beta", BacktestHistory: []domain.BacktestRecord{r3, {ID: "unfetched", Expanded: true}}},
	}

	got := Aggregate(strategies)
	assert.Equal(t, []string{"600000", "000001", "600000", "600000"}, codes(got))
}

func TestGlobalView_UniqueToggleKeepsFilteredSet(t *testing.T) {
	s := state.New()
	s = state.ReplaceCatalog(s, []domain.Strategy{{
		Name:            "alpha",
		BacktestHistory: []domain.BacktestRecord{{ID: "r1", StrategyName: "alpha"}},
	}})
	set := &domain.LeaderboardSet{Categories: []string{"收益排行"}, Rows: map[string][]domain.Row{}}
	for _, r := range sampleRows() {
		set.Rows["收益排行"] = append(set.Rows["收益排行"], r.Row)
	}
	s = state.ApplyLeaderboards(s, "r1", set, "股票代码", nil)

	full := Global(s)
	assert.Equal(t, 5, full.Total)

	s = state.SetUnique(s, true)
	deduped := Global(s)
	assert.Equal(t, 3, deduped.Total)
	assert.Equal(t, 5, deduped.FilteredCount)
	assert.Len(t, deduped.Filtered, 5)

	s = state.SetUnique(s, false)
	assert.Equal(t, full.Total, Global(s).Total)

	s = state.SetFilters(s, []domain.FilterCondition{cond("收益率", domain.PredicateMin, "5")})
	v := Global(s)
	assert.Equal(t, []string{"600000", "600000", "300750"}, codes(v.Rows))
	assert.Equal(t, "600000,300750", v.Export(false))

	rec, ok := Record(s, "r1")
	require.True(t, ok)
	assert.Equal(t, "收益排行", rec.Category)
	assert.Equal(t, 3, rec.Total)

	_, ok = Record(s, "missing")
	assert.False(t, ok)
}

func TestGlobalView_PagesLargeSet(t *testing.T) {
	var rows []domain.LeaderboardRow
	for i := 0; i < 230; i++ {
		rows = append(rows, lbRow(fmt.Sprintf("%06d", i), "n", "1", "2024-01-01"))
	}
	v := Build(rows, nil, false, 3)
	assert.Equal(t, 3, v.TotalPages)
	assert.Len(t, v.Rows, 30)
	assert.Len(t, strings.Split(v.Export(true), ","), 230)

	v = Build(rows, nil, false, 10)
	assert.Equal(t, 3, v.Page)
}

func TestColumnsAndCategories(t *testing.T) {
	rows := sampleRows()
	r := categorySet("r1", map[string][]domain.LeaderboardRow{
		"收益排行":     rows[:1],
		"个股自身收益排行": nil,
	}, "收益排行", "个股自身收益排行")

	strategies := []domain.Strategy{{Name: "alpha", BacktestHistory: []domain.BacktestRecord{r}}}
	assert.Equal(t, []Column{
		{Name: "股票代码", Kind: ColumnString},
		{Name: "名称", Kind: ColumnString},
		{Name: "收益率", Kind: ColumnNumber},
		{Name: "日期", Kind: ColumnDate},
	}, Columns(strategies))
	assert.Equal(t, []string{"收益排行", "个股自身收益排行"}, Categories(strategies))
}

func TestWriteHistoryCSV(t *testing.T) {
	st := domain.Strategy{
		Name: "alpha",
		BacktestHistory: []domain.BacktestRecord{{
			ID:             "backtest_2024-01-01_2024-06-01_ab12cd34",
			SubmittedAt:    "2024-06-02 10:00:00",
			StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			Instruments:    []string{"600000", "000001"},
			BuyConditions:  []string{"ma5>ma10", "vol>1"},
			SellConditions: []string{"ret>0.1"},
		}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteHistoryCSV(&buf, st))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "submitted_at,backtest_id,start_date,end_date,instruments,buy_conditions,sell_conditions", lines[0])
	assert.Equal(t, `2024-06-02 10:00:00,backtest_2024-01-01_2024-06-01_ab12cd34,2024-01-01,2024-06-01,600000;000001,"ma5>ma10,vol>1",ret>0.1`, lines[1])
}
