package leaderboard

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"strategy-lab/internal/domain"
)

var historyHeader = []string{"submitted_at", "backtest_id", "start_date", "end_date", "instruments", "buy_conditions", "sell_conditions"}

// WriteHistoryCSV writes a strategy's backtest history as CSV.
func WriteHistoryCSV(w io.Writer, st domain.Strategy) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(historyHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range st.BacktestHistory {
		record := []string{
			r.SubmittedAt,
			r.ID,
			r.Range().StartText(),
			r.Range().EndText(),
			strings.Join(r.Instruments, ";"),
			strings.Join(r.BuyConditions, ","),
			strings.Join(r.SellConditions, ","),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
