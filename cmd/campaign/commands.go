package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"strategy-lab/internal/campaign"
	"strategy-lab/internal/dashboard"
	"strategy-lab/internal/domain"
	"strategy-lab/internal/leaderboard"
	"strategy-lab/internal/timerange"
)

func newWindowsCmd(a *app) *cobra.Command {
	var count, days int
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "Print the auto-generated backtest windows ending today",
		RunE: func(cmd *cobra.Command, args []string) error {
			g := a.generator()
			if cmd.Flags().Changed("count") {
				g.Count = count
			}
			if cmd.Flags().Changed("days") {
				g.DurationDays = days
			}
			printWindows(cmd.OutOrStdout(), g.Windows(time.Now()))
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "number of windows (default from DASHBOARD_AUTO_RANGES)")
	cmd.Flags().IntVar(&days, "days", 0, "days added per window (default from DASHBOARD_AUTO_DURATION_DAYS)")
	return cmd
}

func printWindows(w io.Writer, windows []domain.TimeRange) {
	for i, r := range windows {
		fmt.Fprintf(w, "%3d  %s  %s\n", i+1, r.StartText(), r.EndText())
	}
}

// targetFlags are the instrument universe flags shared by submit and batch.
type targetFlags struct {
	instruments []string
	indexCode   string
	indexName   string
}

func (t *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&t.instruments, "instruments", nil, "instrument codes")
	cmd.Flags().StringVar(&t.indexCode, "index", "", "index code whose constituents are backtested")
	cmd.Flags().StringVar(&t.indexName, "index-name", "", "index display name")
}

func (t *targetFlags) target() campaign.Target {
	return campaign.Target{Instruments: t.instruments, IndexCode: t.indexCode, IndexName: t.indexName}
}

// rangeFlags are a window given as two dates or a quick-select preset.
type rangeFlags struct {
	start, end string
	preset     string
}

func (r *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.start, "start", "", "window start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&r.end, "end", "", "window end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&r.preset, "preset", "", "window preset: half_year, one_year or two_years")
}

func (r *rangeFlags) window(today time.Time) (domain.TimeRange, error) {
	if r.preset != "" {
		return timerange.PresetRange(timerange.Preset(r.preset), today)
	}
	return timerange.ParseRange(r.start, r.end)
}

func newSubmitCmd(a *app) *cobra.Command {
	var (
		strategy string
		rng      rangeFlags
		target   targetFlags
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit one backtest of one strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := rng.window(time.Now())
			if err != nil {
				return err
			}
			dash, err := a.dashboard(cmd.Context())
			if err != nil {
				return err
			}
			defer dash.Close()

			report, err := dash.SubmitSingle(cmd.Context(), dashboard.SingleSubmission{
				StrategyName: strategy,
				Range:        window,
				Target:       target.target(),
			})
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "strategy name")
	rng.register(cmd)
	target.register(cmd)
	_ = cmd.MarkFlagRequired("strategy")
	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		strategies []string
		auto       bool
		rng        rangeFlags
		target     targetFlags
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Submit a campaign over several strategies",
		Long: "Submit a campaign over several strategies. With --auto every strategy " +
			"gets the generated windows; otherwise all share one window.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dash, err := a.dashboard(cmd.Context())
			if err != nil {
				return err
			}
			defer dash.Close()

			if len(strategies) == 0 {
				return errors.New("--strategies is required")
			}
			for _, name := range strategies {
				if err := dash.SetStrategySelected(strings.TrimSpace(name), true); err != nil {
					return err
				}
			}

			req := dashboard.BatchSubmission{Mode: domain.ModeSharedRange, Target: target.target()}
			if auto {
				if _, err := dash.AutoGenerate(0, 0); err != nil {
					return err
				}
				req.Mode = domain.ModeMultiRange
			} else {
				window, err := rng.window(time.Now())
				if err != nil {
					return err
				}
				req.Range = window
			}

			report, err := dash.SubmitBatch(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := printReport(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if report.HasFailures() {
				return fmt.Errorf("%d of %d submissions failed", len(report.Failed), report.Total())
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&strategies, "strategies", nil, "strategy names")
	cmd.Flags().BoolVar(&auto, "auto", false, "submit the generated windows for every strategy")
	rng.register(cmd)
	target.register(cmd)
	return cmd
}

func newLeaderboardCmd(a *app) *cobra.Command {
	var (
		categories []string
		filters    []string
		unique     bool
		all        bool
		page       int
	)
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Expand every backtest and print the global leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			drafts, err := parseFilterFlags(filters)
			if err != nil {
				return err
			}
			dash, err := a.dashboard(cmd.Context())
			if err != nil {
				return err
			}
			defer dash.Close()

			result, err := dash.ExpandAll(cmd.Context(), categories)
			if err != nil {
				return err
			}
			for _, f := range result.Failed {
				a.logger.Warn("backtest not loaded", "backtest_id", f.BacktestID, "err", f.Error)
			}

			if len(drafts) > 0 {
				if _, err := dash.ApplyFilters(drafts); err != nil {
					return err
				}
			}
			dash.SetUnique(unique)
			if page > 1 {
				dash.GoToPage(page)
			}

			out := cmd.OutOrStdout()
			view := dash.Leaderboard()
			fmt.Fprintf(out, "# %d rows, page %d of %d\n", view.Total, view.Page, view.TotalPages)
			fmt.Fprintln(out, dash.Export(all))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&categories, "categories", nil, "limit each backtest to these categories")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "column filter as column:type:value (repeatable)")
	cmd.Flags().BoolVar(&unique, "unique", false, "keep one row per instrument")
	cmd.Flags().BoolVar(&all, "all", false, "export every filtered row instead of the current page")
	cmd.Flags().IntVar(&page, "page", 1, "page to print")
	return cmd
}

// parseFilterFlags parses column:type:value triples. A pair column:value
// uses the exact predicate. Values may contain colons.
func parseFilterFlags(raw []string) ([]leaderboard.FilterDraft, error) {
	drafts := make([]leaderboard.FilterDraft, 0, len(raw))
	for _, f := range raw {
		parts := strings.SplitN(f, ":", 3)
		switch len(parts) {
		case 2:
			drafts = append(drafts, leaderboard.FilterDraft{Column: parts[0], Value: parts[1]})
		case 3:
			if _, err := domain.ParsePredicateType(parts[1]); err != nil {
				return nil, err
			}
			drafts = append(drafts, leaderboard.FilterDraft{Column: parts[0], Predicate: parts[1], Value: parts[2]})
		default:
			return nil, fmt.Errorf("invalid filter %q: want column:type:value", f)
		}
	}
	return drafts, nil
}

func printReport(w io.Writer, report *domain.CampaignReport) error {
	_, err := fmt.Fprintf(w, "campaign %s (%s): %d submitted, %d failed\n%s\n",
		report.ID, report.Mode, len(report.Succeeded), len(report.Failed), report.Message())
	if err != nil {
		return err
	}
	if report.RefreshError != "" {
		_, err = fmt.Fprintf(w, "catalog refresh failed: %s\n", report.RefreshError)
	}
	return err
}
