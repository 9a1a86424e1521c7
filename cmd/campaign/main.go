// Package main is the operator CLI for backtest campaigns. It talks to the
// execution service directly and prints reports and leaderboards to stdout.
//
// Usage:
//
//	campaign windows --count 20 --days 15
//	campaign submit --strategy momentum --start 2024-01-01 --end 2024-06-30 --instruments 600000,600036
//	campaign batch --strategies momentum,reversal --auto --index 000300
//	campaign leaderboard --filter "return:min:0.1" --unique --all
//
// Logs go to stderr; --quiet keeps only errors.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"strategy-lab/internal/campaign"
	"strategy-lab/internal/config"
	"strategy-lab/internal/dashboard"
	"strategy-lab/internal/labapi"
	"strategy-lab/internal/logging"
	"strategy-lab/internal/storage/memory"
)

// app carries what every subcommand needs.
type app struct {
	cfg    config.CLIConfig
	logger *slog.Logger
	level  *slog.LevelVar
}

func main() {
	cfg, err := config.LoadCLIConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	level := new(slog.LevelVar)
	logger, closeLogger, err := logging.New("campaign", cfg.Log, logging.WithConsole(os.Stderr), logging.WithLevelVar(level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	root := newRootCmd(&app{cfg: cfg, logger: logger, level: level})
	err = root.ExecuteContext(ctx)
	stop()
	closeLogger()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	var quiet bool
	root := &cobra.Command{
		Use:          "campaign",
		Short:        "Submit backtest campaigns and inspect their leaderboards",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if quiet && a.level != nil {
				a.level.Set(slog.LevelError)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "log errors only")
	root.AddCommand(
		newWindowsCmd(a),
		newSubmitCmd(a),
		newBatchCmd(a),
		newLeaderboardCmd(a),
	)
	return root
}

// dashboard builds an in-memory dashboard over the execution service and
// loads the catalog.
func (a *app) dashboard(ctx context.Context) (*dashboard.Dashboard, error) {
	dash := dashboard.New(dashboard.Options{
		Service:   labapi.NewClient(a.cfg.Lab.BaseURL, labapi.WithTimeout(a.cfg.Lab.Timeout)),
		Campaigns: memory.NewCampaignStore(),
		Logger:    a.logger,
		Generator: a.generator(),
	})
	if err := dash.Refresh(ctx); err != nil {
		dash.Close()
		return nil, fmt.Errorf("load strategies: %w", err)
	}
	return dash, nil
}

func (a *app) generator() campaign.Generator {
	return campaign.Generator{
		Count:        a.cfg.Windows.Count,
		DurationDays: a.cfg.Windows.DurationDays,
		Cutoff:       a.cfg.Windows.Cutoff,
	}
}
