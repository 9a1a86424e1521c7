// Package main runs the strategy dashboard: the JSON API on the listen
// address and health, status and Prometheus metrics on the metrics address.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"

	"strategy-lab/internal/campaign"
	"strategy-lab/internal/config"
	"strategy-lab/internal/dashboard"
	"strategy-lab/internal/httpapi"
	"strategy-lab/internal/labapi"
	"strategy-lab/internal/logging"
	"strategy-lab/internal/observability"
	"strategy-lab/internal/refdata"
	"strategy-lab/internal/storage"
	chstore "strategy-lab/internal/storage/clickhouse"
	"strategy-lab/internal/storage/memory"
	"strategy-lab/internal/storage/migrations"
	pgstore "strategy-lab/internal/storage/postgres"
)

// Server holds the components of the dashboard service.
type Server struct {
	cfg    config.DashboardConfig
	dash   *dashboard.Dashboard
	stores *allStores
	logger *slog.Logger

	mu          sync.Mutex
	started     time.Time
	lastRefresh time.Time
	refreshErr  string
}

// allStores holds the storage implementations.
type allStores struct {
	campaigns storage.CampaignStore
	archive   storage.LeaderboardArchive
	backend   string
}

func main() {
	bootstrapLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.LoadDashboardConfig()
	if err != nil {
		bootstrapLogger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger, closeLogger, err := logging.New("dashboard", cfg.Log)
	if err != nil {
		bootstrapLogger.Error("failed to initialize logger", "err", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := closeLogger(); closeErr != nil {
			bootstrapLogger.Error("failed to close logger", "err", closeErr)
		}
	}()
	slog.SetDefault(logger)

	if source, sourceErr := config.CurrentConfigSource(); sourceErr == nil {
		logger.Info("configuration loaded", "phase", source.Phase, "path", source.Path, "loaded", source.Loaded)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create stores", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	dash := dashboard.New(dashboard.Options{
		Service:          labapi.NewClient(cfg.Lab.BaseURL, labapi.WithTimeout(cfg.Lab.Timeout)),
		OptionSource:     refdata.NewClient(cfg.Lab.WSURL),
		Campaigns:        stores.campaigns,
		Archive:          stores.archive,
		Logger:           logger,
		InstrumentColumn: cfg.InstrumentColumn,
		Generator: campaign.Generator{
			Count:        cfg.Windows.Count,
			DurationDays: cfg.Windows.DurationDays,
			Cutoff:       cfg.Windows.Cutoff,
		},
	})
	defer dash.Close()

	server := &Server{
		cfg:     cfg,
		dash:    dash,
		stores:  stores,
		logger:  logger,
		started: time.Now(),
	}

	if err := server.Run(ctx); err != nil {
		logger.Error("dashboard exited with error", "err", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// createStores creates the campaign journal and the leaderboard archive.
// Postgres storage keeps the archive in memory unless CLICKHOUSE_DSN is set.
func createStores(ctx context.Context, cfg config.DashboardConfig, logger *slog.Logger) (*allStores, func(), error) {
	if cfg.Storage == config.StorageMemory {
		stores := &allStores{
			campaigns: memory.NewCampaignStore(),
			archive:   memory.NewLeaderboardArchive(),
			backend:   config.StorageMemory,
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	stores := &allStores{
		campaigns: pgstore.NewCampaignStore(pool),
		archive:   memory.NewLeaderboardArchive(),
		backend:   config.StoragePostgres,
	}
	if cfg.ClickHouseDSN == "" {
		return stores, pool.Close, nil
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
	}
	stores.archive = chstore.NewLeaderboardArchive(chConn)
	stores.backend = config.StoragePostgres + "+clickhouse"

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// Run loads the catalog and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting dashboard",
		"listen_addr", s.cfg.ListenAddr,
		"metrics_addr", s.cfg.MetricsAddr,
		"lab_service", s.cfg.Lab.BaseURL,
		"storage", s.stores.backend,
	)

	// The execution service may come up later; the catalog can be reloaded
	// through the API.
	s.refresh(ctx)

	gin.SetMode(gin.ReleaseMode)
	api := &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      httpapi.NewRouter(s.dash, s.logger),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	status := &http.Server{
		Addr:    s.cfg.MetricsAddr,
		Handler: s.statusMux(),
	}

	errCh := make(chan error, 2)
	for _, srv := range []*http.Server{api, status} {
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("received shutdown signal")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.dash.Close()
	for _, srv := range []*http.Server{api, status} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown", "addr", srv.Addr, "err", err)
		}
	}
	return runErr
}

func (s *Server) refresh(ctx context.Context) {
	err := s.dash.Refresh(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.refreshErr = err.Error()
		s.logger.Warn("initial catalog load failed", "err", err)
		return
	}
	s.refreshErr = ""
	s.lastRefresh = time.Now()
	s.logger.Info("catalog loaded", "strategies", len(s.dash.Strategies()))
}

// statusMux serves health, metrics and status.
func (s *Server) statusMux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	return mux
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status           string    `json:"status"`
	Uptime           string    `json:"uptime"`
	Storage          string    `json:"storage"`
	Strategies       int       `json:"strategies"`
	Backtests        int       `json:"backtests"`
	ExpandedRecords  int       `json:"expanded_records"`
	SelectedStrategy int       `json:"selected_strategies"`
	LastRefresh      time.Time `json:"last_refresh,omitempty"`
	RefreshError     string    `json:"refresh_error,omitempty"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.dash.State()
	resp := StatusResponse{
		Status:           "running",
		Uptime:           time.Since(s.started).Round(time.Second).String(),
		Storage:          s.stores.backend,
		Strategies:       len(st.Strategies),
		SelectedStrategy: len(st.SelectedStrategies),
	}
	for _, strategy := range st.Strategies {
		resp.Backtests += len(strategy.BacktestHistory)
		for _, rec := range strategy.BacktestHistory {
			if rec.Expanded {
				resp.ExpandedRecords++
			}
		}
	}

	s.mu.Lock()
	resp.LastRefresh = s.lastRefresh
	resp.RefreshError = s.refreshErr
	s.mu.Unlock()
	if resp.RefreshError != "" {
		resp.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
