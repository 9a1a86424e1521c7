package migrations

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"strategy-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies all embedded SQL files in lexical order.
// Migrations are expected to be idempotent.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	files, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		return fmt.Errorf("read embedded postgres migrations: %w", err)
	}

	for _, file := range files {
		data, err := PostgresFS.ReadFile("postgres/" + file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		logger.Debug("applied migration", "database", "postgres", "file", file)
	}

	return nil
}
