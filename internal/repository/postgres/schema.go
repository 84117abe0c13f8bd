package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the planning tables for the given prefix if they do not
// exist. Statements are idempotent, so it runs on every startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, prefix string, logger *slog.Logger) error {
	ddl := strings.ReplaceAll(schemaSQL, "{{prefix}}", prefix)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	logger.Info("database schema ready", "driver", "postgres", "table_prefix", prefix)
	return nil
}
