package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"planwise/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Users             string
	Projects          string
	ProjectMembers    string
	Documents         string
	DocumentVersions  string
	ApprovalHistory   string
	ConversationTurns string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Users:             fmt.Sprintf("%susers", prefix),
		Projects:          fmt.Sprintf("%sprojects", prefix),
		ProjectMembers:    fmt.Sprintf("%sproject_members", prefix),
		Documents:         fmt.Sprintf("%splanning_documents", prefix),
		DocumentVersions:  fmt.Sprintf("%sdocument_versions", prefix),
		ApprovalHistory:   fmt.Sprintf("%sapproval_history", prefix),
		ConversationTurns: fmt.Sprintf("%sconversation_turns", prefix),
	}
}

// CreateConnectionPool creates a pgx pool and verifies it with a ping.
//
// Supabase's transaction pooler (port 6543) cannot hold prepared statements, so
// on that port the default exec mode drops to QueryExecModeCacheDescribe. Set
// ?default_query_exec_mode=... in the URL to override. Table prefixes are
// interpolated before SQL reaches the server, so each environment caches its own
// statements ("dev_planning_documents" vs "prod_planning_documents").
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 20
	config.MinConns = 2

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the transaction carried by ctx, or the pool when none is
// open, so repositories join ExecTx transparently.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
