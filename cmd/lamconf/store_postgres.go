//go:build postgres

package main

import (
	"context"

	"lamconf/internal/audit"
	pgstore "lamconf/internal/storage/postgres"
)

// openPostgres connects to database_url. Migrations run on connect.
func openPostgres(ctx context.Context, cfg *Config) (*backends, error) {
	st, err := pgstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return &backends{
		name:     BackendPostgres,
		settings: st,
		audit:    audit.NewPostgresAuditLoggerFromPool(st.Pool()),
	}, nil
}

func postgresStatus(cfg *Config) (string, error) {
	return pgstore.Status(cfg.DatabaseURL)
}
