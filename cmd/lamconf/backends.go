package main

import (
	"context"
	"errors"

	"lamconf/internal/audit"
	"lamconf/internal/observability"
	"lamconf/internal/storage"
)

var errBackendUnavailable = errors.New("backend not compiled into this binary")

// backends bundles the settings backend with the audit trail stored next to it.
type backends struct {
	name     string
	settings storage.SettingsBackend
	audit    audit.AuditLogger
}

// Close releases the settings backend. Database audit loggers share its
// connection and need no separate close.
func (b *backends) Close() error { return b.settings.Close() }

// openBackends opens the configured backend. A sqlite or postgres backend
// that cannot be opened falls back to the file backend.
func openBackends(ctx context.Context, cfg *Config, logger observability.Logger) (*backends, error) {
	switch cfg.Backend {
	case BackendMemory:
		logger.Warn("using in-memory settings backend; changes are lost on exit")
		return &backends{
			name:     BackendMemory,
			settings: storage.NewMemorySettingsBackend(),
			audit:    audit.NewMemoryAuditLogger(),
		}, nil
	case BackendSQLite:
		b, err := openSQLite(cfg)
		if err == nil {
			logger.Info("using sqlite backend", "dsn", cfg.SQLiteDSN)
			return b, nil
		}
		logger.Error("sqlite init failed; falling back to file backend", "error", err)
	case BackendPostgres:
		b, err := openPostgres(ctx, cfg)
		if err == nil {
			logger.Info("using postgres backend")
			return b, nil
		}
		logger.Error("postgres init failed; falling back to file backend", "error", err)
	}

	fb, err := storage.NewFileSettingsBackend(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}
	logger.Info("using file backend", "path", fb.Path())
	return &backends{
		name:     BackendFile,
		settings: fb,
		audit:    audit.NewMemoryAuditLogger(),
	}, nil
}

// migrationStatus reports the schema status of the SQL backend in cfg.
func migrationStatus(cfg *Config) (string, error) {
	switch cfg.Backend {
	case BackendSQLite:
		return sqliteStatus(cfg)
	case BackendPostgres:
		return postgresStatus(cfg)
	default:
		return "", errors.New("backend " + cfg.Backend + " has no schema migrations")
	}
}
