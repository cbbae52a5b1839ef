//go:build sqlite

package main

import (
	"lamconf/internal/audit"
	sqlitestore "lamconf/internal/storage/sqlite"
)

// openSQLite opens the SQLite backend configured with sqlite_dsn.
// Migrations run on open.
func openSQLite(cfg *Config) (*backends, error) {
	st, err := sqlitestore.New(cfg.SQLiteDSN)
	if err != nil {
		return nil, err
	}
	return &backends{
		name:     BackendSQLite,
		settings: st,
		audit:    audit.NewSQLiteAuditLoggerFromDB(st.DB()),
	}, nil
}

func sqliteStatus(cfg *Config) (string, error) {
	return sqlitestore.Status(cfg.SQLiteDSN)
}
