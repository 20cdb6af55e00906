package storage

import (
	"context"
	"database/sql"
	"fmt"

	"market-pulse/src/helpers"

	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/models"
)

// NewPreferenceStore picks the backend named by storage.db_type
func NewPreferenceStore(cfg *models.MConfig, log *logger.Logger) (interfaces.IPreferenceStore, error) {
	switch cfg.Storage.DBType {
	case "sqlite":
		return NewSQLitePreferenceStore(cfg, log)
	case "postgres":
		return NewPostgresPreferenceStore(cfg, log)
	case "redis":
		return NewRedisPreferenceStore(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Storage.DBType)
	}
}

// -----------------------------------------------------------------------------

var sqlOpen = sql.Open

// openDB opens and pings a database/sql handle. The handle is closed again
// when the ping fails.
func openDB(ctx context.Context, driver string, dsn string) (*sql.DB, error) {
	db, err := sqlOpen(driver, dsn)
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to open "+driver, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, helpers.NewDatabaseError("failed to reach "+driver, err)
	}
	return db, nil
}
