package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"market-pulse/src/helpers"
	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/models"

	_ "modernc.org/sqlite"
)

var _ interfaces.IPreferenceStore = (*SQLitePreferenceStore)(nil)

// -----------------------------------------------------------------------------

type SQLitePreferenceStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLitePreferenceStore(cfg *models.MConfig, log *logger.Logger) (*SQLitePreferenceStore, error) {
	return &SQLitePreferenceStore{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLitePreferenceStore) Initialize(ctx context.Context) error {
	dsn := d.Config.Storage.DBPath
	db, err := openDB(ctx, "sqlite", dsn)
	if err != nil {
		return err
	}

	// A single connection keeps ":memory:" databases alive across calls
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables(ctx)
}

// -----------------------------------------------------------------------------

func (d *SQLitePreferenceStore) createTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS preferences (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER
		);
	`
	if _, err := d.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create preferences: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLitePreferenceStore) Load(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := d.DB.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError(fmt.Sprintf("failed to load %s", key), err)
	}
	return []byte(value), nil
}

// -----------------------------------------------------------------------------

func (d *SQLitePreferenceStore) Save(ctx context.Context, key string, value []byte) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, string(value), time.Now().UTC().Unix())
	if err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("failed to save %s", key), err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLitePreferenceStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
