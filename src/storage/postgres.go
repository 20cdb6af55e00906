package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"market-pulse/src/helpers"
	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/models"

	_ "github.com/lib/pq"
)

var _ interfaces.IPreferenceStore = (*PostgresPreferenceStore)(nil)

// -----------------------------------------------------------------------------

type PostgresPreferenceStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresPreferenceStore(cfg *models.MConfig, log *logger.Logger) (*PostgresPreferenceStore, error) {
	// Schema is named after the executable
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresPreferenceStore{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresPreferenceStore) Initialize(ctx context.Context) error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := openDB(ctx, "postgres", dsn)
	if err != nil {
		return err
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."preferences" (
			key TEXT PRIMARY KEY,
			value JSONB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`, d.Schema)
	if _, err := d.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create preferences: %w", err)
	}

	d.Logger.Info("PostgresPreferenceStore initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresPreferenceStore) Load(ctx context.Context, key string) ([]byte, error) {
	var value string
	query := fmt.Sprintf(`SELECT value::text FROM "%s"."preferences" WHERE key = $1`, d.Schema)
	err := d.DB.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError(fmt.Sprintf("failed to load %s", key), err)
	}
	return []byte(value), nil
}

// -----------------------------------------------------------------------------

func (d *PostgresPreferenceStore) Save(ctx context.Context, key string, value []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s"."preferences" (key, value, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, d.Schema)

	if _, err := d.DB.ExecContext(ctx, query, key, string(value)); err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("failed to save %s", key), err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresPreferenceStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
