package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/lib/pq"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresKV stores entries in a PostgreSQL table, one row per key and device.
// Several terminals can share a database by using distinct device IDs.
type PostgresKV struct {
	db       *sql.DB
	table    string
	deviceID string
}

func NewPostgresKV(db *sql.DB, table, deviceID string) (*PostgresKV, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if deviceID == "" {
		return nil, errors.New("device id is required")
	}
	return &PostgresKV{db: db, table: table, deviceID: deviceID}, nil
}

// EnsureSchema creates the backing table if it does not exist
func (kv *PostgresKV) EnsureSchema(ctx context.Context) error {
	_, err := kv.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		device_id  TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (device_id, key)
	)`, kv.table))
	return err
}

// Get retrieves a value by key
func (kv *PostgresKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := kv.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT value FROM %s WHERE device_id = $1 AND key = $2", kv.table),
		kv.deviceID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts a value
func (kv *PostgresKV) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	_, err := kv.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (device_id, key, value, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (device_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, kv.table),
		kv.deviceID, key, value, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Remove deletes a value
func (kv *PostgresKV) Remove(ctx context.Context, key string) error {
	_, err := kv.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE device_id = $1 AND key = $2", kv.table),
		kv.deviceID, key,
	)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// ConnectPostgres opens a PostgreSQL connection and verifies it
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// A storefront terminal needs very few connections
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
