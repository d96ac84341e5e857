// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

// Package database provides DuckDB-backed persistence for the machine
// catalog, user favorites, and identification history.
//
// List-valued and map-valued columns are stored as JSON text. DuckDB is
// embedded, so the backend ships as a single process with a single data file
// (or fully in memory with path ":memory:").
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/machinemate/machinemate/internal/config"
	"github.com/machinemate/machinemate/internal/logging"
)

// Sentinel errors mapped to HTTP statuses by the API layer.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// DB wraps the DuckDB connection and provides data access methods.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens the database, applies tuning options, and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	if cfg.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	conn, err := sql.Open("duckdb", connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// DuckDB is embedded; a small pool avoids write contention.
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	db := &DB{conn: conn, cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := db.initSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Msg("database ready")
	return db, nil
}

// connString builds the DuckDB DSN with tuning options. Auto-install and
// auto-load of extensions are disabled to avoid network access at startup.
func connString(cfg *config.DatabaseConfig) string {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	params := url.Values{}
	params.Set("threads", strconv.Itoa(threads))
	params.Set("autoinstall_known_extensions", "false")
	params.Set("autoload_known_extensions", "false")
	if cfg.MaxMemory != "" {
		params.Set("max_memory", cfg.MaxMemory)
	}
	return cfg.Path + "?" + params.Encode()
}

// initSchema creates tables when they do not exist yet. DuckDB executes DDL
// transactionally; re-running on an initialized file is a no-op.
func (db *DB) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS machines (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			difficulty TEXT NOT NULL DEFAULT 'beginner',
			primary_muscles TEXT NOT NULL DEFAULT '[]',
			secondary_muscles TEXT NOT NULL DEFAULT '[]',
			equipment_type TEXT,
			setup_steps TEXT NOT NULL DEFAULT '[]',
			how_to_steps TEXT NOT NULL DEFAULT '[]',
			common_mistakes TEXT NOT NULL DEFAULT '[]',
			safety_tips TEXT NOT NULL DEFAULT '[]',
			beginner_tips TEXT NOT NULL DEFAULT '[]',
			thumbnail_url TEXT,
			image_url TEXT,
			video_url TEXT,
			muscle_diagram_url TEXT,
			tags TEXT NOT NULL DEFAULT '[]',
			metadata TEXT NOT NULL DEFAULT '{}',
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp,
			updated_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS favorites (
			user_id TEXT NOT NULL,
			machine_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp,
			notes TEXT,
			metadata TEXT NOT NULL DEFAULT '{}',
			PRIMARY KEY (user_id, machine_id)
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			machine_id TEXT NOT NULL,
			confidence DOUBLE,
			source TEXT NOT NULL DEFAULT 'unknown',
			taken_at TIMESTAMP NOT NULL DEFAULT current_timestamp,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp,
			photo_uri TEXT,
			metadata TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_user ON history (user_id, taken_at)`,
		`CREATE INDEX IF NOT EXISTS idx_machines_category ON machines (category)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// Ping reports connectivity for health checks.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
