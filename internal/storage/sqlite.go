// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/playground-tui/internal/model"
)

const modelsSchema = `
CREATE TABLE IF NOT EXISTS models (
	position     INTEGER NOT NULL,
	model        TEXT    NOT NULL PRIMARY KEY,
	base_url     TEXT    NOT NULL DEFAULT '',
	api_key      TEXT    NOT NULL DEFAULT '',
	last_updated TEXT    NOT NULL DEFAULT ''
);`

// =============================================================================
// SQLITE STORE
// =============================================================================

// SQLiteStore keeps the list in a SQLite table. Entry order is preserved
// through the position column.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. Use
// ":memory:" for a throwaway store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(modelsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// List returns the entries in stored order.
func (s *SQLiteStore) List(ctx context.Context) ([]model.ModelConfiguration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT model, base_url, api_key, last_updated FROM models ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query models: %w", err)
	}
	defer rows.Close()

	list := []model.ModelConfiguration{}
	for rows.Next() {
		var c model.ModelConfiguration
		if err := rows.Scan(&c.Model, &c.BaseURL, &c.APIKey, &c.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate models: %w", err)
	}
	return list, nil
}

// Replace swaps the whole list in one transaction.
func (s *SQLiteStore) Replace(ctx context.Context, list []model.ModelConfiguration) error {
	if err := Validate(list); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM models`); err != nil {
		return fmt.Errorf("clear models: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO models (position, model, base_url, api_key, last_updated) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range list {
		if _, err := stmt.ExecContext(ctx, i, c.Model, c.BaseURL, c.APIKey, c.LastUpdated); err != nil {
			return fmt.Errorf("insert model %q: %w", c.Model, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
