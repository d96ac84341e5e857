// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/machinemate/machinemate/internal/models"
)

// ListFavorites returns all favorites of one user, newest first, with the
// referenced machine embedded.
func (db *DB) ListFavorites(ctx context.Context, userID string) (*models.FavoriteListResponse, error) {
	defer observeQuery("list_favorites")()

	query := fmt.Sprintf(`
		SELECT f.machine_id, f.created_at, f.notes, %s
		FROM favorites f
		JOIN machines m ON m.id = f.machine_id
		WHERE f.user_id = ?
		ORDER BY f.created_at DESC`, prefixedMachineColumns("m"))

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	favorites := []models.Favorite{}
	for rows.Next() {
		fav, err := scanFavorite(rows)
		if err != nil {
			return nil, err
		}
		favorites = append(favorites, *fav)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list favorites rows: %w", err)
	}

	return &models.FavoriteListResponse{Favorites: favorites, Total: len(favorites)}, nil
}

// CreateFavorite adds a machine to a user's favorites.
// Returns ErrNotFound for an unknown machine and ErrAlreadyExists for a
// duplicate.
func (db *DB) CreateFavorite(ctx context.Context, userID string, req models.FavoriteCreateRequest) (*models.Favorite, error) {
	defer observeQuery("create_favorite")()

	machine, err := db.GetMachine(ctx, req.MachineID)
	if err != nil {
		return nil, err
	}

	var exists int
	err = db.conn.QueryRowContext(ctx,
		"SELECT count(*) FROM favorites WHERE user_id = ? AND machine_id = ?",
		userID, req.MachineID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check favorite: %w", err)
	}
	if exists > 0 {
		return nil, ErrAlreadyExists
	}

	now := time.Now().UTC()
	_, err = db.conn.ExecContext(ctx,
		"INSERT INTO favorites (user_id, machine_id, created_at, notes) VALUES (?, ?, ?, ?)",
		userID, req.MachineID, now, nullable(req.Notes))
	if err != nil {
		return nil, fmt.Errorf("create favorite: %w", err)
	}

	return &models.Favorite{
		MachineID: req.MachineID,
		CreatedAt: now,
		Notes:     req.Notes,
		Machine:   machine,
	}, nil
}

// UpdateFavorite replaces the notes on an existing favorite.
func (db *DB) UpdateFavorite(ctx context.Context, userID, machineID string, req models.FavoriteUpdateRequest) (*models.Favorite, error) {
	defer observeQuery("update_favorite")()

	res, err := db.conn.ExecContext(ctx,
		"UPDATE favorites SET notes = ? WHERE user_id = ? AND machine_id = ?",
		nullable(req.Notes), userID, machineID)
	if err != nil {
		return nil, fmt.Errorf("update favorite: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	return db.GetFavorite(ctx, userID, machineID)
}

// DeleteFavorite removes one favorite, or returns ErrNotFound.
func (db *DB) DeleteFavorite(ctx context.Context, userID, machineID string) error {
	defer observeQuery("delete_favorite")()

	res, err := db.conn.ExecContext(ctx,
		"DELETE FROM favorites WHERE user_id = ? AND machine_id = ?", userID, machineID)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearFavorites removes all favorites of one user and returns the count.
func (db *DB) ClearFavorites(ctx context.Context, userID string) (int64, error) {
	defer observeQuery("clear_favorites")()

	res, err := db.conn.ExecContext(ctx,
		"DELETE FROM favorites WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("clear favorites: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// GetFavorite returns one favorite with the machine embedded, or ErrNotFound.
func (db *DB) GetFavorite(ctx context.Context, userID, machineID string) (*models.Favorite, error) {
	defer observeQuery("get_favorite")()

	query := fmt.Sprintf(`
		SELECT f.machine_id, f.created_at, f.notes, %s
		FROM favorites f
		JOIN machines m ON m.id = f.machine_id
		WHERE f.user_id = ? AND f.machine_id = ?`, prefixedMachineColumns("m"))

	fav, err := scanFavorite(db.conn.QueryRowContext(ctx, query, userID, machineID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return fav, err
}

func scanFavorite(s scanner) (*models.Favorite, error) {
	var fav models.Favorite
	var notes sql.NullString
	var row machineRow

	dests := append([]interface{}{&fav.MachineID, &fav.CreatedAt, &notes}, row.dests()...)
	if err := s.Scan(dests...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan favorite: %w", err)
	}

	fav.Notes = notes.String
	fav.Machine = row.machine()
	return &fav, nil
}

// prefixedMachineColumns qualifies the machine column list with a table alias
// for join queries.
func prefixedMachineColumns(alias string) string {
	return alias + `.id, ` + alias + `.name, ` + alias + `.category, ` + alias + `.difficulty,
		` + alias + `.primary_muscles, ` + alias + `.secondary_muscles, ` + alias + `.equipment_type,
		` + alias + `.setup_steps, ` + alias + `.how_to_steps, ` + alias + `.common_mistakes,
		` + alias + `.safety_tips, ` + alias + `.beginner_tips,
		` + alias + `.thumbnail_url, ` + alias + `.image_url, ` + alias + `.video_url, ` + alias + `.muscle_diagram_url,
		` + alias + `.tags, ` + alias + `.metadata, ` + alias + `.is_active, ` + alias + `.created_at, ` + alias + `.updated_at`
}
