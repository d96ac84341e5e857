// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/machinemate/machinemate/internal/models"
)

// ListHistory returns a paginated page of one user's identification history,
// newest first, with the referenced machine embedded. A non-empty machineID
// narrows the page to one machine.
func (db *DB) ListHistory(ctx context.Context, userID, machineID string, page, pageSize int) (*models.HistoryListResponse, error) {
	defer observeQuery("list_history")()

	where := "h.user_id = ?"
	args := []interface{}{userID}
	if machineID != "" {
		where += " AND h.machine_id = ?"
		args = append(args, machineID)
	}

	var total int
	err := db.conn.QueryRowContext(ctx,
		"SELECT count(*) FROM history h WHERE "+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT h.id, h.machine_id, h.confidence, h.source, h.taken_at, h.created_at, h.photo_uri, %s
		FROM history h
		JOIN machines m ON m.id = h.machine_id
		WHERE %s
		ORDER BY h.taken_at DESC
		LIMIT ? OFFSET ?`, prefixedMachineColumns("m"), where)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		e, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history rows: %w", err)
	}

	return &models.HistoryListResponse{
		History:  entries,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func scanHistoryEntry(s scanner) (*models.HistoryEntry, error) {
	var e models.HistoryEntry
	var confidence sql.NullFloat64
	var photoURI sql.NullString
	var row machineRow

	dests := append([]interface{}{
		&e.ID, &e.MachineID, &confidence, &e.Source, &e.TakenAt, &e.CreatedAt, &photoURI,
	}, row.dests()...)
	if err := s.Scan(dests...); err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}

	if confidence.Valid {
		v := confidence.Float64
		e.Confidence = &v
	}
	e.PhotoURI = photoURI.String
	e.Machine = row.machine()
	return &e, nil
}

// CreateHistory records one identification for a user. The referenced machine
// must exist (ErrNotFound otherwise).
func (db *DB) CreateHistory(ctx context.Context, userID string, req models.HistoryCreateRequest) (*models.HistoryEntry, error) {
	defer observeQuery("create_history")()

	if _, err := db.GetMachine(ctx, req.MachineID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	takenAt := now
	if req.TakenAt != nil {
		takenAt = req.TakenAt.UTC()
	}
	source := req.Source
	if source == "" {
		source = "unknown"
	}

	entry := models.HistoryEntry{
		ID:         uuid.NewString(),
		MachineID:  req.MachineID,
		Confidence: req.Confidence,
		Source:     source,
		TakenAt:    takenAt,
		CreatedAt:  now,
		PhotoURI:   req.PhotoURI,
	}

	var confidence interface{}
	if req.Confidence != nil {
		confidence = *req.Confidence
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO history (id, user_id, machine_id, confidence, source, taken_at, created_at, photo_uri)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, userID, entry.MachineID, confidence, entry.Source,
		entry.TakenAt, entry.CreatedAt, nullable(entry.PhotoURI))
	if err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}
	return &entry, nil
}

// DeleteHistoryEntry removes one history row owned by the user.
func (db *DB) DeleteHistoryEntry(ctx context.Context, userID, entryID string) error {
	defer observeQuery("delete_history")()

	res, err := db.conn.ExecContext(ctx,
		"DELETE FROM history WHERE user_id = ? AND id = ?", userID, entryID)
	if err != nil {
		return fmt.Errorf("delete history entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearHistory removes all history rows of one user and returns the count.
func (db *DB) ClearHistory(ctx context.Context, userID string) (int64, error) {
	defer observeQuery("clear_history")()

	res, err := db.conn.ExecContext(ctx, "DELETE FROM history WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
