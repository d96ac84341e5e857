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
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/machinemate/machinemate/internal/catalog"
	"github.com/machinemate/machinemate/internal/logging"
	"github.com/machinemate/machinemate/internal/metrics"
	"github.com/machinemate/machinemate/internal/models"
)

const machineColumns = `id, name, category, difficulty,
	primary_muscles, secondary_muscles, equipment_type,
	setup_steps, how_to_steps, common_mistakes, safety_tips, beginner_tips,
	thumbnail_url, image_url, video_url, muscle_diagram_url,
	tags, metadata, is_active, created_at, updated_at`

// ListMachines returns a filtered, paginated page of the catalog.
func (db *DB) ListMachines(ctx context.Context, filter models.MachineFilter) (*models.MachineListResponse, error) {
	defer observeQuery("list_machines")()

	where := []string{"is_active = ?"}
	args := []interface{}{filter.IsActive}

	if filter.Category != "" {
		where = append(where, "lower(category) = lower(?)")
		args = append(args, filter.Category)
	}
	if filter.Difficulty != "" {
		where = append(where, "lower(difficulty) = lower(?)")
		args = append(args, filter.Difficulty)
	}
	if filter.Search != "" {
		where = append(where, "(name ILIKE ? OR category ILIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	// Tags are stored as a JSON array of strings; matching the quoted value
	// finds exact elements. Every requested tag must be present.
	for _, tag := range filter.Tags {
		if tag == "" {
			continue
		}
		where = append(where, "contains(tags, ?)")
		args = append(args, `"`+tag+`"`)
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT count(*) FROM machines WHERE " + whereClause
	if err := db.conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count machines: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM machines WHERE %s ORDER BY name LIMIT ? OFFSET ?",
		machineColumns, whereClause)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	machines := make([]models.Machine, 0, filter.PageSize)
	for rows.Next() {
		m, err := scanMachine(rows)
		if err != nil {
			return nil, err
		}
		machines = append(machines, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list machines rows: %w", err)
	}

	return &models.MachineListResponse{
		Machines: machines,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// GetMachine returns one catalog machine by id, or ErrNotFound.
func (db *DB) GetMachine(ctx context.Context, id string) (*models.Machine, error) {
	defer observeQuery("get_machine")()

	row := db.conn.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM machines WHERE id = ?", machineColumns), id)
	m, err := scanMachine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Categories returns the distinct categories of active machines.
func (db *DB) Categories(ctx context.Context) ([]string, error) {
	defer observeQuery("categories")()
	return db.distinctColumn(ctx, "category")
}

// Difficulties returns the distinct difficulty levels of active machines.
func (db *DB) Difficulties(ctx context.Context) ([]string, error) {
	defer observeQuery("difficulties")()
	return db.distinctColumn(ctx, "difficulty")
}

func (db *DB) distinctColumn(ctx context.Context, column string) ([]string, error) {
	query := fmt.Sprintf(
		"SELECT DISTINCT %s FROM machines WHERE is_active ORDER BY %s", column, column)
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// SeedMachines inserts catalog entries that are not present yet. Existing
// rows are never overwritten so operator edits survive restarts.
func (db *DB) SeedMachines(ctx context.Context, entries []catalog.Machine) (int, error) {
	defer observeQuery("seed_machines")()

	inserted := 0
	for _, entry := range entries {
		if entry.ID == "" || entry.Name == "" {
			continue
		}

		difficulty := entry.Difficulty
		if difficulty == "" {
			difficulty = "beginner"
		}
		category := entry.Category
		if category == "" {
			category = "Other"
		}

		res, err := db.conn.ExecContext(ctx, `
			INSERT INTO machines (
				id, name, category, difficulty,
				primary_muscles, secondary_muscles,
				setup_steps, how_to_steps, common_mistakes, safety_tips, beginner_tips,
				muscle_diagram_url, video_url, tags, metadata
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`,
			entry.ID, entry.Name, category, difficulty,
			marshalJSON(entry.PrimaryMuscles), marshalJSON(entry.SecondaryMuscles),
			marshalJSON(entry.SetupSteps), marshalJSON(entry.HowToSteps),
			marshalJSON(entry.CommonMistakes), marshalJSON(entry.SafetyTips),
			marshalJSON(entry.BeginnerTips),
			nullable(entry.MuscleDiagramURL), nullable(entry.DemoVideoURL),
			marshalJSON(entry.SearchKeywords), "{}")
		if err != nil {
			return inserted, fmt.Errorf("seed machine %s: %w", entry.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}

	if inserted > 0 {
		logging.Info().Int("inserted", inserted).Msg("machine catalog seeded")
	}
	return inserted, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// machineRow buffers the machine column set for scanning, both standalone and
// inside join queries.
type machineRow struct {
	m                models.Machine
	primaryMuscles   string
	secondaryMuscles string
	setupSteps       string
	howToSteps       string
	commonMistakes   string
	safetyTips       string
	beginnerTips     string
	tags             string
	meta             string
	equipmentType    sql.NullString
	thumbnailURL     sql.NullString
	imageURL         sql.NullString
	videoURL         sql.NullString
	diagramURL       sql.NullString
	createdAt        time.Time
	updatedAt        time.Time
}

// dests returns scan targets in machineColumns order.
func (r *machineRow) dests() []interface{} {
	return []interface{}{
		&r.m.ID, &r.m.Name, &r.m.Category, &r.m.Difficulty,
		&r.primaryMuscles, &r.secondaryMuscles, &r.equipmentType,
		&r.setupSteps, &r.howToSteps, &r.commonMistakes, &r.safetyTips, &r.beginnerTips,
		&r.thumbnailURL, &r.imageURL, &r.videoURL, &r.diagramURL,
		&r.tags, &r.meta, &r.m.IsActive, &r.createdAt, &r.updatedAt,
	}
}

// machine materializes the scanned row.
func (r *machineRow) machine() *models.Machine {
	m := r.m
	m.PrimaryMuscles = unmarshalStrings(r.primaryMuscles)
	m.SecondaryMuscles = unmarshalStrings(r.secondaryMuscles)
	m.SetupSteps = unmarshalStrings(r.setupSteps)
	m.HowToSteps = unmarshalStrings(r.howToSteps)
	m.CommonMistakes = unmarshalStrings(r.commonMistakes)
	m.SafetyTips = unmarshalStrings(r.safetyTips)
	m.BeginnerTips = unmarshalStrings(r.beginnerTips)
	m.Tags = unmarshalStrings(r.tags)
	m.Meta = unmarshalMap(r.meta)
	m.EquipmentType = r.equipmentType.String
	m.ThumbnailURL = r.thumbnailURL.String
	m.ImageURL = r.imageURL.String
	m.VideoURL = r.videoURL.String
	m.MuscleDiagramURL = r.diagramURL.String
	m.CreatedAt = r.createdAt
	m.UpdatedAt = r.updatedAt
	return &m
}

func scanMachine(s scanner) (*models.Machine, error) {
	var row machineRow
	if err := s.Scan(row.dests()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan machine: %w", err)
	}
	return row.machine(), nil
}

func marshalJSON(values []string) string {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func unmarshalStrings(data string) []string {
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil || values == nil {
		return []string{}
	}
	return values
}

func unmarshalMap(data string) map[string]interface{} {
	var values map[string]interface{}
	if err := json.Unmarshal([]byte(data), &values); err != nil || values == nil {
		return map[string]interface{}{}
	}
	return values
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func observeQuery(operation string) func() {
	start := time.Now()
	return func() {
		metrics.DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
