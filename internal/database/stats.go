// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/machinemate/machinemate/internal/models"
)

// Stats aggregates catalog size and activity counters. Users are counted as
// distinct user ids seen across favorites and history; identity itself lives
// in Supabase, not here.
func (db *DB) Stats(ctx context.Context) (*models.StatsResponse, error) {
	defer observeQuery("stats")()

	stats := &models.StatsResponse{Timestamp: time.Now().UTC()}

	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT count(*) FROM machines WHERE is_active", &stats.Totals.Machines},
		{"SELECT count(*) FROM history", &stats.Totals.Identifications},
		{"SELECT count(*) FROM favorites", &stats.Totals.Favorites},
		{`SELECT count(DISTINCT user_id) FROM (
			SELECT user_id FROM favorites UNION SELECT user_id FROM history
		)`, &stats.Totals.Users},
		{"SELECT count(*) FROM history WHERE taken_at >= current_timestamp - INTERVAL 7 DAY",
			&stats.RecentActivity.IdentificationsLast7Days},
	}

	for _, q := range queries {
		if err := db.conn.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("stats query: %w", err)
		}
	}
	return stats, nil
}

// CategoryStats returns active machine counts per category, largest first.
func (db *DB) CategoryStats(ctx context.Context) (*models.CategoryStatsResponse, error) {
	defer observeQuery("category_stats")()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT category, count(*)
		FROM machines
		WHERE is_active
		GROUP BY category
		ORDER BY count(*) DESC, category`)
	if err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	categories := []models.CategoryCount{}
	for rows.Next() {
		var c models.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category stats: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("category stats rows: %w", err)
	}

	return &models.CategoryStatsResponse{
		Categories:      categories,
		TotalCategories: len(categories),
		Timestamp:       time.Now().UTC(),
	}, nil
}
