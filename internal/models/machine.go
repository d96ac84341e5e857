// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

package models

import (
	"time"
)

// Machine is one entry of the machine catalog as stored in the database.
// The catalog is publicly readable; modifications are operator-only.
type Machine struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	Category         string                 `json:"category"`
	Difficulty       string                 `json:"difficulty"`
	PrimaryMuscles   []string               `json:"primary_muscles"`
	SecondaryMuscles []string               `json:"secondary_muscles"`
	EquipmentType    string                 `json:"equipment_type,omitempty"`
	SetupSteps       []string               `json:"setup_steps"`
	HowToSteps       []string               `json:"how_to_steps"`
	CommonMistakes   []string               `json:"common_mistakes"`
	SafetyTips       []string               `json:"safety_tips"`
	BeginnerTips     []string               `json:"beginner_tips"`
	ThumbnailURL     string                 `json:"thumbnail_url,omitempty"`
	ImageURL         string                 `json:"image_url,omitempty"`
	VideoURL         string                 `json:"video_url,omitempty"`
	MuscleDiagramURL string                 `json:"muscle_diagram_url,omitempty"`
	Tags             []string               `json:"tags"`
	Meta             map[string]interface{} `json:"metadata"`
	IsActive         bool                   `json:"is_active"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// MachineListResponse is a paginated page of the machine catalog.
type MachineListResponse struct {
	Machines []Machine `json:"machines"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

// MachineFilter narrows machine catalog queries.
type MachineFilter struct {
	Category   string
	Difficulty string
	Search     string
	Tags       []string
	IsActive   bool
	Page       int
	PageSize   int
}

// Favorite is a user-scoped bookmark of one catalog machine.
// Every query against favorites is filtered by the owning user id.
type Favorite struct {
	MachineID string    `json:"machine_id"`
	CreatedAt time.Time `json:"created_at"`
	Notes     string    `json:"notes,omitempty"`
	Machine   *Machine  `json:"machine,omitempty"`
}

// FavoriteListResponse lists all favorites of one user.
type FavoriteListResponse struct {
	Favorites []Favorite `json:"favorites"`
	Total     int        `json:"total"`
}

// FavoriteCreateRequest is the payload for adding a favorite.
type FavoriteCreateRequest struct {
	MachineID string `json:"machine_id" validate:"required"`
	Notes     string `json:"notes" validate:"max=2000"`
}

// FavoriteUpdateRequest is the payload for updating favorite notes.
type FavoriteUpdateRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// HistoryEntry records one past identification for a user.
type HistoryEntry struct {
	ID         string    `json:"id"`
	MachineID  string    `json:"machine_id"`
	Confidence *float64  `json:"confidence,omitempty"`
	Source     string    `json:"source"`
	TakenAt    time.Time `json:"taken_at"`
	CreatedAt  time.Time `json:"created_at"`
	PhotoURI   string    `json:"photo_uri,omitempty"`
	Machine    *Machine  `json:"machine,omitempty"`
}

// HistoryListResponse is a paginated page of one user's history.
type HistoryListResponse struct {
	History  []HistoryEntry `json:"history"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// HistoryCreateRequest is the payload for recording a history entry.
type HistoryCreateRequest struct {
	MachineID  string     `json:"machine_id" validate:"required"`
	Confidence *float64   `json:"confidence" validate:"omitempty,gte=0,lte=1"`
	Source     string     `json:"source"`
	PhotoURI   string     `json:"photo_uri"`
	TakenAt    *time.Time `json:"taken_at"`
}

// StatsTotals aggregates catalog and activity counters.
type StatsTotals struct {
	Users           int `json:"users"`
	Machines        int `json:"machines"`
	Identifications int `json:"identifications"`
	Favorites       int `json:"favorites"`
}

// StatsResponse is the application statistics payload.
type StatsResponse struct {
	Totals         StatsTotals    `json:"totals"`
	RecentActivity RecentActivity `json:"recent_activity"`
	Timestamp      time.Time      `json:"timestamp"`
}

// RecentActivity summarizes the last seven days of identifications.
type RecentActivity struct {
	IdentificationsLast7Days int `json:"identifications_last_7_days"`
}

// CategoryCount is the number of active machines in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// CategoryStatsResponse is the per-category machine breakdown.
type CategoryStatsResponse struct {
	Categories      []CategoryCount `json:"categories"`
	TotalCategories int             `json:"total_categories"`
	Timestamp       time.Time       `json:"timestamp"`
}

// MediaUploadResponse describes a completed media upload.
type MediaUploadResponse struct {
	URL         string `json:"url"`
	PublicURL   string `json:"public_url"`
	Bucket      string `json:"bucket"`
	Path        string `json:"path"`
	Size        int    `json:"size"`
	ContentType string `json:"content_type"`
}
