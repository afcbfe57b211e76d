package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/reelgate/reelgate/internal/models"
)

// Entry captures a single login attempt to persist.
type Entry struct {
	UserID        *string
	Email         string
	Successful    bool
	Method        models.LoginMethod
	FailureReason string
	IPAddress     string
	UserAgent     string
	Device        string
	Metadata      map[string]any
}

// Filters encapsulates optional filters when querying login events.
type Filters struct {
	UserID     string
	Email      string
	Method     models.LoginMethod
	Successful *bool
	Since      *time.Time
	Until      *time.Time
}

// ListOptions controls pagination and filtering for login event queries.
type ListOptions struct {
	Page     int
	PageSize int
	Filters  Filters
}

// Recorder writes and reads the append-only login attempt ledger. Records
// are written synchronously so audit coverage is never silently lost, and
// existing rows are never mutated.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder constructs a Recorder using the provided database handle.
func NewRecorder(db *gorm.DB) (*Recorder, error) {
	if db == nil {
		return nil, errors.New("audit recorder: db is required")
	}
	return &Recorder{db: db}, nil
}

// Record stores a login event. The write completes before Record returns.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if entry.Method == "" {
		return errors.New("audit recorder: login method is required")
	}

	event := models.LoginEvent{
		Email:         strings.ToLower(strings.TrimSpace(entry.Email)),
		Successful:    entry.Successful,
		Method:        entry.Method,
		FailureReason: strings.TrimSpace(entry.FailureReason),
		IPAddress:     strings.TrimSpace(entry.IPAddress),
		UserAgent:     strings.TrimSpace(entry.UserAgent),
		Device:        strings.TrimSpace(entry.Device),
	}

	if entry.UserID != nil && strings.TrimSpace(*entry.UserID) != "" {
		id := strings.TrimSpace(*entry.UserID)
		event.UserID = &id
	}

	if len(entry.Metadata) > 0 {
		event.Metadata = datatypes.JSONMap(entry.Metadata)
	}

	return r.db.WithContext(ctx).Create(&event).Error
}

// List returns paginated login events ordered by creation time descending.
func (r *Recorder) List(ctx context.Context, opts ListOptions) ([]models.LoginEvent, int64, error) {
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	query := r.db.WithContext(ctx).Model(&models.LoginEvent{})
	query = applyFilters(query, opts.Filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit recorder: count events: %w", err)
	}

	var events []models.LoginEvent
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("audit recorder: list events: %w", err)
	}

	return events, total, nil
}

// CleanupOlderThan removes login events older than the supplied retention window (in days).
func (r *Recorder) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, errors.New("audit recorder: retentionDays must be positive")
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.LoginEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit recorder: cleanup events: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func applyFilters(query *gorm.DB, filters Filters) *gorm.DB {
	if filters.UserID != "" {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.Email != "" {
		query = query.Where("email = ?", strings.ToLower(filters.Email))
	}
	if filters.Method != "" {
		query = query.Where("method = ?", filters.Method)
	}
	if filters.Successful != nil {
		query = query.Where("successful = ?", *filters.Successful)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}
