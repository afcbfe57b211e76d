package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/reelgate/reelgate/internal/audit"
	"github.com/reelgate/reelgate/internal/models"
	"github.com/reelgate/reelgate/pkg/logger"
)

const (
	defaultAuditRetentionDays = 90
	defaultTokenSpec          = "@hourly"
	defaultAuditSpec          = "@daily"
)

// Cleaner coordinates background maintenance: clearing expired reset tokens
// from user records and enforcing login-event retention.
type Cleaner struct {
	db        *gorm.DB
	recorder  *audit.Recorder
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention int

	tokenSchedule string
	auditSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithAuditRetentionDays adjusts how long login events are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithTokenSchedule overrides the cron specification for token cleanup.
func WithTokenSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.tokenSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron specification for retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. A nil recorder
// results in the retention job being skipped.
func NewCleaner(db *gorm.DB, recorder *audit.Recorder, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:            db,
		recorder:      recorder,
		now:           time.Now,
		retention:     defaultAuditRetentionDays,
		tokenSchedule: defaultTokenSpec,
		auditSchedule: defaultAuditSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New()
	}

	return cleaner
}

// Start registers the cleanup jobs and starts the scheduler.
func (c *Cleaner) Start() error {
	if c.db == nil {
		return errors.New("maintenance: db is required")
	}

	if _, err := c.cron.AddFunc(c.tokenSchedule, func() {
		if _, err := c.ClearExpiredResetTokens(context.Background()); err != nil {
			c.log.Warn("reset token cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule token cleanup: %w", err)
	}

	if c.recorder != nil {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			if _, err := c.recorder.CleanupOlderThan(context.Background(), c.retention); err != nil {
				c.log.Warn("login event retention cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("maintenance: schedule retention cleanup: %w", err)
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the scheduler and returns a context that completes once running
// jobs finish.
func (c *Cleaner) Stop() context.Context {
	return c.cron.Stop()
}

// RunOnce executes every cleanup job immediately.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	var errs error

	if _, err := c.ClearExpiredResetTokens(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}

	if c.recorder != nil {
		if _, err := c.recorder.CleanupOlderThan(ctx, c.retention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// ClearExpiredResetTokens blanks reset token columns whose stored expiry has
// passed so stale tokens cannot linger on user records.
func (c *Cleaner) ClearExpiredResetTokens(ctx context.Context) (int64, error) {
	now := c.now()

	result := c.db.WithContext(ctx).
		Model(&models.User{}).
		Where("reset_token <> '' AND reset_token_expires_at < ?", now).
		Updates(map[string]any{
			"reset_token":            "",
			"reset_token_expires_at": nil,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("maintenance: clear expired reset tokens: %w", result.Error)
	}

	return result.RowsAffected, nil
}
