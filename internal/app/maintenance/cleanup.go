// Package maintenance runs scheduled hygiene jobs: pruning expired
// sessions and sweeping dead verification code rows.
package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	iauth "github.com/homegrid/homegrid/internal/auth"
	"github.com/homegrid/homegrid/internal/verification"
	"github.com/homegrid/homegrid/pkg/logger"
)

const (
	defaultSessionSpec = "@hourly"
	defaultCodeSpec    = "@daily"
)

// Cleaner coordinates background maintenance tasks. Expired verification
// codes are already invisible to reads, so the sweep only reclaims rows.
type Cleaner struct {
	sessions     *iauth.SessionService
	verification *verification.Service
	cron         *cron.Cron
	log          *zap.Logger
	enabled      bool

	sessionSchedule string
	codeSchedule    string
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

// WithSessionSchedule overrides the cron specification for session cleanup.
func WithSessionSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sessionSchedule = spec
		}
	}
}

// WithCodeSchedule overrides the cron specification for the code sweep.
func WithCodeSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.codeSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency
// results in the corresponding cleanup job being skipped.
func NewCleaner(sessions *iauth.SessionService, verificationSvc *verification.Service, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sessions:        sessions,
		verification:    verificationSvc,
		sessionSchedule: defaultSessionSpec,
		codeSchedule:    defaultCodeSpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.sessions != nil || cleaner.verification != nil

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at
// least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.sessions != nil {
		if _, err := c.cron.AddFunc(c.sessionSchedule, func() {
			if _, err := c.sessions.CleanupExpired(context.Background()); err != nil {
				c.log.Warn("session cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.verification != nil {
		if _, err := c.cron.AddFunc(c.codeSchedule, func() {
			removed, err := c.verification.PurgeExpired(context.Background())
			if err != nil {
				c.log.Warn("verification code sweep failed", zap.Error(err))
				return
			}
			if removed > 0 {
				c.log.Debug("verification codes swept", zap.Int64("removed", removed))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily
// used in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.sessions != nil {
		if _, err := c.sessions.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.verification != nil {
		if _, err := c.verification.PurgeExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
