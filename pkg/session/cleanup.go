package session

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Cleaner purges idle sessions on a cron schedule.
type Cleaner struct {
	store         *Store
	retentionDays int
	schedule      string
	logger        zerolog.Logger
	cron          *cron.Cron
	onPurge       func(count int64)
}

// NewCleaner creates a cleaner for the store. Sessions idle for more
// than retentionDays are removed each time the schedule fires.
func NewCleaner(store *Store, retentionDays int, schedule string, logger zerolog.Logger) *Cleaner {
	return &Cleaner{
		store:         store,
		retentionDays: retentionDays,
		schedule:      schedule,
		logger:        logger,
	}
}

// OnPurge registers a callback invoked with the purge count after each run
func (c *Cleaner) OnPurge(fn func(count int64)) {
	c.onPurge = fn
}

// Start begins the cleanup schedule
func (c *Cleaner) Start() error {
	c.cron = cron.New()
	if _, err := c.cron.AddFunc(c.schedule, c.run); err != nil {
		return err
	}
	c.cron.Start()
	c.logger.Info().
		Str("schedule", c.schedule).
		Int("retention_days", c.retentionDays).
		Msg("Session cleanup scheduled")
	return nil
}

// Stop stops the cleanup schedule and waits for a running job to finish
func (c *Cleaner) Stop() {
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
}

// RunOnce performs a single cleanup pass and notifies the purge callback
func (c *Cleaner) RunOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -c.retentionDays)
	purged, err := c.store.PurgeIdleSince(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if c.onPurge != nil {
		c.onPurge(purged)
	}
	return purged, nil
}

func (c *Cleaner) run() {
	purged, err := c.RunOnce(context.Background())
	if err != nil {
		c.logger.Error().Err(err).Msg("Session cleanup failed")
		return
	}
	if purged > 0 {
		c.logger.Info().Int64("purged", purged).Msg("Purged idle sessions")
	}
}
