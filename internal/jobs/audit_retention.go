package jobs

import (
	"context"
	"time"

	internalsettings "github.com/router-for-me/CloudAccountsBusiness/internal/settings"
	log "github.com/sirupsen/logrus"
)

const (
	defaultAuditCleanupInterval = time.Hour
	defaultAuditDeleteBatchSize = 5000
	maxDeleteBatchesPerRun      = 2000
)

// AuditPurger deletes expired audit entries in bounded batches.
type AuditPurger interface {
	DeleteExpiredBatch(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// AuditRetentionCleaner periodically deletes audit entries past their expiry.
type AuditRetentionCleaner struct {
	purger    AuditPurger
	settings  Settings
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewAuditRetentionCleaner constructs a cleaner. A non-positive interval falls
// back to hourly runs.
func NewAuditRetentionCleaner(purger AuditPurger, settings Settings, interval time.Duration) *AuditRetentionCleaner {
	if purger == nil {
		return nil
	}
	if interval <= 0 {
		interval = defaultAuditCleanupInterval
	}
	return &AuditRetentionCleaner{
		purger:    purger,
		settings:  settings,
		interval:  interval,
		batchSize: defaultAuditDeleteBatchSize,
		now:       time.Now,
	}
}

// Start launches the cleanup loop in a background goroutine.
func (c *AuditRetentionCleaner) Start(ctx context.Context) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go c.run(ctx)
	log.Infof("audit retention cleaner started (interval=%s)", c.interval)
}

func (c *AuditRetentionCleaner) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.cleanupOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if !wait(ctx, c.resolveInterval()) {
			return
		}
	}
}

func (c *AuditRetentionCleaner) resolveInterval() time.Duration {
	interval := c.interval
	if c.settings != nil {
		interval = c.settings.Seconds(internalsettings.AuditCleanupIntervalSecondsKey, interval)
	}
	if interval <= 0 {
		interval = defaultAuditCleanupInterval
	}
	return interval
}

func (c *AuditRetentionCleaner) cleanupOnce(ctx context.Context) int64 {
	if c == nil || c.purger == nil {
		return 0
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cutoff := c.now().UTC()
	limit := c.batchSize
	if limit <= 0 {
		limit = defaultAuditDeleteBatchSize
	}

	deletedTotal := int64(0)
	for i := 0; i < maxDeleteBatchesPerRun; i++ {
		if ctx.Err() != nil {
			break
		}
		n, err := c.purger.DeleteExpiredBatch(ctx, cutoff, limit)
		if err != nil {
			log.WithError(err).Warn("audit retention cleaner: delete batch failed")
			break
		}
		if n <= 0 {
			break
		}
		deletedTotal += n
	}

	if deletedTotal > 0 {
		log.Infof("audit retention cleaner: deleted %d entries (cutoff=%s)", deletedTotal, cutoff.Format(time.RFC3339))
	}
	return deletedTotal
}
