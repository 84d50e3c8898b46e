package jobs

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/router-for-me/CloudAccountsBusiness/internal/actor"
	"github.com/router-for-me/CloudAccountsBusiness/internal/quota"
	internalsettings "github.com/router-for-me/CloudAccountsBusiness/internal/settings"
	log "github.com/sirupsen/logrus"
)

const (
	defaultPollInterval    = 30 * time.Minute
	defaultRefreshTimeout  = 2 * time.Minute
	maxConcurrentRefreshes = 10
	noAccountRetryInterval = time.Minute
	disabledRecheckPeriod  = 5 * time.Minute
)

// QuotaRefresher is the part of the account service the poller drives.
type QuotaRefresher interface {
	ActiveAccountIDs(ctx context.Context) ([]string, error)
	RefreshQuota(ctx context.Context, a actor.Actor, accountID string) (quota.Snapshot, error)
}

// QuotaPoller periodically refreshes the quota snapshot of every active account.
type QuotaPoller struct {
	refresher      QuotaRefresher
	settings       Settings
	interval       time.Duration
	concurrency    int
	refreshTimeout time.Duration
	hadAccounts    bool
}

// NewQuotaPoller constructs a quota poller. interval and concurrency are the
// defaults used when the settings table does not override them; an interval of
// zero disables polling.
func NewQuotaPoller(refresher QuotaRefresher, settings Settings, interval time.Duration, concurrency int) *QuotaPoller {
	if refresher == nil {
		return nil
	}
	if interval < 0 {
		interval = defaultPollInterval
	}
	if concurrency <= 0 {
		concurrency = internalsettings.DefaultQuotaPollMaxConcurrency
	}
	return &QuotaPoller{
		refresher:      refresher,
		settings:       settings,
		interval:       interval,
		concurrency:    concurrency,
		refreshTimeout: defaultRefreshTimeout,
	}
}

// Start launches the polling loop in a background goroutine.
func (p *QuotaPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go p.run(ctx)
	log.Infof("quota poller started (interval=%s)", p.interval)
}

func (p *QuotaPoller) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		next := p.poll(ctx)
		if ctx.Err() != nil {
			return
		}
		if next <= 0 {
			next = defaultPollInterval
		}
		if !wait(ctx, next) {
			return
		}
	}
}

// poll refreshes every active account once and returns the delay before the
// next round.
func (p *QuotaPoller) poll(ctx context.Context) time.Duration {
	if p == nil {
		return 0
	}
	if ctx == nil {
		ctx = context.Background()
	}

	interval, maxConcurrency := p.resolvePollConfig(ctx)
	if interval <= 0 {
		return disabledRecheckPeriod
	}

	ids, errIDs := p.refresher.ActiveAccountIDs(ctx)
	if errIDs != nil {
		log.WithError(errIDs).Warn("quota poller: list accounts failed")
		return interval
	}
	if len(ids) == 0 {
		if !p.hadAccounts {
			return noAccountRetryInterval
		}
		return interval
	}
	p.hadAccounts = true

	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup
	system := actor.System()

	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return interval
		}

		wg.Add(1)
		accountID := id
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			refreshCtx, cancel := context.WithTimeout(ctx, p.refreshTimeout)
			defer cancel()
			if _, errRefresh := p.refresher.RefreshQuota(refreshCtx, system, accountID); errRefresh != nil {
				log.WithError(errRefresh).Warnf("quota poller: refresh failed (account=%s)", accountID)
			}
		}()
	}

	wg.Wait()
	log.WithField("accounts", len(ids)).Debug("quota poller: round complete")
	return interval
}

func (p *QuotaPoller) resolvePollConfig(ctx context.Context) (time.Duration, int) {
	interval := p.interval
	maxConcurrency := p.concurrency
	if p.settings != nil {
		if errRefresh := p.settings.Refresh(ctx); errRefresh != nil {
			log.WithError(errRefresh).Warn("quota poller: reload settings failed")
		}
		interval = p.settings.Seconds(internalsettings.QuotaPollIntervalSecondsKey, interval)
		maxConcurrency = p.settings.Int(internalsettings.QuotaPollMaxConcurrencyKey, maxConcurrency)
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	if maxConcurrency > maxConcurrentRefreshes {
		maxConcurrency = maxConcurrentRefreshes
	}
	return interval, maxConcurrency
}
