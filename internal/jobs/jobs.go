// Package jobs hosts the background loops started by the server.
package jobs

import (
	"context"
	"time"
)

// Settings exposes the DB-backed runtime settings read by the loops.
type Settings interface {
	Refresh(ctx context.Context) error
	Int(key string, def int) int
	Seconds(key string, def time.Duration) time.Duration
}

// wait blocks for d or until ctx is done. It reports false when ctx ended.
func wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		if !timer.Stop() {
			<-timer.C
		}
		return false
	case <-timer.C:
		return true
	}
}
