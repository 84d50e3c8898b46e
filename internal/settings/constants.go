package settings

// DB setting keys and defaults for background jobs.
const (
	// QuotaPollIntervalSecondsKey controls the quota poll interval in seconds. Zero disables polling.
	QuotaPollIntervalSecondsKey = "QUOTA_POLL_INTERVAL_SECONDS"
	// QuotaPollMaxConcurrencyKey controls the max concurrent account refreshes.
	QuotaPollMaxConcurrencyKey = "QUOTA_POLL_MAX_CONCURRENCY"
	// AuditCleanupIntervalSecondsKey controls how often expired audit entries are purged.
	AuditCleanupIntervalSecondsKey = "AUDIT_CLEANUP_INTERVAL_SECONDS"
	// DefaultQuotaPollMaxConcurrency is the fallback max concurrency.
	DefaultQuotaPollMaxConcurrency = 3
)

// Keys lists every recognised setting key.
var Keys = []string{
	QuotaPollIntervalSecondsKey,
	QuotaPollMaxConcurrencyKey,
	AuditCleanupIntervalSecondsKey,
}

// IsKnownKey reports whether key is a recognised setting.
func IsKnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}
