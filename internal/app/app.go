package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CloudAccountsBusiness/internal/account"
	"github.com/router-for-me/CloudAccountsBusiness/internal/actor"
	"github.com/router-for-me/CloudAccountsBusiness/internal/cache"
	"github.com/router-for-me/CloudAccountsBusiness/internal/cloud"
	"github.com/router-for-me/CloudAccountsBusiness/internal/config"
	"github.com/router-for-me/CloudAccountsBusiness/internal/dashboard"
	"github.com/router-for-me/CloudAccountsBusiness/internal/db"
	api "github.com/router-for-me/CloudAccountsBusiness/internal/http/api"
	"github.com/router-for-me/CloudAccountsBusiness/internal/jobs"
	"github.com/router-for-me/CloudAccountsBusiness/internal/kms"
	"github.com/router-for-me/CloudAccountsBusiness/internal/logging"
	"github.com/router-for-me/CloudAccountsBusiness/internal/quota"
	"github.com/router-for-me/CloudAccountsBusiness/internal/quotaconfig"
	"github.com/router-for-me/CloudAccountsBusiness/internal/security"
	"github.com/router-for-me/CloudAccountsBusiness/internal/settings"
	"github.com/router-for-me/CloudAccountsBusiness/internal/store"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
	cachePrefix       = "accounts:"
)

// openDB opens the configured database.
func openDB(cfg config.Config) (*gorm.DB, error) {
	return db.Open(cfg.Database.DSN, db.Options{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		LogLevel:     logging.GormLevel(),
	})
}

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.Config) error {
	conn, err := openDB(cfg)
	if err != nil {
		return err
	}
	return db.Migrate(conn.WithContext(ctx))
}

// backend bundles the provider and key gateway of one deployment mode.
type backend struct {
	provider cloud.Provider
	gateway  kms.Gateway
}

// newBackend selects the real AWS stack or the in-process sandbox.
func newBackend(ctx context.Context, cfg config.Config) (backend, error) {
	switch cfg.Backend {
	case config.BackendSandbox:
		log.Warn("using sandbox backend: credentials are verified and encrypted in-process")
		retired, err := parseRetiredKeys(cfg.Sandbox.RetiredKeys)
		if err != nil {
			return backend{}, err
		}
		gateway, err := kms.NewLocalGateway(kms.LocalKey{ID: cfg.Sandbox.KeyID, Secret: cfg.Sandbox.Key}, retired...)
		if err != nil {
			return backend{}, err
		}
		return backend{provider: cloud.NewSandbox(), gateway: gateway}, nil
	case config.BackendAWS:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return backend{}, fmt.Errorf("app: load aws config: %w", err)
		}
		gateway, err := kms.NewAWSGateway(awsCfg, cfg.KMS.KeyID, cfg.AWS.CallTimeout)
		if err != nil {
			return backend{}, err
		}
		return backend{provider: cloud.NewAWS(cfg.AWS.CallTimeout), gateway: gateway}, nil
	default:
		return backend{}, fmt.Errorf("app: unknown backend %q", cfg.Backend)
	}
}

// parseRetiredKeys reads "id:secret" entries.
func parseRetiredKeys(entries []string) ([]kms.LocalKey, error) {
	out := make([]kms.LocalKey, 0, len(entries))
	for _, entry := range entries {
		id, secret, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok || strings.TrimSpace(id) == "" || secret == "" {
			return nil, fmt.Errorf("app: retired key must be id:secret")
		}
		out = append(out, kms.LocalKey{ID: strings.TrimSpace(id), Secret: secret})
	}
	return out, nil
}

// newTokenVerifier builds the bearer token verifier.
func newTokenVerifier(cfg config.AuthConfig) (*security.TokenVerifier, error) {
	var publicKey []byte
	if path := strings.TrimSpace(cfg.JWTPublicKeyFile); path != "" {
		raw, errRead := os.ReadFile(path)
		if errRead != nil {
			return nil, fmt.Errorf("app: read jwt public key: %w", errRead)
		}
		publicKey = raw
	}
	return security.NewTokenVerifier(cfg.JWTSecret, publicKey, cfg.JWTIssuer)
}

// newRegistry builds the quota configuration registry, cached in Redis when
// an address is configured. The returned closer may be nil.
func newRegistry(ctx context.Context, cfg config.Config, conn *gorm.DB) (*quotaconfig.Registry, func() error) {
	configStore := store.NewQuotaConfigStore(conn)
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return quotaconfig.NewRegistry(configStore, nil), nil
	}
	redisCache, err := cache.NewRedis(ctx, cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cachePrefix,
		TTL:      cfg.Redis.TTL,
	})
	if err != nil {
		log.WithError(err).Warn("redis unavailable, quota configuration is read from the database")
		return quotaconfig.NewRegistry(configStore, nil), nil
	}
	return quotaconfig.NewRegistry(configStore, redisCache), redisCache.Close
}

// RunServer boots the HTTP API and the background jobs.
func RunServer(ctx context.Context, cfg config.Config) error {
	if errValidate := cfg.Validate(); errValidate != nil {
		return errValidate
	}
	conn, err := openDB(cfg)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	settingsStore := settings.NewStore(conn)
	if errRefresh := settingsStore.Refresh(ctx); errRefresh != nil {
		log.WithError(errRefresh).Warn("failed to load settings, using defaults")
	}

	be, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	tokens, err := newTokenVerifier(cfg.Auth)
	if err != nil {
		return err
	}
	registry, closeCache := newRegistry(ctx, cfg, conn)
	if closeCache != nil {
		defer func() { _ = closeCache() }()
	}

	accounts := store.NewAccountStore(conn)
	audit := store.NewAuditStore(conn)
	svc, err := account.NewService(account.Dependencies{
		Verifier:       cloud.NewVerifier(be.provider),
		Gateway:        be.gateway,
		Contacts:       be.provider,
		Quotas:         quota.NewSource(be.provider),
		Definitions:    registry,
		Accounts:       accounts,
		Audit:          audit,
		IdentityRegion: cfg.AWS.Region,
	})
	if err != nil {
		return err
	}

	jobs.NewQuotaPoller(svc, settingsStore, cfg.Quota.PollInterval, cfg.Quota.PollConcurrency).Start(ctx)
	jobs.NewAuditRetentionCleaner(audit, settingsStore, cfg.Audit.CleanupInterval).Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), api.RequestLogger())
	api.RegisterRoutes(engine, api.Dependencies{
		DB:          conn,
		Tokens:      tokens,
		Accounts:    svc,
		QuotaConfig: registry,
		Audit:       audit,
		Dashboard:   dashboard.NewAggregator(svc, registry),
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"addr": cfg.Server.Addr, "backend": cfg.Backend}).Info("starting accounts api")
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errCh <- errServe
		}
		close(errCh)
	}()

	select {
	case errServe := <-errCh:
		return errServe
	case <-ctx.Done():
	}
	log.Info("shutting down accounts api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// MintToken signs a bearer token with the configured shared secret.
func MintToken(cfg config.Config, a actor.Actor, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = cfg.Auth.TokenTTL
	}
	return security.GenerateToken(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, a, ttl)
}

// InitQuotaConfig seeds or resets the quota configuration to the built-in models.
func InitQuotaConfig(ctx context.Context, cfg config.Config, adminID string) (quotaconfig.Config, error) {
	conn, err := openDB(cfg)
	if err != nil {
		return quotaconfig.Config{}, err
	}
	registry, closeCache := newRegistry(ctx, cfg, conn)
	if closeCache != nil {
		defer func() { _ = closeCache() }()
	}
	return registry.InitializeDefault(ctx, actor.Actor{ID: adminID, Role: actor.RoleAdmin})
}

// SetSetting writes a runtime setting read by the background jobs.
func SetSetting(ctx context.Context, cfg config.Config, key string, value int, updatedBy string) error {
	if !settings.IsKnownKey(key) {
		return fmt.Errorf("app: unknown setting %q (known: %s)", key, strings.Join(settings.Keys, ", "))
	}
	conn, err := openDB(cfg)
	if err != nil {
		return err
	}
	return settings.NewStore(conn).Set(ctx, key, value, updatedBy)
}
