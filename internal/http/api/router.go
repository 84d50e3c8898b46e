package api

import (
	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CloudAccountsBusiness/internal/http/api/handlers"
	"gorm.io/gorm"
)

// Dependencies are the services served by the HTTP API.
type Dependencies struct {
	DB          *gorm.DB
	Tokens      TokenParser
	Accounts    handlers.AccountService
	QuotaConfig handlers.QuotaConfigService
	Audit       handlers.AuditLister
	Dashboard   handlers.StatsSource
}

// RegisterRoutes registers health, account, dashboard and admin routes.
func RegisterRoutes(r *gin.Engine, deps Dependencies) {
	if r == nil || deps.DB == nil || deps.Tokens == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	authed := r.Group("/api")
	authed.Use(authMiddleware(deps.Tokens), permissionMiddleware())

	authed.GET("/version", handlers.NewVersionHandler().GetVersion)
	authed.GET("/auth/me", handlers.NewAuthHandler().Me)

	if deps.Accounts != nil {
		accountHandler := handlers.NewAccountHandler(deps.Accounts)
		authed.POST("/accounts", accountHandler.Create)
		authed.GET("/accounts", accountHandler.List)
		authed.GET("/accounts/:account_id", accountHandler.Get)
		authed.DELETE("/accounts/:account_id", accountHandler.Delete)
		authed.GET("/accounts/:account_id/credentials", accountHandler.ExportCredentials)
		authed.GET("/accounts/:account_id/billing", accountHandler.GetBillingAddress)
		authed.PUT("/accounts/:account_id/billing", accountHandler.UpdateBillingAddress)
		authed.GET("/accounts/:account_id/quota", accountHandler.GetQuota)
		authed.POST("/accounts/:account_id/quota/refresh", accountHandler.RefreshQuota)
	}

	if deps.Dashboard != nil {
		authed.GET("/dashboard/stats", handlers.NewDashboardHandler(deps.Dashboard).Stats)
	}

	if deps.QuotaConfig != nil {
		quotaConfigHandler := handlers.NewQuotaConfigHandler(deps.QuotaConfig)
		authed.GET("/admin/quota-config", quotaConfigHandler.Get)
		authed.PUT("/admin/quota-config", quotaConfigHandler.Update)
	}
	if deps.Audit != nil {
		authed.GET("/admin/audit-logs", handlers.NewAuditLogHandler(deps.Audit).List)
	}
}
