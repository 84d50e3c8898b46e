package permissions

import (
	"net/http"
	"sort"
	"strings"

	"github.com/router-for-me/CloudAccountsBusiness/internal/actor"
)

// Definition declares one routed endpoint and the role it requires.
type Definition struct {
	Key    string     // "METHOD /path" as registered with gin.
	Method string     // HTTP method.
	Path   string     // Route template.
	Module string     // Feature group.
	Role   actor.Role // Required role; empty means no authentication.
	// ServiceGuarded routes leave the admin decision to the account service so
	// denied attempts are audited.
	ServiceGuarded bool
}

// Key builds the permission key for a method and route template.
func Key(method, path string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimSpace(path)
}

func def(method, path, module string, role actor.Role, guarded bool) Definition {
	return Definition{Key: Key(method, path), Method: method, Path: path, Module: module, Role: role, ServiceGuarded: guarded}
}

var definitions = []Definition{
	def(http.MethodGet, "/healthz", "system", "", false),
	def(http.MethodGet, "/api/version", "system", actor.RoleUser, false),
	def(http.MethodGet, "/api/auth/me", "auth", actor.RoleUser, false),

	def(http.MethodPost, "/api/accounts", "accounts", actor.RoleAdmin, true),
	def(http.MethodGet, "/api/accounts", "accounts", actor.RoleUser, false),
	def(http.MethodGet, "/api/accounts/:account_id", "accounts", actor.RoleUser, false),
	def(http.MethodDelete, "/api/accounts/:account_id", "accounts", actor.RoleAdmin, true),
	def(http.MethodGet, "/api/accounts/:account_id/credentials", "accounts", actor.RoleAdmin, true),
	def(http.MethodGet, "/api/accounts/:account_id/billing", "accounts", actor.RoleUser, false),
	def(http.MethodPut, "/api/accounts/:account_id/billing", "accounts", actor.RoleAdmin, true),
	def(http.MethodGet, "/api/accounts/:account_id/quota", "accounts", actor.RoleUser, false),
	def(http.MethodPost, "/api/accounts/:account_id/quota/refresh", "accounts", actor.RoleAdmin, true),

	def(http.MethodGet, "/api/dashboard/stats", "dashboard", actor.RoleUser, false),

	def(http.MethodGet, "/api/admin/quota-config", "admin", actor.RoleAdmin, false),
	def(http.MethodPut, "/api/admin/quota-config", "admin", actor.RoleAdmin, false),
	def(http.MethodGet, "/api/admin/audit-logs", "admin", actor.RoleAdmin, false),
}

// Definitions returns every route definition sorted by key.
func Definitions() []Definition {
	out := append([]Definition(nil), definitions...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// DefinitionMap indexes the route definitions by key.
func DefinitionMap() map[string]Definition {
	out := make(map[string]Definition, len(definitions))
	for _, d := range definitions {
		out[d.Key] = d
	}
	return out
}

// Allows reports whether a caller with role may pass the route-level check.
func (d Definition) Allows(role actor.Role) bool {
	if d.Role != actor.RoleAdmin || d.ServiceGuarded {
		return true
	}
	return role == actor.RoleAdmin
}
