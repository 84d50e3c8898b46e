package actor

import (
	"context"
	"strings"

	"github.com/router-for-me/CloudAccountsBusiness/internal/apperr"
)

// Role is the closed set of caller roles.
type Role string

const (
	// RoleAdmin may perform every operation.
	RoleAdmin Role = "admin"
	// RoleUser may only read accounts it owns.
	RoleUser Role = "user"
)

// SystemID identifies background jobs acting on behalf of the platform.
const SystemID = "system"

// ParseRole maps a claim value onto the closed role set. Unknown or empty values
// fall back to RoleUser.
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(RoleAdmin):
		return RoleAdmin
	default:
		return RoleUser
	}
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID        string `json:"user_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// System returns the admin actor used by background jobs.
func System() Actor {
	return Actor{ID: SystemID, Username: SystemID, Role: RoleAdmin}
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Owns reports whether the actor may read a record owned by ownerID.
func (a Actor) Owns(ownerID string) bool {
	return a.IsAdmin() || (a.ID != "" && a.ID == ownerID)
}

// Require is the single role guard used by every gated operation.
func Require(a Actor, role Role) error {
	switch role {
	case RoleAdmin:
		if a.ID == "" {
			return apperr.New(apperr.KindUnauthorized, "authentication required")
		}
		if a.IsAdmin() {
			return nil
		}
		return apperr.PermissionDenied("admin role required")
	case RoleUser:
		if a.ID == "" {
			return apperr.New(apperr.KindUnauthorized, "authentication required")
		}
		return nil
	default:
		return apperr.PermissionDenied("unknown role requirement")
	}
}

type contextKey struct{}

// WithContext stores the actor on ctx.
func WithContext(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// FromContext returns the actor stored on ctx.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	a, ok := ctx.Value(contextKey{}).(Actor)
	return a, ok
}
