package auth

import (
	"context"

	"github.com/straye-as/pipeline-api/internal/domain"
)

// SystemEmail identifies requests authenticated with the admin API key
const SystemEmail = "system@pipeline.local"

// UserContext holds authenticated user information
type UserContext struct {
	Email       string
	DisplayName string
	Role        domain.UserRole
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok && user != nil
}

// IsAdmin reports whether the user may see every lead
func (u *UserContext) IsAdmin() bool {
	return u.Role == domain.UserRoleAdmin
}

// CanAccessLead checks if the user may read or modify a lead owned by owner
func (u *UserContext) CanAccessLead(owner string) bool {
	return u.IsAdmin() || u.Email == owner
}

// OwnerFilter returns the lead owner to restrict queries to.
// Returns nil for admins, who see everything.
func (u *UserContext) OwnerFilter() *string {
	if u.IsAdmin() {
		return nil
	}
	email := u.Email
	return &email
}

// ScopeKey identifies the set of leads visible to the user.
// All admins share one scope.
func (u *UserContext) ScopeKey() string {
	if u.IsAdmin() {
		return "all"
	}
	return "owner:" + u.Email
}

// SystemUser is the context used for API key requests and background jobs
func SystemUser() *UserContext {
	return &UserContext{
		Email:       SystemEmail,
		DisplayName: "System",
		Role:        domain.UserRoleAdmin,
	}
}
