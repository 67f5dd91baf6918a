package auth

import (
	"context"

	"github.com/dukerupert/opsdesk/internal/model"
	"github.com/dukerupert/opsdesk/internal/schedule"
)

// SessionCookie names the cookie carrying the session token.
const SessionCookie = "opsdesk_session"

type contextKey struct{}

// AuthContext is the authenticated user for a request. TeamIDs holds the
// direct reports of a manager and is empty for every other role.
type AuthContext struct {
	UserID    int64
	Role      model.Role
	SessionID int64
	TeamIDs   []int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

func IsAdmin(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Role == model.RoleAdmin
}

// Scope converts the request's user into a schedule scope. ok is false for
// unauthenticated requests.
func Scope(ctx context.Context) (schedule.Scope, bool) {
	ac, ok := FromContext(ctx)
	if !ok {
		return schedule.Scope{}, false
	}
	return schedule.Scope{ActorID: ac.UserID, Role: ac.Role, TeamIDs: ac.TeamIDs}, true
}
