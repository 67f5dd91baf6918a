package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"

	"github.com/dukerupert/opsdesk/internal/auth"
	"github.com/dukerupert/opsdesk/internal/model"
	"github.com/dukerupert/opsdesk/internal/store"
)

// RequireAuth validates the session cookie and populates AuthContext.
// Managers also get their direct reports loaded for team scoping.
func RequireAuth(sessionStore *store.SessionStore, userStore *store.UserStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookie)
			if err != nil || cookie.Value == "" {
				deny(w, http.StatusUnauthorized, "authentication required")
				return
			}

			sess, err := sessionStore.GetByToken(cookie.Value)
			if err != nil {
				logger.Error("session lookup", "error", err)
				deny(w, http.StatusInternalServerError, "session lookup failed")
				return
			}
			if sess == nil {
				deny(w, http.StatusUnauthorized, "session expired")
				return
			}

			user, err := userStore.GetByID(sess.UserID)
			if err != nil {
				logger.Error("session user lookup", "error", err, "user_id", sess.UserID)
				deny(w, http.StatusInternalServerError, "session lookup failed")
				return
			}
			if user == nil {
				deny(w, http.StatusUnauthorized, "session expired")
				return
			}

			ac := auth.AuthContext{
				UserID:    user.ID,
				Role:      user.Role,
				SessionID: sess.ID,
			}
			if user.Role == model.RoleManager {
				team, err := userStore.ListTeamIDs(user.ID)
				if err != nil {
					logger.Error("team lookup", "error", err, "user_id", user.ID)
					deny(w, http.StatusInternalServerError, "team lookup failed")
					return
				}
				ac.TeamIDs = team
			}

			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

// RequireRole rejects authenticated users whose role is not listed.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := auth.FromContext(r.Context())
			if !ok || !slices.Contains(roles, ac.Role) {
				deny(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
