package server

import (
	"context"
	"net/http"
)

// UserInfo describes the authenticated user for display purposes.
type UserInfo struct {
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

type contextKey string

const (
	userIDKey   contextKey = "user_id"
	userInfoKey contextKey = "user_info"
)

// DevIdentity attaches a fixed local identity to every request. Used when
// the server runs without Tailscale (plain dev listener).
func DevIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), userIDKey, 1)
		ctx = context.WithValue(ctx, userInfoKey, UserInfo{Login: "local", DisplayName: "Local Dev User"})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identity resolves the requesting user. With a Tailscale local client
// configured it maps the peer to a database user via whois; otherwise it
// falls back to the fixed dev identity.
func (s *Server) identity(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tsClient == nil {
			dev.ServeHTTP(w, r)
			return
		}

		who, err := s.tsClient.WhoIs(r.Context(), r.RemoteAddr)
		if err != nil || who.UserProfile == nil {
			s.log.Warn("tailscale whois failed", "remote", r.RemoteAddr, "error", err)
			dev.ServeHTTP(w, r)
			return
		}

		login := who.UserProfile.LoginName
		display := who.UserProfile.DisplayName
		userID, err := s.db.GetOrCreateUser(r.Context(), login, display)
		if err != nil {
			s.log.Error("resolving user", "login", login, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "resolving user identity"})
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = context.WithValue(ctx, userInfoKey, UserInfo{Login: login, DisplayName: display})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userIDFromContext returns the user ID set by the identity middleware.
// Defaults to 1 so handlers always have a usable ID in dev setups.
func userIDFromContext(r *http.Request) int {
	if id, ok := r.Context().Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// userInfoFromContext returns the display identity set by the identity
// middleware, or the dev identity when none is present.
func userInfoFromContext(r *http.Request) UserInfo {
	if info, ok := r.Context().Value(userInfoKey).(UserInfo); ok {
		return info
	}
	return UserInfo{Login: "local", DisplayName: "Local Dev User"}
}

// mustUserID extracts the user ID or writes a 401 and reports failure.
func mustUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id := userIDFromContext(r)
	if id <= 0 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no user identity"})
		return 0, false
	}
	return id, true
}

// handleMe returns the identity of the requesting user.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}
