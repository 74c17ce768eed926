package auth

import (
	"net/http"
	"strings"

	"parley/pkg/logger"
	"parley/pkg/utils"
)

// RequireIdentity resolves the caller identity from the headers set by the
// upstream gateway (X-User-ID, X-Role-Name) and rate-limits per caller.
// Requests without an identity are rejected before they reach the core.
func RequireIdentity(cfg SecConfig) func(http.Handler) http.Handler {
	pool := newLimiterPool(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.LogRequest(r)
			userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
			if userID == "" {
				logger.Warn("missing_identity_headers", "path", r.URL.Path, "remote", r.RemoteAddr)
				utils.JSONErrorStatus(w, http.StatusUnauthorized, "missing identity headers")
				return
			}
			role := strings.TrimSpace(r.Header.Get("X-Role-Name"))
			if role == "" {
				role = "customer"
			}
			if !pool.allow(userID) {
				logger.Warn("rate_limited", "user", userID, "path", r.URL.Path)
				utils.JSONErrorStatus(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			ctx := WithIdentity(r.Context(), Identity{ID: userID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
