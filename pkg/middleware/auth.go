package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/usecase"
	"tour-booking/pkg/utils"

	"go.uber.org/zap"
)

// SessionResolver maps a bearer token to the caller that owns it.
// usecase.AuthService satisfies it.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (usecase.Actor, error)
}

// AuthSession validates the bearer session token and stores the caller's ID
// and role in the request context.
func AuthSession(resolver SessionResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.ResponseUnauthorized(w, "Missing authorization token")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}
			token = strings.TrimSpace(token)

			actor, err := resolver.ResolveSession(r.Context(), token)
			switch {
			case errors.Is(err, usecase.ErrSessionNotFound):
				logger.Warn("Invalid or expired session", zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Invalid or expired session")
				return
			case errors.Is(err, usecase.ErrAccountDisabled):
				utils.ResponseForbidden(w, "Account is disabled")
				return
			case errors.Is(err, usecase.ErrForbidden):
				utils.ResponseForbidden(w, "Access denied")
				return
			case err != nil:
				logger.Error("Failed to validate session", zap.Error(err))
				utils.ResponseInternalError(w, "Internal server error")
				return
			}

			ctx := utils.SetUserContext(r.Context(), actor.UserID, string(actor.Role))
			ctx = utils.SetTokenContext(ctx, token)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCapability rejects callers whose role lacks the capability. It must
// run after AuthSession.
func RequireCapability(capability entity.Capability, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := utils.GetUserIDFromContext(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			role, _ := utils.GetRoleFromContext(r.Context())
			if !entity.UserRole(role).Can(capability) {
				logger.Warn("Capability check failed",
					zap.String("user_id", userID.String()),
					zap.String("role", role),
					zap.String("capability", string(capability)),
					zap.String("path", r.URL.Path))
				utils.ResponseForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
