package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "leaseguard/pkg/domain"
	"leaseguard/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
// Role is the raw claim string; RequireAuth validates it into a typed role
// exactly once so downstream code never sees an unvetted role.
type JWTClaims struct {
	UserID string
	Email  string
	Role   string
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}

// RequireAuth validates the bearer token and injects the actor identity into
// the request context. Requests without a valid token, a parseable user ID,
// or a supported role are rejected before any handler runs.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			actorID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed subject claim",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid token claims")
				return
			}

			role, err := id.ParseRole(claims.Role)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - unknown role claim",
					"role", claims.Role,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid token claims")
				return
			}

			ctx = requestcontext.WithActor(ctx, actorID, claims.Email, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
