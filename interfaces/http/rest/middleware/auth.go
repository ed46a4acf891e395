package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"outline-backend/pkg/auth"
)

// Authenticate validates bearer tokens and rate-limits by IP and user. A
// nil validator means local development: requests pass through with the
// X-User-ID header (or a fixed dev identity) as the user.
func Authenticate(validator *auth.JWTValidator, logger *zap.Logger) func(next http.Handler) http.Handler {
	ipLimiter := auth.NewIPRateLimiter(100)     // per minute per IP
	userLimiter := auth.NewUserRateLimiter(200) // per minute per user

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)
			if allowed, _ := ipLimiter.Allow(r.Context(), clientIP); !allowed {
				respondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			var user *auth.UserContext
			if validator == nil {
				userID := r.Header.Get("X-User-ID")
				if userID == "" {
					userID = "dev-user"
				}
				user = &auth.UserContext{UserID: userID}
			} else {
				token := extractToken(r)
				if token == "" {
					respondUnauthorized(w, "Missing authentication token")
					return
				}

				claims, err := validator.Validate(token)
				if err != nil {
					logger.Warn("invalid token",
						zap.Error(err),
						zap.String("ip", clientIP),
						zap.String("path", r.URL.Path))
					respondUnauthorized(w, "Invalid token")
					return
				}
				user = &auth.UserContext{UserID: claims.UserID, Email: claims.Email}
			}

			if allowed, _ := userLimiter.Allow(r.Context(), user.UserID); !allowed {
				respondWithError(w, http.StatusTooManyRequests, "User rate limit exceeded")
				return
			}

			ctx := auth.SetUserContext(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken pulls the JWT from the Authorization header or the auth
// cookie.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return authHeader
	}

	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// getClientIP extracts the client IP address
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

// respondUnauthorized sends an unauthorized response
func respondUnauthorized(w http.ResponseWriter, message string) {
	respondWithError(w, http.StatusUnauthorized, message)
}

// respondWithError sends an error response with a specific status code
func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    code,
	})
}
