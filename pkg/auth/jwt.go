package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"outline-backend/pkg/common"
	apperrors "outline-backend/pkg/errors"
)

// JWTConfig holds JWT validation settings
type JWTConfig struct {
	SigningMethod string
	SecretKey     string
	Issuer        string
	Audience      []string
}

// Claims represents the validated token claims we care about
type Claims struct {
	UserID string `json:"sub"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserContext carries the authenticated user through request handling
type UserContext struct {
	UserID string
	Email  string
}

// JWTValidator validates bearer tokens
type JWTValidator struct {
	config JWTConfig
}

// NewJWTValidator creates a validator from configuration
func NewJWTValidator(config JWTConfig) (*JWTValidator, error) {
	if config.SecretKey == "" {
		return nil, fmt.Errorf("JWT secret key is required")
	}
	if config.SigningMethod == "" {
		config.SigningMethod = "HS256"
	}
	return &JWTValidator{config: config}, nil
}

// Validate parses and validates a raw token string
func (v *JWTValidator) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != v.config.SigningMethod {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return []byte(v.config.SecretKey), nil
	},
		jwt.WithIssuer(v.config.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid token").WithCause(err)
	}
	if !token.Valid {
		return nil, apperrors.NewUnauthorizedError("invalid token")
	}

	if claims.UserID == "" && claims.Subject != "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, apperrors.NewUnauthorizedError("token missing subject")
	}

	return claims, nil
}

// SetUserContext stores the authenticated user in the request context
func SetUserContext(ctx context.Context, user *UserContext) context.Context {
	return common.WithUserID(ctx, user.UserID)
}

// GetUserFromContext extracts the authenticated user from the context
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	userID, ok := common.GetUserID(ctx)
	if !ok || userID == "" {
		return nil, apperrors.NewUnauthorizedError("no user in context")
	}
	return &UserContext{UserID: userID}, nil
}
