package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/eleven-am/voice-scribe/internal/shared"
	"github.com/labstack/echo/v4"
)

type contextKey string

const claimsKey contextKey = "jwt_claims"

// QueryTokenParam carries the token for clients that cannot set headers,
// such as browser WebSocket upgrades.
const QueryTokenParam = "access_token"

type UserSyncer interface {
	SyncFromJWT(ctx context.Context, userID, email, name, avatar string) error
}

type Middleware struct {
	validator  *JWTValidator
	userSyncer UserSyncer
	watcher    *Watcher
}

func NewMiddleware(validator *JWTValidator, userSyncer UserSyncer, watcher *Watcher) *Middleware {
	return &Middleware{
		validator:  validator,
		userSyncer: userSyncer,
		watcher:    watcher,
	}
}

func tokenFrom(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return "", shared.Unauthorized("invalid_token", "bearer token required")
		}
		return authHeader, nil
	}
	if token := c.QueryParam(QueryTokenParam); token != "" {
		return token, nil
	}
	return "", shared.Unauthorized("missing_token", "authorization header required")
}

func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, err := tokenFrom(c)
		if err != nil {
			return err
		}

		claims, err := m.validator.Validate(token)
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				return shared.Unauthorized("token_expired", "token has expired")
			}
			return shared.Unauthorized("invalid_token", "invalid or malformed token")
		}

		ctx := context.WithValue(c.Request().Context(), claimsKey, claims)
		c.SetRequest(c.Request().WithContext(ctx))

		if m.userSyncer != nil {
			_ = m.userSyncer.SyncFromJWT(ctx, claims.UserID, claims.Email, claims.Name, claims.AvatarURL)
		}
		if m.watcher != nil {
			m.watcher.Publish(claims.UserID, SignedIn)
		}

		return next(c)
	}
}

func GetClaims(c echo.Context) *Claims {
	claims, ok := c.Request().Context().Value(claimsKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}

func RequireAuth(c echo.Context) (string, error) {
	claims := GetClaims(c)
	if claims == nil {
		return "", shared.Unauthorized("auth_required", "authentication required")
	}
	return claims.UserID, nil
}

func SetClaimsForTest(c echo.Context, claims *Claims) {
	ctx := context.WithValue(c.Request().Context(), claimsKey, claims)
	c.SetRequest(c.Request().WithContext(ctx))
}
