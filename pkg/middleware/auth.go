package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/vlog-interaction-service/pkg/jwt"
	"github.com/weiawesome/vlog-interaction-service/pkg/response"
)

const (
	UserIDKey     = "user_id"
	UsernameKey   = "username"
	RolesKey      = "roles"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

// AuthMiddleware resolves the calling user from the Authorization header.
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth rejects requests without a valid bearer token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.AbortUnauthorized(c, "missing or malformed authorization header")
			return
		}

		claims, err := m.verifier.Verify(token)
		if err != nil {
			response.AbortUnauthorized(c, err.Error())
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth resolves the user when a valid token is present and lets
// anonymous requests through otherwise. An invalid token is treated as anonymous.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := m.verifier.Verify(token); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	return token, token != ""
}

func setClaims(c *gin.Context, claims *jwt.Claims) {
	c.Set(UserIDKey, claims.UserID)
	c.Set(UsernameKey, claims.Username)
	c.Set(RolesKey, claims.Roles)
}

// GetUserID returns the authenticated user ID, or "" for anonymous callers.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetRoles returns the authenticated user's roles.
func GetRoles(c *gin.Context) []string {
	return c.GetStringSlice(RolesKey)
}

// HasRole reports whether the authenticated user carries role.
func HasRole(c *gin.Context, role string) bool {
	for _, r := range GetRoles(c) {
		if r == role {
			return true
		}
	}
	return false
}
