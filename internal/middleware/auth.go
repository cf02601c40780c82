// Package middleware provides the gin middleware chain: request IDs,
// and JWT-backed Principal extraction for admin endpoints.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qoffice/dispatcher/internal/auth"
	"github.com/qoffice/dispatcher/internal/models"
)

const principalKey = "principal"

// AuthMiddleware verifies bearer tokens and attaches the resulting
// Principal to the gin context for admin-surface handlers.
type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	rbac       *auth.RBAC
}

func NewAuthMiddleware(jwtManager *auth.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager, rbac: auth.NewRBAC()}
}

// RequireAuth rejects requests without a valid bearer token and sets
// the decoded Principal in context on success.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.extractToken(c)
		if token == "" {
			m.unauthorized(c, "missing authorization token")
			return
		}
		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			m.unauthorized(c, "invalid or expired token")
			return
		}
		c.Set(principalKey, claims.Principal())
		c.Next()
	}
}

// RequirePermission additionally rejects a request whose Principal lacks
// the named permission. Must run after RequireAuth.
func (m *AuthMiddleware) RequirePermission(permission auth.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := Principal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}
		if !m.rbac.HasPermission(p.Role, permission) {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireOffice rejects requests whose Principal may not act on the
// office named by the "office" URL parameter.
func RequireOffice() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := Principal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}
		office := models.Office(c.Param("office"))
		if !auth.CanActOnOffice(p, office) {
			c.JSON(http.StatusForbidden, gin.H{"error": "principal is not authorized for this office"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalPrincipal decodes a bearer token if present without rejecting
// the request when it is absent or invalid; used by the realtime
// channel, which accepts both anonymous kiosk connections and
// authenticated admin connections on the same endpoint.
func (m *AuthMiddleware) OptionalPrincipal(c *gin.Context) (models.Principal, bool) {
	token := m.extractToken(c)
	if token == "" {
		return models.Principal{}, false
	}
	claims, err := m.jwtManager.ValidateToken(token)
	if err != nil {
		return models.Principal{}, false
	}
	return claims.Principal(), true
}

func (m *AuthMiddleware) extractToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	return c.Query("token")
}

func (m *AuthMiddleware) unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": message})
	c.Abort()
}

// Principal returns the Principal attached by RequireAuth, if any.
func Principal(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}
