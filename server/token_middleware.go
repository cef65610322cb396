package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// TokenMiddleware validates the bearer access token and sets subject, scopes,
// permissions and roles in the request context. It runs before any
// scope/permission check.
func (s *Server) TokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "missing authorization header")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(c, "invalid authorization header format")
			return
		}

		token, err := jwt.Parse(parts[1], s.Tokens.VerificationKeyFunc())
		if err != nil || !token.Valid {
			unauthorized(c, "invalid access token")
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(c, "invalid access token")
			return
		}

		if sub, exists := claims["sub"]; exists {
			c.Set("sub", sub)
		}
		if scope, exists := claims["scope"]; exists {
			if scopeStr, ok := scope.(string); ok {
				c.Set("scopes", strings.Fields(scopeStr))
			}
		}
		if perms, exists := claims["permissao"]; exists {
			c.Set("permissao", toStringSlice(perms))
		}
		if roles, exists := claims["role"]; exists {
			c.Set("roles", roles)
		}
		c.Set("token_claims", claims)
		c.Next()
	}
}

func unauthorized(c *gin.Context, description string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error":             "unauthorized",
		"error_description": description,
	})
	c.Abort()
}

// toStringSlice normalizes a JSON claim value ([]interface{} after parsing)
// into []string.
func toStringSlice(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// GetSubjectFromContext retrieves the token subject, or "" if absent.
func GetSubjectFromContext(c *gin.Context) string {
	if sub, exists := c.Get("sub"); exists {
		if s, ok := sub.(string); ok {
			return s
		}
	}
	return ""
}

// GetScopesFromContext retrieves the granted scopes, or an empty slice.
func GetScopesFromContext(c *gin.Context) []string {
	if scopes, exists := c.Get("scopes"); exists {
		if s, ok := scopes.([]string); ok {
			return s
		}
	}
	return []string{}
}

// GetPermissionsFromContext retrieves the permission claim when present.
func GetPermissionsFromContext(c *gin.Context) ([]string, bool) {
	if perms, exists := c.Get("permissao"); exists {
		if p, ok := perms.([]string); ok {
			return p, true
		}
	}
	return nil, false
}
