package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guardiao-iam/guardiao/permission"
)

// RequirePermission authorizes the request when the token's permission claim
// covers name. The wildcard set covers everything through the same check, so
// there is no separate admin code path to get wrong.
func (s *Server) RequirePermission(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		perms, ok := GetPermissionsFromContext(c)
		if !ok {
			// Machine tokens carry no permission claim.
			forbidden(c, "token carries no permissions")
			return
		}
		if !permission.SetFromNames(perms).Has(name) {
			forbidden(c, "missing permission: "+name)
			return
		}
		c.Next()
	}
}

func forbidden(c *gin.Context, description string) {
	c.JSON(http.StatusForbidden, gin.H{
		"error":             "forbidden",
		"error_description": description,
	})
	c.Abort()
}
