package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	guardiao "github.com/guardiao-iam/guardiao"
	"github.com/guardiao-iam/guardiao/errors"
	"github.com/guardiao-iam/guardiao/grants"
)

// HandleTokenRequest is the POST /oauth/token endpoint. Parameters arrive as
// application/x-www-form-urlencoded per RFC 6749; client credentials may also
// come via HTTP Basic auth.
func (s *Server) HandleTokenRequest(c *gin.Context) {
	req := &grants.TokenRequest{
		GrantType:     guardiao.GrantType(c.PostForm("grant_type")),
		LoginKey:      c.PostForm("username"),
		Secret:        c.PostForm("password"),
		Scope:         strings.Fields(c.PostForm("scope")),
		RefreshHandle: c.PostForm("refresh_token"),
		ClientID:      c.PostForm("client_id"),
		ClientSecret:  c.PostForm("client_secret"),
		IP:            c.ClientIP(),
		UserAgent:     c.Request.UserAgent(),
	}
	if id, secret, ok := c.Request.BasicAuth(); ok {
		req.ClientID = id
		req.ClientSecret = secret
	}

	resp, err := s.Dispatcher.IssueToken(c.Request.Context(), req)
	if err != nil {
		s.writeTokenError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(http.StatusOK, tokenResponseJSON(resp))
}

// tokenResponseJSON renders the wire shape with scope space-joined per RFC 6749.
func tokenResponseJSON(resp *grants.TokenResponse) gin.H {
	out := gin.H{
		"access_token": resp.AccessToken,
		"token_type":   resp.TokenType,
		"expires_in":   resp.ExpiresIn,
	}
	if resp.RefreshToken != "" {
		out["refresh_token"] = resp.RefreshToken
	}
	if resp.IdentityToken != "" {
		out["id_token"] = resp.IdentityToken
	}
	if len(resp.Scope) > 0 {
		out["scope"] = strings.Join(resp.Scope, " ")
	}
	return out
}

func (s *Server) writeTokenError(c *gin.Context, err error) {
	if resp, ok := err.(*errors.Response); ok {
		body := gin.H{"error": resp.Err.Error()}
		if resp.Description != "" {
			body["error_description"] = resp.Description
		}
		c.JSON(resp.StatusCode, body)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":             errors.ErrServerError.Error(),
		"error_description": errors.Descriptions[errors.ErrServerError],
	})
}

// HandleValidateRequest reports what the presented bearer token grants. It
// runs behind TokenMiddleware, so reaching it means the signature and expiry
// already checked out.
func (s *Server) HandleValidateRequest(c *gin.Context) {
	out := gin.H{
		"active": true,
		"sub":    GetSubjectFromContext(c),
		"scope":  strings.Join(GetScopesFromContext(c), " "),
	}
	if perms, ok := GetPermissionsFromContext(c); ok {
		out["permissao"] = perms
	}
	if roles, ok := c.Get("roles"); ok {
		out["role"] = roles
	}
	c.JSON(http.StatusOK, out)
}
