// Package grants routes token requests to their grant handler and maps
// outcomes onto the OAuth2 wire vocabulary.
package grants

import (
	"context"
	"log"
	"time"

	guardiao "github.com/guardiao-iam/guardiao"
	"github.com/guardiao-iam/guardiao/auth"
	"github.com/guardiao-iam/guardiao/errors"
	"github.com/guardiao-iam/guardiao/generates"
)

// Options configures issuance behavior.
type Options struct {
	AllowedGrantTypes []guardiao.GrantType
	AccessTTL         time.Duration
	IdentityTTL       time.Duration
	RefreshTTL        time.Duration
	// RotateRefresh issues a new refresh handle on every refresh and revokes
	// the old one.
	RotateRefresh bool
}

// DefaultOptions mirrors the production defaults.
func DefaultOptions() Options {
	return Options{
		AllowedGrantTypes: []guardiao.GrantType{
			guardiao.PasswordCredentials,
			guardiao.Refreshing,
			guardiao.ClientCredentials,
		},
		AccessTTL:     2 * time.Hour,
		IdentityTTL:   2 * time.Hour,
		RefreshTTL:    30 * 24 * time.Hour,
		RotateRefresh: true,
	}
}

// TokenRequest is one incoming token-endpoint call, already parsed from the
// transport.
type TokenRequest struct {
	GrantType     guardiao.GrantType
	LoginKey      string
	Secret        string
	Scope         []string
	RefreshHandle string
	ClientID      string
	ClientSecret  string
	IP            string
	UserAgent     string
}

// TokenResponse is a successful issuance.
type TokenResponse struct {
	AccessToken   string   `json:"access_token"`
	TokenType     string   `json:"token_type"`
	ExpiresIn     int64    `json:"expires_in"`
	RefreshToken  string   `json:"refresh_token,omitempty"`
	IdentityToken string   `json:"id_token,omitempty"`
	Scope         []string `json:"scope,omitempty"`
}

// Dispatcher is the one-shot token-issuance state machine. It holds no
// per-request state beyond the refresh handle persisted in the store.
type Dispatcher struct {
	Gate      *auth.Gate
	Accounts  guardiao.AccountStore
	Clients   guardiao.ClientStore
	Assembler *generates.Assembler
	Tokens    *generates.JWTGenerator
	Refresh   guardiao.RefreshTokenStore
	Audit     guardiao.AuditSink
	Options   Options
}

// IssueToken validates the grant type and routes to its handler. Unsupported
// grant types are rejected before any store access.
func (d *Dispatcher) IssueToken(ctx context.Context, req *TokenRequest) (*TokenResponse, error) {
	if req.GrantType.String() == "" || !d.allowed(req.GrantType) {
		return nil, errors.NewResponse(errors.ErrUnsupportedGrantType, "")
	}
	switch req.GrantType {
	case guardiao.PasswordCredentials:
		return d.password(ctx, req)
	case guardiao.Refreshing:
		return d.refresh(ctx, req)
	case guardiao.ClientCredentials:
		return d.clientCredentials(ctx, req)
	}
	return nil, errors.NewResponse(errors.ErrUnsupportedGrantType, "")
}

func (d *Dispatcher) allowed(gt guardiao.GrantType) bool {
	for _, a := range d.Options.AllowedGrantTypes {
		if a == gt {
			return true
		}
	}
	return false
}

// serverError logs the underlying cause locally and returns the generic wire
// error, never leaking internals to the client.
func (d *Dispatcher) serverError(op string, err error) *errors.Response {
	log.Printf("[grants] %s: %v", op, err)
	return errors.NewResponse(errors.ErrServerError, "")
}

func (d *Dispatcher) record(e guardiao.AuditEvent) {
	if d.Audit != nil {
		if e.At.IsZero() {
			e.At = time.Now()
		}
		d.Audit.Record(e)
	}
}

// normalizeScopes deduplicates while preserving request order.
func normalizeScopes(scopes []string) []string {
	seen := make(map[string]struct{}, len(scopes))
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func containsScope(scopes []string, scope string) bool {
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// intersectScopes keeps requested scopes that the original grant covers,
// in requested order. The result is never a superset of granted.
func intersectScopes(requested, granted []string) []string {
	out := make([]string, 0, len(requested))
	for _, s := range requested {
		if containsScope(granted, s) {
			out = append(out, s)
		}
	}
	return out
}
