package grants

import (
	"context"

	guardiao "github.com/guardiao-iam/guardiao"
	"github.com/guardiao-iam/guardiao/errors"
)

func (d *Dispatcher) refresh(ctx context.Context, req *TokenRequest) (*TokenResponse, error) {
	if req.RefreshHandle == "" {
		return nil, errors.NewResponse(errors.ErrInvalidRequest, "refresh_token is required")
	}

	grant, err := d.Refresh.Validate(ctx, req.RefreshHandle)
	if errors.Is(err, guardiao.ErrInvalidRefresh) {
		d.record(guardiao.AuditEvent{Kind: guardiao.AuditRefreshRejected, IP: req.IP, UserAgent: req.UserAgent, Detail: "invalid_handle"})
		return nil, errors.NewResponse(errors.ErrInvalidGrant, "refresh token is expired or revoked")
	}
	if err != nil {
		return nil, d.serverError("validate refresh token", err)
	}

	// The account is re-checked on every refresh: a cryptographically valid
	// handle for a disabled account is still rejected.
	user, err := d.Accounts.FindByID(ctx, grant.SubjectID)
	if errors.Is(err, guardiao.ErrNotFound) {
		d.record(guardiao.AuditEvent{Kind: guardiao.AuditRefreshRejected, SubjectID: grant.SubjectID, IP: req.IP, UserAgent: req.UserAgent, Detail: "unknown_subject"})
		return nil, errors.NewResponse(errors.ErrInvalidGrant, "refresh token is expired or revoked")
	}
	if err != nil {
		return nil, d.serverError("load account", err)
	}
	if !user.Active {
		d.record(guardiao.AuditEvent{Kind: guardiao.AuditRefreshRejected, SubjectID: user.ID, IP: req.IP, UserAgent: req.UserAgent, Detail: "account_disabled"})
		return nil, errors.NewResponse(errors.ErrInvalidGrant, "account is disabled")
	}

	// Scopes are bound to the original grant; a narrower set may be requested
	// but never a superset.
	scopes := grant.Scopes
	if requested := normalizeScopes(req.Scope); len(requested) > 0 {
		scopes = intersectScopes(requested, grant.Scopes)
		if len(scopes) == 0 {
			return nil, errors.NewResponse(errors.ErrInvalidScope, "requested scopes exceed the original grant")
		}
	}

	cs, err := d.Assembler.Assemble(ctx, user, scopes)
	if err != nil {
		return nil, d.serverError("assemble claims", err)
	}
	withIdentity := containsScope(scopes, guardiao.ScopeOpenID)
	access, identity, err := d.Tokens.Token(ctx, cs, scopes, d.Options.AccessTTL, d.Options.IdentityTTL, withIdentity)
	if err != nil {
		return nil, d.serverError("sign tokens", err)
	}

	newHandle := ""
	if d.Options.RotateRefresh {
		newHandle, err = d.Refresh.Issue(ctx, user.ID, scopes, d.Options.RefreshTTL)
		if err != nil {
			return nil, d.serverError("rotate refresh token", err)
		}
		// The old handle dies only after the new one exists.
		if err := d.Refresh.Revoke(ctx, req.RefreshHandle); err != nil {
			return nil, d.serverError("revoke rotated refresh token", err)
		}
	}

	d.record(guardiao.AuditEvent{Kind: guardiao.AuditTokenRefreshed, SubjectID: user.ID, IP: req.IP, UserAgent: req.UserAgent})
	return &TokenResponse{
		AccessToken:   access,
		TokenType:     "Bearer",
		ExpiresIn:     int64(d.Options.AccessTTL.Seconds()),
		RefreshToken:  newHandle,
		IdentityToken: identity,
		Scope:         scopes,
	}, nil
}
