package grants

import (
	"context"
	"fmt"
	"math"

	guardiao "github.com/guardiao-iam/guardiao"
	"github.com/guardiao-iam/guardiao/auth"
	"github.com/guardiao-iam/guardiao/errors"
)

func (d *Dispatcher) password(ctx context.Context, req *TokenRequest) (*TokenResponse, error) {
	if req.LoginKey == "" || req.Secret == "" {
		return nil, errors.NewResponse(errors.ErrInvalidRequest, "username and password are required")
	}

	outcome, err := d.Gate.Authenticate(ctx, req.LoginKey, req.Secret, auth.Meta{IP: req.IP, UserAgent: req.UserAgent})
	if err != nil {
		return nil, d.serverError("password grant", err)
	}

	switch outcome.Kind {
	case guardiao.OutcomeAuthenticated:
		// fall through to issuance
	case guardiao.OutcomeInvalidCredential:
		desc := "invalid username or password"
		if outcome.RemainingAttempts >= 0 {
			desc = fmt.Sprintf("invalid username or password (%d attempts remaining)", outcome.RemainingAttempts)
		}
		return nil, errors.NewResponse(errors.ErrInvalidGrant, desc)
	case guardiao.OutcomeAccountLocked:
		minutes := int(math.Ceil(outcome.LockedFor.Minutes()))
		if minutes < 1 {
			minutes = 1
		}
		return nil, errors.NewResponse(errors.ErrInvalidGrant, fmt.Sprintf("account is locked, try again in %d minutes", minutes))
	case guardiao.OutcomeAccountDisabled:
		return nil, errors.NewResponse(errors.ErrInvalidGrant, "account is disabled")
	default:
		return nil, errors.NewResponse(errors.ErrServerError, "")
	}

	user := outcome.User
	scopes := normalizeScopes(req.Scope)
	// A refresh token must always be issuable from a password grant.
	if !containsScope(scopes, guardiao.ScopeOfflineAccess) {
		scopes = append(scopes, guardiao.ScopeOfflineAccess)
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
	refresh, err := d.Refresh.Issue(ctx, user.ID, scopes, d.Options.RefreshTTL)
	if err != nil {
		return nil, d.serverError("issue refresh token", err)
	}

	d.record(guardiao.AuditEvent{Kind: guardiao.AuditTokenIssued, SubjectID: user.ID, IP: req.IP, UserAgent: req.UserAgent, Detail: "password"})
	return &TokenResponse{
		AccessToken:   access,
		TokenType:     "Bearer",
		ExpiresIn:     int64(d.Options.AccessTTL.Seconds()),
		RefreshToken:  refresh,
		IdentityToken: identity,
		Scope:         scopes,
	}, nil
}
