package grants

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	guardiao "github.com/guardiao-iam/guardiao"
	"github.com/guardiao-iam/guardiao/errors"
)

func (d *Dispatcher) clientCredentials(ctx context.Context, req *TokenRequest) (*TokenResponse, error) {
	if req.ClientID == "" || req.ClientSecret == "" {
		return nil, errors.NewResponse(errors.ErrInvalidRequest, "client_id and client_secret are required")
	}

	client, err := d.Clients.FindClient(ctx, req.ClientID)
	if errors.Is(err, guardiao.ErrNotFound) {
		return nil, errors.NewResponse(errors.ErrInvalidClient, "invalid client credentials")
	}
	if err != nil {
		return nil, d.serverError("load client", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(req.ClientSecret)) != nil {
		return nil, errors.NewResponse(errors.ErrInvalidClient, "invalid client credentials")
	}
	if !client.Active {
		return nil, errors.NewResponse(errors.ErrInvalidClient, "client is disabled")
	}

	// Machine identity: subject is the client itself, no user permissions, no
	// identity token, no refresh token.
	cs := d.Assembler.AssembleClient(client)
	access, _, err := d.Tokens.Token(ctx, cs, nil, d.Options.AccessTTL, d.Options.IdentityTTL, false)
	if err != nil {
		return nil, d.serverError("sign token", err)
	}

	d.record(guardiao.AuditEvent{Kind: guardiao.AuditTokenIssued, SubjectID: client.ID, IP: req.IP, UserAgent: req.UserAgent, Detail: "client_credentials"})
	return &TokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(d.Options.AccessTTL.Seconds()),
	}, nil
}
