// Package server exposes the HTTP surface: the token endpoint, token
// validation, and the bearer/permission middleware used by protected routes.
package server

import (
	"time"

	guardiao "github.com/guardiao-iam/guardiao"
)

// Config holds the issuance parameters the server wires into the dispatcher.
type Config struct {
	TokenType         string
	Issuer            string
	Audience          string
	AllowedGrantTypes []guardiao.GrantType

	AccessTokenTTL   time.Duration
	IdentityTokenTTL time.Duration
	RefreshTokenTTL  time.Duration
	// RotateRefresh swaps the refresh handle on every refresh grant.
	RotateRefresh bool

	// SigningKeyID lands in the JWT kid header; SigningKey is the HMAC secret
	// or PEM-encoded private key depending on SigningMethod.
	SigningKeyID  string
	SigningKey    []byte
	SigningMethod string

	MaxFailedAttempts int
	LockoutWindow     time.Duration

	AuditBuffer int
}

// NewConfig returns the production defaults. Deployment config overrides the
// fields it cares about.
func NewConfig() *Config {
	return &Config{
		TokenType: "Bearer",
		Issuer:    "http://localhost",
		Audience:  "guardiao-api",
		AllowedGrantTypes: []guardiao.GrantType{
			guardiao.PasswordCredentials,
			guardiao.Refreshing,
			guardiao.ClientCredentials,
		},
		AccessTokenTTL:    2 * time.Hour,
		IdentityTokenTTL:  2 * time.Hour,
		RefreshTokenTTL:   30 * 24 * time.Hour,
		RotateRefresh:     true,
		SigningMethod:     "HS256",
		MaxFailedAttempts: guardiao.DefaultMaxAttempts,
		LockoutWindow:     guardiao.DefaultLockoutWindow,
		AuditBuffer:       1024,
	}
}
