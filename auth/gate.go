// Package auth implements the credential gate: secret verification combined
// with the account lockout policy.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	guardiao "github.com/guardiao-iam/guardiao"
	"github.com/guardiao-iam/guardiao/lockout"
	"github.com/guardiao-iam/guardiao/models"
)

// Meta carries request metadata for audit records.
type Meta struct {
	IP        string
	UserAgent string
}

// Gate verifies presented secrets against stored credentials. Expected
// failures come back as tagged outcomes; only store breakage is an error.
type Gate struct {
	Accounts guardiao.AccountStore
	Policy   lockout.Policy
	Audit    guardiao.AuditSink

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewGate(accounts guardiao.AccountStore, policy lockout.Policy, audit guardiao.AuditSink) *Gate {
	return &Gate{Accounts: accounts, Policy: policy, Audit: audit, Now: time.Now}
}

// Authenticate runs the full credential check for one login attempt.
// Unknown login keys and wrong secrets both produce OutcomeInvalidCredential;
// the distinction survives only in the audit detail. Secret verification is
// deliberately slow (bcrypt); callers must treat this as a blocking call.
func (g *Gate) Authenticate(ctx context.Context, loginKey, secret string, meta Meta) (guardiao.Outcome, error) {
	now := g.now()

	user, err := g.Accounts.FindByLoginKey(ctx, models.NormalizeLoginKey(loginKey))
	if errors.Is(err, guardiao.ErrNotFound) {
		g.record(guardiao.AuditEvent{Kind: guardiao.AuditLoginFailed, Detail: "unknown_login", IP: meta.IP, UserAgent: meta.UserAgent, At: now})
		return guardiao.Outcome{Kind: guardiao.OutcomeInvalidCredential, RemainingAttempts: -1}, nil
	}
	if err != nil {
		return guardiao.Outcome{}, fmt.Errorf("lookup account: %w", err)
	}

	if !user.Active {
		g.record(guardiao.AuditEvent{Kind: guardiao.AuditLoginFailed, SubjectID: user.ID, Detail: "account_disabled", IP: meta.IP, UserAgent: meta.UserAgent, At: now})
		return guardiao.Outcome{Kind: guardiao.OutcomeAccountDisabled}, nil
	}

	// Locked accounts are rejected before the secret check: no wasted hash
	// computation and no timing signal during the window.
	if d := g.Policy.Evaluate(user.LockoutUntil, now); !d.Allowed {
		g.record(guardiao.AuditEvent{Kind: guardiao.AuditLoginFailed, SubjectID: user.ID, Detail: "locked", IP: meta.IP, UserAgent: meta.UserAgent, At: now})
		return guardiao.Outcome{Kind: guardiao.OutcomeAccountLocked, LockedFor: d.Remaining}, nil
	}

	if bcrypt.CompareHashAndPassword([]byte(user.SecretHash), []byte(secret)) != nil {
		return g.registerFailure(ctx, user, now, meta)
	}
	return g.registerSuccess(ctx, user, now, meta)
}

func (g *Gate) registerFailure(ctx context.Context, user *models.User, now time.Time, meta Meta) (guardiao.Outcome, error) {
	preCount := user.FailedAttemptCount
	locked := false
	_, err := g.Accounts.AtomicUpdate(ctx, user.ID, func(u *models.User) error {
		// An elapsed window from a previous lockout is cleared here, so the
		// new count starts a fresh window.
		if u.LockoutUntil != nil && !u.LockoutUntil.After(now) {
			u.LockoutUntil = nil
		}
		u.FailedAttemptCount++
		if g.Policy.Triggers(u.FailedAttemptCount) {
			until := now.Add(g.Policy.Window)
			u.LockoutUntil = &until
			u.FailedAttemptCount = 0
			locked = true
		}
		return nil
	})
	if err != nil {
		return guardiao.Outcome{}, fmt.Errorf("register failed attempt: %w", err)
	}

	g.record(guardiao.AuditEvent{Kind: guardiao.AuditLoginFailed, SubjectID: user.ID, Detail: "bad_secret", IP: meta.IP, UserAgent: meta.UserAgent, At: now})
	if locked {
		g.record(guardiao.AuditEvent{Kind: guardiao.AuditAccountLocked, SubjectID: user.ID, Detail: fmt.Sprintf("window=%s", g.Policy.Window), IP: meta.IP, UserAgent: meta.UserAgent, At: now})
	}

	// Remaining attempts are computed from the pre-read counter, not re-read
	// after the update, so concurrent failures cannot make the message jump.
	return guardiao.Outcome{
		Kind:              guardiao.OutcomeInvalidCredential,
		RemainingAttempts: g.Policy.RemainingAttempts(preCount + 1),
	}, nil
}

func (g *Gate) registerSuccess(ctx context.Context, user *models.User, now time.Time, meta Meta) (guardiao.Outcome, error) {
	updated, err := g.Accounts.AtomicUpdate(ctx, user.ID, func(u *models.User) error {
		u.FailedAttemptCount = 0
		u.LockoutUntil = nil
		t := now
		u.LastLoginAt = &t
		u.LoginCount++
		return nil
	})
	if err != nil {
		return guardiao.Outcome{}, fmt.Errorf("register successful login: %w", err)
	}
	g.record(guardiao.AuditEvent{Kind: guardiao.AuditLoginSucceeded, SubjectID: user.ID, IP: meta.IP, UserAgent: meta.UserAgent, At: now})
	return guardiao.Outcome{Kind: guardiao.OutcomeAuthenticated, User: updated}, nil
}

func (g *Gate) record(e guardiao.AuditEvent) {
	if g.Audit != nil {
		g.Audit.Record(e)
	}
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}
