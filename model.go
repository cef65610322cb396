package guardiao

import (
	"context"
	"errors"
	"time"

	"github.com/guardiao-iam/guardiao/models"
)

// Sentinel errors returned by store collaborators.
var (
	ErrNotFound       = errors.New("record not found")
	ErrInvalidRefresh = errors.New("invalid refresh token")
)

// Outcome is the tagged result of a credential verification. Expected
// authentication failures are outcomes, not Go errors.
type Outcome struct {
	Kind OutcomeKind
	// User is set only when Kind is OutcomeAuthenticated.
	User *models.User
	// RemainingAttempts is meaningful for OutcomeInvalidCredential against a
	// known account; -1 means not applicable. Messaging only, never used for
	// the authorization decision.
	RemainingAttempts int
	// LockedFor is how long the account stays locked, set for OutcomeAccountLocked.
	LockedFor time.Duration
}

// AccountStore owns User rows and their mutable counters.
type AccountStore interface {
	FindByLoginKey(ctx context.Context, loginKey string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	// AtomicUpdate applies mutate under per-user serialization (optimistic
	// concurrency at the storage layer) and returns the updated row.
	AtomicUpdate(ctx context.Context, id string, mutate func(*models.User) error) (*models.User, error)
}

// RoleReader exposes the read-only role/permission graph. Every hop filters
// on its own active flag; expired grants are excluded.
type RoleReader interface {
	ActiveRoleGrantsFor(ctx context.Context, userID string) ([]models.Role, error)
	ActivePermissionsFor(ctx context.Context, roleID string) ([]models.Permission, error)
	ActiveAppPermissionsFor(ctx context.Context, roleID, applicationID string) ([]models.ApplicationPermission, error)
}

// ClientStore resolves registered OAuth clients for the client_credentials grant.
type ClientStore interface {
	FindClient(ctx context.Context, clientID string) (*models.Client, error)
}

// RefreshGrant is the context bound to an issued refresh handle.
type RefreshGrant struct {
	SubjectID string   `json:"subject_id"`
	Scopes    []string `json:"scopes"`
}

// RefreshTokenStore persists opaque refresh handles. Validate returns
// ErrInvalidRefresh for unknown, expired or revoked handles.
type RefreshTokenStore interface {
	Issue(ctx context.Context, subjectID string, scopes []string, ttl time.Duration) (string, error)
	Validate(ctx context.Context, handle string) (*RefreshGrant, error)
	Revoke(ctx context.Context, handle string) error
}

// AuditEvent is a single security-relevant occurrence.
type AuditEvent struct {
	Kind      string
	SubjectID string
	IP        string
	UserAgent string
	Detail    string
	At        time.Time
}

// AuditSink records security events. Implementations must be fire-and-forget:
// Record never blocks the caller meaningfully and never propagates failures.
type AuditSink interface {
	Record(event AuditEvent)
}
