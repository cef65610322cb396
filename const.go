package guardiao

import "time"

// GrantType authorization model
type GrantType string

// define authorization model
const (
	PasswordCredentials GrantType = "password"
	Refreshing          GrantType = "refresh_token"
	ClientCredentials   GrantType = "client_credentials"
)

func (gt GrantType) String() string {
	if gt == PasswordCredentials ||
		gt == Refreshing ||
		gt == ClientCredentials {
		return string(gt)
	}
	return ""
}

// Standard scope vocabulary. Scopes gate which claims are released into the
// identity token; they never widen the access token.
const (
	ScopeOpenID        = "openid"
	ScopeProfile       = "profile"
	ScopeEmail         = "email"
	ScopeRoles         = "roles"
	ScopeOfflineAccess = "offline_access"
)

// OutcomeKind tags the result of a credential verification.
type OutcomeKind int

const (
	OutcomeAuthenticated OutcomeKind = iota
	OutcomeInvalidCredential
	OutcomeAccountLocked
	OutcomeAccountDisabled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeInvalidCredential:
		return "invalid_credential"
	case OutcomeAccountLocked:
		return "account_locked"
	case OutcomeAccountDisabled:
		return "account_disabled"
	default:
		return "unknown"
	}
}

// Audit event kinds recorded on the security path.
const (
	AuditLoginSucceeded  = "login_succeeded"
	AuditLoginFailed     = "login_failed"
	AuditAccountLocked   = "account_locked"
	AuditTokenIssued     = "token_issued"
	AuditTokenRefreshed  = "token_refreshed"
	AuditRefreshRejected = "refresh_rejected"
)

// DefaultLockoutWindow is applied when configuration does not set one.
const DefaultLockoutWindow = 15 * time.Minute

// DefaultMaxAttempts is the failed-attempt threshold applied by default.
const DefaultMaxAttempts = 5
