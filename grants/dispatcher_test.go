package grants

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	guardiao "github.com/guardiao-iam/guardiao"
	"github.com/guardiao-iam/guardiao/auth"
	"github.com/guardiao-iam/guardiao/errors"
	"github.com/guardiao-iam/guardiao/generates"
	"github.com/guardiao-iam/guardiao/lockout"
	"github.com/guardiao-iam/guardiao/models"
	"github.com/guardiao-iam/guardiao/permission"
)

type memAccounts struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func (m *memAccounts) FindByLoginKey(_ context.Context, loginKey string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == loginKey {
			cp := *u
			return &cp, nil
		}
	}
	return nil, guardiao.ErrNotFound
}

func (m *memAccounts) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, guardiao.ErrNotFound
}

func (m *memAccounts) AtomicUpdate(_ context.Context, id string, mutate func(*models.User) error) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, guardiao.ErrNotFound
	}
	if err := mutate(u); err != nil {
		return nil, err
	}
	cp := *u
	return &cp, nil
}

type memClients struct{ clients map[string]*models.Client }

func (m *memClients) FindClient(_ context.Context, id string) (*models.Client, error) {
	if c, ok := m.clients[id]; ok {
		return c, nil
	}
	return nil, guardiao.ErrNotFound
}

type memRefresh struct {
	mu     sync.Mutex
	grants map[string]*guardiao.RefreshGrant
	seq    int
}

func newMemRefresh() *memRefresh { return &memRefresh{grants: make(map[string]*guardiao.RefreshGrant)} }

func (m *memRefresh) Issue(_ context.Context, subjectID string, scopes []string, _ time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	handle := strings.Repeat("h", 8) + string(rune('a'+m.seq))
	m.grants[handle] = &guardiao.RefreshGrant{SubjectID: subjectID, Scopes: scopes}
	return handle, nil
}

func (m *memRefresh) Validate(_ context.Context, handle string) (*guardiao.RefreshGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.grants[handle]; ok {
		return g, nil
	}
	return nil, guardiao.ErrInvalidRefresh
}

func (m *memRefresh) Revoke(_ context.Context, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.grants, handle)
	return nil
}

type stubRoles struct {
	roles []models.Role
	perms map[string][]models.Permission
}

func (s *stubRoles) ActiveRoleGrantsFor(context.Context, string) ([]models.Role, error) {
	return s.roles, nil
}

func (s *stubRoles) ActivePermissionsFor(_ context.Context, roleID string) ([]models.Permission, error) {
	return s.perms[roleID], nil
}

func (s *stubRoles) ActiveAppPermissionsFor(context.Context, string, string) ([]models.ApplicationPermission, error) {
	return nil, nil
}

func mustHash(t *testing.T, s string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(s), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(h)
}

func testDispatcher(t *testing.T) (*Dispatcher, *memAccounts, *memRefresh) {
	t.Helper()
	accounts := &memAccounts{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "alice@example.com", DisplayName: "Alice", SecretHash: mustHash(t, "s3cret"), Active: true, EmailVerified: true},
	}}
	clients := &memClients{clients: map[string]*models.Client{
		"svc-1": {ID: "svc-1", SecretHash: mustHash(t, "svc-secret"), DisplayName: "Billing Service", Active: true},
	}}
	roles := &stubRoles{
		roles: []models.Role{{ID: "r1", Name: "Operator", Active: true}},
		perms: map[string][]models.Permission{"r1": {{ID: "p1", Name: "X.Read"}}},
	}
	resolver := permission.NewResolver(roles)
	gen := generates.NewJWTGenerator("", []byte("test-signing-key"), jwt.SigningMethodHS256, "https://auth.test")
	refresh := newMemRefresh()
	d := &Dispatcher{
		Gate:      auth.NewGate(accounts, lockout.Policy{MaxAttempts: 5, Window: 15 * time.Minute}, nil),
		Accounts:  accounts,
		Clients:   clients,
		Assembler: generates.NewAssembler(resolver, "guardiao-api"),
		Tokens:    gen,
		Refresh:   refresh,
		Options:   DefaultOptions(),
	}
	return d, accounts, refresh
}

func wireError(t *testing.T, err error) *errors.Response {
	t.Helper()
	resp, ok := err.(*errors.Response)
	if !ok {
		t.Fatalf("expected *errors.Response, got %T: %v", err, err)
	}
	return resp
}

func TestIssueToken_UnsupportedGrantType(t *testing.T) {
	// Stores are nil on purpose: rejection must happen before any store access.
	d := &Dispatcher{Options: DefaultOptions()}
	_, err := d.IssueToken(context.Background(), &TokenRequest{GrantType: "authorization_code"})
	resp := wireError(t, err)
	if resp.Err != errors.ErrUnsupportedGrantType {
		t.Fatalf("expected unsupported_grant_type, got %v", resp.Err)
	}
}

func TestIssueToken_PasswordSuccess(t *testing.T) {
	d, _, refresh := testDispatcher(t)
	resp, err := d.IssueToken(context.Background(), &TokenRequest{
		GrantType: guardiao.PasswordCredentials,
		LoginKey:  "alice@example.com",
		Secret:    "s3cret",
		Scope:     []string{"openid", "profile"},
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if resp.AccessToken == "" || resp.IdentityToken == "" {
		t.Fatal("expected access and identity tokens")
	}
	if resp.RefreshToken == "" {
		t.Fatal("password grant must always yield a refresh token")
	}
	if !containsScope(resp.Scope, guardiao.ScopeOfflineAccess) {
		t.Errorf("offline_access should be auto-augmented, got %v", resp.Scope)
	}
	grant, err := refresh.Validate(context.Background(), resp.RefreshToken)
	if err != nil {
		t.Fatalf("issued refresh handle must be usable: %v", err)
	}
	if grant.SubjectID != "u1" {
		t.Errorf("refresh grant bound to %s, want u1", grant.SubjectID)
	}
}

func TestIssueToken_PasswordWithoutOpenID(t *testing.T) {
	d, _, _ := testDispatcher(t)
	resp, err := d.IssueToken(context.Background(), &TokenRequest{
		GrantType: guardiao.PasswordCredentials,
		LoginKey:  "alice@example.com",
		Secret:    "s3cret",
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if resp.IdentityToken != "" {
		t.Error("no identity token without the openid scope")
	}
}

func TestIssueToken_PasswordWrongSecret(t *testing.T) {
	d, _, _ := testDispatcher(t)
	_, err := d.IssueToken(context.Background(), &TokenRequest{
		GrantType: guardiao.PasswordCredentials,
		LoginKey:  "alice@example.com",
		Secret:    "wrong",
	})
	resp := wireError(t, err)
	if resp.Err != errors.ErrInvalidGrant {
		t.Fatalf("expected invalid_grant, got %v", resp.Err)
	}
	if !strings.Contains(resp.Description, "attempts remaining") {
		t.Errorf("description should carry remaining-attempts messaging: %q", resp.Description)
	}
}

func TestIssueToken_PasswordUnknownUserSameErrorCode(t *testing.T) {
	d, _, _ := testDispatcher(t)
	_, err := d.IssueToken(context.Background(), &TokenRequest{
		GrantType: guardiao.PasswordCredentials,
		LoginKey:  "nobody@example.com",
		Secret:    "whatever",
	})
	resp := wireError(t, err)
	if resp.Err != errors.ErrInvalidGrant {
		t.Fatalf("unknown user must map to invalid_grant, got %v", resp.Err)
	}
	if strings.Contains(resp.Description, "attempts") {
		t.Errorf("unknown user must not leak attempt accounting: %q", resp.Description)
	}
}

func TestIssueToken_PasswordLockedAccount(t *testing.T) {
	d, accounts, _ := testDispatcher(t)
	until := time.Now().Add(10 * time.Minute)
	accounts.users["u1"].LockoutUntil = &until

	_, err := d.IssueToken(context.Background(), &TokenRequest{
		GrantType: guardiao.PasswordCredentials,
		LoginKey:  "alice@example.com",
		Secret:    "s3cret",
	})
	resp := wireError(t, err)
	if resp.Err != errors.ErrInvalidGrant {
		t.Fatalf("expected invalid_grant, got %v", resp.Err)
	}
	if !strings.Contains(resp.Description, "locked") || !strings.Contains(resp.Description, "minutes") {
		t.Errorf("description should carry lockout-duration messaging: %q", resp.Description)
	}
}

func TestIssueToken_RefreshRotation(t *testing.T) {
	d, _, refresh := testDispatcher(t)
	ctx := context.Background()
	handle, err := refresh.Issue(ctx, "u1", []string{"openid", "offline_access"}, time.Hour)
	if err != nil {
		t.Fatalf("seed refresh: %v", err)
	}

	resp, err := d.IssueToken(ctx, &TokenRequest{GrantType: guardiao.Refreshing, RefreshHandle: handle})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("rotation should yield a new access and refresh token")
	}
	if resp.RefreshToken == handle {
		t.Error("rotated handle must differ from the old one")
	}
	if _, err := refresh.Validate(ctx, handle); err == nil {
		t.Error("old handle must be revoked after rotation")
	}
	if _, err := refresh.Validate(ctx, resp.RefreshToken); err != nil {
		t.Errorf("new handle must be valid: %v", err)
	}
}

func TestIssueToken_RefreshDisabledAccount(t *testing.T) {
	d, accounts, refresh := testDispatcher(t)
	ctx := context.Background()
	handle, err := refresh.Issue(ctx, "u1", []string{"openid", "offline_access"}, time.Hour)
	if err != nil {
		t.Fatalf("seed refresh: %v", err)
	}
	accounts.users["u1"].Active = false

	_, err = d.IssueToken(ctx, &TokenRequest{GrantType: guardiao.Refreshing, RefreshHandle: handle})
	resp := wireError(t, err)
	if resp.Err != errors.ErrInvalidGrant {
		t.Fatalf("valid handle for a disabled account must fail with invalid_grant, got %v", resp.Err)
	}
}

func TestIssueToken_RefreshScopeNarrowing(t *testing.T) {
	d, _, refresh := testDispatcher(t)
	ctx := context.Background()
	handle, err := refresh.Issue(ctx, "u1", []string{"openid", "profile", "offline_access"}, time.Hour)
	if err != nil {
		t.Fatalf("seed refresh: %v", err)
	}

	resp, err := d.IssueToken(ctx, &TokenRequest{
		GrantType:     guardiao.Refreshing,
		RefreshHandle: handle,
		Scope:         []string{"openid", "email"},
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	// email was not in the original grant; only the intersection survives.
	if len(resp.Scope) != 1 || resp.Scope[0] != "openid" {
		t.Errorf("expected intersection [openid], got %v", resp.Scope)
	}
}

func TestIssueToken_RefreshSupersetRejected(t *testing.T) {
	d, _, refresh := testDispatcher(t)
	ctx := context.Background()
	handle, err := refresh.Issue(ctx, "u1", []string{"offline_access"}, time.Hour)
	if err != nil {
		t.Fatalf("seed refresh: %v", err)
	}

	_, err = d.IssueToken(ctx, &TokenRequest{
		GrantType:     guardiao.Refreshing,
		RefreshHandle: handle,
		Scope:         []string{"roles"},
	})
	resp := wireError(t, err)
	if resp.Err != errors.ErrInvalidScope {
		t.Fatalf("requesting scopes outside the grant must fail with invalid_scope, got %v", resp.Err)
	}
}

func TestIssueToken_RefreshInvalidHandle(t *testing.T) {
	d, _, _ := testDispatcher(t)
	_, err := d.IssueToken(context.Background(), &TokenRequest{GrantType: guardiao.Refreshing, RefreshHandle: "bogus"})
	resp := wireError(t, err)
	if resp.Err != errors.ErrInvalidGrant {
		t.Fatalf("expected invalid_grant, got %v", resp.Err)
	}
}

func TestIssueToken_ClientCredentials(t *testing.T) {
	d, _, _ := testDispatcher(t)
	resp, err := d.IssueToken(context.Background(), &TokenRequest{
		GrantType:    guardiao.ClientCredentials,
		ClientID:     "svc-1",
		ClientSecret: "svc-secret",
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if resp.RefreshToken != "" || resp.IdentityToken != "" {
		t.Error("machine grants issue neither refresh nor identity tokens")
	}

	tok, err := jwt.Parse(resp.AccessToken, d.Tokens.VerificationKeyFunc())
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	claims := tok.Claims.(jwt.MapClaims)
	if claims["sub"] != "svc-1" || claims["name"] != "Billing Service" {
		t.Errorf("unexpected client claims: %v", claims)
	}
	if _, ok := claims["permissao"]; ok {
		t.Error("machine tokens must not carry permission claims")
	}
}

func TestIssueToken_ClientCredentialsBadSecret(t *testing.T) {
	d, _, _ := testDispatcher(t)
	for _, req := range []*TokenRequest{
		{GrantType: guardiao.ClientCredentials, ClientID: "svc-1", ClientSecret: "wrong"},
		{GrantType: guardiao.ClientCredentials, ClientID: "ghost", ClientSecret: "whatever"},
	} {
		_, err := d.IssueToken(context.Background(), req)
		resp := wireError(t, err)
		if resp.Err != errors.ErrInvalidClient {
			t.Fatalf("expected invalid_client, got %v", resp.Err)
		}
		if resp.Description != "invalid client credentials" {
			t.Errorf("unknown client and bad secret must read identically: %q", resp.Description)
		}
	}
}
