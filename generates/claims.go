// Package generates assembles claim sets and signs tokens.
package generates

import (
	"context"
	"fmt"

	guardiao "github.com/guardiao-iam/guardiao"
	"github.com/guardiao-iam/guardiao/models"
	"github.com/guardiao-iam/guardiao/permission"
)

// Destination is a bitmask of token types a claim is copied into.
type Destination uint8

const (
	DestAccessToken Destination = 1 << iota
	DestIdentityToken
)

// Claim is one key/value fact plus where it goes.
type Claim struct {
	Key          string
	Value        interface{}
	Destinations Destination
}

// ClaimSet is the ordered claim list produced for one token request.
type ClaimSet struct {
	Claims []Claim
}

// ForDestination returns the claims bound for one token type, in order.
func (cs *ClaimSet) ForDestination(d Destination) map[string]interface{} {
	out := make(map[string]interface{})
	for _, c := range cs.Claims {
		if c.Destinations&d != 0 {
			out[c.Key] = c.Value
		}
	}
	return out
}

// Get returns a claim value by key, or nil.
func (cs *ClaimSet) Get(key string) interface{} {
	for _, c := range cs.Claims {
		if c.Key == key {
			return c.Value
		}
	}
	return nil
}

// Claim keys. "permissao" is the historical wire name of the permission claim
// and must stay bit-exact for deployed resource servers.
const (
	ClaimSubject           = "sub"
	ClaimName              = "name"
	ClaimPreferredUsername = "preferred_username"
	ClaimEmail             = "email"
	ClaimEmailVerified     = "email_verified"
	ClaimZoneinfo          = "zoneinfo"
	ClaimRole              = "role"
	ClaimPermission        = "permissao"
	ClaimAudience          = "aud"
)

// destinationRule is one row of the static claim-destination table: where the
// claim always goes, and which scope adds which extra destination.
type destinationRule struct {
	always     Destination
	gatedScope string
	gated      Destination
}

// The partition exists because identity tokens are consumed client-side while
// access tokens go to resource servers; permission claims never enter the
// identity token.
var destinationRules = map[string]destinationRule{
	ClaimSubject:           {always: DestAccessToken | DestIdentityToken},
	ClaimAudience:          {always: DestAccessToken | DestIdentityToken},
	ClaimName:              {always: DestAccessToken, gatedScope: guardiao.ScopeProfile, gated: DestIdentityToken},
	ClaimPreferredUsername: {always: DestAccessToken, gatedScope: guardiao.ScopeProfile, gated: DestIdentityToken},
	ClaimZoneinfo:          {always: DestAccessToken, gatedScope: guardiao.ScopeProfile, gated: DestIdentityToken},
	ClaimEmail:             {always: DestAccessToken, gatedScope: guardiao.ScopeEmail, gated: DestIdentityToken},
	ClaimEmailVerified:     {always: DestAccessToken, gatedScope: guardiao.ScopeEmail, gated: DestIdentityToken},
	ClaimRole:              {always: DestAccessToken, gatedScope: guardiao.ScopeRoles, gated: DestIdentityToken},
	ClaimPermission:        {always: DestAccessToken},
}

// Assembler turns an authenticated identity plus its resolved permissions
// into a claim set partitioned by destination.
type Assembler struct {
	Resolver *permission.Resolver
	// Audience is the fixed resource-server identifier.
	Audience string
}

func NewAssembler(resolver *permission.Resolver, audience string) *Assembler {
	return &Assembler{Resolver: resolver, Audience: audience}
}

// Assemble builds the claim set for a user grant. grantedScopes controls only
// identity-token membership; the access token always carries the full set.
func (a *Assembler) Assemble(ctx context.Context, user *models.User, grantedScopes []string) (*ClaimSet, error) {
	perms, err := a.Resolver.ResolveGlobal(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions: %w", err)
	}
	roles, err := a.Resolver.RoleNames(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}

	cs := &ClaimSet{}
	scopes := scopeSet(grantedScopes)
	add := func(key string, value interface{}) {
		rule := destinationRules[key]
		dest := rule.always
		if rule.gatedScope != "" {
			if _, ok := scopes[rule.gatedScope]; ok {
				dest |= rule.gated
			}
		}
		cs.Claims = append(cs.Claims, Claim{Key: key, Value: value, Destinations: dest})
	}

	add(ClaimSubject, user.ID)
	if user.DisplayName != "" {
		add(ClaimName, user.DisplayName)
	}
	add(ClaimPreferredUsername, user.Email)
	add(ClaimEmail, user.Email)
	add(ClaimEmailVerified, user.EmailVerified)
	if user.Timezone != "" {
		add(ClaimZoneinfo, user.Timezone)
	}
	add(ClaimRole, roles)
	add(ClaimPermission, perms.Names())
	add(ClaimAudience, a.Audience)
	return cs, nil
}

// AssembleClient builds the reduced claim set for a client_credentials grant:
// subject and display name only, no permission claims.
func (a *Assembler) AssembleClient(client *models.Client) *ClaimSet {
	return &ClaimSet{Claims: []Claim{
		{Key: ClaimSubject, Value: client.ID, Destinations: DestAccessToken},
		{Key: ClaimName, Value: client.DisplayName, Destinations: DestAccessToken},
		{Key: ClaimAudience, Value: a.Audience, Destinations: DestAccessToken},
	}}
}

func scopeSet(scopes []string) map[string]struct{} {
	m := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		m[s] = struct{}{}
	}
	return m
}
