package permission

import (
	"context"
	"fmt"
	"sort"

	guardiao "github.com/guardiao-iam/guardiao"
	"github.com/guardiao-iam/guardiao/models"
)

// Cache is an optional read-through cache for resolved global sets. The
// resolver is correct with a nil cache; every call recomputes.
type Cache interface {
	Get(ctx context.Context, userID string) (Set, bool)
	Put(ctx context.Context, userID string, s Set)
}

// Resolver walks User -> RoleGrant -> Role -> Permission and produces
// effective permission sets. All reads go through RoleReader, which filters
// on the active flag at every hop and excludes expired grants.
type Resolver struct {
	Roles guardiao.RoleReader
	Cache Cache
}

func NewResolver(roles guardiao.RoleReader) *Resolver { return &Resolver{Roles: roles} }

// ResolveGlobal computes the deduplicated union of global permission names
// reachable from the user's effective role memberships. Membership in the
// super role short-circuits to the wildcard set.
func (r *Resolver) ResolveGlobal(ctx context.Context, userID string) (Set, error) {
	if r.Cache != nil {
		if s, ok := r.Cache.Get(ctx, userID); ok {
			return s, nil
		}
	}
	roles, err := r.Roles.ActiveRoleGrantsFor(ctx, userID)
	if err != nil {
		return Set{}, fmt.Errorf("load role grants: %w", err)
	}
	for _, role := range roles {
		if role.Name == SuperAdminRole {
			s := All()
			r.put(ctx, userID, s)
			return s, nil
		}
	}
	set := NewSet()
	for _, role := range roles {
		perms, err := r.Roles.ActivePermissionsFor(ctx, role.ID)
		if err != nil {
			return Set{}, fmt.Errorf("load permissions for role %s: %w", role.ID, err)
		}
		for _, p := range perms {
			set = set.add(p.Name)
		}
	}
	r.put(ctx, userID, set)
	return set, nil
}

// AppResult is the application-scoped resolution outcome: the wildcard for
// super-role members, an enumerated assignment list otherwise.
type AppResult struct {
	All         bool
	Permissions []models.ApplicationPermission
}

// ResolveForApplication computes the user's permission assignments scoped to
// one application, deduplicated by assignment ID and sorted by name.
func (r *Resolver) ResolveForApplication(ctx context.Context, userID, applicationID string) (AppResult, error) {
	roles, err := r.Roles.ActiveRoleGrantsFor(ctx, userID)
	if err != nil {
		return AppResult{}, fmt.Errorf("load role grants: %w", err)
	}
	for _, role := range roles {
		if role.Name == SuperAdminRole {
			return AppResult{All: true}, nil
		}
	}
	seen := make(map[string]struct{})
	var out []models.ApplicationPermission
	for _, role := range roles {
		perms, err := r.Roles.ActiveAppPermissionsFor(ctx, role.ID, applicationID)
		if err != nil {
			return AppResult{}, fmt.Errorf("load app permissions for role %s: %w", role.ID, err)
		}
		for _, p := range perms {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return AppResult{Permissions: out}, nil
}

// RoleNames returns the sorted names of the user's effective roles.
func (r *Resolver) RoleNames(ctx context.Context, userID string) ([]string, error) {
	roles, err := r.Roles.ActiveRoleGrantsFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load role grants: %w", err)
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *Resolver) put(ctx context.Context, userID string, s Set) {
	if r.Cache != nil {
		r.Cache.Put(ctx, userID, s)
	}
}
