package permission

import (
	"context"
	"reflect"
	"testing"

	"github.com/guardiao-iam/guardiao/models"
)

type fakeRoleReader struct {
	grants   map[string][]models.Role
	perms    map[string][]models.Permission
	appPerms map[string][]models.ApplicationPermission
}

func (f *fakeRoleReader) ActiveRoleGrantsFor(_ context.Context, userID string) ([]models.Role, error) {
	return f.grants[userID], nil
}

func (f *fakeRoleReader) ActivePermissionsFor(_ context.Context, roleID string) ([]models.Permission, error) {
	return f.perms[roleID], nil
}

func (f *fakeRoleReader) ActiveAppPermissionsFor(_ context.Context, roleID, appID string) ([]models.ApplicationPermission, error) {
	var out []models.ApplicationPermission
	for _, p := range f.appPerms[roleID] {
		if p.ApplicationID == appID {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestResolveGlobal_UnionIsDeduplicated(t *testing.T) {
	reader := &fakeRoleReader{
		grants: map[string][]models.Role{
			"u1": {{ID: "ra", Name: "RoleA", Active: true}, {ID: "rb", Name: "RoleB", Active: true}},
		},
		perms: map[string][]models.Permission{
			"ra": {{ID: "p1", Name: "X.Read"}},
			"rb": {{ID: "p1", Name: "X.Read"}, {ID: "p2", Name: "Y.Write"}},
		},
	}
	r := NewResolver(reader)
	set, err := r.ResolveGlobal(context.Background(), "u1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []string{"X.Read", "Y.Write"}
	if !reflect.DeepEqual(set.Names(), want) {
		t.Errorf("resolved %v, want %v", set.Names(), want)
	}
}

func TestResolveGlobal_Idempotent(t *testing.T) {
	reader := &fakeRoleReader{
		grants: map[string][]models.Role{"u1": {{ID: "ra", Name: "RoleA", Active: true}}},
		perms:  map[string][]models.Permission{"ra": {{ID: "p2", Name: "Y.Write"}, {ID: "p1", Name: "X.Read"}}},
	}
	r := NewResolver(reader)
	first, err := r.ResolveGlobal(context.Background(), "u1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := r.ResolveGlobal(context.Background(), "u1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !reflect.DeepEqual(first.Names(), second.Names()) {
		t.Errorf("resolution is not idempotent: %v vs %v", first.Names(), second.Names())
	}
}

func TestResolveGlobal_SuperRoleWildcard(t *testing.T) {
	reader := &fakeRoleReader{
		grants: map[string][]models.Role{
			"admin": {{ID: "ra", Name: "RoleA", Active: true}, {ID: "sr", Name: SuperAdminRole, Active: true}},
		},
		perms: map[string][]models.Permission{"ra": {{ID: "p1", Name: "X.Read"}}},
	}
	r := NewResolver(reader)
	set, err := r.ResolveGlobal(context.Background(), "admin")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !set.IsAll() {
		t.Fatal("super-role member must resolve to the wildcard regardless of explicit assignments")
	}
}

func TestResolveGlobal_NoRoles(t *testing.T) {
	r := NewResolver(&fakeRoleReader{grants: map[string][]models.Role{}})
	set, err := r.ResolveGlobal(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if set.IsAll() || set.Len() != 0 {
		t.Errorf("expected empty set, got %v", set.Names())
	}
}

func TestResolveForApplication(t *testing.T) {
	endpoint := "/v1/orders"
	method := "GET"
	reader := &fakeRoleReader{
		grants: map[string][]models.Role{
			"u1": {{ID: "ra", Name: "RoleA", Active: true}, {ID: "rb", Name: "RoleB", Active: true}},
		},
		appPerms: map[string][]models.ApplicationPermission{
			"ra": {{ID: "ap1", ApplicationID: "app1", Name: "Orders.Read", Endpoint: &endpoint, Method: &method}},
			"rb": {
				{ID: "ap1", ApplicationID: "app1", Name: "Orders.Read", Endpoint: &endpoint, Method: &method},
				{ID: "ap2", ApplicationID: "app2", Name: "Reports.Read"},
			},
		},
	}
	r := NewResolver(reader)
	res, err := r.ResolveForApplication(context.Background(), "u1", "app1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.All {
		t.Fatal("non-super user should get an enumerated result")
	}
	if len(res.Permissions) != 1 || res.Permissions[0].ID != "ap1" {
		t.Errorf("expected the single deduplicated app1 assignment, got %+v", res.Permissions)
	}
}

type countingCache struct {
	data map[string]Set
	hits int
}

func (c *countingCache) Get(_ context.Context, userID string) (Set, bool) {
	s, ok := c.data[userID]
	if ok {
		c.hits++
	}
	return s, ok
}

func (c *countingCache) Put(_ context.Context, userID string, s Set) { c.data[userID] = s }

func TestResolveGlobal_CacheReadThrough(t *testing.T) {
	reader := &fakeRoleReader{
		grants: map[string][]models.Role{"u1": {{ID: "ra", Name: "RoleA", Active: true}}},
		perms:  map[string][]models.Permission{"ra": {{ID: "p1", Name: "X.Read"}}},
	}
	cache := &countingCache{data: make(map[string]Set)}
	r := &Resolver{Roles: reader, Cache: cache}
	ctx := context.Background()
	if _, err := r.ResolveGlobal(ctx, "u1"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	set, err := r.ResolveGlobal(ctx, "u1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cache.hits != 1 {
		t.Errorf("expected second resolution to hit the cache, hits=%d", cache.hits)
	}
	if !set.Has("X.Read") {
		t.Errorf("cached set lost content: %v", set.Names())
	}
}
