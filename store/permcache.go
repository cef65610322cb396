package store

import (
	"context"
	"encoding/json"
	"time"

	valkey "github.com/valkey-io/valkey-go"

	"github.com/guardiao-iam/guardiao/permission"
)

// ValkeyPermissionCache is a short-TTL read-through cache for resolved global
// permission sets. Resolution stays correct without it; it only shaves the
// role-graph walk off hot token paths.
type ValkeyPermissionCache struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

func NewValkeyPermissionCache(client valkey.Client, prefix string, ttl time.Duration) *ValkeyPermissionCache {
	if prefix == "" {
		prefix = "guardiao:"
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ValkeyPermissionCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *ValkeyPermissionCache) key(userID string) string { return c.prefix + "perms:" + userID }

func (c *ValkeyPermissionCache) Get(ctx context.Context, userID string) (permission.Set, bool) {
	res := c.client.Do(ctx, c.client.B().Get().Key(c.key(userID)).Build())
	if res.Error() != nil {
		return permission.Set{}, false
	}
	raw, err := res.ToString()
	if err != nil || raw == "" {
		return permission.Set{}, false
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return permission.Set{}, false
	}
	return permission.SetFromNames(names), true
}

func (c *ValkeyPermissionCache) Put(ctx context.Context, userID string, s permission.Set) {
	jv, err := json.Marshal(s.Names())
	if err != nil {
		return
	}
	// Best effort; a failed Put just means the next Get recomputes.
	_ = c.client.Do(ctx, c.client.B().Set().Key(c.key(userID)).Value(string(jv)).Ex(c.ttl).Build()).Error()
}

// Invalidate drops a cached set after a role or permission mutation.
func (c *ValkeyPermissionCache) Invalidate(ctx context.Context, userID string) {
	_ = c.client.Do(ctx, c.client.B().Del().Key(c.key(userID)).Build()).Error()
}
