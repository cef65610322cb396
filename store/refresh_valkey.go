package store

import (
	"context"
	"encoding/json"
	"time"

	valkey "github.com/valkey-io/valkey-go"

	guardiao "github.com/guardiao-iam/guardiao"
)

// ValkeyRefreshStore keeps refresh grants in Valkey (Redis-compatible) so
// multiple service instances share one revocation view. Keys are hashed
// handles; TTL is enforced server-side via EX.
type ValkeyRefreshStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyRefreshStore connects to addr ("127.0.0.1:6379"). The prefix
// namespaces keys when the instance is shared.
func NewValkeyRefreshStore(addr, prefix string) (*ValkeyRefreshStore, error) {
	cli, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "guardiao:"
	}
	return &ValkeyRefreshStore{client: cli, prefix: prefix}, nil
}

func (s *ValkeyRefreshStore) key(handle string) string { return s.prefix + handleKey(handle) }

func (s *ValkeyRefreshStore) Issue(ctx context.Context, subjectID string, scopes []string, ttl time.Duration) (string, error) {
	handle := newRefreshHandle()
	jv, err := json.Marshal(&guardiao.RefreshGrant{SubjectID: subjectID, Scopes: scopes})
	if err != nil {
		return "", err
	}
	cmd := s.client.B().Set().Key(s.key(handle)).Value(string(jv)).Ex(ttl).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return "", err
	}
	return handle, nil
}

func (s *ValkeyRefreshStore) Validate(ctx context.Context, handle string) (*guardiao.RefreshGrant, error) {
	res := s.client.Do(ctx, s.client.B().Get().Key(s.key(handle)).Build())
	if err := res.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, guardiao.ErrInvalidRefresh
		}
		return nil, err
	}
	raw, err := res.ToString()
	if err != nil {
		return nil, err
	}
	var grant guardiao.RefreshGrant
	if err := json.Unmarshal([]byte(raw), &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

func (s *ValkeyRefreshStore) Revoke(ctx context.Context, handle string) error {
	return s.client.Do(ctx, s.client.B().Del().Key(s.key(handle)).Build()).Error()
}

func (s *ValkeyRefreshStore) Close() { s.client.Close() }

// Client exposes the underlying connection so it can be shared with the
// permission cache.
func (s *ValkeyRefreshStore) Client() valkey.Client { return s.client }
