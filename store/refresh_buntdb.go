package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/buntdb"

	guardiao "github.com/guardiao-iam/guardiao"
)

// newRefreshHandle produces an opaque, unguessable refresh handle. Handles
// carry no claims; everything lives server-side under the hashed key.
func newRefreshHandle() string {
	buf := bytes.NewBufferString(uuid.NewString())
	h := uuid.NewSHA1(uuid.Must(uuid.NewRandom()), buf.Bytes())
	return strings.ToUpper(strings.TrimRight(base64.URLEncoding.EncodeToString([]byte(h.String())), "="))
}

// handleKey hashes a handle so a leaked store dump cannot replay tokens.
func handleKey(handle string) string {
	sum := sha256.Sum256([]byte(handle))
	return "refresh:" + hex.EncodeToString(sum[:])
}

// BuntRefreshStore keeps refresh grants in buntdb with native TTL expiry.
// Pass ":memory:" for tests and single-node deployments without persistence.
type BuntRefreshStore struct {
	db *buntdb.DB
}

func NewBuntRefreshStore(path string) (*BuntRefreshStore, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	return &BuntRefreshStore{db: db}, nil
}

func (s *BuntRefreshStore) Issue(_ context.Context, subjectID string, scopes []string, ttl time.Duration) (string, error) {
	handle := newRefreshHandle()
	jv, err := json.Marshal(&guardiao.RefreshGrant{SubjectID: subjectID, Scopes: scopes})
	if err != nil {
		return "", err
	}
	err = s.db.Update(func(tx *buntdb.Tx) error {
		var opts *buntdb.SetOptions
		if ttl > 0 {
			opts = &buntdb.SetOptions{Expires: true, TTL: ttl}
		}
		_, _, err := tx.Set(handleKey(handle), string(jv), opts)
		return err
	})
	if err != nil {
		return "", err
	}
	return handle, nil
}

func (s *BuntRefreshStore) Validate(_ context.Context, handle string) (*guardiao.RefreshGrant, error) {
	var raw string
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(handleKey(handle))
		if err != nil {
			return err
		}
		raw = v
		return nil
	})
	if err == buntdb.ErrNotFound {
		return nil, guardiao.ErrInvalidRefresh
	}
	if err != nil {
		return nil, err
	}
	var grant guardiao.RefreshGrant
	if err := json.Unmarshal([]byte(raw), &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

func (s *BuntRefreshStore) Revoke(_ context.Context, handle string) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(handleKey(handle))
		return err
	})
	// Revoking an already-dead handle is not an error.
	if err == buntdb.ErrNotFound {
		return nil
	}
	return err
}

func (s *BuntRefreshStore) Close() error { return s.db.Close() }
