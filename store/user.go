// Package store holds the persistence layer: gorm-backed row stores over
// PostgreSQL plus buntdb/valkey-backed refresh-handle stores.
package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	guardiao "github.com/guardiao-iam/guardiao"
	"github.com/guardiao-iam/guardiao/models"
)

// atomicUpdateRetries bounds the optimistic-concurrency retry loop.
const atomicUpdateRetries = 5

// UserStore provides operations for user accounts.
type UserStore struct {
	DB *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore { return &UserStore{DB: db} }

const userColumns = `id, email, display_name, secret_hash, active, email_verified,
	failed_attempt_count, lockout_until, last_login_at, login_count, timezone, update_seq, created_at`

// FindByLoginKey looks a user up by normalized email.
func (s *UserStore) FindByLoginKey(ctx context.Context, loginKey string) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Raw(`SELECT `+userColumns+` FROM users WHERE email = ?`,
		models.NormalizeLoginKey(loginKey)).Scan(&u).Error
	if err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, guardiao.ErrNotFound
	}
	return &u, nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Raw(`SELECT `+userColumns+` FROM users WHERE id = ?`, id).Scan(&u).Error
	if err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, guardiao.ErrNotFound
	}
	return &u, nil
}

// AtomicUpdate applies mutate under optimistic concurrency: the UPDATE only
// lands when update_seq still matches the value read, so two concurrent
// failed-attempt increments can never collapse into one. Lost races reload
// and retry.
func (s *UserStore) AtomicUpdate(ctx context.Context, id string, mutate func(*models.User) error) (*models.User, error) {
	for i := 0; i < atomicUpdateRetries; i++ {
		u, err := s.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		seq := u.UpdateSeq
		if err := mutate(u); err != nil {
			return nil, err
		}
		res := s.DB.WithContext(ctx).Exec(`
			UPDATE users SET
				email = ?, display_name = ?, secret_hash = ?, active = ?, email_verified = ?,
				failed_attempt_count = ?, lockout_until = ?, last_login_at = ?, login_count = ?,
				timezone = ?, update_seq = update_seq + 1
			WHERE id = ? AND update_seq = ?`,
			u.Email, u.DisplayName, u.SecretHash, u.Active, u.EmailVerified,
			u.FailedAttemptCount, u.LockoutUntil, u.LastLoginAt, u.LoginCount,
			u.Timezone, id, seq)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			u.UpdateSeq = seq + 1
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %s: update contention not resolved after %d attempts", id, atomicUpdateRetries)
}

// Create inserts a new user row. Used by seeding and account provisioning.
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = models.NewID()
	}
	u.Email = models.NormalizeLoginKey(u.Email)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	return s.DB.WithContext(ctx).Exec(`
		INSERT INTO users(id, email, display_name, secret_hash, active, email_verified,
			failed_attempt_count, lockout_until, last_login_at, login_count, timezone, update_seq, created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,0,?)`,
		u.ID, u.Email, u.DisplayName, u.SecretHash, u.Active, u.EmailVerified,
		u.FailedAttemptCount, u.LockoutUntil, u.LastLoginAt, u.LoginCount, u.Timezone, u.CreatedAt).Error
}

// SetActive flips the account's active flag through the same optimistic path
// as the counters so the toggle never clobbers a concurrent lockout write.
func (s *UserStore) SetActive(ctx context.Context, id string, active bool) error {
	_, err := s.AtomicUpdate(ctx, id, func(u *models.User) error {
		u.Active = active
		return nil
	})
	return err
}
