package models

import (
	"strings"
	"time"
)

// User represents an account that can authenticate. Accounts are never
// deleted, only deactivated via Active.
type User struct {
	ID                 string     `gorm:"column:id;primaryKey" json:"id"`
	Email              string     `gorm:"column:email;uniqueIndex" json:"email"`
	DisplayName        string     `gorm:"column:display_name" json:"display_name"`
	SecretHash         string     `gorm:"column:secret_hash" json:"-"`
	Active             bool       `gorm:"column:active" json:"active"`
	EmailVerified      bool       `gorm:"column:email_verified" json:"email_verified"`
	FailedAttemptCount int        `gorm:"column:failed_attempt_count" json:"-"`
	LockoutUntil       *time.Time `gorm:"column:lockout_until" json:"-"`
	LastLoginAt        *time.Time `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	LoginCount         int        `gorm:"column:login_count" json:"login_count"`
	Timezone           string     `gorm:"column:timezone" json:"timezone"`
	// UpdateSeq is the optimistic concurrency token; bumped on every
	// counter/lockout mutation so concurrent attempts never under-count.
	UpdateSeq int64     `gorm:"column:update_seq" json:"-"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (User) TableName() string { return "users" }

// NormalizeLoginKey lowercases and trims an email so lookups are
// case-insensitive regardless of how the client typed it.
func NormalizeLoginKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
