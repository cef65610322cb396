package models

import "time"

// Role groups permission assignments. Level is a display rank only, it is not
// enforced as a hierarchy.
type Role struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;uniqueIndex" json:"name"`
	Active    bool      `gorm:"column:active" json:"active"`
	Level     int       `gorm:"column:level" json:"level"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Role) TableName() string { return "roles" }

// RoleGrant links a user to a role. Only active grants with no expiration or
// a future expiration count toward effective membership.
type RoleGrant struct {
	ID         string     `gorm:"column:id;primaryKey"`
	UserID     string     `gorm:"column:user_id;index"`
	RoleID     string     `gorm:"column:role_id;index"`
	Active     bool       `gorm:"column:active"`
	AssignedAt time.Time  `gorm:"column:assigned_at"`
	ExpiresAt  *time.Time `gorm:"column:expires_at"`
}

func (RoleGrant) TableName() string { return "role_grants" }

// RolePermission attaches a global permission to a role. Active is a soft
// revoke: detaching never deletes the permission itself.
type RolePermission struct {
	ID           string `gorm:"column:id;primaryKey"`
	RoleID       string `gorm:"column:role_id;index"`
	PermissionID string `gorm:"column:permission_id;index"`
	Active       bool   `gorm:"column:active"`
}

func (RolePermission) TableName() string { return "role_permissions" }

// RoleApplicationPermission attaches an application-scoped permission to a role.
type RoleApplicationPermission struct {
	ID                      string `gorm:"column:id;primaryKey"`
	RoleID                  string `gorm:"column:role_id;index"`
	ApplicationPermissionID string `gorm:"column:application_permission_id;index"`
	Active                  bool   `gorm:"column:active"`
}

func (RoleApplicationPermission) TableName() string { return "role_application_permissions" }
