package models

import "fmt"

// Permission is a global capability descriptor. Name follows the
// "Resource.Action" convention; (Resource, Action) and Name are each unique
// among active permissions.
type Permission struct {
	ID       string `gorm:"column:id;primaryKey" json:"id"`
	Name     string `gorm:"column:name;uniqueIndex" json:"name"`
	Resource string `gorm:"column:resource" json:"resource"`
	Action   string `gorm:"column:action" json:"action"`
	Active   bool   `gorm:"column:active" json:"active"`
}

func (Permission) TableName() string { return "permissions" }

// PermissionName builds the canonical "Resource.Action" name.
func PermissionName(resource, action string) string {
	return fmt.Sprintf("%s.%s", resource, action)
}

// ApplicationType discriminates which ApplicationPermission fields apply.
type ApplicationType string

const (
	AppTypeWebAPI  ApplicationType = "WEB_API"
	AppTypeDesktop ApplicationType = "DESKTOP"
	AppTypeMobile  ApplicationType = "MOBILE"
	AppTypeCLI     ApplicationType = "CLI"
	AppTypeData    ApplicationType = "DATA"
)

// Application is a registered consumer of application-scoped permissions.
type Application struct {
	ID     string          `gorm:"column:id;primaryKey" json:"id"`
	Name   string          `gorm:"column:name;uniqueIndex" json:"name"`
	Type   ApplicationType `gorm:"column:app_type" json:"type"`
	Active bool            `gorm:"column:active" json:"active"`
}

func (Application) TableName() string { return "applications" }

// ApplicationPermission scopes a permission to one application, carrying the
// discriminators relevant to the owning application's type. Discriminator
// validity is enforced at creation, not re-checked at resolution time.
type ApplicationPermission struct {
	ID            string  `gorm:"column:id;primaryKey" json:"id"`
	ApplicationID string  `gorm:"column:application_id;index" json:"application_id"`
	Name          string  `gorm:"column:name" json:"name"`
	Resource      string  `gorm:"column:resource" json:"resource"`
	Action        string  `gorm:"column:action" json:"action"`
	Endpoint      *string `gorm:"column:endpoint" json:"endpoint,omitempty"`
	Method        *string `gorm:"column:method" json:"method,omitempty"`
	Module        *string `gorm:"column:module" json:"module,omitempty"`
	Screen        *string `gorm:"column:screen" json:"screen,omitempty"`
	Command       *string `gorm:"column:command" json:"command,omitempty"`
	Schema        *string `gorm:"column:db_schema" json:"schema,omitempty"`
	Table         *string `gorm:"column:db_table" json:"table,omitempty"`
	Operation     *string `gorm:"column:db_operation" json:"operation,omitempty"`
	Active        bool    `gorm:"column:active" json:"active"`
}

func (ApplicationPermission) TableName() string { return "application_permissions" }
