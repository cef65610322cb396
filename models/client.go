package models

import "time"

// Client is a registered machine caller for the client_credentials grant.
// Machine tokens never inherit user permissions.
type Client struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	SecretHash  string    `gorm:"column:secret_hash" json:"-"`
	DisplayName string    `gorm:"column:display_name" json:"display_name"`
	Active      bool      `gorm:"column:active" json:"active"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Client) TableName() string { return "clients" }
