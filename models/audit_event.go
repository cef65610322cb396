package models

import "time"

// AuditEvent is a persisted security event row. Writes are best-effort; the
// auth path never waits on them.
type AuditEvent struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	Kind      string    `gorm:"column:kind;index" json:"kind"`
	SubjectID *string   `gorm:"column:subject_id;index" json:"subject_id,omitempty"`
	IP        string    `gorm:"column:ip" json:"ip"`
	UserAgent string    `gorm:"column:user_agent" json:"user_agent"`
	Detail    string    `gorm:"column:detail" json:"detail"`
	CreatedAt time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (AuditEvent) TableName() string { return "audit_events" }
