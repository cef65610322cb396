package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/guardiao-iam/guardiao/models"
)

// AuditStore persists audit rows. It backs the audit.Sink worker.
type AuditStore struct {
	DB *gorm.DB
}

func NewAuditStore(db *gorm.DB) *AuditStore { return &AuditStore{DB: db} }

func (s *AuditStore) WriteAuditEvent(ctx context.Context, e *models.AuditEvent) error {
	return s.DB.WithContext(ctx).Exec(`
		INSERT INTO audit_events(id, kind, subject_id, ip, user_agent, detail, created_at)
		VALUES(?,?,?,?,?,?,?)`,
		e.ID, e.Kind, e.SubjectID, e.IP, e.UserAgent, e.Detail, e.CreatedAt).Error
}

// ListBySubject returns the newest events for a subject, capped at limit.
func (s *AuditStore) ListBySubject(ctx context.Context, subjectID string, limit int) ([]models.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.AuditEvent
	err := s.DB.WithContext(ctx).Raw(`
		SELECT id, kind, subject_id, ip, user_agent, detail, created_at
		FROM audit_events WHERE subject_id = ?
		ORDER BY created_at DESC LIMIT ?`, subjectID, limit).Scan(&events).Error
	return events, err
}
