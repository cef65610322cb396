package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/guardiao-iam/guardiao/models"
)

// RoleStore reads the role/permission graph and carries the write helpers
// used by seeding and administration. Every read filters on the active flag
// at every hop; expired grants never count.
type RoleStore struct {
	DB *gorm.DB
}

func NewRoleStore(db *gorm.DB) *RoleStore { return &RoleStore{DB: db} }

// ActiveRoleGrantsFor returns the user's effective roles: active grant,
// active role, grant not expired.
func (s *RoleStore) ActiveRoleGrantsFor(ctx context.Context, userID string) ([]models.Role, error) {
	var roles []models.Role
	err := s.DB.WithContext(ctx).Raw(`
		SELECT r.id, r.name, r.active, r.level, r.created_at
		FROM roles r
		JOIN role_grants rg ON rg.role_id = r.id
		WHERE rg.user_id = ? AND rg.active = TRUE AND r.active = TRUE
		  AND (rg.expires_at IS NULL OR rg.expires_at > ?)
		ORDER BY r.name ASC`, userID, time.Now().UTC()).Scan(&roles).Error
	return roles, err
}

// ActivePermissionsFor returns the active global permissions attached to a
// role through active attachments.
func (s *RoleStore) ActivePermissionsFor(ctx context.Context, roleID string) ([]models.Permission, error) {
	var perms []models.Permission
	err := s.DB.WithContext(ctx).Raw(`
		SELECT p.id, p.name, p.resource, p.action, p.active
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = ? AND rp.active = TRUE AND p.active = TRUE
		ORDER BY p.name ASC`, roleID).Scan(&perms).Error
	return perms, err
}

// ActiveAppPermissionsFor returns a role's active permission assignments
// scoped to one application. The owning application must itself be active.
func (s *RoleStore) ActiveAppPermissionsFor(ctx context.Context, roleID, applicationID string) ([]models.ApplicationPermission, error) {
	var perms []models.ApplicationPermission
	err := s.DB.WithContext(ctx).Raw(`
		SELECT ap.id, ap.application_id, ap.name, ap.resource, ap.action,
		       ap.endpoint, ap.method, ap.module, ap.screen, ap.command,
		       ap.db_schema, ap.db_table, ap.db_operation, ap.active
		FROM application_permissions ap
		JOIN role_application_permissions rap ON rap.application_permission_id = ap.id
		JOIN applications a ON a.id = ap.application_id
		WHERE rap.role_id = ? AND ap.application_id = ?
		  AND rap.active = TRUE AND ap.active = TRUE AND a.active = TRUE
		ORDER BY ap.name ASC`, roleID, applicationID).Scan(&perms).Error
	return perms, err
}

// UpsertRole creates the role if missing and returns its id.
func (s *RoleStore) UpsertRole(ctx context.Context, name string, level int) (string, error) {
	var id string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Role
		if err := tx.Raw(`SELECT id, name FROM roles WHERE name = ?`, name).Scan(&existing).Error; err != nil {
			return err
		}
		if existing.ID != "" {
			id = existing.ID
			return nil
		}
		id = models.NewID()
		return tx.Exec(`INSERT INTO roles(id, name, active, level, created_at) VALUES(?,?,TRUE,?,?)`,
			id, name, level, time.Now().UTC()).Error
	})
	return id, err
}

// UpsertPermission creates the permission if missing and returns its id. Name
// is derived from (resource, action).
func (s *RoleStore) UpsertPermission(ctx context.Context, resource, action string) (string, error) {
	name := models.PermissionName(resource, action)
	var id string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Permission
		if err := tx.Raw(`SELECT id, name FROM permissions WHERE name = ?`, name).Scan(&existing).Error; err != nil {
			return err
		}
		if existing.ID != "" {
			id = existing.ID
			return nil
		}
		id = models.NewID()
		return tx.Exec(`INSERT INTO permissions(id, name, resource, action, active) VALUES(?,?,?,?,TRUE)`,
			id, name, resource, action).Error
	})
	return id, err
}

// AttachPermission links a global permission to a role, idempotently.
func (s *RoleStore) AttachPermission(ctx context.Context, roleID, permissionID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Raw(`SELECT COUNT(1) FROM role_permissions WHERE role_id = ? AND permission_id = ?`,
			roleID, permissionID).Scan(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return tx.Exec(`UPDATE role_permissions SET active = TRUE WHERE role_id = ? AND permission_id = ?`,
				roleID, permissionID).Error
		}
		return tx.Exec(`INSERT INTO role_permissions(id, role_id, permission_id, active) VALUES(?,?,?,TRUE)`,
			models.NewID(), roleID, permissionID).Error
	})
}

// DetachPermission soft-revokes an attachment. The permission row survives.
func (s *RoleStore) DetachPermission(ctx context.Context, roleID, permissionID string) error {
	return s.DB.WithContext(ctx).Exec(
		`UPDATE role_permissions SET active = FALSE WHERE role_id = ? AND permission_id = ?`,
		roleID, permissionID).Error
}

// GrantRole assigns a role to a user. A nil expiresAt means no expiration.
func (s *RoleStore) GrantRole(ctx context.Context, userID, roleID string, expiresAt *time.Time) error {
	return s.DB.WithContext(ctx).Exec(`
		INSERT INTO role_grants(id, user_id, role_id, active, assigned_at, expires_at)
		VALUES(?,?,?,TRUE,?,?)`,
		models.NewID(), userID, roleID, time.Now().UTC(), expiresAt).Error
}

// RevokeRole soft-revokes all grants of a role for a user.
func (s *RoleStore) RevokeRole(ctx context.Context, userID, roleID string) error {
	return s.DB.WithContext(ctx).Exec(
		`UPDATE role_grants SET active = FALSE WHERE user_id = ? AND role_id = ?`,
		userID, roleID).Error
}

// UpsertApplication creates the application if missing and returns its id.
func (s *RoleStore) UpsertApplication(ctx context.Context, name string, appType models.ApplicationType) (string, error) {
	var id string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Application
		if err := tx.Raw(`SELECT id, name FROM applications WHERE name = ?`, name).Scan(&existing).Error; err != nil {
			return err
		}
		if existing.ID != "" {
			id = existing.ID
			return nil
		}
		id = models.NewID()
		return tx.Exec(`INSERT INTO applications(id, name, app_type, active) VALUES(?,?,?,TRUE)`,
			id, name, string(appType)).Error
	})
	return id, err
}

// CreateAppPermission inserts an application-scoped permission assignment.
// Discriminator validity is the caller's responsibility.
func (s *RoleStore) CreateAppPermission(ctx context.Context, p *models.ApplicationPermission) error {
	if p.ID == "" {
		p.ID = models.NewID()
	}
	if p.Name == "" {
		p.Name = models.PermissionName(p.Resource, p.Action)
	}
	return s.DB.WithContext(ctx).Exec(`
		INSERT INTO application_permissions(id, application_id, name, resource, action,
			endpoint, method, module, screen, command, db_schema, db_table, db_operation, active)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,TRUE)`,
		p.ID, p.ApplicationID, p.Name, p.Resource, p.Action,
		p.Endpoint, p.Method, p.Module, p.Screen, p.Command, p.Schema, p.Table, p.Operation).Error
}

// AttachAppPermission links an application-scoped permission to a role.
func (s *RoleStore) AttachAppPermission(ctx context.Context, roleID, appPermissionID string) error {
	return s.DB.WithContext(ctx).Exec(`
		INSERT INTO role_application_permissions(id, role_id, application_permission_id, active)
		VALUES(?,?,?,TRUE)`,
		models.NewID(), roleID, appPermissionID).Error
}
