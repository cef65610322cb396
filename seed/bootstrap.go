package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	guardiao "github.com/guardiao-iam/guardiao"
	"github.com/guardiao-iam/guardiao/models"
	"github.com/guardiao-iam/guardiao/permission"
	"github.com/guardiao-iam/guardiao/store"
)

// bootstrapAccounts is the slice of the user store the bootstrap touches.
type bootstrapAccounts interface {
	FindByLoginKey(ctx context.Context, loginKey string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
}

// bootstrapRoles is the slice of the role store the bootstrap touches.
type bootstrapRoles interface {
	UpsertRole(ctx context.Context, name string, level int) (string, error)
	ActiveRoleGrantsFor(ctx context.Context, userID string) ([]models.Role, error)
	GrantRole(ctx context.Context, userID, roleID string, expiresAt *time.Time) error
}

// EnsureAdminAccount creates the bootstrap admin user with the SuperAdmin
// role, if it does not exist yet. The secret is hashed here so it never
// appears in SQL seed files. Idempotent.
func EnsureAdminAccount(ctx context.Context, db *gorm.DB, email, secret string) error {
	return ensureAdminAccount(ctx, store.NewUserStore(db), store.NewRoleStore(db), email, secret)
}

func ensureAdminAccount(ctx context.Context, users bootstrapAccounts, roles bootstrapRoles, email, secret string) error {
	if email == "" || secret == "" {
		return fmt.Errorf("admin email and secret are required")
	}

	user, err := users.FindByLoginKey(ctx, email)
	if errors.Is(err, guardiao.ErrNotFound) {
		hash, herr := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if herr != nil {
			return fmt.Errorf("hash admin secret: %w", herr)
		}
		user = &models.User{
			ID:            models.NewID(),
			Email:         email,
			DisplayName:   "Administrator",
			SecretHash:    string(hash),
			Active:        true,
			EmailVerified: true,
			Timezone:      "UTC",
		}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("create admin user: %w", err)
		}
	} else if err != nil {
		return err
	}

	roleID, err := roles.UpsertRole(ctx, permission.SuperAdminRole, 100)
	if err != nil {
		return fmt.Errorf("upsert super role: %w", err)
	}
	granted, err := roles.ActiveRoleGrantsFor(ctx, user.ID)
	if err != nil {
		return err
	}
	for _, r := range granted {
		if r.ID == roleID {
			return nil
		}
	}
	if err := roles.GrantRole(ctx, user.ID, roleID, nil); err != nil {
		return fmt.Errorf("grant super role: %w", err)
	}
	return nil
}
