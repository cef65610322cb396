package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	guardiao "github.com/guardiao-iam/guardiao"
	"github.com/guardiao-iam/guardiao/models"
)

// ClientStore resolves registered OAuth clients for machine-to-machine grants.
type ClientStore struct {
	DB *gorm.DB
}

func NewClientStore(db *gorm.DB) *ClientStore { return &ClientStore{DB: db} }

func (s *ClientStore) FindClient(ctx context.Context, clientID string) (*models.Client, error) {
	var c models.Client
	err := s.DB.WithContext(ctx).Raw(
		`SELECT id, secret_hash, display_name, active, created_at FROM clients WHERE id = ?`,
		clientID).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == "" {
		return nil, guardiao.ErrNotFound
	}
	return &c, nil
}

// Create registers a client. The secret is stored hashed by the caller.
func (s *ClientStore) Create(ctx context.Context, c *models.Client) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return s.DB.WithContext(ctx).Exec(`
		INSERT INTO clients(id, secret_hash, display_name, active, created_at)
		VALUES(?,?,?,?,?)`,
		c.ID, c.SecretHash, c.DisplayName, c.Active, c.CreatedAt).Error
}
