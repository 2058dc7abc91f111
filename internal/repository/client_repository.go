package repository

import (
	"context"

	"gorm.io/gorm"

	"fieldtech/internal/model"
)

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// CreateWithSubscription stores a client together with its first
// subscription.
func (r *ClientRepository) CreateWithSubscription(ctx context.Context, client *model.Client, sub *model.Subscription) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(client).Error; err != nil {
			return err
		}
		sub.ClientID = client.ID
		return tx.Create(sub).Error
	})
}
