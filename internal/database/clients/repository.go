// Package clients provides database operations for library clients and librarians.
//
// This package implements the accounts.Store interface defined in internal/accounts/accounts.go.
//
//	var _ accounts.Store = (*Repository)(nil)
package clients

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/librarydesk/internal/accounts"
	"github.com/mrlokans/librarydesk/internal/entities"
)

// Repository handles client and librarian rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new clients repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateClient inserts the client, its address and its credit card in one transaction.
func (r *Repository) CreateClient(ctx context.Context, client *entities.Client) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.Client{}).Where("email = ?", client.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return accounts.ErrClientExists
		}

		if err := tx.Omit("Address", "CreditCard").Create(client).Error; err != nil {
			return err
		}
		if client.Address != nil {
			client.Address.ClientEmail = client.Email
			if err := tx.Create(client.Address).Error; err != nil {
				return err
			}
		}
		if client.CreditCard != nil {
			client.CreditCard.Email = client.Email
			if err := tx.Create(client.CreditCard).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetClient retrieves a client with address and credit card.
func (r *Repository) GetClient(ctx context.Context, email string) (*entities.Client, error) {
	var client entities.Client
	err := r.db.WithContext(ctx).
		Preload("Address").
		Preload("CreditCard").
		Where("email = ?", email).
		First(&client).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &client, nil
}

func (r *Repository) CreateLibrarian(ctx context.Context, librarian *entities.Librarian) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.Librarian{}).Where("email = ?", librarian.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return accounts.ErrClientExists
		}
		return tx.Create(librarian).Error
	})
}

func (r *Repository) GetLibrarian(ctx context.Context, email string) (*entities.Librarian, error) {
	var librarian entities.Librarian
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&librarian).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &librarian, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return accounts.ErrNotFound
	}
	return err
}
