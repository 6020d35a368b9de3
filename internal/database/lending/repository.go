// Package lending provides the gorm-backed store of the lending ledger.
//
// This package implements the ledger.Store interface defined in internal/ledger/ledger.go.
//
//	var _ ledger.Store = (*Repository)(nil)
//
// # Usage
//
//	repo := lending.NewRepository(db)
//	l := ledger.New(repo, ledger.DefaultPolicy())
package lending

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/ledger"
)

// Repository handles loans, client balances and fee payments.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new lending repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ledger.ErrNotFound
	}
	return err
}

// Transaction runs fn inside a database transaction. Nested calls reuse the
// outer transaction through a savepoint.
func (r *Repository) Transaction(ctx context.Context, fn func(tx ledger.Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// ListLends returns the open loans of a client ordered by lend date.
func (r *Repository) ListLends(ctx context.Context, email string) ([]entities.Lend, error) {
	var lends []entities.Lend
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("lend_date ASC, document_id ASC").
		Find(&lends).Error
	return lends, err
}

// ListOpenLends returns every open loan.
func (r *Repository) ListOpenLends(ctx context.Context) ([]entities.Lend, error) {
	var lends []entities.Lend
	err := r.db.WithContext(ctx).
		Order("lend_date ASC, email ASC, document_id ASC").
		Find(&lends).Error
	return lends, err
}

func (r *Repository) GetLend(ctx context.Context, email string, documentID uint) (*entities.Lend, error) {
	var lend entities.Lend
	err := r.db.WithContext(ctx).
		Where("email = ? AND document_id = ?", email, documentID).
		First(&lend).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &lend, nil
}

func (r *Repository) CreateLend(ctx context.Context, lend *entities.Lend) error {
	return r.db.WithContext(ctx).Create(lend).Error
}

// DeleteLend deletes the loan if it still holds settledWeeks and returns the
// number of rows removed. Zero means another caller closed or paid it first.
func (r *Repository) DeleteLend(ctx context.Context, email string, documentID uint, settledWeeks int) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("email = ? AND document_id = ? AND settled_weeks = ?", email, documentID, settledWeeks).
		Delete(&entities.Lend{})
	return result.RowsAffected, result.Error
}

func (r *Repository) AdvanceSettledWeeks(ctx context.Context, email string, documentID uint, from, to int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.Lend{}).
		Where("email = ? AND document_id = ? AND settled_weeks = ?", email, documentID, from).
		Update("settled_weeks", to)
	return result.RowsAffected, result.Error
}

// CountActiveLends counts open loans of a document across all clients.
func (r *Repository) CountActiveLends(ctx context.Context, documentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entities.Lend{}).
		Where("document_id = ?", documentID).
		Count(&count).Error
	return count, err
}

func (r *Repository) GetClient(ctx context.Context, email string) (*entities.Client, error) {
	var client entities.Client
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&client).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &client, nil
}

// GetDocument loads a document. On PostgreSQL the row stays locked until the
// surrounding transaction ends, so borrows of the same document run one at a time.
// SQLite serializes writers on its single connection.
func (r *Repository) GetDocument(ctx context.Context, documentID uint) (*entities.Document, error) {
	var doc entities.Document
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := query.Where("document_id = ?", documentID).First(&doc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &doc, nil
}

// AddToBalance increments the balance in a single UPDATE and returns the number of rows changed.
func (r *Repository) AddToBalance(ctx context.Context, email string, amount decimal.Decimal) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.Client{}).
		Where("email = ?", email).
		Update("account_balance", gorm.Expr("account_balance + ?", amount))
	return result.RowsAffected, result.Error
}

// SubtractFromBalance decrements the balance only if it stays non-negative.
func (r *Repository) SubtractFromBalance(ctx context.Context, email string, amount decimal.Decimal) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.Client{}).
		Where("email = ? AND account_balance >= ?", email, amount).
		Update("account_balance", gorm.Expr("account_balance - ?", amount))
	return result.RowsAffected, result.Error
}

func (r *Repository) CreatePayment(ctx context.Context, payment *entities.FeePayment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("failed to record payment %s: %w", payment.ID, err)
	}
	return nil
}

// ListPayments returns the receipts of a client, newest first.
func (r *Repository) ListPayments(ctx context.Context, email string) ([]entities.FeePayment, error) {
	var payments []entities.FeePayment
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("paid_at DESC").
		Find(&payments).Error
	return payments, err
}

// RecordOverdueNotices inserts notices, skipping those already written for the
// same loan and week count. Returns the number of new rows.
func (r *Repository) RecordOverdueNotices(ctx context.Context, notices []entities.OverdueNotice) (int64, error) {
	if len(notices) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&notices)
	return result.RowsAffected, result.Error
}

// ListOverdueNotices returns the notices written for a client, newest first.
func (r *Repository) ListOverdueNotices(ctx context.Context, email string) ([]entities.OverdueNotice, error) {
	var notices []entities.OverdueNotice
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at DESC, id DESC").
		Find(&notices).Error
	return notices, err
}
