package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lend is one open borrowing. The composite key allows a single open loan per
// client and document; the row is deleted when the document is returned.
type Lend struct {
	Email        string    `gorm:"primaryKey;size:255" json:"email"`
	DocumentID   uint      `gorm:"column:document_id;primaryKey;autoIncrement:false;index" json:"document_id"`
	LendDate     time.Time `gorm:"not null;index" json:"lend_date"`
	SettledWeeks int       `gorm:"not null;default:0" json:"settled_weeks"` // overdue weeks already paid
}

type FeeKind string

const (
	FeeKindLoan    FeeKind = "loan"    // overdue weeks of an open loan paid up front
	FeeKindBalance FeeKind = "balance" // payment against the account balance
)

// FeePayment is a receipt for money received from a client.
type FeePayment struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	Email      string          `gorm:"index;size:255" json:"email"`
	DocumentID uint            `gorm:"column:document_id;index" json:"document_id,omitempty"`
	Kind       FeeKind         `gorm:"size:16" json:"kind"`
	Weeks      int             `json:"weeks,omitempty"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaidAt     time.Time       `gorm:"index" json:"paid_at"`
}

// OverdueNotice is written by the overdue scan, once per loan and overdue week count.
type OverdueNotice struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Email      string          `gorm:"uniqueIndex:idx_overdue_notice;size:255" json:"email"`
	DocumentID uint            `gorm:"column:document_id;uniqueIndex:idx_overdue_notice" json:"document_id"`
	LendDate   time.Time       `gorm:"uniqueIndex:idx_overdue_notice" json:"lend_date"`
	Weeks      int             `gorm:"uniqueIndex:idx_overdue_notice" json:"weeks"`
	FeeDue     decimal.Decimal `gorm:"type:decimal(12,2)" json:"fee_due"`
	CreatedAt  time.Time       `json:"created_at"`
}
