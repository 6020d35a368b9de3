package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client is a library member, keyed by email.
// AccountBalance accumulates late fees and is only changed by the lending ledger.
type Client struct {
	Email          string          `gorm:"primaryKey;size:255" json:"email"`
	Name           string          `gorm:"size:255" json:"name"`
	PasswordHash   string          `gorm:"size:255" json:"-"`
	AccountBalance decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"account_balance"`
	Address        *Address        `gorm:"foreignKey:ClientEmail;references:Email" json:"address,omitempty"`
	CreditCard     *CreditCard     `gorm:"foreignKey:Email;references:Email" json:"credit_card,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type Address struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ClientEmail string `gorm:"index;size:255" json:"client_email"`
	Address     string `gorm:"size:512" json:"address"`
}

// CreditCard keeps only the last four digits of the number.
type CreditCard struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Email   string `gorm:"uniqueIndex;size:255" json:"email"`
	Last4   string `gorm:"column:last4;size:4" json:"last4"`
	Address string `gorm:"size:512" json:"address"`
}

type Librarian struct {
	Email        string    `gorm:"primaryKey;size:255" json:"email"`
	Name         string    `gorm:"size:255" json:"name"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type UserType string

const (
	UserTypeClient    UserType = "client"
	UserTypeLibrarian UserType = "librarian"
)
