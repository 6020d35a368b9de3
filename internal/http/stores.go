package http

import (
	"context"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/shopspring/decimal"

	"github.com/mrlokans/librarydesk/internal/accounts"
	"github.com/mrlokans/librarydesk/internal/catalog"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/ledger"
)

// LendingService provides the borrow, return and fee workflow.
type LendingService interface {
	FetchBorrowedItems(ctx context.Context, email string) ([]ledger.BorrowedItem, error)
	ReturnDocument(ctx context.Context, email string, documentID uint, lendDate time.Time) (*ledger.ReturnReceipt, error)
	GetLendDate(ctx context.Context, email string, documentID uint) (time.Time, error)
	PayFee(ctx context.Context, email string, documentID uint) (*entities.FeePayment, error)
	SettleBalance(ctx context.Context, email string, amount decimal.Decimal) (*entities.FeePayment, error)
	Borrow(ctx context.Context, email string, documentID uint) (*entities.Lend, error)
	OverdueLoans(ctx context.Context) ([]ledger.OverdueLoan, error)
	Balance(ctx context.Context, email string) (decimal.Decimal, error)
	Payments(ctx context.Context, email string) ([]entities.FeePayment, error)
}

// CatalogService provides document search and detail lookups.
type CatalogService interface {
	Search(ctx context.Context, q catalog.SearchQuery) ([]catalog.DocumentSummary, error)
	FullTextSearch(ctx context.Context, keywords string) ([]catalog.DocumentSummary, error)
	TopRatedBooks(ctx context.Context, limit int) ([]catalog.DocumentSummary, string, error)
	Document(ctx context.Context, documentID uint) (*catalog.DocumentSummary, error)
}

// AccountService provides client registration and sign-in.
type AccountService interface {
	Register(ctx context.Context, reg accounts.Registration) (*entities.Client, error)
	Login(ctx context.Context, email, password string, userType entities.UserType) (*accounts.Identity, error)
	ClientName(ctx context.Context, email string) (string, error)
}

// ScanRunner enqueues an overdue scan on demand.
type ScanRunner interface {
	RunNow(trigger string) (string, error)
}

// TaskStatusReader looks up queued task state.
type TaskStatusReader interface {
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}
