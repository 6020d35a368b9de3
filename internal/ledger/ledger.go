// Package ledger tracks which documents are lent to which clients and applies
// the overdue fee policy when a loan is returned or its fees are paid.
//
// All operations return an error whose kind is one of ErrNotFound, ErrValidation,
// ErrConflict, ErrUnavailable, ErrAlreadyBorrowed or ErrDataAccess, so callers can
// tell "nothing there" apart from "store unreachable".
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mrlokans/librarydesk/internal/entities"
)

// Store is the persistence the ledger needs. Get methods return an error
// matching ErrNotFound when the row does not exist.
type Store interface {
	// Transaction runs fn against a store bound to a single database transaction.
	// Returning an error from fn rolls every statement back.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	ListLends(ctx context.Context, email string) ([]entities.Lend, error)
	ListOpenLends(ctx context.Context) ([]entities.Lend, error)
	GetLend(ctx context.Context, email string, documentID uint) (*entities.Lend, error)
	CreateLend(ctx context.Context, lend *entities.Lend) error
	// DeleteLend removes the loan only if it still holds settledWeeks and reports how many rows were deleted.
	DeleteLend(ctx context.Context, email string, documentID uint, settledWeeks int) (int64, error)
	// AdvanceSettledWeeks moves settled weeks from `from` to `to` only if the row still holds `from`.
	AdvanceSettledWeeks(ctx context.Context, email string, documentID uint, from, to int) (int64, error)
	CountActiveLends(ctx context.Context, documentID uint) (int64, error)

	GetClient(ctx context.Context, email string) (*entities.Client, error)
	// GetDocument locks the document row for the rest of the transaction where the database supports it.
	GetDocument(ctx context.Context, documentID uint) (*entities.Document, error)
	AddToBalance(ctx context.Context, email string, amount decimal.Decimal) (int64, error)
	// SubtractFromBalance only applies when the balance covers the amount.
	SubtractFromBalance(ctx context.Context, email string, amount decimal.Decimal) (int64, error)

	CreatePayment(ctx context.Context, payment *entities.FeePayment) error
	ListPayments(ctx context.Context, email string) ([]entities.FeePayment, error)
}

// BorrowedItem is an open loan as shown to the client.
type BorrowedItem struct {
	DocumentID   uint            `json:"document_id"`
	LendDate     time.Time       `json:"lend_date"`
	DueDate      time.Time       `json:"due_date"`
	WeeksOverdue int             `json:"weeks_overdue"`
	FeeDue       decimal.Decimal `json:"fee_due"`
}

// ReturnReceipt describes a completed return.
type ReturnReceipt struct {
	DocumentID   uint            `json:"document_id"`
	OverdueWeeks int             `json:"overdue_weeks"`
	LateFee      decimal.Decimal `json:"late_fee"`
	Message      string          `json:"message"`
}

// OverdueLoan is an open loan with at least one unpaid overdue week.
type OverdueLoan struct {
	Email        string          `json:"email"`
	DocumentID   uint            `json:"document_id"`
	LendDate     time.Time       `json:"lend_date"`
	WeeksOverdue int             `json:"weeks_overdue"`
	FeeDue       decimal.Decimal `json:"fee_due"`
}

type Ledger struct {
	store  Store
	policy FeePolicy
	now    func() time.Time
}

func New(store Store, policy FeePolicy) *Ledger {
	return &Ledger{
		store:  store,
		policy: policy,
		now:    time.Now,
	}
}

// SetClock replaces the time source used to determine "today".
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

func (l *Ledger) Policy() FeePolicy {
	return l.policy
}

func (l *Ledger) today() time.Time {
	return Day(l.now())
}

// outstanding returns the overdue weeks of lend that are not yet paid.
func (l *Ledger) outstanding(lend entities.Lend, today time.Time) int {
	return max(0, l.policy.WeeksOverdue(lend.LendDate, today)-lend.SettledWeeks)
}

// FetchBorrowedItems lists the client's open loans in storage order.
// A client without loans gets an empty slice and a nil error.
func (l *Ledger) FetchBorrowedItems(ctx context.Context, email string) ([]BorrowedItem, error) {
	if email == "" {
		return nil, invalid("email is required")
	}

	lends, err := l.store.ListLends(ctx, email)
	if err != nil {
		log.Printf("Error fetching borrowed items for %s: %v", email, err)
		return nil, classify("fetch borrowed items", err)
	}

	today := l.today()
	items := make([]BorrowedItem, 0, len(lends))
	for _, lend := range lends {
		weeks := l.outstanding(lend, today)
		items = append(items, BorrowedItem{
			DocumentID:   lend.DocumentID,
			LendDate:     Day(lend.LendDate),
			DueDate:      l.policy.DueDate(lend.LendDate),
			WeeksOverdue: weeks,
			FeeDue:       l.policy.LateFee(weeks),
		})
	}
	return items, nil
}

// ReturnDocument closes a loan and charges its unpaid late fee to the client's
// balance in one transaction. A non-zero lendDate must match the stored loan.
// When two returns of the same loan race, the loser gets ErrNotFound. A fee
// payment landing between the read and the delete fails the return with ErrConflict.
func (l *Ledger) ReturnDocument(ctx context.Context, email string, documentID uint, lendDate time.Time) (*ReturnReceipt, error) {
	if email == "" {
		return nil, invalid("email is required")
	}
	if documentID == 0 {
		return nil, invalid("document id is required")
	}

	today := l.today()
	var receipt *ReturnReceipt

	err := l.store.Transaction(ctx, func(tx Store) error {
		lend, err := tx.GetLend(ctx, email, documentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return loanNotFound(email, documentID)
			}
			return err
		}

		if !lendDate.IsZero() && !SameDay(lendDate, lend.LendDate) {
			return invalid("lend date %s does not match the open loan of document %d (%s)",
				Day(lendDate).Format(time.DateOnly), documentID, Day(lend.LendDate).Format(time.DateOnly))
		}

		weeks := l.outstanding(*lend, today)
		fee := l.policy.LateFee(weeks)

		deleted, err := tx.DeleteLend(ctx, email, documentID, lend.SettledWeeks)
		if err != nil {
			return err
		}
		if deleted != 1 {
			if _, err := tx.GetLend(ctx, email, documentID); err != nil {
				if errors.Is(err, ErrNotFound) {
					return loanNotFound(email, documentID)
				}
				return err
			}
			return fmt.Errorf("%w: fees of document %d for %s changed while returning", ErrConflict, documentID, email)
		}

		if fee.IsPositive() {
			updated, err := tx.AddToBalance(ctx, email, fee)
			if err != nil {
				return err
			}
			if updated != 1 {
				return clientNotFound(email)
			}
		}

		receipt = &ReturnReceipt{
			DocumentID:   documentID,
			OverdueWeeks: weeks,
			LateFee:      fee,
			Message:      returnMessage(documentID, fee),
		}
		return nil
	})
	if err != nil {
		err = classify("return document", err)
		log.Printf("Failed to return document %d for %s: %v", documentID, email, err)
		return nil, err
	}

	log.Printf("Document %d returned by %s (overdue weeks: %d, fee: %s)",
		documentID, email, receipt.OverdueWeeks, receipt.LateFee.StringFixed(2))
	return receipt, nil
}

func returnMessage(documentID uint, fee decimal.Decimal) string {
	if fee.IsPositive() {
		return fmt.Sprintf("Document %d returned. Late fee charged: $%s.", documentID, fee.StringFixed(2))
	}
	return fmt.Sprintf("Document %d returned. No late fees.", documentID)
}

// GetLendDate returns the lend date of the client's open loan of documentID.
func (l *Ledger) GetLendDate(ctx context.Context, email string, documentID uint) (time.Time, error) {
	lend, err := l.store.GetLend(ctx, email, documentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return time.Time{}, loanNotFound(email, documentID)
		}
		return time.Time{}, classify("get lend date", err)
	}
	return Day(lend.LendDate), nil
}

// CalculateWeeksOverdue applies the fee policy to lendDate as of today.
func (l *Ledger) CalculateWeeksOverdue(lendDate time.Time) int {
	return l.policy.WeeksOverdue(lendDate, l.today())
}

// PayFee settles the overdue weeks accrued so far on an open loan and records a
// receipt. The loan stays open. When nothing is outstanding the returned payment
// has a zero amount and an empty ID, and nothing is recorded.
func (l *Ledger) PayFee(ctx context.Context, email string, documentID uint) (*entities.FeePayment, error) {
	if email == "" {
		return nil, invalid("email is required")
	}
	if documentID == 0 {
		return nil, invalid("document id is required")
	}

	today := l.today()
	var payment *entities.FeePayment

	err := l.store.Transaction(ctx, func(tx Store) error {
		lend, err := tx.GetLend(ctx, email, documentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return loanNotFound(email, documentID)
			}
			return err
		}

		total := l.policy.WeeksOverdue(lend.LendDate, today)
		due := total - lend.SettledWeeks
		if due <= 0 {
			payment = &entities.FeePayment{
				Email:      email,
				DocumentID: documentID,
				Kind:       entities.FeeKindLoan,
				Amount:     decimal.Zero,
			}
			return nil
		}

		updated, err := tx.AdvanceSettledWeeks(ctx, email, documentID, lend.SettledWeeks, total)
		if err != nil {
			return err
		}
		if updated != 1 {
			return fmt.Errorf("%w: fees of document %d for %s changed while paying", ErrConflict, documentID, email)
		}

		payment = &entities.FeePayment{
			ID:         uuid.NewString(),
			Email:      email,
			DocumentID: documentID,
			Kind:       entities.FeeKindLoan,
			Weeks:      due,
			Amount:     l.policy.LateFee(due),
			PaidAt:     l.now(),
		}
		return tx.CreatePayment(ctx, payment)
	})
	if err != nil {
		err = classify("pay fee", err)
		log.Printf("Failed to pay fee of document %d for %s: %v", documentID, email, err)
		return nil, err
	}

	if payment.ID != "" {
		log.Printf("Fee paid by %s for document %d: %s (%d weeks, receipt %s)",
			email, documentID, payment.Amount.StringFixed(2), payment.Weeks, payment.ID)
	}
	return payment, nil
}

// SettleBalance pays amount off the client's account balance.
func (l *Ledger) SettleBalance(ctx context.Context, email string, amount decimal.Decimal) (*entities.FeePayment, error) {
	if email == "" {
		return nil, invalid("email is required")
	}
	if !amount.IsPositive() {
		return nil, invalid("amount must be positive")
	}

	var payment *entities.FeePayment
	err := l.store.Transaction(ctx, func(tx Store) error {
		client, err := tx.GetClient(ctx, email)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return clientNotFound(email)
			}
			return err
		}
		if amount.GreaterThan(client.AccountBalance) {
			return invalid("amount %s exceeds balance %s", amount.StringFixed(2), client.AccountBalance.StringFixed(2))
		}

		updated, err := tx.SubtractFromBalance(ctx, email, amount)
		if err != nil {
			return err
		}
		if updated != 1 {
			return fmt.Errorf("%w: balance of %s changed while settling", ErrConflict, email)
		}

		payment = &entities.FeePayment{
			ID:     uuid.NewString(),
			Email:  email,
			Kind:   entities.FeeKindBalance,
			Amount: amount,
			PaidAt: l.now(),
		}
		return tx.CreatePayment(ctx, payment)
	})
	if err != nil {
		err = classify("settle balance", err)
		log.Printf("Failed to settle balance for %s: %v", email, err)
		return nil, err
	}

	log.Printf("Balance payment by %s: %s (receipt %s)", email, amount.StringFixed(2), payment.ID)
	return payment, nil
}

// Borrow opens a loan dated today. Physical documents need a free copy;
// electronic documents are always available.
func (l *Ledger) Borrow(ctx context.Context, email string, documentID uint) (*entities.Lend, error) {
	if email == "" {
		return nil, invalid("email is required")
	}
	if documentID == 0 {
		return nil, invalid("document id is required")
	}

	lend := &entities.Lend{
		Email:      email,
		DocumentID: documentID,
		LendDate:   l.today(),
	}

	err := l.store.Transaction(ctx, func(tx Store) error {
		if _, err := tx.GetClient(ctx, email); err != nil {
			if errors.Is(err, ErrNotFound) {
				return clientNotFound(email)
			}
			return err
		}

		doc, err := tx.GetDocument(ctx, documentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: document %d", ErrNotFound, documentID)
			}
			return err
		}

		_, err = tx.GetLend(ctx, email, documentID)
		if err == nil {
			return fmt.Errorf("%w: document %d", ErrAlreadyBorrowed, documentID)
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		if !doc.IsElectronic() {
			active, err := tx.CountActiveLends(ctx, documentID)
			if err != nil {
				return err
			}
			if active >= int64(doc.TotalCopies) {
				return fmt.Errorf("%w: document %d", ErrUnavailable, documentID)
			}
		}

		return tx.CreateLend(ctx, lend)
	})
	if err != nil {
		err = classify("borrow document", err)
		log.Printf("Failed to lend document %d to %s: %v", documentID, email, err)
		return nil, err
	}

	log.Printf("Document %d lent to %s", documentID, email)
	return lend, nil
}

// OverdueLoans lists every open loan that has unpaid overdue weeks.
func (l *Ledger) OverdueLoans(ctx context.Context) ([]OverdueLoan, error) {
	lends, err := l.store.ListOpenLends(ctx)
	if err != nil {
		return nil, classify("list overdue loans", err)
	}

	today := l.today()
	overdue := make([]OverdueLoan, 0)
	for _, lend := range lends {
		weeks := l.outstanding(lend, today)
		if weeks == 0 {
			continue
		}
		overdue = append(overdue, OverdueLoan{
			Email:        lend.Email,
			DocumentID:   lend.DocumentID,
			LendDate:     Day(lend.LendDate),
			WeeksOverdue: weeks,
			FeeDue:       l.policy.LateFee(weeks),
		})
	}
	return overdue, nil
}

// Balance returns the client's accumulated late fees.
func (l *Ledger) Balance(ctx context.Context, email string) (decimal.Decimal, error) {
	client, err := l.store.GetClient(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return decimal.Zero, clientNotFound(email)
		}
		return decimal.Zero, classify("get balance", err)
	}
	return client.AccountBalance, nil
}

// Payments lists the client's receipts, newest first.
func (l *Ledger) Payments(ctx context.Context, email string) ([]entities.FeePayment, error) {
	payments, err := l.store.ListPayments(ctx, email)
	if err != nil {
		return nil, classify("list payments", err)
	}
	return payments, nil
}
