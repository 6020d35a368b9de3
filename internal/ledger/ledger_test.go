package ledger_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/database/lending"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/ledger"
)

const clientEmail = "reader@example.com"

var fixedNow = time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)

func setupLedger(t *testing.T) (*gorm.DB, *ledger.Ledger) {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	l := ledger.New(lending.NewRepository(db.DB), ledger.DefaultPolicy())
	l.SetClock(func() time.Time { return fixedNow })

	require.NoError(t, db.DB.Create(&entities.Client{Email: clientEmail, Name: "Reader"}).Error)
	return db.DB, l
}

func createDocument(t *testing.T, db *gorm.DB, id uint, docType entities.DocumentType, copies int) {
	t.Helper()
	require.NoError(t, db.Create(&entities.Document{
		DocumentID:  id,
		Type:        docType,
		TotalCopies: copies,
	}).Error)
}

func createLend(t *testing.T, db *gorm.DB, email string, documentID uint, daysAgo int) {
	t.Helper()
	require.NoError(t, db.Create(&entities.Lend{
		Email:      email,
		DocumentID: documentID,
		LendDate:   ledger.Day(fixedNow).AddDate(0, 0, -daysAgo),
	}).Error)
}

func balanceOf(t *testing.T, db *gorm.DB, email string) decimal.Decimal {
	t.Helper()
	var client entities.Client
	require.NoError(t, db.Where("email = ?", email).First(&client).Error)
	return client.AccountBalance
}

func lendExists(t *testing.T, db *gorm.DB, email string, documentID uint) bool {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&entities.Lend{}).
		Where("email = ? AND document_id = ?", email, documentID).
		Count(&count).Error)
	return count > 0
}

func TestReturnDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("overdue loan charges one week", func(t *testing.T) {
		db, l := setupLedger(t)
		createLend(t, db, clientEmail, 7, 41)

		receipt, err := l.ReturnDocument(ctx, clientEmail, 7, ledger.Day(fixedNow).AddDate(0, 0, -41))
		require.NoError(t, err)

		assert.Equal(t, 1, receipt.OverdueWeeks)
		assert.True(t, receipt.LateFee.Equal(decimal.NewFromInt(5)))
		assert.Equal(t, "Document 7 returned. Late fee charged: $5.00.", receipt.Message)
		assert.False(t, lendExists(t, db, clientEmail, 7))
		assert.True(t, balanceOf(t, db, clientEmail).Equal(decimal.NewFromInt(5)))
	})

	t.Run("loan within term is free", func(t *testing.T) {
		db, l := setupLedger(t)
		createLend(t, db, clientEmail, 3, 20)

		receipt, err := l.ReturnDocument(ctx, clientEmail, 3, time.Time{})
		require.NoError(t, err)

		assert.Equal(t, 0, receipt.OverdueWeeks)
		assert.True(t, receipt.LateFee.IsZero())
		assert.Equal(t, "Document 3 returned. No late fees.", receipt.Message)
		assert.False(t, lendExists(t, db, clientEmail, 3))
		assert.True(t, balanceOf(t, db, clientEmail).IsZero())
	})

	t.Run("missing loan is not found", func(t *testing.T) {
		db, l := setupLedger(t)

		_, err := l.ReturnDocument(ctx, clientEmail, 99, time.Time{})
		require.Error(t, err)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
		assert.True(t, balanceOf(t, db, clientEmail).IsZero())
	})

	t.Run("mismatched lend date is rejected", func(t *testing.T) {
		db, l := setupLedger(t)
		createLend(t, db, clientEmail, 4, 41)

		_, err := l.ReturnDocument(ctx, clientEmail, 4, ledger.Day(fixedNow).AddDate(0, 0, -10))
		assert.ErrorIs(t, err, ledger.ErrValidation)
		assert.True(t, lendExists(t, db, clientEmail, 4))
		assert.True(t, balanceOf(t, db, clientEmail).IsZero())
	})

	t.Run("fee for unknown client rolls back the delete", func(t *testing.T) {
		db, l := setupLedger(t)
		createLend(t, db, "ghost@example.com", 5, 50)

		_, err := l.ReturnDocument(ctx, "ghost@example.com", 5, time.Time{})
		assert.ErrorIs(t, err, ledger.ErrNotFound)
		assert.True(t, lendExists(t, db, "ghost@example.com", 5))
	})

	t.Run("settled weeks are not charged again", func(t *testing.T) {
		db, l := setupLedger(t)
		createLend(t, db, clientEmail, 8, 42)

		payment, err := l.PayFee(ctx, clientEmail, 8)
		require.NoError(t, err)
		assert.True(t, payment.Amount.Equal(decimal.NewFromInt(10)))

		receipt, err := l.ReturnDocument(ctx, clientEmail, 8, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, 0, receipt.OverdueWeeks)
		assert.True(t, balanceOf(t, db, clientEmail).IsZero())
	})

	t.Run("empty email is invalid", func(t *testing.T) {
		_, l := setupLedger(t)

		_, err := l.ReturnDocument(ctx, "", 1, time.Time{})
		assert.ErrorIs(t, err, ledger.ErrValidation)
	})
}

func TestReturnDocument_ConcurrentReturns(t *testing.T) {
	ctx := context.Background()
	db, l := setupLedger(t)
	createLend(t, db, clientEmail, 11, 41)

	const callers = 2
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.ReturnDocument(ctx, clientEmail, 11, time.Time{})
		}(i)
	}
	wg.Wait()

	succeeded, notFound := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ledger.ErrNotFound):
			notFound++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, notFound)
	assert.True(t, balanceOf(t, db, clientEmail).Equal(decimal.NewFromInt(5)))
}

// feePayingStore settles one more overdue week right after the first GetLend
// inside a transaction, as a fee payment committed by another request would.
type feePayingStore struct {
	ledger.Store
	paid bool
}

func (s *feePayingStore) Transaction(ctx context.Context, fn func(tx ledger.Store) error) error {
	return s.Store.Transaction(ctx, func(tx ledger.Store) error {
		return fn(&feePayingTx{Store: tx, paid: &s.paid})
	})
}

type feePayingTx struct {
	ledger.Store
	paid *bool
}

func (tx *feePayingTx) GetLend(ctx context.Context, email string, documentID uint) (*entities.Lend, error) {
	lend, err := tx.Store.GetLend(ctx, email, documentID)
	if err != nil || *tx.paid {
		return lend, err
	}
	*tx.paid = true
	if _, err := tx.Store.AdvanceSettledWeeks(ctx, email, documentID, lend.SettledWeeks, lend.SettledWeeks+1); err != nil {
		return nil, err
	}
	return lend, nil
}

func TestReturnDocument_FeePaidDuringReturn(t *testing.T) {
	ctx := context.Background()
	db, _ := setupLedger(t)
	createLend(t, db, clientEmail, 7, 41)

	l := ledger.New(&feePayingStore{Store: lending.NewRepository(db)}, ledger.DefaultPolicy())
	l.SetClock(func() time.Time { return fixedNow })

	receipt, err := l.ReturnDocument(ctx, clientEmail, 7, time.Time{})
	assert.ErrorIs(t, err, ledger.ErrConflict)
	assert.Nil(t, receipt)
	assert.True(t, balanceOf(t, db, clientEmail).IsZero(), "paid weeks must not be charged again")
	assert.True(t, lendExists(t, db, clientEmail, 7))

	// a retry sees the loan as it is now and charges nothing twice
	receipt, err = ledger.New(lending.NewRepository(db), ledger.DefaultPolicy()).
		ReturnDocument(ctx, clientEmail, 7, time.Time{})
	require.NoError(t, err)
	assert.False(t, lendExists(t, db, clientEmail, 7))
	assert.True(t, receipt.LateFee.Equal(decimal.NewFromInt(5)))
	assert.True(t, balanceOf(t, db, clientEmail).Equal(decimal.NewFromInt(5)))
}

func TestFetchBorrowedItems(t *testing.T) {
	ctx := context.Background()

	t.Run("client without loans", func(t *testing.T) {
		_, l := setupLedger(t)

		items, err := l.FetchBorrowedItems(ctx, clientEmail)
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("lists loans with fees due", func(t *testing.T) {
		db, l := setupLedger(t)
		createLend(t, db, clientEmail, 1, 41)
		createLend(t, db, clientEmail, 2, 3)
		createLend(t, db, "other@example.com", 3, 90)

		items, err := l.FetchBorrowedItems(ctx, clientEmail)
		require.NoError(t, err)
		require.Len(t, items, 2)

		assert.Equal(t, uint(1), items[0].DocumentID)
		assert.Equal(t, 1, items[0].WeeksOverdue)
		assert.True(t, items[0].FeeDue.Equal(decimal.NewFromInt(5)))
		assert.Equal(t, ledger.Day(fixedNow).AddDate(0, 0, -41+28), items[0].DueDate)

		assert.Equal(t, uint(2), items[1].DocumentID)
		assert.Equal(t, 0, items[1].WeeksOverdue)
		assert.True(t, items[1].FeeDue.IsZero())
	})

	t.Run("closed store is a data access error", func(t *testing.T) {
		db, l := setupLedger(t)
		sqlDB, err := db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())

		items, err := l.FetchBorrowedItems(ctx, clientEmail)
		assert.Nil(t, items)
		assert.ErrorIs(t, err, ledger.ErrDataAccess)
	})
}

func TestPayFee(t *testing.T) {
	ctx := context.Background()

	t.Run("second payment charges nothing", func(t *testing.T) {
		db, l := setupLedger(t)
		createLend(t, db, clientEmail, 6, 41)

		first, err := l.PayFee(ctx, clientEmail, 6)
		require.NoError(t, err)
		assert.True(t, first.Amount.Equal(decimal.NewFromInt(5)))
		assert.Equal(t, 1, first.Weeks)
		assert.NotEmpty(t, first.ID)

		second, err := l.PayFee(ctx, clientEmail, 6)
		require.NoError(t, err)
		assert.True(t, second.Amount.IsZero())
		assert.Empty(t, second.ID)

		assert.True(t, lendExists(t, db, clientEmail, 6))

		payments, err := l.Payments(ctx, clientEmail)
		require.NoError(t, err)
		assert.Len(t, payments, 1)
	})

	t.Run("new weeks accrue after payment", func(t *testing.T) {
		db, l := setupLedger(t)
		createLend(t, db, clientEmail, 6, 41)

		_, err := l.PayFee(ctx, clientEmail, 6)
		require.NoError(t, err)

		l.SetClock(func() time.Time { return fixedNow.AddDate(0, 0, 14) })
		payment, err := l.PayFee(ctx, clientEmail, 6)
		require.NoError(t, err)
		assert.Equal(t, 2, payment.Weeks)
		assert.True(t, payment.Amount.Equal(decimal.NewFromInt(10)))
	})

	t.Run("unknown loan", func(t *testing.T) {
		_, l := setupLedger(t)

		_, err := l.PayFee(ctx, clientEmail, 42)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})
}

func TestGetLendDate(t *testing.T) {
	ctx := context.Background()
	db, l := setupLedger(t)
	createLend(t, db, clientEmail, 9, 10)

	date, err := l.GetLendDate(ctx, clientEmail, 9)
	require.NoError(t, err)
	assert.Equal(t, ledger.Day(fixedNow).AddDate(0, 0, -10), date)

	_, err = l.GetLendDate(ctx, clientEmail, 10)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestCalculateWeeksOverdue(t *testing.T) {
	_, l := setupLedger(t)
	today := ledger.Day(fixedNow)

	assert.Equal(t, 0, l.CalculateWeeksOverdue(today))
	assert.Equal(t, 0, l.CalculateWeeksOverdue(today.AddDate(0, 0, -34)))
	assert.Equal(t, 1, l.CalculateWeeksOverdue(today.AddDate(0, 0, -35)))
	assert.Equal(t, 0, l.CalculateWeeksOverdue(today.AddDate(0, 0, 10)))
}

func TestBorrow(t *testing.T) {
	ctx := context.Background()

	t.Run("lends a free copy", func(t *testing.T) {
		db, l := setupLedger(t)
		createDocument(t, db, 1, entities.DocumentTypeBook, 1)

		lend, err := l.Borrow(ctx, clientEmail, 1)
		require.NoError(t, err)
		assert.Equal(t, ledger.Day(fixedNow), lend.LendDate)
		assert.True(t, lendExists(t, db, clientEmail, 1))
	})

	t.Run("no copies left", func(t *testing.T) {
		db, l := setupLedger(t)
		createDocument(t, db, 1, entities.DocumentTypeBook, 1)
		createLend(t, db, "other@example.com", 1, 2)

		_, err := l.Borrow(ctx, clientEmail, 1)
		assert.ErrorIs(t, err, ledger.ErrUnavailable)
	})

	t.Run("electronic documents are unlimited", func(t *testing.T) {
		db, l := setupLedger(t)
		createDocument(t, db, 2, entities.DocumentTypeElectronic, 0)

		_, err := l.Borrow(ctx, clientEmail, 2)
		assert.NoError(t, err)
	})

	t.Run("same document twice", func(t *testing.T) {
		db, l := setupLedger(t)
		createDocument(t, db, 1, entities.DocumentTypeBook, 3)

		_, err := l.Borrow(ctx, clientEmail, 1)
		require.NoError(t, err)
		_, err = l.Borrow(ctx, clientEmail, 1)
		assert.ErrorIs(t, err, ledger.ErrAlreadyBorrowed)
	})

	t.Run("unknown document or client", func(t *testing.T) {
		db, l := setupLedger(t)
		createDocument(t, db, 1, entities.DocumentTypeBook, 3)

		_, err := l.Borrow(ctx, clientEmail, 77)
		assert.ErrorIs(t, err, ledger.ErrNotFound)

		_, err = l.Borrow(ctx, "nobody@example.com", 1)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})
}

func TestBorrow_ConcurrentLastCopy(t *testing.T) {
	ctx := context.Background()
	db, l := setupLedger(t)
	createDocument(t, db, 1, entities.DocumentTypeBook, 1)
	require.NoError(t, db.Create(&entities.Client{Email: "other@example.com", Name: "Other"}).Error)

	emails := []string{clientEmail, "other@example.com"}
	errs := make([]error, len(emails))
	var wg sync.WaitGroup
	for i, email := range emails {
		wg.Add(1)
		go func(i int, email string) {
			defer wg.Done()
			_, errs[i] = l.Borrow(ctx, email, 1)
		}(i, email)
	}
	wg.Wait()

	succeeded, unavailable := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ledger.ErrUnavailable):
			unavailable++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, unavailable)

	var count int64
	require.NoError(t, db.Model(&entities.Lend{}).Where("document_id = ?", 1).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSettleBalance(t *testing.T) {
	ctx := context.Background()
	db, l := setupLedger(t)
	require.NoError(t, db.Model(&entities.Client{}).
		Where("email = ?", clientEmail).
		Update("account_balance", decimal.NewFromInt(15)).Error)

	_, err := l.SettleBalance(ctx, clientEmail, decimal.NewFromInt(20))
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = l.SettleBalance(ctx, clientEmail, decimal.Zero)
	assert.ErrorIs(t, err, ledger.ErrValidation)

	payment, err := l.SettleBalance(ctx, clientEmail, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, entities.FeeKindBalance, payment.Kind)

	balance, err := l.Balance(ctx, clientEmail)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(5)))

	_, err = l.SettleBalance(ctx, "nobody@example.com", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestOverdueLoans(t *testing.T) {
	ctx := context.Background()
	db, l := setupLedger(t)
	createLend(t, db, clientEmail, 1, 41)
	createLend(t, db, clientEmail, 2, 5)
	createLend(t, db, "other@example.com", 3, 63)

	loans, err := l.OverdueLoans(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 2)

	assert.Equal(t, "other@example.com", loans[0].Email)
	assert.Equal(t, 5, loans[0].WeeksOverdue)
	assert.True(t, loans[0].FeeDue.Equal(decimal.NewFromInt(25)))

	assert.Equal(t, clientEmail, loans[1].Email)
	assert.Equal(t, 1, loans[1].WeeksOverdue)
}
