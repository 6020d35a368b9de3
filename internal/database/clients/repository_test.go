package clients

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarydesk/internal/accounts"
	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/entities"
)

func setupTestDB(t *testing.T) (*database.Database, *Repository) {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "clients.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db, NewRepository(db.DB)
}

func newClient(email string) *entities.Client {
	return &entities.Client{
		Email:        email,
		Name:         "Reader",
		PasswordHash: "hash",
		Address:      &entities.Address{Address: "1 Library Way"},
		CreditCard:   &entities.CreditCard{Last4: "4242", Address: "1 Library Way"},
	}
}

func TestRepository_CreateClient(t *testing.T) {
	ctx := context.Background()
	db, repo := setupTestDB(t)

	require.NoError(t, repo.CreateClient(ctx, newClient("reader@example.com")))

	client, err := repo.GetClient(ctx, "reader@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Reader", client.Name)
	assert.True(t, client.AccountBalance.IsZero())
	require.NotNil(t, client.Address)
	assert.Equal(t, "1 Library Way", client.Address.Address)
	require.NotNil(t, client.CreditCard)
	assert.Equal(t, "4242", client.CreditCard.Last4)

	var addresses int64
	require.NoError(t, db.DB.Model(&entities.Address{}).Count(&addresses).Error)
	assert.Equal(t, int64(1), addresses)
}

func TestRepository_CreateClientDuplicate(t *testing.T) {
	ctx := context.Background()
	db, repo := setupTestDB(t)

	require.NoError(t, repo.CreateClient(ctx, newClient("reader@example.com")))
	err := repo.CreateClient(ctx, newClient("reader@example.com"))
	assert.ErrorIs(t, err, accounts.ErrClientExists)

	var cards int64
	require.NoError(t, db.DB.Model(&entities.CreditCard{}).Count(&cards).Error)
	assert.Equal(t, int64(1), cards)
}

func TestRepository_GetMissing(t *testing.T) {
	ctx := context.Background()
	_, repo := setupTestDB(t)

	_, err := repo.GetClient(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, accounts.ErrNotFound)

	_, err = repo.GetLibrarian(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, accounts.ErrNotFound)
}

func TestRepository_Librarian(t *testing.T) {
	ctx := context.Background()
	_, repo := setupTestDB(t)

	require.NoError(t, repo.CreateLibrarian(ctx, &entities.Librarian{Email: "lib@example.com", Name: "Lib", PasswordHash: "hash"}))
	assert.ErrorIs(t, repo.CreateLibrarian(ctx, &entities.Librarian{Email: "lib@example.com"}), accounts.ErrClientExists)

	librarian, err := repo.GetLibrarian(ctx, "lib@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Lib", librarian.Name)
}
