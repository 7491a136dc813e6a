package purchases

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dcastellanos/marketbay-backend/pkg/db/models"
)

func setupPurchasesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Transaction{}, &models.Purchase{}))
	return conn
}

func insertLedgerPair(t *testing.T, repo *Repository, buyerID uuid.UUID, total string, createdAt time.Time) *models.Purchase {
	t.Helper()

	txn := &models.Transaction{
		ID:        uuid.New(),
		BuyerID:   buyerID,
		CardLast4: "1111",
		Amount:    decimal.RequireFromString(total),
		Approved:  true,
		CreatedAt: createdAt,
	}
	require.NoError(t, repo.InsertTransaction(context.Background(), txn))

	purchase := &models.Purchase{
		ID:            uuid.New(),
		BuyerID:       buyerID,
		TransactionID: txn.ID,
		ItemIDs:       []string{uuid.NewString(), uuid.NewString()},
		Total:         txn.Amount,
		CreatedAt:     createdAt,
	}
	require.NoError(t, repo.InsertPurchase(context.Background(), purchase))
	return purchase
}

func TestListByBuyerNewestFirst(t *testing.T) {
	repo := NewRepository(setupPurchasesTestDB(t))
	buyerID := uuid.New()

	older := insertLedgerPair(t, repo, buyerID, "10.00", time.Now().Add(-time.Hour))
	newer := insertLedgerPair(t, repo, buyerID, "25.00", time.Now())
	insertLedgerPair(t, repo, uuid.New(), "99.00", time.Now())

	rows, err := repo.ListByBuyer(context.Background(), buyerID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, older.ID, rows[1].ID)
	assert.True(t, rows[0].Total.Equal(decimal.RequireFromString("25.00")))
	assert.Len(t, rows[0].ItemIDs, 2)
}

func TestListByBuyerEmpty(t *testing.T) {
	repo := NewRepository(setupPurchasesTestDB(t))

	rows, err := repo.ListByBuyer(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestInsertPurchaseRejectsDuplicateTransaction(t *testing.T) {
	repo := NewRepository(setupPurchasesTestDB(t))
	buyerID := uuid.New()

	first := insertLedgerPair(t, repo, buyerID, "10.00", time.Now())

	dup := &models.Purchase{
		ID:            uuid.New(),
		BuyerID:       buyerID,
		TransactionID: first.TransactionID,
		ItemIDs:       []string{uuid.NewString()},
		Total:         decimal.RequireFromString("10.00"),
	}
	err := repo.InsertPurchase(context.Background(), dup)
	require.Error(t, err)
}
