package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
	"github.com/cp25sy5-modjot/expense-extractor/internal/ports"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "tx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSaveAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	date := "2024-01-15"

	in := domain.ExtractedTransaction{
		Merchant:    "Shoprite",
		Amount:      4622.5,
		Currency:    "NGN",
		Date:        &date,
		Items:       []string{"Bread", "Milk"},
		Category:    "Food",
		Description: "Bread, Milk",
		Status:      domain.StatusOK,
	}
	id, err := db.Save(ctx, in, ports.SaveMeta{UserID: "u1", Source: "discord-receipt"})
	require.NoError(t, err)
	assert.Len(t, id, 36)

	row, err := db.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "u1", row.UserID)
	assert.Equal(t, "discord-receipt", row.Source)
	assert.Equal(t, in, row.Domain())
}

func TestSaveNilItemsStoresEmptyArray(t *testing.T) {
	db := newTestDB(t)
	id, err := db.Save(context.Background(), domain.ExtractedTransaction{Merchant: "Uber", Amount: 10, Category: "Transport"}, ports.SaveMeta{})
	require.NoError(t, err)

	row, err := db.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "[]", row.Items)
	assert.Equal(t, []string{}, row.Domain().Items)
}

func TestCategoryTotalsAndByCategory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, tx := range []domain.ExtractedTransaction{
		{Merchant: "Uber", Amount: 4500, Category: "Transport"},
		{Merchant: "Bolt", Amount: 1500.25, Category: "Transport"},
		{Merchant: "Chicken Republic", Amount: 3000, Category: "Food"},
	} {
		_, err := db.Save(ctx, tx, ports.SaveMeta{Source: "discord"})
		require.NoError(t, err)
	}

	totals, err := db.CategoryTotals(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 6000.25, totals["Transport"], 0.001)
	assert.InDelta(t, 3000, totals["Food"], 0.001)
	assert.Len(t, totals, 2)

	rows, err := db.ByCategory(ctx, "Transport", 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = db.Get(ctx, "missing")
	assert.Error(t, err)
}
