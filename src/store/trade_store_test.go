package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/tradefolio/backend/src/database"
	"github.com/username/tradefolio/backend/src/logger"
	"github.com/username/tradefolio/backend/src/models"
	"github.com/username/tradefolio/backend/src/processors"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	m.Run()
}

func newTestStore(t *testing.T) *TradeStore {
	t.Helper()
	database.InitDB(filepath.Join(t.TempDir(), "test.db"))
	t.Cleanup(func() { database.DB.Close() })
	return NewTradeStore(database.DB, 500)
}

func makeTrade(userID, symbol string, entryTime time.Time, qty, price string) models.Trade {
	quantity := decimal.RequireFromString(qty)
	p := decimal.RequireFromString(price)
	now := time.Now().UTC()
	return models.Trade{
		ID:         uuid.New().String(),
		UserID:     userID,
		Symbol:     symbol,
		Side:       models.SideBuy,
		EntryTime:  entryTime,
		Quantity:   &quantity,
		Price:      &p,
		EntryPrice: &p,
		Broker:     "Groww",
		CreatedAt:  now,
		UpdatedAt:  now,
		ImportHash: processors.Fingerprint("Groww", symbol, entryTime, &quantity, &p),
	}
}

func TestUpsertTradesInsertsNewRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	entryTime := time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC)

	trades := []models.Trade{
		makeTrade("user-1", "RELIANCE", entryTime, "10", "2300.50"),
		makeTrade("user-1", "TCS", entryTime, "5", "3500"),
	}

	imported, err := store.UpsertTrades(ctx, "user-1", trades)
	require.NoError(t, err)
	assert.Equal(t, 2, imported)

	count, err := store.CountTrades(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpsertTradesReimportUpdatesInsteadOfDuplicating(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	entryTime := time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC)

	first := []models.Trade{
		makeTrade("user-1", "RELIANCE", entryTime, "10", "2300.50"),
		makeTrade("user-1", "TCS", entryTime, "5", "3500"),
	}
	_, err := store.UpsertTrades(ctx, "user-1", first)
	require.NoError(t, err)

	// Same logical trades with fresh identities, as a re-import produces.
	second := []models.Trade{
		makeTrade("user-1", "RELIANCE", entryTime, "10", "2300.50"),
		makeTrade("user-1", "TCS", entryTime, "5", "3500"),
	}
	imported, err := store.UpsertTrades(ctx, "user-1", second)
	require.NoError(t, err)
	assert.Equal(t, 2, imported)

	count, err := store.CountTrades(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpsertTradesCollapsesInBatchDuplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	entryTime := time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC)

	trades := []models.Trade{
		makeTrade("user-1", "RELIANCE", entryTime, "10", "2300.50"),
		makeTrade("user-1", "RELIANCE", entryTime, "10", "2300.50"),
	}

	imported, err := store.UpsertTrades(ctx, "user-1", trades)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)

	count, err := store.CountTrades(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsertTradesIsolatesUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	entryTime := time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC)

	_, err := store.UpsertTrades(ctx, "user-1",
		[]models.Trade{makeTrade("user-1", "RELIANCE", entryTime, "10", "2300.50")})
	require.NoError(t, err)
	_, err = store.UpsertTrades(ctx, "user-2",
		[]models.Trade{makeTrade("user-2", "RELIANCE", entryTime, "10", "2300.50")})
	require.NoError(t, err)

	countA, err := store.CountTrades(ctx, "user-1")
	require.NoError(t, err)
	countB, err := store.CountTrades(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, 1, countA)
	assert.Equal(t, 1, countB)
}

func TestUpsertTradesEmptyBatch(t *testing.T) {
	store := newTestStore(t)

	imported, err := store.UpsertTrades(context.Background(), "user-1", nil)

	require.NoError(t, err)
	assert.Equal(t, 0, imported)
}

func TestDedupeByFingerprintLastWins(t *testing.T) {
	entryTime := time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC)
	a := makeTrade("user-1", "RELIANCE", entryTime, "10", "2300.50")
	b := makeTrade("user-1", "RELIANCE", entryTime, "10", "2300.50")
	b.Exchange = "NSE"

	deduped := dedupeByFingerprint([]models.Trade{a, b})

	require.Len(t, deduped, 1)
	// Later occurrence's fields win, first occurrence's identity survives.
	assert.Equal(t, a.ID, deduped[0].ID)
	assert.Equal(t, "NSE", deduped[0].Exchange)
}
