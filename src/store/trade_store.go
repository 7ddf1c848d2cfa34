// backend/src/store/trade_store.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/tradefolio/backend/src/logger"
	"github.com/username/tradefolio/backend/src/models"
)

// TradeStore persists processed rows, treating a previously-seen fingerprint
// for the same user as an update instead of a new insertion.
//
// Correctness against concurrent imports rests on two layers: a per-user
// mutex held across the lookup-and-write phase keeps the inserted/updated
// counts coherent, and the UNIQUE(user_id, import_hash) constraint plus
// ON CONFLICT DO UPDATE on the insert statement guarantees no duplicate row
// even if a writer slips past the lock.
type TradeStore struct {
	db        *sql.DB
	chunkSize int
	userLocks sync.Map // user id -> *sync.Mutex
}

func NewTradeStore(db *sql.DB, chunkSize int) *TradeStore {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	return &TradeStore{db: db, chunkSize: chunkSize}
}

func (s *TradeStore) lockUser(userID string) *sync.Mutex {
	mu, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

const insertTradeSQL = `
	INSERT INTO trades (
		id, user_id, symbol, side, entry_time, exit_time,
		quantity, price, entry_price, exit_price, gross_value, fees, pnl,
		broker, exchange, source_row_id, tags, import_hash, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id, import_hash) DO UPDATE SET
		symbol = excluded.symbol,
		side = excluded.side,
		entry_time = excluded.entry_time,
		exit_time = excluded.exit_time,
		quantity = excluded.quantity,
		price = excluded.price,
		entry_price = excluded.entry_price,
		exit_price = excluded.exit_price,
		gross_value = excluded.gross_value,
		fees = excluded.fees,
		pnl = excluded.pnl,
		exchange = excluded.exchange,
		source_row_id = excluded.source_row_id,
		tags = excluded.tags,
		updated_at = excluded.updated_at`

const updateTradeSQL = `
	UPDATE trades SET
		symbol = ?, side = ?, entry_time = ?, exit_time = ?,
		quantity = ?, price = ?, entry_price = ?, exit_price = ?,
		gross_value = ?, fees = ?, pnl = ?,
		exchange = ?, source_row_id = ?, tags = ?, updated_at = ?
	WHERE id = ?`

// UpsertTrades persists a batch for one user and returns the number of rows
// persisted (inserted + updated). Rows sharing a fingerprint within the
// batch collapse to one logical trade, last occurrence winning.
func (s *TradeStore) UpsertTrades(ctx context.Context, userID string, trades []models.Trade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	mu := s.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	deduped := dedupeByFingerprint(trades)

	existing, err := s.existingByFingerprint(ctx, userID, deduped)
	if err != nil {
		return 0, err
	}

	var toInsert, toUpdate []models.Trade
	for _, t := range deduped {
		if id, ok := existing[t.ImportHash]; ok {
			t.ID = id
			toUpdate = append(toUpdate, t)
		} else {
			toInsert = append(toInsert, t)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer tx.Rollback()

	// Chunked batched inserts bound single-statement size for huge files.
	if len(toInsert) > 0 {
		stmt, err := tx.PrepareContext(ctx, insertTradeSQL)
		if err != nil {
			return 0, fmt.Errorf("error preparing insert statement: %w", err)
		}
		defer stmt.Close()

		for start := 0; start < len(toInsert); start += s.chunkSize {
			end := min(start+s.chunkSize, len(toInsert))
			for _, t := range toInsert[start:end] {
				if _, err := stmt.ExecContext(ctx, insertArgs(&t)...); err != nil {
					return 0, fmt.Errorf("error inserting trade (hash %s): %w", t.ImportHash, err)
				}
			}
		}
	}

	for _, t := range toUpdate {
		if _, err := tx.ExecContext(ctx, updateTradeSQL, updateArgs(&t)...); err != nil {
			return 0, fmt.Errorf("error updating trade %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing trades: %w", err)
	}

	logger.L.Info("Trade batch persisted",
		"userID", userID, "inserted", len(toInsert), "updated", len(toUpdate))
	return len(toInsert) + len(toUpdate), nil
}

// existingByFingerprint maps fingerprints already persisted for this user to
// their row identities. The IN clause is chunked to stay within SQLite's
// bound-parameter limit.
func (s *TradeStore) existingByFingerprint(ctx context.Context, userID string, trades []models.Trade) (map[string]string, error) {
	existing := make(map[string]string)

	hashes := make([]string, 0, len(trades))
	for _, t := range trades {
		hashes = append(hashes, t.ImportHash)
	}

	for start := 0; start < len(hashes); start += s.chunkSize {
		end := min(start+s.chunkSize, len(hashes))
		chunk := hashes[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, 0, len(chunk)+1)
		args = append(args, userID)
		for _, h := range chunk {
			args = append(args, h)
		}

		rows, err := s.db.QueryContext(ctx,
			`SELECT import_hash, id FROM trades WHERE user_id = ? AND import_hash IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("error querying existing fingerprints for user %s: %w", userID, err)
		}
		for rows.Next() {
			var hash, id string
			if err := rows.Scan(&hash, &id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("error scanning existing fingerprint row: %w", err)
			}
			existing[hash] = id
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error iterating existing fingerprint rows: %w", err)
		}
		rows.Close()
	}
	return existing, nil
}

// CountTrades returns the number of persisted trades for a user.
func (s *TradeStore) CountTrades(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting trades for user %s: %w", userID, err)
	}
	return n, nil
}

// dedupeByFingerprint collapses same-fingerprint rows within a batch; they
// describe the same logical trade, and the later export line wins.
func dedupeByFingerprint(trades []models.Trade) []models.Trade {
	index := make(map[string]int, len(trades))
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if pos, ok := index[t.ImportHash]; ok {
			// Keep the first occurrence's identity, overwrite its fields.
			t.ID = out[pos].ID
			out[pos] = t
			continue
		}
		index[t.ImportHash] = len(out)
		out = append(out, t)
	}
	return out
}

func insertArgs(t *models.Trade) []any {
	return []any{
		t.ID, t.UserID, t.Symbol, t.Side,
		timeArg(&t.EntryTime), timeArg(t.ExitTime),
		decimalArg(t.Quantity), decimalArg(t.Price), decimalArg(t.EntryPrice),
		decimalArg(t.ExitPrice), decimalArg(t.GrossValue), decimalArg(t.Fees), decimalArg(t.PnL),
		t.Broker, t.Exchange, t.SourceRowID, tagsArg(t.Tags), t.ImportHash,
		timeArg(&t.CreatedAt), timeArg(&t.UpdatedAt),
	}
}

func updateArgs(t *models.Trade) []any {
	return []any{
		t.Symbol, t.Side, timeArg(&t.EntryTime), timeArg(t.ExitTime),
		decimalArg(t.Quantity), decimalArg(t.Price), decimalArg(t.EntryPrice),
		decimalArg(t.ExitPrice), decimalArg(t.GrossValue), decimalArg(t.Fees), decimalArg(t.PnL),
		t.Exchange, t.SourceRowID, tagsArg(t.Tags), timeArg(&t.UpdatedAt),
		t.ID,
	}
}

func decimalArg(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func tagsArg(tags []string) any {
	if len(tags) == 0 {
		return nil
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return nil
	}
	return string(encoded)
}
