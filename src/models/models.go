package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade sides. Rows that cannot be resolved to one of these are rejected
// during processing and never persisted.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Trade is the canonical, deduplicated unit produced by the import pipeline.
// Numeric fields are nil when the source file carried no usable value and no
// derivation rule could fill them in.
type Trade struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Symbol      string           `json:"symbol"`
	Side        string           `json:"side"`
	EntryTime   time.Time        `json:"entry_time"`
	ExitTime    *time.Time       `json:"exit_time,omitempty"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	EntryPrice  *decimal.Decimal `json:"entry_price,omitempty"`
	ExitPrice   *decimal.Decimal `json:"exit_price,omitempty"`
	GrossValue  *decimal.Decimal `json:"gross_value,omitempty"`
	Fees        *decimal.Decimal `json:"fees,omitempty"`
	PnL         *decimal.Decimal `json:"pnl,omitempty"`
	Broker      string           `json:"broker"`
	Exchange    string           `json:"exchange,omitempty"`
	SourceRowID string           `json:"source_row_id,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	ImportHash  string           `json:"import_hash"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
