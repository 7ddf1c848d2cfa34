// backend/src/processors/row_processor.go
package processors

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/username/tradefolio/backend/src/logger"
	"github.com/username/tradefolio/backend/src/mappings"
	"github.com/username/tradefolio/backend/src/models"
	"github.com/username/tradefolio/backend/src/utils"
)

// RowProcessor applies a selected mapping to every row of a RawTable:
// field coercion, heuristic cleanup, derived-value backfill, validation and
// fingerprinting. A bad row is collected as an error string, never fatal to
// the batch.
type RowProcessor struct{}

func NewRowProcessor() *RowProcessor {
	return &RowProcessor{}
}

// numericKeepRe strips everything that is not a digit, minus sign, decimal
// point, parenthesis or thousands separator before decimal parsing.
var numericKeepRe = regexp.MustCompile(`[^0-9\-\.\(\),]`)

// workingRow accumulates typed slot values for one source row before
// validation promotes it to a Trade.
type workingRow struct {
	symbol      string
	side        string
	tradeTime   *time.Time
	entryTime   *time.Time
	exitTime    *time.Time
	price       *decimal.Decimal
	quantity    *decimal.Decimal
	grossValue  *decimal.Decimal
	fees        *decimal.Decimal
	entryPrice  *decimal.Decimal
	exitPrice   *decimal.Decimal
	pnl         *decimal.Decimal
	sourceRowID string
	exchange    string
	tags        []string
}

// Process maps every table row through the selected mapping for the given owner.
// Valid rows and error strings are both ordered by source row index; errors
// use the form "row <index>: <reason>" with a 0-based index.
func (p *RowProcessor) Process(table *models.RawTable, spec *mappings.MappingSpec, userID, broker string) ([]models.Trade, []string) {
	var trades []models.Trade
	var rowErrors []string

	now := time.Now().UTC()
	for idx := range table.Rows {
		trade, err := p.processRow(table, spec, idx)
		if err != "" {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: %s", idx, err))
			continue
		}

		trade.ID = uuid.New().String()
		trade.UserID = userID
		trade.Broker = broker
		trade.CreatedAt = now
		trade.UpdatedAt = now
		trade.ImportHash = Fingerprint(broker, trade.Symbol, trade.EntryTime, trade.Quantity, trade.EntryPrice)
		trades = append(trades, *trade)
	}

	logger.L.Debug("Row processing finished",
		"mapping", spec.ID, "rows", len(table.Rows), "valid", len(trades), "errors", len(rowErrors))
	return trades, rowErrors
}

// processRow maps one source row. The returned string is empty on success
// and a human-readable rejection reason otherwise.
func (p *RowProcessor) processRow(table *models.RawTable, spec *mappings.MappingSpec, idx int) (*models.Trade, string) {
	row := &workingRow{}

	// Walk columns in table order so tag accumulation is deterministic.
	for col, header := range table.Headers {
		value := table.Cell(idx, col)
		target, mapped := spec.ColumnMap[header]

		if !mapped {
			// Lossless capture: unmapped source data survives as a tag.
			if strings.TrimSpace(value) != "" {
				row.tags = append(row.tags, header+":"+value)
			}
			continue
		}
		if strings.TrimSpace(value) == "" {
			continue
		}

		switch mappings.KindOf(target.To) {
		case mappings.KindTag:
			subkey := strings.TrimPrefix(target.To, mappings.TagPrefix)
			row.tags = append(row.tags, subkey+":"+value)
		case mappings.KindTimestamp:
			row.setTimestamp(target.To, parseTimestamp(value, target.Format, spec.Heuristics.DateFormats))
		case mappings.KindNumeric:
			row.setNumeric(target.To, parseNumeric(value))
		case mappings.KindSide:
			row.side = classifySide(value, target.Mappings)
		case mappings.KindSymbol:
			row.symbol = normalizeSymbol(value, spec.Heuristics.SymbolStripSuffixes)
		case mappings.KindText:
			row.setText(target.To, strings.TrimSpace(value))
		}
	}

	row.backfillDerived()

	if row.entryTime == nil {
		return nil, "missing entry time"
	}
	if row.symbol == "" {
		return nil, "missing symbol"
	}
	if row.side != models.SideBuy && row.side != models.SideSell {
		return nil, fmt.Sprintf("invalid side %q", row.side)
	}

	return &models.Trade{
		Symbol:      row.symbol,
		Side:        row.side,
		EntryTime:   *row.entryTime,
		ExitTime:    row.exitTime,
		Quantity:    row.quantity,
		Price:       row.price,
		EntryPrice:  row.entryPrice,
		ExitPrice:   row.exitPrice,
		GrossValue:  row.grossValue,
		Fees:        row.fees,
		PnL:         row.pnl,
		Exchange:    row.exchange,
		SourceRowID: row.sourceRowID,
		Tags:        row.tags,
	}, ""
}

func (r *workingRow) setTimestamp(target string, t *time.Time) {
	switch target {
	case "trade_time":
		r.tradeTime = t
	case "entry_time":
		r.entryTime = t
	case "exit_time":
		r.exitTime = t
	}
}

func (r *workingRow) setNumeric(target string, d *decimal.Decimal) {
	switch target {
	case "price":
		r.price = d
	case "quantity":
		r.quantity = d
	case "gross_value":
		r.grossValue = d
	case "fees":
		r.fees = d
	case "entry_price":
		r.entryPrice = d
	case "exit_price":
		r.exitPrice = d
	case "pnl":
		r.pnl = d
	}
}

func (r *workingRow) setText(target, value string) {
	switch target {
	case "source_row_id":
		r.sourceRowID = value
	case "exchange":
		r.exchange = value
	default:
		// Free-form targets without a scalar slot are kept as tags rather
		// than dropped.
		r.tags = append(r.tags, target+":"+value)
	}
}

// backfillDerived fills value gaps after all column mappings ran. Broker
// exports vary in whether they expose price/entry_price or
// trade_time/entry_time under the generic or the specific name.
func (r *workingRow) backfillDerived() {
	price := r.price
	if price == nil {
		price = r.entryPrice
	}

	if r.grossValue == nil && r.quantity != nil && price != nil &&
		!r.quantity.IsZero() && !price.IsZero() {
		gross := r.quantity.Mul(*price)
		r.grossValue = &gross
	}

	if price == nil && r.grossValue != nil && r.quantity != nil &&
		!r.grossValue.IsZero() && !r.quantity.IsZero() {
		derived := r.grossValue.Div(*r.quantity)
		r.entryPrice = &derived
		r.price = &derived
	}

	if r.entryPrice == nil && r.price != nil {
		r.entryPrice = r.price
	}
	if r.entryTime == nil && r.tradeTime != nil {
		r.entryTime = r.tradeTime
	}
}

// parseTimestamp tries the mapping's declared layout first, then best-effort
// generic parsing. nil means unparseable; the row is rejected later only if
// the missing value is the entry timestamp.
func parseTimestamp(value, layout string, heuristicFormats []string) *time.Time {
	value = strings.TrimSpace(value)
	if layout != "" {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	if t, ok := utils.ParseFlexibleDate(value, heuristicFormats); ok {
		return &t
	}
	return nil
}

// parseNumeric cleans one numeric cell: drop currency symbols and other
// noise, reinterpret a fully parenthesized value as negative, remove
// thousands separators, then parse as a decimal. nil means unparseable.
func parseNumeric(value string) *decimal.Decimal {
	s := numericKeepRe.ReplaceAllString(strings.TrimSpace(value), "")
	if len(s) > 1 && strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// classifySide resolves a side cell: the mapping's explicit substitution
// table wins, then the B/BUY and S/SELL shorthands; anything else is passed
// through uppercased and fails validation downstream.
func classifySide(value string, substitutions map[string]string) string {
	trimmed := strings.TrimSpace(value)
	if mapped, ok := substitutions[trimmed]; ok {
		return mapped
	}

	switch strings.ToUpper(trimmed) {
	case "B", "BUY":
		return models.SideBuy
	case "S", "SELL":
		return models.SideSell
	default:
		return strings.ToUpper(trimmed)
	}
}

// normalizeSymbol uppercases and trims, strips configured exchange suffixes,
// and truncates at the first " - " separator ("RELIANCE - NSE" conventions).
func normalizeSymbol(value string, stripSuffixes []string) string {
	s := strings.ToUpper(strings.TrimSpace(value))
	for _, suffix := range stripSuffixes {
		s = strings.TrimSuffix(s, strings.ToUpper(suffix))
	}
	if idx := strings.Index(s, " - "); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
