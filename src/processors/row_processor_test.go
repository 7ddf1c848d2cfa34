package processors

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/tradefolio/backend/src/logger"
	"github.com/username/tradefolio/backend/src/mappings"
	"github.com/username/tradefolio/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	m.Run()
}

func growwTestSpec() *mappings.MappingSpec {
	return &mappings.MappingSpec{
		ID:          "groww_v1",
		DisplayName: "Groww Order History v1",
		Broker:      "Groww",
		ColumnMap: map[string]mappings.ColumnTarget{
			"Date":              {To: "trade_time", Format: "2006-01-02 15:04:05"},
			"Product":           {To: "symbol"},
			"Buy/Sell":          {To: "side", Mappings: map[string]string{"Buy": "BUY", "Sell": "SELL"}},
			"Quantity":          {To: "quantity"},
			"Price":             {To: "price"},
			"Value":             {To: "gross_value"},
			"Brokerage Charged": {To: "fees"},
			"Order Id":          {To: "source_row_id"},
			"Exchange":          {To: "exchange"},
			"Remarks":           {To: "tags.remarks"},
		},
		Heuristics: mappings.Heuristics{
			DateFormats:         []string{"2006-01-02 15:04:05"},
			SymbolStripSuffixes: []string{".NS", ".BO"},
		},
	}
}

func growwTable(rows ...[]string) *models.RawTable {
	return &models.RawTable{
		Headers: []string{
			"Date", "Product", "Buy/Sell", "Quantity", "Price",
			"Value", "Brokerage Charged", "Order Id", "Exchange", "Remarks",
		},
		Rows: rows,
	}
}

func TestProcessGrowwRow(t *testing.T) {
	table := growwTable([]string{
		"2023-01-15 10:30:00", "RELIANCE", "Buy", "10", "2300.50",
		"23005.00", "20", "ORD12345", "NSE", "Test Trade",
	})

	trades, rowErrors := NewRowProcessor().Process(table, growwTestSpec(), "user-1", "Groww")

	require.Len(t, trades, 1)
	assert.Empty(t, rowErrors)

	trade := trades[0]
	assert.Equal(t, "user-1", trade.UserID)
	assert.Equal(t, "RELIANCE", trade.Symbol)
	assert.Equal(t, models.SideBuy, trade.Side)
	assert.True(t, trade.EntryTime.Equal(time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC)))
	require.NotNil(t, trade.Quantity)
	assert.True(t, trade.Quantity.Equal(decimal.RequireFromString("10")))
	require.NotNil(t, trade.EntryPrice)
	assert.True(t, trade.EntryPrice.Equal(decimal.RequireFromString("2300.50")))
	require.NotNil(t, trade.GrossValue)
	assert.True(t, trade.GrossValue.Equal(decimal.RequireFromString("23005.00")))
	require.NotNil(t, trade.Fees)
	assert.True(t, trade.Fees.Equal(decimal.RequireFromString("20")))
	assert.Equal(t, "ORD12345", trade.SourceRowID)
	assert.Equal(t, "NSE", trade.Exchange)
	assert.Contains(t, trade.Tags, "remarks:Test Trade")
	assert.Equal(t, "Groww", trade.Broker)
	assert.NotEmpty(t, trade.ID)
	assert.NotEmpty(t, trade.ImportHash)
}

func TestProcessRowErrorsAreIndexedAndNonFatal(t *testing.T) {
	table := growwTable(
		[]string{"", "RELIANCE", "Buy", "10", "2300.50", "", "", "", "", ""},
		[]string{"2023-01-15 10:30:00", "TCS", "Hold", "5", "3500", "", "", "", "", ""},
		[]string{"2023-01-15 10:31:00", "INFY", "Sell", "2", "1500", "", "", "", "", ""},
	)

	trades, rowErrors := NewRowProcessor().Process(table, growwTestSpec(), "user-1", "Groww")

	require.Len(t, trades, 1)
	assert.Equal(t, "INFY", trades[0].Symbol)

	require.Len(t, rowErrors, 2)
	assert.Equal(t, "row 0: missing entry time", rowErrors[0])
	assert.Equal(t, `row 1: invalid side "HOLD"`, rowErrors[1])
}

func TestProcessDerivesGrossValue(t *testing.T) {
	table := growwTable([]string{
		"2023-01-15 10:30:00", "RELIANCE", "Buy", "10", "2300.50",
		"", "", "", "", "",
	})

	trades, _ := NewRowProcessor().Process(table, growwTestSpec(), "user-1", "Groww")

	require.Len(t, trades, 1)
	require.NotNil(t, trades[0].GrossValue)
	assert.True(t, trades[0].GrossValue.Equal(decimal.RequireFromString("23005.00")))
}

func TestProcessDerivesPriceFromGrossValue(t *testing.T) {
	table := growwTable([]string{
		"2023-01-15 10:30:00", "RELIANCE", "Buy", "10", "",
		"23005.00", "", "", "", "",
	})

	trades, _ := NewRowProcessor().Process(table, growwTestSpec(), "user-1", "Groww")

	require.Len(t, trades, 1)
	require.NotNil(t, trades[0].EntryPrice)
	assert.True(t, trades[0].EntryPrice.Equal(decimal.RequireFromString("2300.50")))
	require.NotNil(t, trades[0].Price)
	assert.True(t, trades[0].Price.Equal(decimal.RequireFromString("2300.50")))
}

func TestProcessCapturesUnmappedColumnsAsTags(t *testing.T) {
	table := &models.RawTable{
		Headers: []string{"Date", "Product", "Buy/Sell", "Quantity", "Price", "Notes"},
		Rows: [][]string{
			{"2023-01-15 10:30:00", "RELIANCE", "Buy", "10", "2300.50", "called in by client"},
		},
	}

	trades, _ := NewRowProcessor().Process(table, growwTestSpec(), "user-1", "Groww")

	require.Len(t, trades, 1)
	assert.Contains(t, trades[0].Tags, "Notes:called in by client")
}

func TestParseNumeric(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"1234.50", "1234.50"},
		{"1,234.50", "1234.50"},
		{"(1,234.50)", "-1234.50"},
		{"₹2,300.50", "2300.50"},
		{"$ 20", "20"},
		{"-15.25", "-15.25"},
	}

	for _, tc := range testCases {
		d := parseNumeric(tc.input)
		require.NotNil(t, d, "parseNumeric(%q) returned nil", tc.input)
		assert.True(t, d.Equal(decimal.RequireFromString(tc.expected)),
			"parseNumeric(%q) = %s, want %s", tc.input, d, tc.expected)
	}

	assert.Nil(t, parseNumeric("not a number"))
	assert.Nil(t, parseNumeric(""))
}

func TestClassifySide(t *testing.T) {
	subs := map[string]string{"Achat": "BUY", "Vente": "SELL"}

	assert.Equal(t, models.SideBuy, classifySide("Achat", subs))
	assert.Equal(t, models.SideSell, classifySide("Vente", subs))
	assert.Equal(t, models.SideBuy, classifySide("b", nil))
	assert.Equal(t, models.SideBuy, classifySide("BUY", nil))
	assert.Equal(t, models.SideSell, classifySide(" s ", nil))
	assert.Equal(t, "HOLD", classifySide("hold", nil))
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "RELIANCE", normalizeSymbol("reliance.ns", []string{".NS"}))
	assert.Equal(t, "TCS", normalizeSymbol("TCS - NSE", nil))
	assert.Equal(t, "INFY", normalizeSymbol("  INFY  ", nil))
}

func TestFingerprintIsFormatImmune(t *testing.T) {
	entryTime := time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC)

	qtyA := decimal.RequireFromString("10")
	qtyB := decimal.RequireFromString("10.0")
	priceA := decimal.RequireFromString("2300.50")
	priceB := decimal.RequireFromString("2300.5000")

	a := Fingerprint("Groww", "RELIANCE", entryTime, &qtyA, &priceA)
	b := Fingerprint("Groww", "RELIANCE", entryTime, &qtyB, &priceB)
	assert.Equal(t, a, b)

	// Sub-second jitter collapses too.
	jittered := Fingerprint("Groww", "RELIANCE", entryTime.Add(500*time.Millisecond), &qtyA, &priceA)
	assert.Equal(t, a, jittered)
}

func TestFingerprintDistinguishesTrades(t *testing.T) {
	entryTime := time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC)
	qty := decimal.RequireFromString("10")
	price := decimal.RequireFromString("2300.50")

	base := Fingerprint("Groww", "RELIANCE", entryTime, &qty, &price)

	otherSymbol := Fingerprint("Groww", "TCS", entryTime, &qty, &price)
	otherBroker := Fingerprint("Zerodha", "RELIANCE", entryTime, &qty, &price)
	otherTime := Fingerprint("Groww", "RELIANCE", entryTime.Add(time.Second), &qty, &price)
	nilQty := Fingerprint("Groww", "RELIANCE", entryTime, nil, &price)

	assert.NotEqual(t, base, otherSymbol)
	assert.NotEqual(t, base, otherBroker)
	assert.NotEqual(t, base, otherTime)
	assert.NotEqual(t, base, nilQty)
}
