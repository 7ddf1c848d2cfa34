package mappings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func growwSpec() MappingSpec {
	return MappingSpec{
		ID:               "groww_v1",
		DisplayName:      "Groww Order History v1",
		Broker:           "Groww",
		FileNamePatterns: []string{"groww"},
		ColumnMap: map[string]ColumnTarget{
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
	}
}

func zerodhaSpec() MappingSpec {
	return MappingSpec{
		ID:               "zerodha_tradebook_v1",
		DisplayName:      "Zerodha Tradebook v1",
		Broker:           "Zerodha",
		FileNamePatterns: []string{"zerodha", "tradebook"},
		ColumnMap: map[string]ColumnTarget{
			"Symbol":               {To: "symbol"},
			"Trade_Date":           {To: "trade_time", Format: "2006-01-02"},
			"Trade_Type":           {To: "side", Mappings: map[string]string{"buy": "BUY", "sell": "SELL"}},
			"Quantity":             {To: "quantity"},
			"Price":                {To: "price"},
			"Order_Execution_Time": {To: "entry_time", Format: "2006-01-02T15:04:05"},
		},
	}
}

var growwHeaders = []string{
	"Date", "Product", "Buy/Sell", "Quantity", "Price",
	"Value", "Brokerage Charged", "Order Id", "Exchange", "Remarks",
}

func TestDetectMappingMatchesGrowwHeaders(t *testing.T) {
	catalog := []MappingSpec{growwSpec(), zerodhaSpec()}

	spec, confidence := DetectMapping(growwHeaders, "groww_trades_2023.csv", catalog)

	require.NotNil(t, spec)
	assert.Equal(t, "groww_v1", spec.ID)
	assert.Greater(t, confidence, 0.7)
	assert.LessOrEqual(t, confidence, 1.0)
}

func TestDetectMappingUnknownHeaders(t *testing.T) {
	catalog := []MappingSpec{growwSpec(), zerodhaSpec()}
	headers := []string{"Alpha", "Beta", "Gamma"}

	spec, confidence := DetectMapping(headers, "export.csv", catalog)

	assert.Nil(t, spec)
	assert.Equal(t, 0.0, confidence)
}

func TestDetectMappingEmptyCatalog(t *testing.T) {
	spec, confidence := DetectMapping(growwHeaders, "groww.csv", nil)

	assert.Nil(t, spec)
	assert.Equal(t, 0.0, confidence)
}

func TestDetectMappingTieKeepsFirst(t *testing.T) {
	first := growwSpec()
	second := growwSpec()
	second.ID = "groww_v1_copy"
	catalog := []MappingSpec{first, second}

	spec, _ := DetectMapping(growwHeaders, "groww.csv", catalog)

	require.NotNil(t, spec)
	assert.Equal(t, "groww_v1", spec.ID)
}

func TestScoreSpecFilenameBonusIsStrictlyMonotonic(t *testing.T) {
	spec := growwSpec()

	with := ScoreSpec(growwHeaders, "groww_trades.csv", &spec)
	without := ScoreSpec(growwHeaders, "trades.csv", &spec)

	assert.Greater(t, with, without)
}

func TestScoreSpecLooseHeaderMatch(t *testing.T) {
	spec := MappingSpec{
		ID:          "loose",
		DisplayName: "Loose",
		ColumnMap: map[string]ColumnTarget{
			"Order Id": {To: "source_row_id"},
		},
	}

	exact := ScoreSpec([]string{"Order Id"}, "x.csv", &spec)
	loose := ScoreSpec([]string{"order id"}, "x.csv", &spec)
	miss := ScoreSpec([]string{"Ticket"}, "x.csv", &spec)

	assert.Greater(t, exact, loose)
	assert.Greater(t, loose, miss)
	assert.Equal(t, 0.0, miss)
}

func TestScoreSpecAmbiguousHeaderPenalty(t *testing.T) {
	spec := zerodhaSpec()
	base := []string{"Symbol", "Quantity", "Price"}

	clean := ScoreSpec(base, "x.csv", &spec)
	withAmbiguous := ScoreSpec(append(base, "Amount"), "x.csv", &spec)

	assert.Greater(t, clean, withAmbiguous)
}

func TestScoreSpecClampedToUnitInterval(t *testing.T) {
	spec := growwSpec()

	confidence := ScoreSpec(growwHeaders, "groww_groww_groww.csv", &spec)

	assert.GreaterOrEqual(t, confidence, 0.0)
	assert.LessOrEqual(t, confidence, 1.0)
}
