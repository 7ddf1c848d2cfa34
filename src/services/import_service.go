// backend/src/services/import_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/username/tradefolio/backend/src/logger"
	"github.com/username/tradefolio/backend/src/mappings"
	"github.com/username/tradefolio/backend/src/models"
	"github.com/username/tradefolio/backend/src/parsers"
	"github.com/username/tradefolio/backend/src/processors"
	"github.com/username/tradefolio/backend/src/security/validation"
	"github.com/username/tradefolio/backend/src/store"
)

const (
	// Short-lived cache of each user's most recent import summary.
	ckLatestImportSummary = "agg_latest_import_summary_user_%s"

	statusSuccess         = "success"
	statusMappingRequired = "mapping_required"
)

// Options bound the caller-visible parts of one import call.
type Options struct {
	ConfidenceThreshold float64
	PreviewRows         int
	MaxReportedErrors   int
	CacheExpiry         time.Duration
}

type importServiceImpl struct {
	fileReader   parsers.FileReader
	catalog      []mappings.MappingSpec
	rowProcessor *processors.RowProcessor
	tradeStore   *store.TradeStore
	summaryCache *cache.Cache
	opts         Options
}

// NewImportService wires the pipeline stages together. The catalog is an
// immutable value loaded once at startup and threaded through; nothing here
// mutates it.
func NewImportService(
	fileReader parsers.FileReader,
	catalog []mappings.MappingSpec,
	rowProcessor *processors.RowProcessor,
	tradeStore *store.TradeStore,
	summaryCache *cache.Cache,
	opts Options,
) ImportService {
	return &importServiceImpl{
		fileReader:   fileReader,
		catalog:      catalog,
		rowProcessor: rowProcessor,
		tradeStore:   tradeStore,
		summaryCache: summaryCache,
		opts:         opts,
	}
}

// ProcessImport runs one file through the whole pipeline:
// decode -> normalize headers -> detect (or take override) -> process rows
// -> upsert. A confidence below the threshold short-circuits into the
// mapping-required outcome instead of an error.
func (s *importServiceImpl) ProcessImport(ctx context.Context, input ImportInput) (*ImportOutcome, error) {
	overallStartTime := time.Now()
	logger.L.Info("ProcessImport START", "userID", input.UserID, "filename", input.Filename)

	table, err := s.fileReader.Read(input.Content, input.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	normalizedHeaders := mappings.NormalizeHeaders(table.Headers)
	table.RenameHeaders(normalizedHeaders)

	var spec *mappings.MappingSpec
	confidence := 0.0
	if len(input.MappingOverride) > 0 {
		spec, err = mappings.ParseSpec(input.MappingOverride)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
		}
		confidence = 1.0
		logger.L.Info("Using caller-supplied mapping override", "userID", input.UserID, "mapping", spec.ID)
	} else {
		spec, confidence = mappings.DetectMapping(normalizedHeaders, input.Filename, s.catalog)
	}

	if spec == nil || confidence < s.opts.ConfidenceThreshold {
		logger.L.Info("Mapping confidence below threshold, manual mapping required",
			"userID", input.UserID, "confidence", confidence, "threshold", s.opts.ConfidenceThreshold)
		return &ImportOutcome{
			MappingRequired: &MappingRequiredResult{
				Status:           statusMappingRequired,
				Headers:          normalizedHeaders,
				Preview:          previewRows(table, s.opts.PreviewRows),
				Confidence:       confidence,
				SuggestedMapping: spec,
			},
		}, nil
	}

	trades, rowErrors := s.rowProcessor.Process(table, spec, input.UserID, spec.BrokerName())

	imported, err := s.tradeStore.UpsertTrades(ctx, input.UserID, trades)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailed, err)
	}

	if len(rowErrors) > s.opts.MaxReportedErrors {
		rowErrors = rowErrors[:s.opts.MaxReportedErrors]
	}
	if rowErrors == nil {
		rowErrors = []string{}
	}

	summary := &ImportSummary{
		Status:      statusSuccess,
		Imported:    imported,
		TotalRows:   len(table.Rows),
		ValidRows:   len(trades),
		Errors:      rowErrors,
		MappingUsed: spec.DisplayName,
	}
	s.summaryCache.Set(fmt.Sprintf(ckLatestImportSummary, input.UserID), summary, s.opts.CacheExpiry)

	logger.L.Info("ProcessImport END",
		"userID", input.UserID, "imported", imported, "validRows", len(trades),
		"rowErrors", len(rowErrors), "duration", time.Since(overallStartTime))
	return &ImportOutcome{Summary: summary}, nil
}

// GetLatestImportSummary returns the cached summary of the user's most
// recent import, if one is still live.
func (s *importServiceImpl) GetLatestImportSummary(userID string) (*ImportSummary, bool) {
	if cached, found := s.summaryCache.Get(fmt.Sprintf(ckLatestImportSummary, userID)); found {
		return cached.(*ImportSummary), true
	}
	return nil, false
}

// previewRows renders the first N rows for the manual-mapping screen. Cell
// values are sanitized against formula injection before going back to a
// browser.
func previewRows(table *models.RawTable, n int) []map[string]string {
	if n > len(table.Rows) {
		n = len(table.Rows)
	}
	preview := make([]map[string]string, 0, n)
	for i := 0; i < n; i++ {
		rowMap := make(map[string]string, len(table.Headers))
		for col, header := range table.Headers {
			rowMap[header] = validation.SanitizeForFormulaInjection(table.Cell(i, col))
		}
		preview = append(preview, rowMap)
	}
	return preview
}
