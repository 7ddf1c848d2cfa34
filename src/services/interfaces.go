package services

import (
	"context"
	"errors"

	"github.com/username/tradefolio/backend/src/mappings"
)

var (
	ErrParsingFailed  = errors.New("file parsing failed")
	ErrInvalidMapping = errors.New("invalid mapping override")
	ErrStorageFailed  = errors.New("trade persistence failed")
)

// ImportInput is everything the HTTP layer hands the pipeline: raw file
// bytes, the original filename, the authenticated owner, and an optional
// caller-supplied mapping override (MappingSpec-shaped JSON).
type ImportInput struct {
	Content         []byte
	Filename        string
	UserID          string
	MappingOverride []byte
}

// MappingRequiredResult is returned when no override was given and the best
// detection confidence fell below the configured threshold: the caller gets
// the normalized headers, a bounded row preview and the best guess so a
// human can confirm or correct the mapping.
type MappingRequiredResult struct {
	Status           string                `json:"status"`
	Headers          []string              `json:"headers"`
	Preview          []map[string]string   `json:"preview"`
	Confidence       float64               `json:"confidence"`
	SuggestedMapping *mappings.MappingSpec `json:"suggested_mapping"`
}

// ImportSummary is the success outcome of one import call.
type ImportSummary struct {
	Status      string   `json:"status"`
	Imported    int      `json:"imported"`
	TotalRows   int      `json:"total_rows"`
	ValidRows   int      `json:"valid_rows"`
	Errors      []string `json:"errors"`
	MappingUsed string   `json:"mapping_used"`
}

// ImportOutcome is exactly one of the two results.
type ImportOutcome struct {
	MappingRequired *MappingRequiredResult
	Summary         *ImportSummary
}

// ImportService is the single entry point the HTTP layer consumes.
type ImportService interface {
	ProcessImport(ctx context.Context, input ImportInput) (*ImportOutcome, error)
	GetLatestImportSummary(userID string) (*ImportSummary, bool)
}
