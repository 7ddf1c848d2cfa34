package parsers

import (
	"errors"

	"github.com/username/tradefolio/backend/src/models"
)

// File-level failures. All abort the import; none are retryable within a call.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrDecodeFailure     = errors.New("could not decode file")
	ErrParseFailure      = errors.New("could not parse file")
)

// FileReader decodes an uploaded byte stream into a RawTable.
type FileReader interface {
	Read(content []byte, filename string) (*models.RawTable, error)
}
