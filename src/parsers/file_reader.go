// backend/src/parsers/file_reader.go
package parsers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/username/tradefolio/backend/src/logger"
	"github.com/username/tradefolio/backend/src/models"
)

// Row cap when draining a legacy .xls workbook; broker exports are
// batch-sized, never unbounded.
const maxXLSRows = 1 << 20

type fileReaderImpl struct{}

func NewFileReader() FileReader {
	return &fileReaderImpl{}
}

// Read dispatches on the filename extension: spreadsheet formats go to the
// respective workbook decoder (first sheet only), .csv goes through the
// encoding-retry text path.
func (r *fileReaderImpl) Read(content []byte, filename string) (*models.RawTable, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return readCSV(content)
	case ".xlsx":
		return readXLSX(content)
	case ".xls":
		return readXLS(content)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func readCSV(content []byte) (*models.RawTable, error) {
	text, err := decodeText(content)
	if err != nil {
		return nil, err
	}

	records, err := parseDelimited(text, ',')
	if err == nil && !looksMisdelimited(records, text) {
		return tableFromRecords(records)
	}

	// Comma parsing failed, or produced a single wide column while the header
	// line clearly carries another separator: sniff and reparse.
	delim := sniffDelimiter(text)
	if delim != ',' {
		logger.L.Debug("Retrying CSV parse with sniffed delimiter", "delimiter", string(delim))
		if sniffed, sniffErr := parseDelimited(text, delim); sniffErr == nil {
			return tableFromRecords(sniffed)
		}
	}
	if err == nil {
		return tableFromRecords(records)
	}
	return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
}

func parseDelimited(text string, delim rune) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

// looksMisdelimited reports whether a comma parse collapsed every row into a
// single field even though the header line contains one of the other
// candidate delimiters. encoding/csv accepts such files without error, so the
// wrong-separator case has to be detected from the shape of the result.
func looksMisdelimited(records [][]string, text string) bool {
	if len(records) == 0 {
		return false
	}
	for _, rec := range records {
		if len(rec) > 1 {
			return false
		}
	}
	header := text
	if idx := strings.IndexByte(header, '\n'); idx >= 0 {
		header = header[:idx]
	}
	for _, cand := range delimiterCandidates {
		if cand != ',' && strings.ContainsRune(header, cand) {
			return true
		}
	}
	return false
}

func readXLSX(content []byte) (*models.RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	return tableFromRecords(rows)
}

func readXLS(content []byte) (*models.RawTable, error) {
	wb, err := xls.OpenReader(bytes.NewReader(content), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	return tableFromRecords(wb.ReadAllCells(maxXLSRows))
}

// tableFromRecords builds a RawTable from decoded records: first record is
// the header row, short data rows are padded so every row has a cell per
// header column.
func tableFromRecords(records [][]string) (*models.RawTable, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, fmt.Errorf("%w: file has no header row", ErrParseFailure)
	}

	headers := records[0]
	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < len(headers) {
			padded := make([]string, len(headers))
			copy(padded, rec)
			rec = padded
		}
		rows = append(rows, rec)
	}

	return &models.RawTable{Headers: headers, Rows: rows}, nil
}
