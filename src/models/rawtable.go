// backend/src/models/rawtable.go
package models

// RawTable is the in-memory tabular form of one uploaded file: an ordered
// header row plus ordered data rows, every cell kept as the string the
// decoder produced. It is built once by the file reader and, apart from
// header renaming after normalization, never mutated afterwards.
type RawTable struct {
	Headers []string
	Rows    [][]string
}

// Cell returns the value at (row, column index), tolerating short rows.
func (t *RawTable) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// RenameHeaders swaps the header row for its normalized form. The
// replacement must preserve length and order.
func (t *RawTable) RenameHeaders(normalized []string) {
	if len(normalized) == len(t.Headers) {
		t.Headers = normalized
	}
}
