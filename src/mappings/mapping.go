// backend/src/mappings/mapping.go
package mappings

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// TargetKind classifies the destination of a mapped source column. The row
// processor dispatches on it exhaustively, so coercion rules live in one
// switch instead of being scattered behind string comparisons.
type TargetKind int

const (
	KindText TargetKind = iota
	KindTimestamp
	KindNumeric
	KindSide
	KindSymbol
	KindTag
)

// TagPrefix marks targets that append to the row's tag set instead of
// populating a scalar field, e.g. "tags.remarks".
const TagPrefix = "tags."

var timestampTargets = map[string]bool{
	"trade_time": true,
	"entry_time": true,
	"exit_time":  true,
}

var numericTargets = map[string]bool{
	"price":       true,
	"quantity":    true,
	"gross_value": true,
	"fees":        true,
	"entry_price": true,
	"exit_price":  true,
	"pnl":         true,
}

// KindOf returns the TargetKind for a target field name.
func KindOf(target string) TargetKind {
	switch {
	case strings.HasPrefix(target, TagPrefix):
		return KindTag
	case timestampTargets[target]:
		return KindTimestamp
	case numericTargets[target]:
		return KindNumeric
	case target == "side":
		return KindSide
	case target == "symbol":
		return KindSymbol
	default:
		return KindText
	}
}

// ColumnTarget describes where one source column lands: the target field,
// an optional explicit date layout, and an optional fixed value-substitution
// table for enumerated fields.
type ColumnTarget struct {
	To       string            `json:"to"`
	Format   string            `json:"fmt,omitempty"`
	Mappings map[string]string `json:"mappings,omitempty"`
}

// Heuristics is the per-broker cleanup block: candidate date layouts,
// documented numeric-cleanup step names, and symbol suffixes to strip.
type Heuristics struct {
	DateFormats         []string `json:"date_formats,omitempty"`
	NumericCleanup      []string `json:"numeric_cleanup,omitempty"`
	SymbolStripSuffixes []string `json:"symbol_strip_suffixes,omitempty"`
}

// MappingSpec is one named, versioned broker profile. Specs are static
// configuration: loaded once at startup, read-only at pipeline runtime.
type MappingSpec struct {
	ID               string                  `json:"id"`
	DisplayName      string                  `json:"display_name"`
	Broker           string                  `json:"broker,omitempty"`
	FileNamePatterns []string                `json:"file_name_patterns,omitempty"`
	ColumnMap        map[string]ColumnTarget `json:"column_map"`
	Heuristics       Heuristics              `json:"heuristics,omitempty"`
}

// BrokerName is the name hashed into trade fingerprints. Profiles normally
// declare it explicitly so the versioned display name can change without
// breaking dedup keys.
func (m *MappingSpec) BrokerName() string {
	if m.Broker != "" {
		return m.Broker
	}
	return m.DisplayName
}

// ParseSpec validates a single MappingSpec-shaped JSON document, as supplied
// by a caller overriding detection.
func ParseSpec(raw []byte) (*MappingSpec, error) {
	var spec MappingSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("invalid mapping JSON: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// LoadCatalog reads the static broker-profile catalog from disk.
func LoadCatalog(path string) ([]MappingSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping catalog %s: %w", path, err)
	}

	var catalog []MappingSpec
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("parsing mapping catalog %s: %w", path, err)
	}

	seen := make(map[string]bool, len(catalog))
	for i := range catalog {
		if err := catalog[i].validate(); err != nil {
			return nil, fmt.Errorf("mapping catalog %s entry %d: %w", path, i, err)
		}
		if seen[catalog[i].ID] {
			return nil, fmt.Errorf("mapping catalog %s: duplicate id %q", path, catalog[i].ID)
		}
		seen[catalog[i].ID] = true
	}
	return catalog, nil
}

func (m *MappingSpec) validate() error {
	if m.ID == "" {
		return fmt.Errorf("mapping spec missing id")
	}
	if m.DisplayName == "" {
		return fmt.Errorf("mapping spec %q missing display_name", m.ID)
	}
	if len(m.ColumnMap) == 0 {
		return fmt.Errorf("mapping spec %q has an empty column_map", m.ID)
	}
	for source, target := range m.ColumnMap {
		if source == "" || target.To == "" {
			return fmt.Errorf("mapping spec %q has a column entry without source or target", m.ID)
		}
	}
	return nil
}
