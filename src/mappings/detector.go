// backend/src/mappings/detector.go
package mappings

import "strings"

// Scoring weights. The scorer is a pure function over (headers, filename,
// spec) so it can be unit-tested without the rest of the pipeline.
const (
	filenameSignalBudget   = 2.0
	filenameMatchBonus     = 2.0
	exactHeaderBonus       = 1.0
	looseHeaderBonus       = 0.5
	ambiguousHeaderPenalty = 0.2
)

// ambiguousHeaders appear across many broker formats and must not inflate
// confidence for any single profile.
var ambiguousHeaders = map[string]bool{
	"Amount": true,
	"Value":  true,
	"Total":  true,
	"Gross":  true,
	"Net":    true,
}

// DetectMapping scores every catalog profile against the normalized headers
// and original filename, returning the best candidate and its confidence in
// [0, 1]. Ties keep the first maximum in catalog order. An empty catalog, or
// one where nothing scores above zero, yields (nil, 0).
func DetectMapping(headers []string, filename string, catalog []MappingSpec) (*MappingSpec, float64) {
	var best *MappingSpec
	bestConfidence := 0.0

	for i := range catalog {
		confidence := ScoreSpec(headers, filename, &catalog[i])
		if confidence > bestConfidence {
			bestConfidence = confidence
			best = &catalog[i]
		}
	}
	return best, bestConfidence
}

// ScoreSpec computes one profile's confidence against the input. The budget
// is 2.0 for the filename signal plus one point per declared source column;
// the score is the filename bonus, per-column exact/loose matches, minus the
// ambiguous-header penalty, clamped into [0, 1] after dividing by the budget.
func ScoreSpec(headers []string, filename string, spec *MappingSpec) float64 {
	budget := filenameSignalBudget + float64(len(spec.ColumnMap))
	if budget <= 0 {
		return 0.0
	}

	score := 0.0

	lowerFilename := strings.ToLower(filename)
	for _, pattern := range spec.FileNamePatterns {
		if pattern != "" && strings.Contains(lowerFilename, strings.ToLower(pattern)) {
			score += filenameMatchBonus
			break
		}
	}

	exact := make(map[string]bool, len(headers))
	loose := make(map[string]bool, len(headers))
	for _, h := range headers {
		exact[h] = true
		loose[squashHeader(h)] = true
	}

	for source := range spec.ColumnMap {
		if exact[source] {
			score += exactHeaderBonus
		} else if loose[squashHeader(source)] {
			score += looseHeaderBonus
		}
	}

	for _, h := range headers {
		if ambiguousHeaders[h] {
			score -= ambiguousHeaderPenalty
		}
	}

	confidence := score / budget
	if confidence < 0 {
		return 0.0
	}
	if confidence > 1 {
		return 1.0
	}
	return confidence
}

// squashHeader lowercases and strips all whitespace, for the half-credit
// loose comparison.
func squashHeader(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}
