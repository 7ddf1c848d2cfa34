// backend/src/parsers/encoding.go
package parsers

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// fallbackEncodings are tried in order after native UTF-8. A Latin-1 decode
// cannot fail (every byte is a valid code point), so in practice the chain
// terminates there; the later entries keep the documented order visible.
var fallbackEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"latin-1", charmap.ISO8859_1},
	{"cp1252", charmap.Windows1252},
	{"iso-8859-1", charmap.ISO8859_1},
}

// decodeText converts raw bytes to a string, retrying encodings in order and
// stopping at the first that decodes without error.
func decodeText(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}
	for _, fe := range fallbackEncodings {
		decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(content), fe.enc.NewDecoder()))
		if err != nil {
			continue
		}
		return string(decoded), nil
	}
	return "", fmt.Errorf("%w: no known text encoding matched", ErrDecodeFailure)
}

const sniffSampleSize = 1024

var delimiterCandidates = []rune{',', ';', '\t', '|'}

// sniffDelimiter inspects a leading sample of the text and returns the
// candidate delimiter occurring most often in its first line.
func sniffDelimiter(text string) rune {
	sample := text
	if len(sample) > sniffSampleSize {
		sample = sample[:sniffSampleSize]
	}
	if idx := strings.IndexByte(sample, '\n'); idx >= 0 {
		sample = sample[:idx]
	}

	best := ','
	bestCount := 0
	for _, cand := range delimiterCandidates {
		if n := strings.Count(sample, string(cand)); n > bestCount {
			best = cand
			bestCount = n
		}
	}
	return best
}
