package budget

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// ContentKind selects the estimation heuristic for a piece of content.
type ContentKind string

const (
	// KindProse covers documentation, learnings and other natural text.
	KindProse ContentKind = "prose"

	// KindStructured covers code, JSON, YAML and similar content, which
	// carries a higher token-per-word ratio than prose.
	KindStructured ContentKind = "structured"
)

// Heuristic constants. These are deliberate approximations, not a
// tokenizer: prose runs roughly 1.3 tokens per word, structured content
// roughly one token per 3.5 characters. Estimates are stable and
// monotonic (longer input never estimates lower) but carry an error of
// roughly +/-20% against real tokenizers, which is acceptable for
// budget thresholding.
const (
	proseTokensPerWord      = 1.3
	structuredCharsPerToken = 3.5
)

// Estimate returns the approximate token count of content under the
// given kind's heuristic.
func Estimate(content string, kind ContentKind) int {
	switch kind {
	case KindStructured:
		return int(math.Ceil(float64(len(content)) / structuredCharsPerToken))
	default:
		words := len(strings.Fields(content))
		return int(math.Round(float64(words) * proseTokensPerWord))
	}
}

// proseExtensions are file extensions treated as prose.
var proseExtensions = map[string]bool{
	".md":   true,
	".txt":  true,
	".rst":  true,
	".adoc": true,
}

// KindForPath picks the estimation kind from a file extension.
func KindForPath(path string) ContentKind {
	if proseExtensions[strings.ToLower(filepath.Ext(path))] {
		return KindProse
	}
	return KindStructured
}

// EstimateFile estimates the token count of a file's content, picking
// the heuristic from its extension.
func EstimateFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Estimate(string(data), KindForPath(path)), nil
}
