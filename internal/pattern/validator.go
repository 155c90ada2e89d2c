package pattern

import (
	"regexp"
	"strings"

	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
)

// MaxPatternLength bounds rule patterns.
const MaxPatternLength = 500

// ValidateRule rejects rules that could never match or cannot be evaluated.
// Patterns are expected to be trimmed by the caller.
func ValidateRule(pattern string, matchType model.MatchType) error {
	if strings.TrimSpace(pattern) == "" {
		return common.Validationf("rule pattern is required")
	}
	if len(pattern) > MaxPatternLength {
		return common.Validationf("rule pattern exceeds %d characters", MaxPatternLength)
	}
	if !matchType.Valid() {
		return common.Validationf("unknown match type %q", matchType)
	}
	if matchType == model.MatchRegex {
		if _, err := regexp.Compile("(?i)" + pattern); err != nil {
			return common.Validationf("invalid regex %q: %v", pattern, err)
		}
	}
	return nil
}
