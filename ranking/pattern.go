package ranking

import (
	"strings"

	"github.com/yowlens/lens/models"
)

// patternKeywords lists the name fragments that confirm a pattern.
// Keys are normalized with normalizePattern.
var patternKeywords = map[string][]string{
	"horizontal stripes": {"horizontal stripe", "breton", "rugby", "stripe"},
	"vertical stripes":   {"vertical stripe", "pinstripe", "pin stripe"},
	"striped":            {"stripe", "striped", "stripes"},
	"stripes":            {"stripe", "striped", "stripes"},
	"plaid":              {"plaid", "check", "checked", "tartan"},
	"floral":             {"floral", "flower"},
	"woven":              {"woven", "intrecciato", "braided", "weave"},
	"quilted":            {"quilted", "quilt", "padded"},
}

// patternExcludes lists name fragments that rule a pattern out even when a
// positive keyword also matches.
var patternExcludes = map[string][]string{
	"horizontal stripes": {"pinstripe", "vertical"},
	"vertical stripes":   {"horizontal", "breton", "rugby"},
}

func normalizePattern(pattern string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.ToLower(pattern), "_", " "))
}

// isUnconstrainedPattern reports whether pattern imposes no filter.
func isUnconstrainedPattern(pattern string) bool {
	return models.IsNoSignal(pattern) || strings.EqualFold(strings.TrimSpace(pattern), "solid")
}

// CheckPatternMatch reports whether a product name is consistent with the
// requested pattern. Unknown patterns never filter.
func CheckPatternMatch(productName, pattern string) bool {
	if isUnconstrainedPattern(pattern) {
		return true
	}

	key := normalizePattern(pattern)
	name := strings.ToLower(productName)

	for _, kw := range patternExcludes[key] {
		if strings.Contains(name, kw) {
			return false
		}
	}

	keywords, ok := patternKeywords[key]
	if !ok {
		return true
	}
	for _, kw := range keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}
