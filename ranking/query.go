package ranking

import (
	"strings"
	"unicode/utf8"

	"github.com/yowlens/lens/models"
)

const (
	maxQueryFeatures = 4
	maxQueryKeywords = 3
	minQueryWordLen  = 3
)

// queryBuilder accumulates unique words in insertion order.
type queryBuilder struct {
	words []string
	seen  map[string]struct{}
}

func (b *queryBuilder) add(text string) {
	if models.IsNoSignal(text) {
		return
	}
	for _, word := range strings.Fields(strings.ReplaceAll(strings.ToLower(text), "_", " ")) {
		if utf8.RuneCountInString(word) < minQueryWordLen {
			continue
		}
		if _, ok := b.seen[word]; ok {
			continue
		}
		b.seen[word] = struct{}{}
		b.words = append(b.words, word)
	}
}

// BuildTextQuery compiles garment attributes into the text used for the text
// embedding. Specific descriptors come first and the category comes last.
// An empty result means there is no text signal.
func BuildTextQuery(attrs models.GarmentAttributes) string {
	b := &queryBuilder{seen: make(map[string]struct{})}

	b.add(attrs.Color)
	b.add(attrs.Texture)
	for i, f := range attrs.DistinctiveFeatures {
		if i == maxQueryFeatures {
			break
		}
		b.add(f)
	}
	b.add(attrs.Pattern)
	b.add(attrs.SleeveLength)
	b.add(attrs.Fit)
	for i, kw := range attrs.StyleKeywords {
		if i == maxQueryKeywords {
			break
		}
		b.add(kw)
	}
	b.add(attrs.Category)

	return strings.Join(b.words, " ")
}
