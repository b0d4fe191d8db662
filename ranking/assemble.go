package ranking

import (
	"math"
	"sort"
	"strings"

	"github.com/yowlens/lens/models"
)

const maxKeyLabelLen = 30

// categoryRanks orders garment categories for presentation, most prominent
// first.
var categoryRanks = []struct {
	keyword string
	rank    int
}{
	{"outerwear", 0}, {"coat", 0}, {"jacket", 0}, {"blazer", 0}, {"parka", 0},
	{"dress", 1}, {"jumpsuit", 1}, {"playsuit", 1},
	{"top", 2}, {"shirt", 2}, {"blouse", 2}, {"sweater", 2}, {"jumper", 2}, {"cardigan", 2}, {"tee", 2},
	{"bottom", 3}, {"jeans", 3}, {"trouser", 3}, {"pants", 3}, {"skirt", 3}, {"shorts", 3}, {"leggings", 3},
	{"shoe", 4}, {"boot", 4}, {"sneaker", 4}, {"trainer", 4}, {"heel", 4}, {"sandal", 4}, {"loafer", 4},
	{"bag", 5}, {"purse", 5}, {"clutch", 5}, {"tote", 5},
	{"accessory", 6}, {"accessories", 6}, {"jewelry", 6}, {"jewellery", 6}, {"necklace", 6}, {"earring", 6},
	{"bracelet", 6}, {"ring", 6}, {"belt", 6}, {"sunglasses", 6}, {"hat", 6}, {"cap", 6}, {"scarf", 6}, {"watch", 6},
}

// unknownCategoryRank sorts after every known category.
const unknownCategoryRank = 7

// CategoryPriority returns the display rank of a garment category; lower
// ranks are shown first. Compound categories rank by their last recognized
// word, so "dress shoes" is footwear and "laptop bag" is a bag. A word also
// matches when it ends in a keyword ("handbag", "t-shirt") or is its plural.
func CategoryPriority(category string) int {
	words := strings.Fields(strings.ToLower(category))
	for i := len(words) - 1; i >= 0; i-- {
		for _, e := range categoryRanks {
			if isCategoryWord(words[i], e.keyword) {
				return e.rank
			}
		}
	}
	for i := len(words) - 1; i >= 0; i-- {
		for _, e := range categoryRanks {
			if strings.HasSuffix(strings.TrimSuffix(words[i], "s"), e.keyword) {
				return e.rank
			}
		}
	}
	return unknownCategoryRank
}

func isCategoryWord(word, keyword string) bool {
	return word == keyword || word == keyword+"s" || word == keyword+"es"
}

// SortByCategoryPriority orders result groups by category rank, keeping
// detection order within a rank. Scores are not touched.
func SortByCategoryPriority(groups []models.ResultGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		return CategoryPriority(groups[i].DetectedItem.Category) < CategoryPriority(groups[j].DetectedItem.Category)
	})
}

// GroupKey builds the result key "<category>_<label>" with the label cut to
// 30 characters and every space replaced by an underscore.
func GroupKey(attrs models.GarmentAttributes) string {
	category := strings.ToLower(strings.TrimSpace(attrs.Category))
	if category == "" {
		category = "unknown"
	}
	label := attrs.Label
	if strings.TrimSpace(label) == "" {
		label = "unknown"
	}
	if r := []rune(label); len(r) > maxKeyLabelLen {
		label = string(r[:maxKeyLabelLen])
	}
	return category + "_" + strings.ReplaceAll(label, " ", "_")
}

// NewResultGroup converts a garment result into its response shape.
func NewResultGroup(res *GarmentResult) models.ResultGroup {
	products := make([]models.ProductMatch, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		matched := c.MatchedFeatures
		if matched == nil {
			matched = []string{}
		}
		products = append(products, models.ProductMatch{
			ID:              c.Product.ID,
			Name:            c.Product.Name,
			Brand:           c.Product.Brand,
			Price:           c.Product.Price,
			Color:           c.Product.Color,
			Category:        c.Product.Category,
			ImageURL:        c.Product.ImageURL,
			SimilarityScore: round3(c.CombinedScore),
			VisualScore:     round3(c.VisualSim),
			TextScore:       round3(c.TextSim),
			ColorScore:      round3(c.ColorSim),
			FeatureBoost:    round3(c.FeatureBoost),
			MatchedFeatures: matched,
			PatternMatch:    c.PatternMatch,
		})
	}
	return models.ResultGroup{
		Key:          GroupKey(res.Attributes),
		DetectedItem: res.Attributes,
		TextQuery:    res.TextQuery,
		FilterUsed:   res.FilterUsed,
		FilteredOut:  res.FilteredOut,
		TotalMatches: res.TotalMatches,
		Products:     products,
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
