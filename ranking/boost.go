package ranking

import (
	"strings"
	"unicode/utf8"

	"github.com/yowlens/lens/models"
)

const (
	featureBoost = 0.10
	textureBoost = 0.05
	styleBoost   = 0.03

	// DefaultBoostCap bounds the total feature boost.
	DefaultBoostCap = 0.30
)

// featureSynonyms canonicalizes distinctive feature phrasings to the words a
// product name is likely to use instead.
var featureSynonyms = map[string][]string{
	"woven leather":      {"woven", "intrecciato", "braided"},
	"intrecciato":        {"woven", "intrecciato", "braided"},
	"woven":              {"woven", "intrecciato", "braided"},
	"horizontal stripes": {"stripe", "striped", "breton", "rugby"},
	"breton stripes":     {"breton", "striped", "stripe"},
	"crew neck":          {"crew neck", "crew-neck", "crewneck"},
	"v-neck":             {"v-neck", "v neck", "vneck"},
	"wide leg":           {"wide leg", "wide-leg"},
	"high waisted":       {"high waist", "high-waist", "high rise"},
	"pleated":            {"pleat", "pleated"},
	"ribbed":             {"ribbed", "rib"},
	"ruffle":             {"ruffle", "ruffled", "frill"},
	"lace":               {"lace", "lacy"},
	"quilted":            {"quilted", "quilt"},
	"sheer":              {"sheer", "transparent"},
}

var genericTextures = map[string]struct{}{
	"smooth": {},
	"soft":   {},
}

// CalculateFeatureBoost scores how well a product name corroborates the
// garment's distinctive features, texture and style keywords. The boost is
// capped at DefaultBoostCap.
func CalculateFeatureBoost(productName string, attrs models.GarmentAttributes) (float64, []string) {
	return calculateFeatureBoost(productName, attrs, DefaultBoostCap)
}

func calculateFeatureBoost(productName string, attrs models.GarmentAttributes, boostCap float64) (float64, []string) {
	name := strings.ToLower(productName)
	boost := 0.0
	var matched []string

	for _, feature := range attrs.DistinctiveFeatures {
		lower := strings.ToLower(strings.TrimSpace(feature))
		if lower == "" {
			continue
		}
		if strings.Contains(name, lower) {
			boost += featureBoost
			matched = append(matched, feature)
			continue
		}
		for _, syn := range featureSynonyms[lower] {
			if strings.Contains(name, syn) {
				boost += featureBoost
				matched = append(matched, feature)
				break
			}
		}
	}

	texture := strings.ToLower(strings.TrimSpace(attrs.Texture))
	if _, generic := genericTextures[texture]; !generic && !models.IsNoSignal(texture) && strings.Contains(name, texture) {
		boost += textureBoost
		matched = append(matched, "texture:"+texture)
	}

	for _, kw := range attrs.StyleKeywords {
		lower := strings.ToLower(kw)
		if utf8.RuneCountInString(lower) > 3 && strings.Contains(name, lower) {
			boost += styleBoost
			matched = append(matched, "style:"+kw)
		}
	}

	if boost > boostCap {
		boost = boostCap
	}
	return boost, matched
}
