package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yowlens/lens/models"
)

func TestCalculateFeatureBoost_VerbatimAndSynonym(t *testing.T) {
	attrs := models.GarmentAttributes{
		DistinctiveFeatures: []string{"Crew Neck", "woven leather", "pleated"},
	}

	boost, matched := CalculateFeatureBoost("Intrecciato Crew Neck Braided Woven Bag", attrs)

	// woven leather counts once although three synonyms hit
	assert.InDelta(t, 0.20, boost, 1e-9)
	assert.Equal(t, []string{"Crew Neck", "woven leather"}, matched)
}

func TestCalculateFeatureBoost_TextureAndStyle(t *testing.T) {
	attrs := models.GarmentAttributes{
		Texture:       "Ribbed",
		StyleKeywords: []string{"casual", "tee", "Henley"},
	}

	boost, matched := CalculateFeatureBoost("Ribbed Casual Henley Tee", attrs)

	assert.InDelta(t, 0.05+0.03+0.03, boost, 1e-9)
	assert.Equal(t, []string{"texture:ribbed", "style:casual", "style:Henley"}, matched)
}

func TestCalculateFeatureBoost_GenericTextureIgnored(t *testing.T) {
	for _, texture := range []string{"smooth", "Soft", "-", ""} {
		boost, matched := CalculateFeatureBoost("Soft Smooth Jersey Top", models.GarmentAttributes{Texture: texture})
		assert.Zero(t, boost, texture)
		assert.Empty(t, matched, texture)
	}
}

func TestCalculateFeatureBoost_Capped(t *testing.T) {
	attrs := models.GarmentAttributes{
		DistinctiveFeatures: []string{"ribbed", "pleated", "lace", "ruffle", "quilted", "sheer", "crew neck", "wide leg", "v-neck", "high waisted"},
		Texture:             "knit",
		StyleKeywords:       []string{"party", "evening"},
	}
	name := "Ribbed Pleated Lace Ruffle Quilted Sheer Crew Neck Wide Leg V-Neck High Waist Knit Party Evening"

	boost, matched := CalculateFeatureBoost(name, attrs)

	assert.Equal(t, DefaultBoostCap, boost)
	assert.Len(t, matched, 13)

	boost, _ = calculateFeatureBoost(name, attrs, 0.15)
	assert.Equal(t, 0.15, boost)
}

func TestCalculateFeatureBoost_NoMatch(t *testing.T) {
	boost, matched := CalculateFeatureBoost("Plain White Tee", models.GarmentAttributes{
		DistinctiveFeatures: []string{"breton stripes", ""},
		StyleKeywords:       []string{"casual"},
	})

	assert.Zero(t, boost)
	assert.Nil(t, matched)
}
