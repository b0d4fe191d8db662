package ranking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yowlens/lens/models"
)

func TestBuildTextQuery_PriorityOrder(t *testing.T) {
	attrs := models.GarmentAttributes{
		Category:            "top",
		Color:               "olive green and white",
		Texture:             "soft jersey",
		Pattern:             "horizontal_stripes",
		SleeveLength:        "long_sleeve",
		Fit:                 "relaxed",
		DistinctiveFeatures: []string{"horizontal breton stripes", "henley neckline", "button placket"},
		StyleKeywords:       []string{"breton", "striped", "casual", "henley"},
	}

	got := BuildTextQuery(attrs)

	assert.Equal(t,
		"olive green and white soft jersey horizontal breton stripes henley neckline button placket long sleeve relaxed striped casual top",
		got)
}

func TestBuildTextQuery_GlobalDedupe(t *testing.T) {
	attrs := models.GarmentAttributes{
		Color:               "Navy",
		DistinctiveFeatures: []string{"pleated", "pleated skirt"},
	}

	got := BuildTextQuery(attrs)

	assert.Equal(t, "navy pleated skirt", got)
	assert.Equal(t, 1, strings.Count(got, "pleated"))
}

func TestBuildTextQuery_Limits(t *testing.T) {
	attrs := models.GarmentAttributes{
		DistinctiveFeatures: []string{"alpha", "bravo", "charlie", "delta", "echo"},
		StyleKeywords:       []string{"foxtrot", "golf", "hotel", "india"},
	}

	assert.Equal(t, "alpha bravo charlie delta foxtrot golf hotel", BuildTextQuery(attrs))
}

func TestBuildTextQuery_SkipsShortWordsAndSentinels(t *testing.T) {
	attrs := models.GarmentAttributes{
		Category: "top",
		Color:    "-",
		Texture:  "None",
		Pattern:  "null",
		Fit:      "?",
		StyleKeywords: []string{
			"a la mode",
		},
	}

	assert.Equal(t, "mode top", BuildTextQuery(attrs))
}

func TestBuildTextQuery_AllEmpty(t *testing.T) {
	attrs := models.GarmentAttributes{
		Color:               "none",
		Texture:             "",
		Pattern:             "-",
		DistinctiveFeatures: []string{"", "null"},
	}

	assert.Equal(t, "", BuildTextQuery(attrs))
	assert.Equal(t, "", BuildTextQuery(models.GarmentAttributes{}))
}
