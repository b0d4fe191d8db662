package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yowlens/lens/models"
)

func TestPrintGroups(t *testing.T) {
	groups := []models.ResultGroup{
		{
			DetectedItem: models.GarmentAttributes{
				Category:            "top",
				Label:               "olive breton top",
				Color:               "olive green",
				Pattern:             "horizontal_stripes",
				DistinctiveFeatures: []string{"breton stripes"},
			},
			TextQuery:    "olive green breton stripes horizontal top",
			FilterUsed:   "pattern",
			FilteredOut:  2,
			TotalMatches: 7,
			Products: []models.ProductMatch{
				{
					Name:            "Olive Breton Striped Long Sleeve Cotton Jersey Top",
					Brand:           "Arket",
					Color:           "olive",
					Price:           35,
					SimilarityScore: 0.695,
					VisualScore:     0.9,
					ColorScore:      1,
					FeatureBoost:    0.1,
					MatchedFeatures: []string{"breton stripes"},
				},
			},
		},
		{DetectedItem: models.GarmentAttributes{Category: "hat", Texture: "none"}},
	}

	var buf bytes.Buffer
	printGroups(&buf, groups)
	out := buf.String()

	assert.Contains(t, out, "TOP: olive breton top")
	assert.Contains(t, out, "Pattern: horizontal_stripes | Texture: -")
	assert.Contains(t, out, "Features: breton stripes")
	assert.Contains(t, out, "Filter: pattern (2 removed)")
	assert.Contains(t, out, "Top 1 of 7 matches")
	assert.Contains(t, out, "1. ** [0.695] Olive Breton Striped Long Sleeve Cotton Jers...")
	assert.Contains(t, out, "V:0.90 T:0.00 C:1.00 +0.10 [breton stripes]")
	assert.Contains(t, out, "Arket | olive | $35.00")
	assert.Contains(t, out, "No hat products")
	assert.Equal(t, 2, strings.Count(out, strings.Repeat("=", 70)))
}

func TestMatchMarker(t *testing.T) {
	assert.Equal(t, "**", matchMarker(0.61))
	assert.Equal(t, "* ", matchMarker(0.55))
	assert.Equal(t, "  ", matchMarker(0.5))
}
