// Package ranking scores catalog products against detected garments by
// combining visual, text and color similarity with keyword boosts.
package ranking

import (
	"math"
	"strings"
)

// RGB is a color in 8-bit RGB space.
type RGB struct {
	R, G, B uint8
}

// neutralGray is returned for unknown colors.
var neutralGray = RGB{128, 128, 128}

// maxRGBDistance is the Euclidean distance between black and white.
const maxRGBDistance = 441.67

type namedColor struct {
	name string
	rgb  RGB
}

// colorTable is scanned in order and the first substring hit wins, so a
// shade must be listed before any base hue it is commonly paired with.
var colorTable = []namedColor{
	{"black", RGB{0, 0, 0}},
	{"white", RGB{255, 255, 255}},
	{"red", RGB{255, 0, 0}},
	{"navy", RGB{0, 0, 128}},
	{"blue", RGB{0, 0, 255}},
	{"green", RGB{0, 128, 0}},
	{"olive", RGB{107, 142, 35}},
	{"yellow", RGB{255, 255, 0}},
	{"orange", RGB{255, 165, 0}},
	{"pink", RGB{255, 192, 203}},
	{"purple", RGB{128, 0, 128}},
	{"brown", RGB{139, 69, 19}},
	{"beige", RGB{245, 245, 220}},
	{"cream", RGB{255, 253, 208}},
	{"gray", RGB{128, 128, 128}},
	{"grey", RGB{128, 128, 128}},
	{"tan", RGB{210, 180, 140}},
	{"burgundy", RGB{128, 0, 32}},
	{"khaki", RGB{195, 176, 145}},
	{"indigo", RGB{75, 0, 130}},
	{"teal", RGB{0, 128, 128}},
}

// primaryColorWords is the vocabulary for ExtractPrimaryColor. When two words
// start at the same offset the one listed first wins.
var primaryColorWords = []string{
	"olive", "navy", "burgundy", "maroon", "charcoal", "teal", "indigo",
	"coral", "gold", "silver", "khaki", "beige", "cream", "tan",
	"black", "white", "gray", "grey", "blue", "red", "green",
	"brown", "pink", "purple", "yellow", "orange",
}

// ColorNameToRGB maps free text to the RGB value of the first table color it
// mentions, or neutral gray when it mentions none.
func ColorNameToRGB(text string) RGB {
	lower := strings.ToLower(text)
	for _, c := range colorTable {
		if strings.Contains(lower, c.name) {
			return c.rgb
		}
	}
	return neutralGray
}

// ExtractPrimaryColor returns the known color word that occurs earliest in
// text, or "gray" when there is none.
func ExtractPrimaryColor(text string) string {
	lower := strings.ToLower(text)
	best, bestPos := "gray", -1
	for _, word := range primaryColorWords {
		pos := strings.Index(lower, word)
		if pos == -1 {
			continue
		}
		if bestPos == -1 || pos < bestPos {
			best, bestPos = word, pos
		}
	}
	return best
}

// ColorDistance is the Euclidean distance between two colors in RGB space.
func ColorDistance(a, b RGB) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// ColorSimilarity maps an RGB distance to [0, 1].
func ColorSimilarity(distance float64) float64 {
	sim := 1 - distance/maxRGBDistance
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
