// Package detect turns a photo into cropped, attributed garments using a
// remote vision-language model.
package detect

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/yowlens/lens/models"
)

// box2DScale is the coordinate range the model reports boxes in.
const box2DScale = 1000.0

var (
	fenceRe = regexp.MustCompile("```(?:json)?\\s*")
	arrayRe = regexp.MustCompile(`\[[\s\S]*\]`)
)

type rawItem struct {
	models.GarmentAttributes
	Box2D []float64 `json:"box_2d"`
}

// ParseItems extracts garment attributes from a model answer. Markdown code
// fences are stripped and the outermost JSON array is decoded. Boxes given as
// box_2d [ymin, xmin, ymax, xmax] on a 0..1000 scale are normalized. An
// answer without any array means nothing was detected and yields no items.
func ParseItems(text string) ([]models.GarmentAttributes, error) {
	text = fenceRe.ReplaceAllString(strings.TrimSpace(text), "")
	match := arrayRe.FindString(text)
	if match == "" {
		return []models.GarmentAttributes{}, nil
	}

	var raw []rawItem
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return nil, fmt.Errorf("decode garment array: %w", err)
	}

	items := make([]models.GarmentAttributes, 0, len(raw))
	for _, r := range raw {
		item := r.GarmentAttributes
		if len(r.Box2D) == 4 {
			item.BoundingBox = &models.BoundingBox{
				YMin: r.Box2D[0] / box2DScale,
				XMin: r.Box2D[1] / box2DScale,
				YMax: r.Box2D[2] / box2DScale,
				XMax: r.Box2D[3] / box2DScale,
			}
		}
		items = append(items, item)
	}
	return items, nil
}
