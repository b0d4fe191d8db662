package models

import (
	"image"
	"strings"
)

// BoundingBox is a normalized (0..1) rectangle within the source image.
type BoundingBox struct {
	XMin float64 `json:"x_min"`
	YMin float64 `json:"y_min"`
	XMax float64 `json:"x_max"`
	YMax float64 `json:"y_max"`
}

// Valid reports whether the box has a positive area.
func (b BoundingBox) Valid() bool {
	return b.XMin < b.XMax && b.YMin < b.YMax
}

// GarmentAttributes describes one detected item in a source image.
type GarmentAttributes struct {
	Category            string       `json:"category"`
	Subcategory         string       `json:"subcategory,omitempty"`
	Label               string       `json:"label,omitempty"`
	Color               string       `json:"color,omitempty"`
	Material            string       `json:"material,omitempty"`
	Pattern             string       `json:"pattern,omitempty"`
	Texture             string       `json:"texture,omitempty"`
	Fit                 string       `json:"fit,omitempty"`
	SleeveLength        string       `json:"sleeve_length,omitempty"`
	Length              string       `json:"length,omitempty"`
	DistinctiveFeatures []string     `json:"distinctive_features,omitempty"`
	StyleKeywords       []string     `json:"style_keywords,omitempty"`
	BoundingBox         *BoundingBox `json:"bounding_box,omitempty"`
}

// Crop pairs a cropped sub-image with the attributes it was cut for.
type Crop struct {
	Image      image.Image
	Attributes GarmentAttributes
}

// CatalogProduct is a row of the product catalog.
type CatalogProduct struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Brand     string    `json:"brand"`
	Price     float64   `json:"price"`
	Category  string    `json:"category"`
	Color     string    `json:"color"`
	ImageURL  string    `json:"image_url"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// Neighbor is one nearest-neighbor hit returned by the vector store.
// Similarities are 1 - cosine distance.
type Neighbor struct {
	Product   CatalogProduct
	VisualSim float64
	TextSim   float64
}

// ScoredCandidate is a catalog product scored against one garment.
type ScoredCandidate struct {
	Product         CatalogProduct
	VisualSim       float64
	TextSim         float64
	ColorSim        float64
	FeatureBoost    float64
	CombinedScore   float64
	MatchedFeatures []string
	PatternMatch    bool
}

// noSignal lists the placeholder values the detector emits for "unknown".
var noSignal = map[string]struct{}{
	"":     {},
	"-":    {},
	"?":    {},
	"null": {},
	"none": {},
}

// IsNoSignal reports whether an attribute value carries no information.
func IsNoSignal(s string) bool {
	_, ok := noSignal[strings.ToLower(strings.TrimSpace(s))]
	return ok
}
