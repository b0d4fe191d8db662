package models

// SearchRequest represents the per-garment search request body
type SearchRequest struct {
	Image         string            `json:"image"` // base64 encoded crop
	Attributes    GarmentAttributes `json:"attributes"`
	VisualWeight  *float64          `json:"visual_weight,omitempty"`
	TextWeight    *float64          `json:"text_weight,omitempty"`
	ColorWeight   *float64          `json:"color_weight,omitempty"`
	PoolSize      int               `json:"pool_size,omitempty"`
	Limit         int               `json:"limit,omitempty"`
	FilterPattern *bool             `json:"filter_pattern,omitempty"`
	MinResults    *int              `json:"min_results,omitempty"`
}

// ProductMatch represents a single ranked product
type ProductMatch struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Brand           string   `json:"brand"`
	Price           float64  `json:"price"`
	Color           string   `json:"color"`
	Category        string   `json:"category"`
	ImageURL        string   `json:"image_url"`
	SimilarityScore float64  `json:"similarity_score"`
	VisualScore     float64  `json:"visual_score"`
	TextScore       float64  `json:"text_score"`
	ColorScore      float64  `json:"color_score"`
	FeatureBoost    float64  `json:"feature_boost"`
	MatchedFeatures []string `json:"matched_features"`
	PatternMatch    bool     `json:"pattern_match"`
}

// ResultGroup is the ranked list for one detected garment
type ResultGroup struct {
	Key          string            `json:"key"`
	DetectedItem GarmentAttributes `json:"detected_item"`
	TextQuery    string            `json:"text_query"`
	FilterUsed   string            `json:"filter_used"`
	FilteredOut  int               `json:"filtered_out"`
	TotalMatches int               `json:"total_matches"`
	Products     []ProductMatch    `json:"products"`
}

// SearchResponse represents the per-garment search response body
type SearchResponse struct {
	Result ResultGroup `json:"result"`
}

// ShopTheLookResponse represents the whole-image search response body
type ShopTheLookResponse struct {
	Success       bool          `json:"success"`
	ItemsDetected int           `json:"items_detected"`
	Results       []ResultGroup `json:"results"`
}

// HealthResponse reports catalog availability
type HealthResponse struct {
	Status        string         `json:"status"`
	TotalProducts int            `json:"total_products"`
	Categories    map[string]int `json:"categories"`
}
