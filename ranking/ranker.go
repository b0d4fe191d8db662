package ranking

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yowlens/lens/models"
)

// Filter policy labels reported with every garment result.
const (
	FilterPattern  = "pattern"
	FilterNone     = "none"
	FilterFallback = "none (fallback)"
)

// Embedder encodes images and text into the shared embedding space.
type Embedder interface {
	EncodeImage(ctx context.Context, img image.Image) ([]float32, error)
	EncodeText(ctx context.Context, text string) ([]float32, error)
}

// NeighborQuery describes one nearest-neighbor lookup. When Text is nil the
// store ranks by visual similarity alone; otherwise by an equal blend of both.
// An empty Category searches the whole catalog.
type NeighborQuery struct {
	Image    []float32
	Text     []float32
	Category string
	Limit    int
}

// Store is the vector-indexed product catalog.
type Store interface {
	NearestNeighbors(ctx context.Context, q NeighborQuery) ([]models.Neighbor, error)
	CountByCategory(ctx context.Context, category string) (int, error)
}

// Options tunes one garment search.
type Options struct {
	VisualWeight  float64
	TextWeight    float64
	ColorWeight   float64
	PoolSize      int
	FinalLimit    int
	FilterPattern bool
	MinResults    int
	BoostCap      float64
	CallTimeout   time.Duration
}

// DefaultOptions returns the weights and limits the ranker was tuned with.
func DefaultOptions() Options {
	return Options{
		VisualWeight:  0.55,
		TextWeight:    0.35,
		ColorWeight:   0.10,
		PoolSize:      100,
		FinalLimit:    10,
		FilterPattern: true,
		MinResults:    5,
		BoostCap:      DefaultBoostCap,
		CallTimeout:   10 * time.Second,
	}
}

// withDefaults fills limits that cannot be meaningfully zero. Weights are left
// alone since a zero weight switches a signal off.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PoolSize <= 0 {
		o.PoolSize = d.PoolSize
	}
	if o.FinalLimit <= 0 {
		o.FinalLimit = d.FinalLimit
	}
	if o.MinResults < 0 {
		o.MinResults = d.MinResults
	}
	if o.BoostCap <= 0 {
		o.BoostCap = d.BoostCap
	}
	return o
}

// GarmentResult is the ranked outcome of one garment search.
type GarmentResult struct {
	Attributes       models.GarmentAttributes
	TextQuery        string
	Candidates       []models.ScoredCandidate
	FilterUsed       string
	FilteredOut      int
	TotalMatches     int
	CategoryFiltered bool
}

// Ranker runs the hybrid ranking pipeline for single garments.
type Ranker struct {
	embedder Embedder
	store    Store
	logger   zerolog.Logger
}

// NewRanker creates a ranker over the given collaborators.
func NewRanker(embedder Embedder, store Store, logger zerolog.Logger) *Ranker {
	return &Ranker{
		embedder: embedder,
		store:    store,
		logger:   logger.With().Str("component", "ranker").Logger(),
	}
}

// Search ranks catalog products against one cropped garment.
func (r *Ranker) Search(ctx context.Context, crop image.Image, attrs models.GarmentAttributes, opts Options) (*GarmentResult, error) {
	if attrs.BoundingBox == nil {
		return nil, ErrMissingBoundingBox
	}
	opts = opts.withDefaults()

	textQuery := BuildTextQuery(attrs)
	queryRGB := ColorNameToRGB(ExtractPrimaryColor(attrs.Color))

	imageVec, err := r.encodeImage(ctx, crop, opts.CallTimeout)
	if err != nil {
		return nil, err
	}
	var textVec []float32
	if textQuery != "" {
		if textVec, err = r.encodeText(ctx, textQuery, opts.CallTimeout); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	category := strings.ToLower(strings.TrimSpace(attrs.Category))
	restrict := false
	if category != "" {
		n, err := r.countByCategory(ctx, category, opts.CallTimeout)
		if err != nil {
			return nil, err
		}
		restrict = n > 0
	}

	q := NeighborQuery{Image: imageVec, Text: textVec, Limit: opts.PoolSize}
	if restrict {
		q.Category = category
	}
	neighbors, err := r.nearestNeighbors(ctx, q, opts.CallTimeout)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.logger.Debug().
		Str("category", category).
		Bool("category_filtered", restrict).
		Bool("text_signal", textVec != nil).
		Int("candidates", len(neighbors)).
		Msg("retrieved candidates")

	scored, filteredOut := scoreNeighbors(neighbors, attrs, queryRGB, opts, opts.FilterPattern)

	filterUsed := FilterNone
	if opts.FilterPattern && !isUnconstrainedPattern(attrs.Pattern) {
		filterUsed = FilterPattern
	}
	if opts.FilterPattern && len(scored) < opts.MinResults {
		scored, _ = scoreNeighbors(neighbors, attrs, queryRGB, opts, false)
		for i := range scored {
			scored[i].PatternMatch = true
		}
		filterUsed = FilterFallback
		if filteredOut > 0 {
			r.logger.Warn().
				Str("pattern", attrs.Pattern).
				Str("category", category).
				Int("filtered_out", filteredOut).
				Int("min_results", opts.MinResults).
				Msg("pattern filter left too few results, falling back to unfiltered ranking")
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].CombinedScore > scored[j].CombinedScore
	})
	total := len(scored)
	if len(scored) > opts.FinalLimit {
		scored = scored[:opts.FinalLimit]
	}

	return &GarmentResult{
		Attributes:       attrs,
		TextQuery:        textQuery,
		Candidates:       scored,
		FilterUsed:       filterUsed,
		FilteredOut:      filteredOut,
		TotalMatches:     total,
		CategoryFiltered: restrict,
	}, nil
}

// scoreNeighbors computes combined scores, dropping pattern mismatches when
// filter is set.
func scoreNeighbors(neighbors []models.Neighbor, attrs models.GarmentAttributes, queryRGB RGB, opts Options, filter bool) ([]models.ScoredCandidate, int) {
	scored := make([]models.ScoredCandidate, 0, len(neighbors))
	filteredOut := 0
	for _, n := range neighbors {
		patternMatch := CheckPatternMatch(n.Product.Name, attrs.Pattern)
		if filter && !patternMatch {
			filteredOut++
			continue
		}

		productColor := n.Product.Color
		if productColor == "" {
			productColor = "gray"
		}
		colorSim := ColorSimilarity(ColorDistance(queryRGB, ColorNameToRGB(productColor)))
		boost, matched := calculateFeatureBoost(n.Product.Name, attrs, opts.BoostCap)

		scored = append(scored, models.ScoredCandidate{
			Product:         n.Product,
			VisualSim:       n.VisualSim,
			TextSim:         n.TextSim,
			ColorSim:        colorSim,
			FeatureBoost:    boost,
			CombinedScore:   opts.VisualWeight*n.VisualSim + opts.TextWeight*n.TextSim + opts.ColorWeight*colorSim + boost,
			MatchedFeatures: matched,
			PatternMatch:    patternMatch,
		})
	}
	return scored, filteredOut
}

func (r *Ranker) encodeImage(ctx context.Context, img image.Image, timeout time.Duration) ([]float32, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	vec, err := r.embedder.EncodeImage(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", errors.Join(ErrEmbeddingService, err))
	}
	return vec, nil
}

func (r *Ranker) encodeText(ctx context.Context, text string, timeout time.Duration) ([]float32, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	vec, err := r.embedder.EncodeText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("encode text query: %w", errors.Join(ErrEmbeddingService, err))
	}
	return vec, nil
}

func (r *Ranker) countByCategory(ctx context.Context, category string, timeout time.Duration) (int, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	n, err := r.store.CountByCategory(ctx, category)
	if err != nil {
		return 0, fmt.Errorf("count category %q: %w", category, errors.Join(ErrStoreQuery, err))
	}
	return n, nil
}

func (r *Ranker) nearestNeighbors(ctx context.Context, q NeighborQuery, timeout time.Duration) ([]models.Neighbor, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	neighbors, err := r.store.NearestNeighbors(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbors: %w", errors.Join(ErrStoreQuery, err))
	}
	return neighbors, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
