package ranking

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yowlens/lens/models"
)

// DefaultConcurrency bounds how many garments of one image are ranked at once.
const DefaultConcurrency = 4

// Detector finds garments in an image and cuts them out.
type Detector interface {
	Analyze(ctx context.Context, img image.Image) ([]models.GarmentAttributes, error)
	Crop(img image.Image, items []models.GarmentAttributes) []models.Crop
}

// GarmentSearcher ranks catalog products for a single garment.
type GarmentSearcher interface {
	Search(ctx context.Context, crop image.Image, attrs models.GarmentAttributes, opts Options) (*GarmentResult, error)
}

// LensOptions tunes a whole-image search.
type LensOptions struct {
	Ranking        Options
	Concurrency    int
	SortByCategory bool
}

// DefaultLensOptions returns the defaults for whole-image searches.
func DefaultLensOptions() LensOptions {
	return LensOptions{
		Ranking:        DefaultOptions(),
		Concurrency:    DefaultConcurrency,
		SortByCategory: true,
	}
}

// Lens runs shop-the-look searches over every garment in an image.
type Lens struct {
	detector Detector
	searcher GarmentSearcher
	logger   zerolog.Logger
}

// NewLens creates a whole-image searcher.
func NewLens(detector Detector, searcher GarmentSearcher, logger zerolog.Logger) *Lens {
	return &Lens{
		detector: detector,
		searcher: searcher,
		logger:   logger.With().Str("component", "lens").Logger(),
	}
}

// SearchImage detects garments in img and ranks catalog matches for each of
// them. Zero detections yield an empty result, not an error.
func (l *Lens) SearchImage(ctx context.Context, img image.Image, opts LensOptions) ([]models.ResultGroup, error) {
	start := time.Now()
	logger := l.logger.With().Str("search_id", uuid.NewString()).Logger()

	items, err := l.detector.Analyze(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("analyze image: %w", errors.Join(ErrDetection, err))
	}

	crops := make([]models.Crop, 0, len(items))
	for _, c := range l.detector.Crop(img, items) {
		if c.Attributes.BoundingBox == nil {
			logger.Debug().Str("category", c.Attributes.Category).Msg("dropping garment without bounding box")
			continue
		}
		crops = append(crops, c)
	}
	if len(crops) == 0 {
		logger.Info().Int("detected", len(items)).Msg("no searchable garments")
		return []models.ResultGroup{}, nil
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	groups := make([]models.ResultGroup, len(crops))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, c := range crops {
		i, c := i, c
		g.Go(func() error {
			res, err := l.searcher.Search(gctx, c.Image, c.Attributes, opts.Ranking)
			if err != nil {
				return fmt.Errorf("garment %d (%s): %w", i, c.Attributes.Category, err)
			}
			groups[i] = NewResultGroup(res)
			logger.Debug().
				Str("key", groups[i].Key).
				Str("filter_used", res.FilterUsed).
				Int("filtered_out", res.FilteredOut).
				Int("results", len(res.Candidates)).
				Msg("garment ranked")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.SortByCategory {
		SortByCategoryPriority(groups)
	}

	logger.Info().
		Int("garments", len(groups)).
		Dur("elapsed", time.Since(start)).
		Msg("image search complete")
	return groups, nil
}
