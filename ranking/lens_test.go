package ranking

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yowlens/lens/models"
)

func garment(category, label string) models.GarmentAttributes {
	return models.GarmentAttributes{Category: category, Label: label, BoundingBox: box()}
}

func TestLens_OrdersGroupsByCategoryPriority(t *testing.T) {
	detector := &fakeDetector{items: []models.GarmentAttributes{
		garment("belt", "brown leather belt"),
		garment("coat", "camel wool coat"),
		garment("jeans", "light wash jeans"),
	}}
	store := &fakeStore{neighbors: threeProducts()}
	lens := NewLens(detector, NewRanker(&fakeEmbedder{}, store, zerolog.Nop()), zerolog.Nop())

	groups, err := lens.SearchImage(context.Background(), testImage(), DefaultLensOptions())
	require.NoError(t, err)

	var categories []string
	for _, g := range groups {
		categories = append(categories, g.DetectedItem.Category)
		assert.NotEmpty(t, g.Products)
	}
	assert.Equal(t, []string{"coat", "jeans", "belt"}, categories)
}

func TestLens_KeepsDetectionOrderWhenUnsorted(t *testing.T) {
	detector := &fakeDetector{items: []models.GarmentAttributes{
		garment("belt", "belt"),
		garment("coat", "coat"),
	}}
	lens := NewLens(detector, NewRanker(&fakeEmbedder{}, &fakeStore{}, zerolog.Nop()), zerolog.Nop())

	opts := DefaultLensOptions()
	opts.SortByCategory = false
	groups, err := lens.SearchImage(context.Background(), testImage(), opts)
	require.NoError(t, err)

	require.Len(t, groups, 2)
	assert.Equal(t, "belt_belt", groups[0].Key)
	assert.Equal(t, "coat_coat", groups[1].Key)
}

func TestLens_NoDetectionsIsEmptyResult(t *testing.T) {
	store := &fakeStore{}
	lens := NewLens(&fakeDetector{}, NewRanker(&fakeEmbedder{}, store, zerolog.Nop()), zerolog.Nop())

	groups, err := lens.SearchImage(context.Background(), testImage(), DefaultLensOptions())

	require.NoError(t, err)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
	assert.Empty(t, store.queries)
}

func TestLens_DropsGarmentsWithoutBoundingBox(t *testing.T) {
	noBox := garment("hat", "hat")
	noBox.BoundingBox = nil
	detector := &fakeDetector{items: []models.GarmentAttributes{noBox, garment("top", "tee")}}
	lens := NewLens(detector, NewRanker(&fakeEmbedder{}, &fakeStore{}, zerolog.Nop()), zerolog.Nop())

	groups, err := lens.SearchImage(context.Background(), testImage(), DefaultLensOptions())

	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "top", groups[0].DetectedItem.Category)
}

func TestLens_DetectionFailure(t *testing.T) {
	boom := errors.New("model overloaded")
	lens := NewLens(&fakeDetector{err: boom}, NewRanker(&fakeEmbedder{}, &fakeStore{}, zerolog.Nop()), zerolog.Nop())

	_, err := lens.SearchImage(context.Background(), testImage(), DefaultLensOptions())

	assert.ErrorIs(t, err, ErrDetection)
	assert.ErrorIs(t, err, boom)
}

func TestLens_PropagatesGarmentFailure(t *testing.T) {
	boom := errors.New("store down")
	detector := &fakeDetector{items: []models.GarmentAttributes{garment("top", "a"), garment("jeans", "b")}}
	lens := NewLens(detector, NewRanker(&fakeEmbedder{}, &fakeStore{err: boom}, zerolog.Nop()), zerolog.Nop())

	groups, err := lens.SearchImage(context.Background(), testImage(), DefaultLensOptions())

	assert.Nil(t, groups)
	assert.ErrorIs(t, err, ErrStoreQuery)
	assert.ErrorIs(t, err, boom)
}

// countingSearcher records the peak number of concurrent searches.
type countingSearcher struct {
	mu       sync.Mutex
	inFlight int
	peak     int
	calls    atomic.Int32
}

func (c *countingSearcher) Search(ctx context.Context, crop image.Image, attrs models.GarmentAttributes, opts Options) (*GarmentResult, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.inFlight++
	if c.inFlight > c.peak {
		c.peak = c.inFlight
	}
	c.mu.Unlock()

	time.Sleep(10 * time.Millisecond)

	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()
	return &GarmentResult{Attributes: attrs, FilterUsed: FilterNone}, nil
}

func TestLens_BoundsConcurrency(t *testing.T) {
	var items []models.GarmentAttributes
	for i := 0; i < 9; i++ {
		items = append(items, garment("top", "tee"))
	}
	searcher := &countingSearcher{}
	lens := NewLens(&fakeDetector{items: items}, searcher, zerolog.Nop())

	opts := DefaultLensOptions()
	opts.Concurrency = 2
	groups, err := lens.SearchImage(context.Background(), testImage(), opts)

	require.NoError(t, err)
	assert.Len(t, groups, 9)
	assert.Equal(t, int32(9), searcher.calls.Load())
	assert.LessOrEqual(t, searcher.peak, 2)
}
