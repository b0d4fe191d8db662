package ranking

import (
	"context"
	"image"
	"sync"

	"github.com/yowlens/lens/models"
)

type fakeEmbedder struct {
	mu         sync.Mutex
	imageErr   error
	textErr    error
	imageCalls int
	textCalls  []string
}

func (f *fakeEmbedder) EncodeImage(ctx context.Context, img image.Image) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageCalls++
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textCalls = append(f.textCalls, text)
	if f.textErr != nil {
		return nil, f.textErr
	}
	return []float32{0, 1}, nil
}

type fakeStore struct {
	mu        sync.Mutex
	neighbors []models.Neighbor
	counts    map[string]int
	err       error
	countErr  error
	queries   []NeighborQuery
	counted   []string
}

func (f *fakeStore) NearestNeighbors(ctx context.Context, q NeighborQuery) ([]models.Neighbor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	out := f.neighbors
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return append([]models.Neighbor(nil), out...), nil
}

func (f *fakeStore) CountByCategory(ctx context.Context, category string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counted = append(f.counted, category)
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.counts[category], nil
}

func (f *fakeStore) lastQuery() NeighborQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

type fakeDetector struct {
	items []models.GarmentAttributes
	err   error
}

func (f *fakeDetector) Analyze(ctx context.Context, img image.Image) ([]models.GarmentAttributes, error) {
	return f.items, f.err
}

func (f *fakeDetector) Crop(img image.Image, items []models.GarmentAttributes) []models.Crop {
	crops := make([]models.Crop, 0, len(items))
	for _, it := range items {
		crops = append(crops, models.Crop{Image: img, Attributes: it})
	}
	return crops
}

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 4, 4))
}

func box() *models.BoundingBox {
	return &models.BoundingBox{XMin: 0.1, YMin: 0.1, XMax: 0.9, YMax: 0.9}
}
