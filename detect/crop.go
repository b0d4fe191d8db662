package detect

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/yowlens/lens/models"
)

const (
	// DefaultPadding widens every box on each side by this share of its size.
	DefaultPadding = 0.12

	// DefaultMaxDimension caps the longest side of an uploaded photo.
	DefaultMaxDimension = 1500
)

// CropItems cuts each garment out of img, widening its box by padding and
// clamping to the image. Items without a usable box are skipped.
func CropItems(img image.Image, items []models.GarmentAttributes, padding float64) []models.Crop {
	bounds := img.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())

	crops := make([]models.Crop, 0, len(items))
	for _, item := range items {
		b := item.BoundingBox
		if b == nil || !b.Valid() {
			continue
		}
		padX := (b.XMax - b.XMin) * padding
		padY := (b.YMax - b.YMin) * padding

		rect := image.Rect(
			bounds.Min.X+int(math.Max(0, b.XMin-padX)*w),
			bounds.Min.Y+int(math.Max(0, b.YMin-padY)*h),
			bounds.Min.X+int(math.Min(1, b.XMax+padX)*w),
			bounds.Min.Y+int(math.Min(1, b.YMax+padY)*h),
		).Intersect(bounds)
		if rect.Empty() {
			continue
		}

		dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
		draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
		crops = append(crops, models.Crop{Image: dst, Attributes: item})
	}
	return crops
}

// Preprocess converts img to RGBA and downsizes it so its longest side is at
// most maxDim pixels.
func Preprocess(img image.Image, maxDim int) *image.RGBA {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	longest := max(w, h)
	if longest <= maxDim {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}

	ratio := float64(maxDim) / float64(longest)
	nw := max(1, int(float64(w)*ratio))
	nh := max(1, int(float64(h)*ratio))
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
