package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"plate_reader/internal/domain"
)

var ErrEmptyCrop = errors.New("clamped region is empty")

// Crop is a clamped region cut from the source image. PNG holds the exact
// cropped pixels, losslessly encoded for the recognizer.
type Crop struct {
	Region domain.DetectedRegion
	Image  image.Image
	PNG    []byte
}

type Extractor struct{}

func NewExtractor() *Extractor { return &Extractor{} }

// Extract re-reads the image at path and cuts region out of it. When the
// clamped region has no area, the returned Crop carries only the clamped
// Region and the error is ErrEmptyCrop.
func (e *Extractor) Extract(path string, region domain.DetectedRegion) (Crop, error) {
	img, err := openImage(path)
	if err != nil {
		return Crop{}, err
	}
	return e.ExtractFrom(img, region)
}

func (e *Extractor) ExtractFrom(img image.Image, region domain.DetectedRegion) (Crop, error) {
	b := img.Bounds()
	clamped := Clamp(region, b.Dx(), b.Dy())
	if clamped.Empty() {
		return Crop{Region: clamped}, ErrEmptyCrop
	}

	rect := image.Rect(clamped.X1, clamped.Y1, clamped.X2, clamped.Y2).Add(b.Min)
	sub := imaging.Crop(img, rect)
	if sub.Bounds().Empty() {
		return Crop{Region: clamped}, ErrEmptyCrop
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, sub, imaging.PNG); err != nil {
		return Crop{}, fmt.Errorf("encode crop: %w", err)
	}
	return Crop{Region: clamped, Image: sub, PNG: buf.Bytes()}, nil
}

// Clamp confines r to [0,w]×[0,h]. The result always satisfies
// 0 ≤ X1 ≤ X2 ≤ w and 0 ≤ Y1 ≤ Y2 ≤ h; an inverted or fully outside box
// collapses to zero width or height.
func Clamp(r domain.DetectedRegion, w, h int) domain.DetectedRegion {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	x1 := clampInt(r.X1, 0, w)
	y1 := clampInt(r.Y1, 0, h)
	x2 := clampInt(r.X2, 0, w)
	y2 := clampInt(r.Y2, 0, h)
	if x2 < x1 {
		x2 = x1
	}
	if y2 < y1 {
		y2 = y1
	}
	return domain.DetectedRegion{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
