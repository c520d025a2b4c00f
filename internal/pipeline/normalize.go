package pipeline

import (
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// CanonicalSize is the default square edge every upload is rescaled to
// before detection.
const CanonicalSize = 640

var ErrLoad = errors.New("image could not be loaded")

// Normalizer rescales an image file to a fixed resolution in place. The
// aspect ratio is not preserved.
type Normalizer struct {
	width  int
	height int
	filter imaging.ResampleFilter
}

func NewNormalizer(width, height int) *Normalizer {
	return &Normalizer{width: width, height: height, filter: imaging.Linear}
}

func (n *Normalizer) Normalize(path string) (image.Image, error) {
	src, err := openImage(path)
	if err != nil {
		return nil, err
	}
	dst := imaging.Resize(src, n.width, n.height, n.filter)
	if err := saveImage(dst, path); err != nil {
		return nil, err
	}
	return dst, nil
}

func openImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: %s has no pixels", ErrLoad, path)
	}
	return img, nil
}

// saveImage overwrites path, keeping the format implied by its extension.
// Unknown extensions (webp included, which has no encoder) are written as PNG.
func saveImage(img image.Image, path string) error {
	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		format = imaging.PNG
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: rewrite %s: %v", ErrLoad, path, err)
	}
	if err := imaging.Encode(f, img, format, imaging.JPEGQuality(95)); err != nil {
		f.Close()
		return fmt.Errorf("%w: encode %s: %v", ErrLoad, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrLoad, path, err)
	}
	return nil
}
