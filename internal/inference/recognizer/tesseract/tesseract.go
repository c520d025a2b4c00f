//go:build tesseract

// Package tesseract reads plate text locally with the Tesseract engine.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"plate_reader/internal/domain"
)

// PlateCharset limits recognition to characters that appear on plates.
const PlateCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Recognizer creates one gosseract client per call; a client is not safe for
// concurrent use, so nothing is shared between requests.
type Recognizer struct {
	clientFactory func() *gosseract.Client
	languages     []string
}

func NewRecognizer(languages ...string) *Recognizer {
	return &Recognizer{clientFactory: gosseract.NewClient, languages: languages}
}

func (r *Recognizer) Recognize(ctx context.Context, crop []byte) ([]domain.TextHypothesis, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	c := r.clientFactory()
	defer c.Close()

	if len(r.languages) > 0 {
		if err := c.SetLanguage(r.languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	// A cropped plate is a single text line.
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return nil, fmt.Errorf("set page segmentation: %w", err)
	}
	if err := c.SetWhitelist(PlateCharset); err != nil {
		return nil, fmt.Errorf("set whitelist: %w", err)
	}
	if err := c.SetImageFromBytes(crop); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}
	plain := strings.Join(strings.Fields(text), " ")
	if plain == "" {
		return nil, nil
	}
	return []domain.TextHypothesis{{Text: plain, Confidence: averageConfidence(c)}}, nil
}

func averageConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}
