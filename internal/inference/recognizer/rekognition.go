package recognizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"plate_reader/internal/domain"
)

// TextDetectionAPI is the part of *rekognition.Client used here.
type TextDetectionAPI interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// Rekognition reads plate text with AWS Rekognition DetectText. The client
// is safe for concurrent use, so one instance serves every request.
type Rekognition struct {
	client TextDetectionAPI
	logger *slog.Logger
}

func NewRekognition(client TextDetectionAPI, logger *slog.Logger) *Rekognition {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rekognition{client: client, logger: logger}
}

func (r *Rekognition) Recognize(ctx context.Context, crop []byte) ([]domain.TextHypothesis, error) {
	if r.client == nil {
		return nil, errors.New("rekognition client is not initialized")
	}

	result, err := r.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: crop},
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition DetectText: %w", err)
	}
	r.logger.Debug("rekognition: text detections", "count", len(result.TextDetections))

	// Lines come back in reading order; words are only used when no line
	// was found.
	hyps := collect(result.TextDetections, types.TextTypesLine)
	if len(hyps) == 0 {
		hyps = collect(result.TextDetections, types.TextTypesWord)
	}
	return hyps, nil
}

func collect(detections []types.TextDetection, kind types.TextTypes) []domain.TextHypothesis {
	var hyps []domain.TextHypothesis
	for _, td := range detections {
		if td.Type != kind || td.DetectedText == nil {
			continue
		}
		text := strings.TrimSpace(*td.DetectedText)
		if text == "" {
			continue
		}
		var conf float64
		if td.Confidence != nil {
			conf = float64(*td.Confidence) / 100
		}
		hyps = append(hyps, domain.TextHypothesis{Text: text, Confidence: conf})
	}
	return hyps
}
