// Package pipeline turns one stored photograph into one DetectionRecord.
//
// Stages run strictly in order: normalize, detect, extract, recognize and
// compose, then hand the record to the Writer. Any stage may end the run
// early with a terminal outcome; those outcomes are returned as values in
// domain.DetectionResult. Only capability transport failures (and, in strict
// mode, persistence failures) come back as errors.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"plate_reader/internal/domain"
)

// Detector proposes plate boxes for an image, in its native order.
// An empty slice is a valid answer.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]domain.Candidate, error)
}

// Recognizer reads text from a PNG-encoded crop. An empty slice means no
// hypothesis.
type Recognizer interface {
	Recognize(ctx context.Context, crop []byte) ([]domain.TextHypothesis, error)
}

// Writer appends a composed record to durable storage.
type Writer interface {
	Write(ctx context.Context, rec *domain.DetectionRecord) error
}

// WriterFunc adapts a plain append function, such as a repository method,
// to Writer.
type WriterFunc func(ctx context.Context, rec *domain.DetectionRecord) error

func (f WriterFunc) Write(ctx context.Context, rec *domain.DetectionRecord) error { return f(ctx, rec) }

// Clock returns the current instant.
type Clock func() time.Time

type Options struct {
	Width    int
	Height   int
	Location *time.Location
	// StrictPersist turns a Writer failure into a failed invocation.
	StrictPersist bool
	Clock         Clock
	Logger        *slog.Logger
}

type Pipeline struct {
	normalizer *Normalizer
	extractor  *Extractor
	composer   *Composer
	detector   Detector
	recognizer Recognizer
	writer     Writer
	strict     bool
	logger     *slog.Logger
}

// New wires the stages around long-lived, shared inference handles. The
// detector and recognizer must be safe for concurrent use.
func New(detector Detector, recognizer Recognizer, writer Writer, opts Options) *Pipeline {
	if opts.Width <= 0 {
		opts.Width = CanonicalSize
	}
	if opts.Height <= 0 {
		opts.Height = CanonicalSize
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{
		normalizer: NewNormalizer(opts.Width, opts.Height),
		extractor:  NewExtractor(),
		composer:   NewComposer(opts.Clock, opts.Location),
		detector:   detector,
		recognizer: recognizer,
		writer:     writer,
		strict:     opts.StrictPersist,
		logger:     opts.Logger,
	}
}

// Run executes one invocation against the image stored at path. The file is
// rewritten at the canonical resolution.
func (p *Pipeline) Run(ctx context.Context, path string) (*domain.DetectionResult, error) {
	log := p.logger.With("path", path)

	img, err := p.normalizer.Normalize(path)
	if err != nil {
		log.Warn("pipeline: load failed", "error", err)
		return &domain.DetectionResult{Outcome: domain.OutcomeLoadError, Err: err}, nil
	}

	candidates, err := p.detector.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDetectorUnavailable, err)
	}
	raw, ok := selectCandidate(candidates)
	if !ok {
		log.Info("pipeline: no plate detected")
		return &domain.DetectionResult{Outcome: domain.OutcomeNoDetection}, nil
	}
	log.Debug("pipeline: candidate selected", "candidates", len(candidates), "region", raw)

	crop, err := p.extractor.Extract(path, raw)
	if err != nil {
		if errors.Is(err, ErrEmptyCrop) {
			log.Info("pipeline: empty crop", "raw", raw, "clamped", crop.Region)
			region := crop.Region
			return &domain.DetectionResult{Outcome: domain.OutcomeEmptyCrop, Region: &region}, nil
		}
		log.Warn("pipeline: reload failed", "error", err)
		return &domain.DetectionResult{Outcome: domain.OutcomeLoadError, Err: err}, nil
	}

	hyps, err := p.recognizer.Recognize(ctx, crop.PNG)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRecognizerUnavailable, err)
	}

	rec := p.composer.Compose(hyps, crop.Region)
	region := crop.Region
	res := &domain.DetectionResult{Outcome: domain.OutcomeSuccess, Record: rec, Region: &region}

	if err := p.writer.Write(ctx, rec); err != nil {
		res.Err = fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		log.Error("pipeline: persist failed", "record_id", rec.ID, "error", err)
		if p.strict {
			return res, res.Err
		}
		return res, nil
	}
	res.Persisted = true
	log.Info("pipeline: plate recorded", "record_id", rec.ID, "plate", rec.PlateText, "illegible", rec.Illegible())
	return res, nil
}

// selectCandidate takes the first candidate in the detector's own order,
// whatever confidences are attached, and truncates it to integer pixels.
func selectCandidate(candidates []domain.Candidate) (domain.DetectedRegion, bool) {
	if len(candidates) == 0 {
		return domain.DetectedRegion{}, false
	}
	c := candidates[0]
	return domain.DetectedRegion{X1: int(c.X1), Y1: int(c.Y1), X2: int(c.X2), Y2: int(c.Y2)}, true
}
