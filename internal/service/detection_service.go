package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"plate_reader/internal/domain"
)

// ErrEmptyImage is returned when an upload carries no bytes.
var ErrEmptyImage = errors.New("image data is empty")

// Runner executes the plate pipeline against a stored image.
type Runner interface {
	Run(ctx context.Context, path string) (*domain.DetectionResult, error)
}

// WebSocketManager is implemented by the websocket hub. Declared here to
// keep the handler package out of the service imports.
type WebSocketManager interface {
	BroadcastDetection(n domain.DetectionNotification)
}

type DetectionPublisher interface {
	PublishDetection(ctx context.Context, n domain.DetectionNotification) error
}

type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// uploadExtensions are the suffixes the normalizer knows how to write back.
var uploadExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true,
	".gif": true, ".tif": true, ".tiff": true,
}

type DetectionService struct {
	pipeline  Runner
	wsManager WebSocketManager
	publisher DetectionPublisher
	detector  HealthChecker
	tempDir   string
	logger    *slog.Logger
	now       func() time.Time

	publishTimeout time.Duration
}

// NewDetectionService wires the pipeline to its fan-out targets. wsManager,
// publisher and detector may be nil.
func NewDetectionService(
	pipeline Runner,
	wsManager WebSocketManager,
	publisher DetectionPublisher,
	detector HealthChecker,
	tempDir string,
	logger *slog.Logger,
) *DetectionService {
	if logger == nil {
		logger = slog.Default()
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &DetectionService{
		pipeline:       pipeline,
		wsManager:      wsManager,
		publisher:      publisher,
		detector:       detector,
		tempDir:        tempDir,
		logger:         logger.With("component", "detection_service"),
		now:            time.Now,
		publishTimeout: 5 * time.Second,
	}
}

// ProcessUpload stores the stream under a unique temporary name, runs the
// pipeline on it and removes the file afterwards.
func (s *DetectionService) ProcessUpload(ctx context.Context, r io.Reader, filename string) (*domain.DetectionResult, error) {
	path, err := s.storeTemp(r, filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("could not remove temp image", "path", path, "error", err)
		}
	}()
	return s.ProcessFile(ctx, path)
}

// ProcessFile runs the pipeline on an image already on disk. The file is
// rewritten at the canonical resolution. Subscribers are told about a record
// only when the invocation succeeded; a strict-mode persistence failure
// returns the record to the caller but announces nothing.
func (s *DetectionService) ProcessFile(ctx context.Context, path string) (*domain.DetectionResult, error) {
	res, err := s.pipeline.Run(ctx, path)
	if err == nil && res != nil && res.Succeeded() && res.Record != nil {
		s.notify(ctx, res.Record)
	}
	return res, err
}

func (s *DetectionService) CheckHealth(ctx context.Context) error {
	if s.detector == nil {
		return nil
	}
	if err := s.detector.CheckHealth(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDetectorUnavailable, err)
	}
	return nil
}

func (s *DetectionService) notify(ctx context.Context, rec *domain.DetectionRecord) {
	n := domain.NewDetectionNotification(rec, s.now())
	if s.wsManager != nil {
		s.wsManager.BroadcastDetection(n)
	}
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.publisher.PublishDetection(pubCtx, n); err != nil {
		s.logger.Error("publish detection failed", "record_id", rec.ID, "error", err)
	}
}

func (s *DetectionService) storeTemp(r io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !uploadExtensions[ext] {
		ext = ".png"
	}
	path := filepath.Join(s.tempDir, "upload-"+uuid.NewString()+ext)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n == 0 {
		err = ErrEmptyImage
	}
	if err != nil {
		os.Remove(path)
		if errors.Is(err, ErrEmptyImage) {
			return "", err
		}
		return "", fmt.Errorf("write temp image: %w", err)
	}
	return path, nil
}
