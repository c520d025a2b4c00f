package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"plate_reader/internal/api/middleware"
	"plate_reader/internal/domain"
	"plate_reader/internal/service"
)

// DetectionProcessor is satisfied by *service.DetectionService.
type DetectionProcessor interface {
	ProcessUpload(ctx context.Context, r io.Reader, filename string) (*domain.DetectionResult, error)
	CheckHealth(ctx context.Context) error
}

type DetectionHandler struct {
	processor      DetectionProcessor
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewDetectionHandler(processor DetectionProcessor, maxUploadBytes int64, logger *slog.Logger) *DetectionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetectionHandler{
		processor:      processor,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With("component", "detection_handler"),
	}
}

// GET /
func (h *DetectionHandler) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "ALPR API is running!"})
}

// GET /health
func (h *DetectionHandler) Health(c *gin.Context) {
	if err := h.processor.CheckHealth(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// POST /upload/ (multipart field "file")
func (h *DetectionHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("image exceeds %d bytes", tooLarge.Limit)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field: " + err.Error()})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not open upload: " + err.Error()})
		return
	}
	defer file.Close()

	h.logger.Debug("upload received", "filename", header.Filename, "size", header.Size)
	res, err := h.processor.ProcessUpload(c.Request.Context(), file, header.Filename)
	h.respond(c, res, err)
}

// POST /api/v1/lpr/process-image
func (h *DetectionHandler) ProcessImage(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, base64BodyLimit(h.maxUploadBytes))
	}
	var req domain.LPRRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("image exceeds %d bytes", h.maxUploadBytes)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}

	imageBytes, ext, err := base64DecodeImage(req.ImageBase64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image data", "details": err.Error()})
		return
	}
	if h.maxUploadBytes > 0 && int64(len(imageBytes)) > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("image exceeds %d bytes", h.maxUploadBytes)})
		return
	}

	res, err := h.processor.ProcessUpload(c.Request.Context(), bytes.NewReader(imageBytes), "image"+ext)
	h.respond(c, res, err)
}

// base64BodyLimit bounds a JSON body carrying maxImage bytes of base64 image
// data, leaving room for the data URL prefix and the envelope.
func base64BodyLimit(maxImage int64) int64 {
	return (maxImage+2)/3*4 + 4096
}

func (h *DetectionHandler) respond(c *gin.Context, res *domain.DetectionResult, err error) {
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("detection failed", "request_id", c.GetString(middleware.RequestIDKey), "error", err)
		}
		body := gin.H{"error": publicMessage(err), "details": err.Error()}
		if res != nil && res.Record != nil {
			body["record"] = domain.NewLPRResponse(res)
		}
		c.JSON(status, body)
		return
	}

	switch res.Outcome {
	case domain.OutcomeLoadError:
		c.JSON(http.StatusBadRequest, domain.NewLPRResponse(res))
	default:
		// NoDetection and EmptyCrop are ordinary answers, not request errors.
		c.JSON(http.StatusOK, domain.NewLPRResponse(res))
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrEmptyImage):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDetectorUnavailable), errors.Is(err, domain.ErrRecognizerUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrEmptyImage):
		return service.ErrEmptyImage.Error()
	case errors.Is(err, domain.ErrDetectorUnavailable):
		return domain.ErrDetectorUnavailable.Error()
	case errors.Is(err, domain.ErrRecognizerUnavailable):
		return domain.ErrRecognizerUnavailable.Error()
	case errors.Is(err, domain.ErrPersistence):
		return domain.ErrPersistence.Error()
	default:
		return "internal error"
	}
}

// base64DecodeImage accepts raw base64 or a data URL and returns the bytes
// with a file extension taken from the media type, if any.
func base64DecodeImage(base64Str string) ([]byte, string, error) {
	ext := ""
	if strings.HasPrefix(base64Str, "data:") {
		meta, data, ok := strings.Cut(base64Str, ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return nil, "", errors.New("unsupported data url")
		}
		switch strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64") {
		case "image/jpeg", "image/jpg":
			ext = ".jpg"
		case "image/png":
			ext = ".png"
		case "image/bmp":
			ext = ".bmp"
		case "image/gif":
			ext = ".gif"
		case "image/tiff":
			ext = ".tiff"
		}
		base64Str = data
	}

	imageBytes, err := base64.StdEncoding.DecodeString(strings.TrimSpace(base64Str))
	if err != nil {
		return nil, "", fmt.Errorf("decode base64: %w", err)
	}
	if len(imageBytes) == 0 {
		return nil, "", service.ErrEmptyImage
	}
	return imageBytes, ext, nil
}
