package domain

import "errors"

// Outcome is the terminal state of one pipeline invocation.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeLoadError   Outcome = "load_error"
	OutcomeNoDetection Outcome = "no_detection"
	OutcomeEmptyCrop   Outcome = "empty_crop"
)

// Message is the caller-facing text for a failed outcome.
func (o Outcome) Message() string {
	switch o {
	case OutcomeLoadError:
		return "could not read image"
	case OutcomeNoDetection:
		return "no plate detected"
	case OutcomeEmptyCrop:
		return "could not extract plate region"
	default:
		return ""
	}
}

var (
	ErrDetectorUnavailable   = errors.New("detection service unavailable")
	ErrRecognizerUnavailable = errors.New("recognition service unavailable")
	ErrPersistence           = errors.New("could not persist detection record")
)

// DetectionResult is what the pipeline hands back to the intake layer.
// Record is nil unless Outcome is OutcomeSuccess.
type DetectionResult struct {
	Outcome   Outcome
	Record    *DetectionRecord
	Region    *DetectedRegion
	Persisted bool
	Err       error // cause for OutcomeLoadError, or the persistence failure on success
}

func (r *DetectionResult) Succeeded() bool { return r.Outcome == OutcomeSuccess }
