package domain

import (
	"gopkg.in/guregu/null.v4"
)

// IllegibleText is stored as plate_text when recognition yields nothing usable.
const IllegibleText = "Tidak terbaca"

// TimestampLayout renders "YYYY-MM-DD HH:MM:SS <zone-abbrev>".
const TimestampLayout = "2006-01-02 15:04:05 MST"

// Candidate is one raw box proposed by the detection capability, in the
// pixel frame of the image it was given. Coordinates may fall outside it.
type Candidate struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
	Label      string  `json:"label,omitempty"`
}

// DetectedRegion is a candidate truncated to integer pixels.
type DetectedRegion struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (r DetectedRegion) Width() int  { return r.X2 - r.X1 }
func (r DetectedRegion) Height() int { return r.Y2 - r.Y1 }

// Empty reports whether the region covers no pixels.
func (r DetectedRegion) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Box returns the coordinates in x1, y1, x2, y2 order.
func (r DetectedRegion) Box() [4]int { return [4]int{r.X1, r.Y1, r.X2, r.Y2} }

// TextHypothesis is one reading returned by the recognition capability.
type TextHypothesis struct {
	Text       string
	Confidence float64 // 0..1, zero when the backend does not report one
}

// DetectionRecord is the persisted output of one successful pipeline run.
type DetectionRecord struct {
	ID          string     `json:"id"`
	PlateText   string     `json:"plate_text"`
	Timestamp   string     `json:"timestamp"`
	BoundingBox [4]int     `json:"bounding_box"`
	Confidence  null.Float `json:"confidence"`
}

// Illegible reports whether the record carries the sentinel text.
func (r DetectionRecord) Illegible() bool { return r.PlateText == IllegibleText }
