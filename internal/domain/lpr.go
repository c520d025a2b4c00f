package domain

// LPRRequestDTO is the JSON body for base64 uploads.
type LPRRequestDTO struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
}

// LPRResponseDTO is returned for every terminal outcome. On success it
// carries the record fields; otherwise Error is set.
type LPRResponseDTO struct {
	ID          string   `json:"id,omitempty"`
	PlateText   string   `json:"plate_text,omitempty"`
	Timestamp   string   `json:"timestamp,omitempty"`
	BoundingBox []int    `json:"bounding_box,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
	Persisted   *bool    `json:"persisted,omitempty"`
	Error       string   `json:"error,omitempty"`
	Outcome     Outcome  `json:"outcome"`
}

func NewLPRResponse(res *DetectionResult) LPRResponseDTO {
	if !res.Succeeded() || res.Record == nil {
		return LPRResponseDTO{Outcome: res.Outcome, Error: res.Outcome.Message()}
	}
	rec := res.Record
	box := rec.BoundingBox
	persisted := res.Persisted
	return LPRResponseDTO{
		ID:          rec.ID,
		PlateText:   rec.PlateText,
		Timestamp:   rec.Timestamp,
		BoundingBox: box[:],
		Confidence:  rec.Confidence.Ptr(),
		Persisted:   &persisted,
		Outcome:     res.Outcome,
	}
}
