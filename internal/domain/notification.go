package domain

import "time"

type DetectionEventType string

const (
	DetectionEventPlateRead DetectionEventType = "plate_read"
)

// DetectionNotification is pushed to websocket clients and the MQTT topic
// after a record has been composed.
type DetectionNotification struct {
	EventType   DetectionEventType `json:"event_type"`
	RecordID    string             `json:"record_id"`
	PlateText   string             `json:"plate_text"`
	Illegible   bool               `json:"illegible"`
	Timestamp   string             `json:"timestamp"`
	BoundingBox [4]int             `json:"bounding_box"`
	SentAt      time.Time          `json:"sent_at"`
}

func NewDetectionNotification(rec *DetectionRecord, now time.Time) DetectionNotification {
	return DetectionNotification{
		EventType:   DetectionEventPlateRead,
		RecordID:    rec.ID,
		PlateText:   rec.PlateText,
		Illegible:   rec.Illegible(),
		Timestamp:   rec.Timestamp,
		BoundingBox: rec.BoundingBox,
		SentAt:      now.UTC(),
	}
}
