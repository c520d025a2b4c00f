package pipeline

import (
	"testing"
	"time"

	"plate_reader/internal/domain"
)

func TestFormatTimestamp(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Fatal(err)
	}
	ts := time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
	if got := FormatTimestamp(ts, jakarta); got != "2025-01-01 06:59:59 WIB" {
		t.Errorf("FormatTimestamp() = %q", got)
	}
	if got := FormatTimestamp(ts, time.UTC); got != "2024-12-31 23:59:59 UTC" {
		t.Errorf("FormatTimestamp(UTC) = %q", got)
	}
}

func TestBestHypothesis(t *testing.T) {
	tests := []struct {
		name string
		in   []domain.TextHypothesis
		want string
		ok   bool
	}{
		{"none", nil, "", false},
		{"first wins over confidence", []domain.TextHypothesis{{Text: "B 1234 XYZ", Confidence: 0.4}, {Text: "OTHER", Confidence: 0.99}}, "B 1234 XYZ", true},
		{"skips blank", []domain.TextHypothesis{{Text: " "}, {Text: " L55 \n"}}, "L55", true},
		{"all blank", []domain.TextHypothesis{{Text: ""}, {Text: "\t"}}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := bestHypothesis(tt.in)
			if ok != tt.ok || got.Text != tt.want {
				t.Errorf("bestHypothesis() = %q, %v; want %q, %v", got.Text, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestCompose(t *testing.T) {
	c := NewComposer(fixedClock, time.UTC)
	c.newID = func() string { return "rec-1" }

	rec := c.Compose(nil, domain.DetectedRegion{X1: 1, Y1: 2, X2: 3, Y2: 4})
	want := domain.DetectionRecord{
		ID:          "rec-1",
		PlateText:   domain.IllegibleText,
		Timestamp:   "2025-03-14 01:02:03 UTC",
		BoundingBox: [4]int{1, 2, 3, 4},
	}
	if *rec != want {
		t.Errorf("Compose() = %+v, want %+v", *rec, want)
	}
}
