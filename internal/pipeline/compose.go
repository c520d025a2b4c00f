package pipeline

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"

	"plate_reader/internal/domain"
)

// Composer stamps recognition output into an immutable DetectionRecord.
type Composer struct {
	clock Clock
	loc   *time.Location
	newID func() string
}

func NewComposer(clock Clock, loc *time.Location) *Composer {
	return &Composer{clock: clock, loc: loc, newID: uuid.NewString}
}

func (c *Composer) Compose(hyps []domain.TextHypothesis, region domain.DetectedRegion) *domain.DetectionRecord {
	text := domain.IllegibleText
	var conf null.Float
	if h, ok := bestHypothesis(hyps); ok {
		text = h.Text
		if h.Confidence > 0 {
			conf = null.FloatFrom(h.Confidence)
		}
	}
	return &domain.DetectionRecord{
		ID:          c.newID(),
		PlateText:   text,
		Timestamp:   FormatTimestamp(c.clock(), c.loc),
		BoundingBox: region.Box(),
		Confidence:  conf,
	}
}

// FormatTimestamp renders t in loc as "YYYY-MM-DD HH:MM:SS <zone-abbrev>".
func FormatTimestamp(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(domain.TimestampLayout)
}

// bestHypothesis is the first hypothesis with non-blank text.
func bestHypothesis(hyps []domain.TextHypothesis) (domain.TextHypothesis, bool) {
	for _, h := range hyps {
		if t := strings.TrimSpace(h.Text); t != "" {
			h.Text = t
			return h, true
		}
	}
	return domain.TextHypothesis{}, false
}
