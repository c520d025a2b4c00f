package repository

import (
	"context"
	"errors"

	"plate_reader/internal/domain"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("record already exists")

// DetectionRepository is the append-only store for detection records.
type DetectionRepository interface {
	// Append stores rec. Appending a record whose ID is already stored
	// returns ErrDuplicateEntry.
	Append(ctx context.Context, rec *domain.DetectionRecord) error
}
