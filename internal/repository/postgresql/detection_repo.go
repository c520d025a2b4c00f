package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"plate_reader/internal/domain"
	"plate_reader/internal/repository"
)

const uniqueViolation = "23505"

type pgDetectionRepository struct {
	db *sql.DB
}

func NewPgDetectionRepository(db *sql.DB) repository.DetectionRepository {
	return &pgDetectionRepository{db: db}
}

func (r *pgDetectionRepository) Append(ctx context.Context, rec *domain.DetectionRecord) error {
	query := `INSERT INTO detected_plates
                (record_id, plate_number, timestamp, bounding_box, confidence)
               VALUES ($1, $2, $3, $4, $5) RETURNING id`

	box := make([]int64, len(rec.BoundingBox))
	for i, v := range rec.BoundingBox {
		box[i] = int64(v)
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		rec.ID,
		rec.PlateText,
		rec.Timestamp,
		pq.Array(box),
		rec.Confidence,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: record %s", repository.ErrDuplicateEntry, rec.ID)
		}
		return fmt.Errorf("DetectionRepository.Append: %w", err)
	}
	return nil
}

// isUniqueViolation accepts errors from either driver NewDB can open.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
