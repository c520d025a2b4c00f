package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gopkg.in/guregu/null.v4"

	"plate_reader/internal/domain"
	"plate_reader/internal/repository"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"pgx unique", &pgconn.PgError{Code: "23505"}, true},
		{"pgx wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"pgx other", &pgconn.PgError{Code: "23503"}, false},
		{"pq unique", &pq.Error{Code: "23505"}, true},
		{"plain", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

// openTestDB connects to PLATE_READER_TEST_DSN or skips.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PLATE_READER_TEST_DSN")
	if dsn == "" {
		t.Skip("PLATE_READER_TEST_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestDetectionRepository_Append(t *testing.T) {
	db := openTestDB(t)
	repo := NewPgDetectionRepository(db)
	ctx := context.Background()

	rec := &domain.DetectionRecord{
		ID:          uuid.NewString(),
		PlateText:   "B1234XYZ",
		Timestamp:   "2025-03-14 08:02:03 WIB",
		BoundingBox: [4]int{100, 100, 300, 250},
		Confidence:  null.FloatFrom(0.97),
	}
	if err := repo.Append(ctx, rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	var plate string
	var box pq.Int64Array
	var conf sql.NullFloat64
	err := db.QueryRowContext(ctx,
		`SELECT plate_number, bounding_box, confidence FROM detected_plates WHERE record_id = $1`, rec.ID,
	).Scan(&plate, &box, &conf)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if plate != "B1234XYZ" || len(box) != 4 || box[2] != 300 || !conf.Valid {
		t.Errorf("stored %q %v %v", plate, box, conf)
	}

	if err := repo.Append(ctx, rec); !errors.Is(err, repository.ErrDuplicateEntry) {
		t.Errorf("second Append() = %v, want ErrDuplicateEntry", err)
	}
}
