package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"plate_reader/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func NewDB(cfg *config.Config) (*sql.DB, error) {
	// "pgx" comes from pgx/stdlib, "postgres" from lib/pq.
	db, err := sql.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS detected_plates (
	id           BIGSERIAL PRIMARY KEY,
	record_id    UUID        NOT NULL UNIQUE,
	plate_number TEXT        NOT NULL,
	timestamp    TEXT        NOT NULL,
	bounding_box INTEGER[]   NOT NULL,
	confidence   DOUBLE PRECISION,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Migrate creates the detected_plates table if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate detected_plates: %w", err)
	}
	return nil
}
