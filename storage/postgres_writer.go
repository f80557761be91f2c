package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/lib/pq"

	"car-ads/utils"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS listings (
		id                SERIAL PRIMARY KEY,
		run_id            VARCHAR(36)      NOT NULL,
		channel           VARCHAR(100)     NOT NULL,
		raw_text          TEXT             NOT NULL,
		brand             TEXT             NOT NULL DEFAULT '',
		model             TEXT             NOT NULL DEFAULT '',
		color             TEXT             NOT NULL,
		year              INTEGER,
		price             DOUBLE PRECISION,
		mileage           INTEGER,
		body_condition    TEXT             NOT NULL,
		chassis_condition TEXT             NOT NULL,
		engine_condition  TEXT             NOT NULL,
		cluster           VARCHAR(32)      NOT NULL,
		status            VARCHAR(64)      NOT NULL,
		phone             VARCHAR(16)      NOT NULL DEFAULT '',
		created_at        TIMESTAMPTZ      NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_listings_brand   ON listings(brand);
	CREATE INDEX IF NOT EXISTS idx_listings_price   ON listings(price);
	CREATE INDEX IF NOT EXISTS idx_listings_year    ON listings(year);
	CREATE INDEX IF NOT EXISTS idx_listings_cluster ON listings(cluster);
`

// NewPostgresWriter opens a connection to PostgreSQL, waiting for the server
// to come up, runs the schema migration and returns a ready-to-use writer.
func NewPostgresWriter(ctx context.Context, dsn string, logger *utils.Logger) (*SQLWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, Logger: logger}
	if err := retry.Do(ctx, "postgres ping", db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	return newSQLWriter(db, dialect{
		name:   "postgres",
		schema: postgresSchema,
		placeholder: func(n int) string {
			return "$" + strconv.Itoa(n)
		},
	})
}
