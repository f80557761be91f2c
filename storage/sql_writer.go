package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"car-ads/models"
)

// insertColumns is the column order of every INSERT and SELECT.
var insertColumns = []string{
	"run_id", "channel", "raw_text", "brand", "model", "color", "year", "price", "mileage",
	"body_condition", "chassis_condition", "engine_condition", "cluster", "status", "phone",
}

// dialect captures what differs between the SQL backends.
type dialect struct {
	name        string
	schema      string
	placeholder func(n int) string
}

// SQLWriter persists labelled listings to the listings table. Each Write
// replaces the previous run.
type SQLWriter struct {
	db      *sql.DB
	dialect dialect
}

func newSQLWriter(db *sql.DB, d dialect) (*SQLWriter, error) {
	w := &SQLWriter{db: db, dialect: d}
	if err := w.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: migrate: %w", d.name, err)
	}
	return w, nil
}

func (w *SQLWriter) migrate() error {
	if _, err := w.db.Exec(w.dialect.schema); err != nil {
		return err
	}
	// tables created before the phone column existed
	if _, err := w.db.Exec("SELECT phone FROM listings LIMIT 0"); err != nil {
		if _, err := w.db.Exec("ALTER TABLE listings ADD COLUMN phone TEXT NOT NULL DEFAULT ''"); err != nil {
			return fmt.Errorf("add phone column: %w", err)
		}
	}
	return nil
}

// Write clears the table and batch-inserts the listings in one transaction.
func (w *SQLWriter) Write(runID string, listings []*models.Listing) error {
	tx, err := w.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", w.dialect.name, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM listings"); err != nil {
		return fmt.Errorf("%s: clear: %w", w.dialect.name, err)
	}

	const batchSize = 50
	for i := 0; i < len(listings); i += batchSize {
		end := i + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := w.insertBatch(tx, runID, listings[i:end]); err != nil {
			return fmt.Errorf("%s: insert: %w", w.dialect.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", w.dialect.name, err)
	}
	return nil
}

func (w *SQLWriter) insertBatch(tx *sql.Tx, runID string, batch []*models.Listing) error {
	cols := len(insertColumns)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*cols)

	for idx, l := range batch {
		marks := make([]string, cols)
		for c := range marks {
			marks[c] = w.dialect.placeholder(idx*cols + c + 1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(marks, ",")+")")
		valueArgs = append(valueArgs,
			runID, l.Channel, l.RawText, l.Brand, l.Model, l.Color,
			nullInt(l.Year), nullFloat(l.Price), nullInt(l.Mileage),
			l.BodyCondition, l.ChassisCondition, l.EngineCondition, l.Cluster, l.Status, l.Phone)
	}

	query := fmt.Sprintf("INSERT INTO listings (%s) VALUES %s",
		strings.Join(insertColumns, ", "), strings.Join(valueStrings, ","))
	_, err := tx.Exec(query, valueArgs...)
	return err
}

func (w *SQLWriter) Close() error {
	return w.db.Close()
}

// FetchAll retrieves all stored listings in insertion order, used by the
// insight service.
func (w *SQLWriter) FetchAll() ([]*models.Listing, error) {
	rows, err := w.db.Query(fmt.Sprintf("SELECT %s FROM listings ORDER BY id",
		strings.Join(insertColumns, ", ")))
	if err != nil {
		return nil, fmt.Errorf("%s: fetch all: %w", w.dialect.name, err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		var (
			runID         string
			year, mileage sql.NullInt64
			price         sql.NullFloat64
		)
		if err := rows.Scan(
			&runID, &l.Channel, &l.RawText, &l.Brand, &l.Model, &l.Color,
			&year, &price, &mileage,
			&l.BodyCondition, &l.ChassisCondition, &l.EngineCondition, &l.Cluster, &l.Status, &l.Phone,
		); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", w.dialect.name, err)
		}
		if year.Valid {
			v := int(year.Int64)
			l.Year = &v
		}
		if price.Valid {
			v := price.Float64
			l.Price = &v
		}
		if mileage.Valid {
			v := int(mileage.Int64)
			l.Mileage = &v
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// nullInt and nullFloat turn absent values into SQL NULL.
func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
