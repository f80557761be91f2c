package storage

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"car-ads/models"
)

func sampleListings() []*models.Listing {
	year, mileage, price := 1403, 20000, 850.0
	full := models.NewListing(models.RawMessage{Channel: "autokhass", Text: "پژو 207 پانا مشکی 1403 قیمت 850 میلیون"})
	full.Brand, full.Model, full.Color = "پژو", "207 پانا", "مشکی"
	full.Year, full.Price, full.Mileage = &year, &price, &mileage
	full.Status = models.StatusOK
	full.Phone = "09121234567"

	sparse := models.NewListing(models.RawMessage{Channel: "tamasha_car", Text: "پرایم 1399"})
	sparse.Model = "پرایم"
	sparse.Status = models.StatusOK
	return []*models.Listing{full, sparse}
}

func TestMessageStoreRoundTrip(t *testing.T) {
	store := NewMessageStore(filepath.Join(t.TempDir(), "data", "messages.txt"))
	msgs := []models.RawMessage{
		{Channel: "autokhass", Text: "پژو 207\nقیمت 850 میلیون"},
		{Channel: "tamasha_car", Text: "   "},
		{Channel: "sourenacars", Text: "دنا پلاس 1402"},
	}
	if err := store.Write(msgs); err != nil {
		t.Fatalf("Write: %v", err)
	}

	lines, err := store.ReadLines()
	if err != nil {
		t.Fatalf("ReadLines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2 (blank message dropped)", len(lines))
	}
	got, err := models.ParseLine(lines[0])
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if got != msgs[0] {
		t.Errorf("round trip: got %+v, want %+v", got, msgs[0])
	}
}

func TestMessageStoreKeepsContentOnEmptyWrite(t *testing.T) {
	store := NewMessageStore(filepath.Join(t.TempDir(), "messages.txt"))
	if err := store.Write([]models.RawMessage{{Channel: "autokhass", Text: "دنا پلاس 1402"}}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	for _, msgs := range [][]models.RawMessage{nil, {{Channel: "autokhass", Text: " "}}} {
		if err := store.Write(msgs); !errors.Is(err, ErrNothingToSave) {
			t.Errorf("Write(%d blank messages): got %v, want ErrNothingToSave", len(msgs), err)
		}
	}

	lines, err := store.ReadLines()
	if err != nil {
		t.Fatalf("ReadLines: %v", err)
	}
	if len(lines) != 1 || lines[0] != "autokhass||دنا پلاس 1402" {
		t.Errorf("store content changed: %q", lines)
	}
	if _, err := os.Stat(store.Path() + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temporary file left behind: %v", err)
	}
}

func TestMessageStoreMissingFile(t *testing.T) {
	_, err := NewMessageStore(filepath.Join(t.TempDir(), "nope.txt")).ReadLines()
	if !errors.Is(err, ErrNoMessages) {
		t.Errorf("expected ErrNoMessages, got %v", err)
	}
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "cars.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	if err := w.Write("run-1", sampleListings()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte(utf8BOM)) {
		t.Fatal("csv does not start with a UTF-8 BOM")
	}

	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[0][0] != "run_id" || rows[1][0] != "run-1" {
		t.Errorf("unexpected first column: %q / %q", rows[0][0], rows[1][0])
	}
	if rows[1][5] != "1403" || rows[1][6] != "850" || rows[1][7] != "20000" {
		t.Errorf("numeric columns: got %v", rows[1][5:8])
	}
	if rows[0][13] != "phone" || rows[1][13] != "09121234567" || rows[2][13] != "" {
		t.Errorf("phone column: got %q / %q / %q", rows[0][13], rows[1][13], rows[2][13])
	}
	if rows[2][5] != "" || rows[2][4] != models.NoInfo {
		t.Errorf("absent values: got year %q color %q", rows[2][5], rows[2][4])
	}
}

func TestSQLiteWriterRoundTrip(t *testing.T) {
	w, err := NewSQLiteWriter(filepath.Join(t.TempDir(), "listings.db"))
	if err != nil {
		t.Fatalf("NewSQLiteWriter: %v", err)
	}
	defer w.Close()

	if err := w.Write("run-1", sampleListings()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// a second run replaces the first
	if err := w.Write("run-2", sampleListings()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := w.FetchAll()
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d listings, want 2", len(got))
	}
	if got[0].Brand != "پژو" || got[0].Year == nil || *got[0].Year != 1403 || *got[0].Price != 850 {
		t.Errorf("first listing: %+v", got[0])
	}
	if got[0].Phone != "09121234567" || got[1].Phone != "" {
		t.Errorf("phone: got %q / %q", got[0].Phone, got[1].Phone)
	}
	if got[1].Year != nil || got[1].Price != nil || got[1].Mileage != nil {
		t.Errorf("NULL columns must come back as nil: %+v", got[1])
	}

	// an empty run leaves an empty table
	if err := w.Write("run-3", nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got, _ := w.FetchAll(); len(got) != 0 {
		t.Errorf("table not empty after an empty run: %d rows", len(got))
	}
}

func TestSQLiteWriterAddsPhoneColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.Exec(`CREATE TABLE listings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL, channel TEXT NOT NULL, raw_text TEXT NOT NULL,
		brand TEXT NOT NULL DEFAULT '', model TEXT NOT NULL DEFAULT '', color TEXT NOT NULL,
		year INTEGER, price REAL, mileage INTEGER,
		body_condition TEXT NOT NULL, chassis_condition TEXT NOT NULL, engine_condition TEXT NOT NULL,
		cluster TEXT NOT NULL, status TEXT NOT NULL
	)`)
	db.Close()
	if err != nil {
		t.Fatalf("create old table: %v", err)
	}

	w, err := NewSQLiteWriter(path)
	if err != nil {
		t.Fatalf("NewSQLiteWriter: %v", err)
	}
	defer w.Close()

	if err := w.Write("run-1", sampleListings()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := w.FetchAll()
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(got) != 2 || got[0].Phone != "09121234567" {
		t.Errorf("got %+v", got)
	}
}

func TestParquetWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cars.parquet")
	w, err := NewParquetWriter(path)
	if err != nil {
		t.Fatalf("NewParquetWriter: %v", err)
	}
	if err := w.Write("run-1", sampleListings()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	magic := []byte("PAR1")
	if !bytes.HasPrefix(data, magic) || !bytes.HasSuffix(data, magic) {
		t.Errorf("output is not a parquet file (%d bytes)", len(data))
	}
}
