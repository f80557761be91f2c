package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"car-ads/models"
)

// memFile buffers the parquet output so the file is written in one go.
type memFile struct {
	buffer *bytes.Buffer
}

func newMemFile() *memFile {
	return &memFile{buffer: &bytes.Buffer{}}
}

func (m *memFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFile) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFile) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFile) Read([]byte) (int, error)                  { return 0, io.EOF }
func (m *memFile) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFile) Close() error                              { return nil }
func (m *memFile) Bytes() []byte                             { return m.buffer.Bytes() }

// listingRecord is the parquet schema of an exported listing.
type listingRecord struct {
	RunID            string   `parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Channel          string   `parquet:"name=channel, type=BYTE_ARRAY, convertedtype=UTF8"`
	Brand            string   `parquet:"name=brand, type=BYTE_ARRAY, convertedtype=UTF8"`
	Model            string   `parquet:"name=model, type=BYTE_ARRAY, convertedtype=UTF8"`
	Color            string   `parquet:"name=color, type=BYTE_ARRAY, convertedtype=UTF8"`
	Year             *int32   `parquet:"name=year, type=INT32, repetitiontype=OPTIONAL"`
	Price            *float64 `parquet:"name=price, type=DOUBLE, repetitiontype=OPTIONAL"`
	Mileage          *int64   `parquet:"name=mileage, type=INT64, repetitiontype=OPTIONAL"`
	BodyCondition    string   `parquet:"name=body_condition, type=BYTE_ARRAY, convertedtype=UTF8"`
	ChassisCondition string   `parquet:"name=chassis_condition, type=BYTE_ARRAY, convertedtype=UTF8"`
	EngineCondition  string   `parquet:"name=engine_condition, type=BYTE_ARRAY, convertedtype=UTF8"`
	Cluster          string   `parquet:"name=cluster, type=BYTE_ARRAY, convertedtype=UTF8"`
	Status           string   `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8"`
	Phone            string   `parquet:"name=phone, type=BYTE_ARRAY, convertedtype=UTF8"`
	RawText          string   `parquet:"name=raw_text, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ParquetWriter exports a run as a snappy-compressed parquet file.
type ParquetWriter struct {
	path string
}

func NewParquetWriter(path string) (*ParquetWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("parquet: create output dir: %w", err)
	}
	return &ParquetWriter{path: path}, nil
}

// Write replaces the file with the given listings.
func (p *ParquetWriter) Write(runID string, listings []*models.Listing) error {
	mf := newMemFile()
	pw, err := writer.NewParquetWriter(mf, new(listingRecord), 1)
	if err != nil {
		return fmt.Errorf("parquet: new writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, l := range listings {
		if err := pw.Write(toRecord(runID, l)); err != nil {
			return fmt.Errorf("parquet: write record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("parquet: finalize: %w", err)
	}

	if err := os.WriteFile(p.path, mf.Bytes(), 0644); err != nil {
		return fmt.Errorf("parquet: write %q: %w", p.path, err)
	}
	return nil
}

func (p *ParquetWriter) Close() error { return nil }

func toRecord(runID string, l *models.Listing) listingRecord {
	rec := listingRecord{
		RunID:            runID,
		Channel:          l.Channel,
		Brand:            l.Brand,
		Model:            l.Model,
		Color:            l.Color,
		Price:            l.Price,
		BodyCondition:    l.BodyCondition,
		ChassisCondition: l.ChassisCondition,
		EngineCondition:  l.EngineCondition,
		Cluster:          l.Cluster,
		Status:           l.Status,
		Phone:            l.Phone,
		RawText:          l.RawText,
	}
	if l.Year != nil {
		y := int32(*l.Year)
		rec.Year = &y
	}
	if l.Mileage != nil {
		m := int64(*l.Mileage)
		rec.Mileage = &m
	}
	return rec
}
