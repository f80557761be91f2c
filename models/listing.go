package models

import (
	"errors"
	"strings"
)

// NoInfo is the sentinel stored in colour and condition fields when the
// field was checked but nothing matched.
const NoInfo = "بدون اطلاعات"

// Status annotations written by the validator.
const (
	StatusOK              = "ok"
	StatusYearOutOfRange  = "suspect: year out of range"
	StatusPriceOutOfRange = "suspect: price out of range"
	StatusModelMismatch   = "suspect: model/brand mismatch"
	StatusMileageOutRange = "suspect: mileage out of range"
)

// Market segment labels assigned by the cluster engine.
const (
	SegmentNewExpensive = "new & expensive"
	SegmentOldCheap     = "old & cheap"
	SegmentMidRange     = "mid-range"
	SegmentNone         = "no group"
)

// LineDelimiter separates the channel from the text in the line store.
const LineDelimiter = "||"

// ErrMissingDelimiter is returned for a stored line without LineDelimiter.
var ErrMissingDelimiter = errors.New("missing channel delimiter")

// RawMessage is one classified-ad message as pulled from a channel.
// It is consumed once per run.
type RawMessage struct {
	Channel string
	Text    string
}

// ParseLine decodes a "channel||text" line. Escaped newlines in the text are
// restored.
func ParseLine(line string) (RawMessage, error) {
	channel, text, ok := strings.Cut(line, LineDelimiter)
	if !ok {
		return RawMessage{}, ErrMissingDelimiter
	}
	return RawMessage{
		Channel: strings.TrimSpace(channel),
		Text:    strings.TrimSpace(strings.ReplaceAll(text, `\n`, "\n")),
	}, nil
}

// Line encodes the message for the line store, one message per line.
func (m RawMessage) Line() string {
	text := strings.ReplaceAll(m.Text, "\r\n", "\n")
	return m.Channel + LineDelimiter + strings.ReplaceAll(text, "\n", `\n`)
}

// Listing is a structured vehicle ad. Brand and Model are empty when absent;
// Year, Price and Mileage are nil when no rule matched.
type Listing struct {
	Channel string
	RawText string

	Brand   string
	Model   string
	Color   string
	Year    *int     // Persian calendar (or Gregorian 20xx)
	Price   *float64 // millions of toman
	Mileage *int     // km
	Phone   string   // seller mobile, 09xxxxxxxxx

	BodyCondition    string
	ChassisCondition string
	EngineCondition  string

	Cluster string
	Status  string
}

// NewListing returns a listing with every sentinel field set to NoInfo.
func NewListing(msg RawMessage) *Listing {
	return &Listing{
		Channel:          msg.Channel,
		RawText:          msg.Text,
		Color:            NoInfo,
		BodyCondition:    NoInfo,
		ChassisCondition: NoInfo,
		EngineCondition:  NoInfo,
		Cluster:          SegmentNone,
	}
}

// Identified reports whether the listing names a vehicle.
func (l *Listing) Identified() bool { return l.Brand != "" || l.Model != "" }

// Priced reports whether the listing carries a year or a price.
func (l *Listing) Priced() bool { return l.Year != nil || l.Price != nil }

// Accepted is the acceptance gate applied after extraction.
func (l *Listing) Accepted() bool { return l.Identified() && l.Priced() }

// Usable reports whether the listing can take part in clustering.
func (l *Listing) Usable() bool { return l.Year != nil && l.Price != nil }

// BatchStats counts what happened to each message of a batch.
type BatchStats struct {
	Received   int
	Malformed  int
	Irrelevant int
	Faulted    int
	Rejected   int
	Accepted   int
	Suspect    int
	Clustered  int
}

// BatchResult is the output of one pipeline run.
type BatchResult struct {
	RunID      string
	Listings   []*Listing
	Stats      BatchStats
	Conditions []string
}

// SegmentSummary aggregates the listings that share a segment label.
type SegmentSummary struct {
	Label        string
	Count        int
	AveragePrice float64
	AverageYear  float64
}

// InsightReport holds the computed analytics over the labelled batch.
type InsightReport struct {
	TotalListings  int
	PricedListings int
	AveragePrice   float64
	MinPrice       float64
	MaxPrice       float64
	MostExpensive  *Listing
	Segments       []SegmentSummary
	ByBrand        map[string]int
	ByStatus       map[string]int
	ByChannel      map[string]int
}
