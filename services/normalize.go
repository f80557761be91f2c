package services

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"car-ads/config"
)

// ErrUnparseableNumeral marks a numeral that does not parse to a finite number.
var ErrUnparseableNumeral = errors.New("unparseable numeral")

// Normalizer converts human shorthand into the canonical units: Persian
// calendar years and prices in millions.
type Normalizer struct {
	years config.YearCalibration
	bands []config.PriceBand
}

// NewNormalizer builds a Normalizer from the calibration tables.
func NewNormalizer(cal *config.Calibration) *Normalizer {
	return &Normalizer{years: cal.Years, bands: cal.PriceScale}
}

// ResolveYear restores the dropped leading digits of a year token
// ("98" -> 1398, "403" -> 1403) and accepts it only inside the Persian or
// Gregorian window.
func (n *Normalizer) ResolveYear(digits string) (int, bool) {
	v, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	switch len(digits) {
	case 2:
		v += 1300
	case 3:
		v += 1000
	case 4:
	default:
		return 0, false
	}

	if v >= n.years.PersianMin && v <= n.years.PersianMax {
		return v, true
	}
	if v >= n.years.GregorianMin && v <= n.years.GregorianMax {
		return v, true
	}
	return 0, false
}

// ParseNumeral strips the grouping separators from a numeral and parses it.
func ParseNumeral(raw string) (float64, error) {
	cleaned := strings.NewReplacer(".", "", ",", "", "/", "").Replace(raw)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrUnparseableNumeral
	}
	return v, nil
}

// ScalePrice applies the first matching price band; values no band covers
// are returned unchanged.
func (n *Normalizer) ScalePrice(v float64) float64 {
	for _, b := range n.bands {
		if b.Matches(v) {
			return b.Apply(v)
		}
	}
	return v
}

// NormalizePrice parses a raw price numeral and rescales it to millions.
func (n *Normalizer) NormalizePrice(raw string) (float64, error) {
	v, err := ParseNumeral(raw)
	if err != nil {
		return 0, err
	}
	return n.ScalePrice(v), nil
}
