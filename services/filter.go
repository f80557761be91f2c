package services

import (
	"strings"

	"car-ads/config"
	"car-ads/models"
	"car-ads/utils"
)

// ListingFilter narrows a labelled batch down to the listings a buyer asked
// for. Unset criteria match everything.
type ListingFilter struct {
	cfg config.FilterConfig
}

// NewListingFilter normalizes the text criteria the same way message text is
// normalized, so Arabic and Persian spellings compare equal.
func NewListingFilter(cfg config.FilterConfig) *ListingFilter {
	for _, s := range []*string{&cfg.Brand, &cfg.Model, &cfg.Color, &cfg.BodyCondition, &cfg.ChassisCondition, &cfg.EngineCondition} {
		*s = strings.ToLower(utils.NormalizeText(*s))
	}
	return &ListingFilter{cfg: cfg}
}

// Active reports whether any criterion is set.
func (f *ListingFilter) Active() bool {
	return f.cfg != config.FilterConfig{}
}

// Apply returns the matching listings in their original order.
func (f *ListingFilter) Apply(listings []*models.Listing) []*models.Listing {
	if !f.Active() {
		return listings
	}
	out := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out
}

// Match reports whether l satisfies every set criterion. A listing without
// the value a numeric criterion needs does not match it.
func (f *ListingFilter) Match(l *models.Listing) bool {
	c := f.cfg

	if !equalFold(c.Brand, l.Brand) || !equalFold(c.Color, l.Color) {
		return false
	}
	if c.Model != "" && !strings.Contains(strings.ToLower(l.Model), c.Model) {
		return false
	}
	if !equalFold(c.BodyCondition, l.BodyCondition) ||
		!equalFold(c.ChassisCondition, l.ChassisCondition) ||
		!equalFold(c.EngineCondition, l.EngineCondition) {
		return false
	}

	if c.MinPrice > 0 || c.MaxPrice > 0 {
		if l.Price == nil {
			return false
		}
		if c.MinPrice > 0 && *l.Price < c.MinPrice {
			return false
		}
		if c.MaxPrice > 0 && *l.Price > c.MaxPrice {
			return false
		}
	}

	if c.MinYear > 0 || c.MaxYear > 0 {
		if l.Year == nil {
			return false
		}
		if c.MinYear > 0 && *l.Year < c.MinYear {
			return false
		}
		if c.MaxYear > 0 && *l.Year > c.MaxYear {
			return false
		}
	}

	if c.MaxMileage > 0 && (l.Mileage == nil || *l.Mileage > c.MaxMileage) {
		return false
	}
	return true
}

// equalFold matches when want is unset or equals got ignoring case.
func equalFold(want, got string) bool {
	return want == "" || want == strings.ToLower(got)
}
