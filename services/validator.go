package services

import (
	"strings"

	"car-ads/config"
	"car-ads/models"
)

// Validator annotates listings with a plausibility status. It never drops a
// listing.
type Validator struct {
	bounds      config.ValidationBounds
	brandModels map[string][]string
	checks      []check
}

// check returns a non-empty status when the listing fails it.
type check func(l *models.Listing) string

// NewValidator builds the ordered checks from the calibration bounds.
func NewValidator(cal *config.Calibration) *Validator {
	v := &Validator{
		bounds:      cal.Validation,
		brandModels: make(map[string][]string, len(cal.BrandModels)),
	}
	for brand, tokens := range cal.BrandModels {
		lowered := make([]string, len(tokens))
		for i, t := range tokens {
			lowered[i] = strings.ToLower(t)
		}
		v.brandModels[strings.ToLower(brand)] = lowered
	}
	v.checks = []check{v.checkYear, v.checkPrice, v.checkModel, v.checkMileage}
	return v
}

// Validate returns the status of the first failing check, or StatusOK.
func (v *Validator) Validate(l *models.Listing) string {
	for _, c := range v.checks {
		if status := c(l); status != "" {
			return status
		}
	}
	return models.StatusOK
}

func (v *Validator) checkYear(l *models.Listing) string {
	if l.Year == nil {
		return ""
	}
	y := *l.Year
	persian := y >= v.bounds.PersianYearMin && y <= v.bounds.PersianYearMax
	gregorian := y >= v.bounds.GregorianYearMin && y <= v.bounds.GregorianYearMax
	if !persian && !gregorian {
		return models.StatusYearOutOfRange
	}
	return ""
}

func (v *Validator) checkPrice(l *models.Listing) string {
	if l.Price == nil {
		return ""
	}
	if *l.Price < v.bounds.PriceMin || *l.Price > v.bounds.PriceMax {
		return models.StatusPriceOutOfRange
	}
	return ""
}

// checkModel only compares when both brand and model were extracted.
func (v *Validator) checkModel(l *models.Listing) string {
	if l.Brand == "" || l.Model == "" {
		return ""
	}
	tokens, ok := v.brandModels[strings.ToLower(l.Brand)]
	if !ok {
		return ""
	}
	model := strings.ToLower(l.Model)
	for _, t := range tokens {
		if strings.Contains(model, t) {
			return ""
		}
	}
	return models.StatusModelMismatch
}

func (v *Validator) checkMileage(l *models.Listing) string {
	if l.Mileage == nil {
		return ""
	}
	if *l.Mileage < v.bounds.MileageMin || *l.Mileage > v.bounds.MileageMax {
		return models.StatusMileageOutRange
	}
	return ""
}
