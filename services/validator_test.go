package services

import (
	"testing"

	"car-ads/config"
	"car-ads/models"
)

func TestValidate(t *testing.T) {
	v := NewValidator(config.DefaultCalibration())

	tests := []struct {
		name    string
		listing models.Listing
		want    string
	}{
		{
			name:    "plausible",
			listing: models.Listing{Brand: "پژو", Model: "207 پانا", Year: intPtr(1404), Price: floatPtr(900)},
			want:    models.StatusOK,
		},
		{
			name:    "year wins over every other failure",
			listing: models.Listing{Brand: "پراید", Model: "x", Year: intPtr(1500), Price: floatPtr(1), Mileage: intPtr(-5)},
			want:    models.StatusYearOutOfRange,
		},
		{
			name:    "gregorian year accepted",
			listing: models.Listing{Brand: "کیا", Year: intPtr(2019), Price: floatPtr(2500)},
			want:    models.StatusOK,
		},
		{
			name:    "gregorian year past the window",
			listing: models.Listing{Brand: "کیا", Year: intPtr(2027), Price: floatPtr(2500)},
			want:    models.StatusYearOutOfRange,
		},
		{
			name:    "price below range",
			listing: models.Listing{Brand: "پژو", Year: intPtr(1400), Price: floatPtr(49.9)},
			want:    models.StatusPriceOutOfRange,
		},
		{
			name:    "price bounds are inclusive",
			listing: models.Listing{Brand: "پژو", Year: intPtr(1370), Price: floatPtr(10000)},
			want:    models.StatusOK,
		},
		{
			name:    "model does not fit the brand",
			listing: models.Listing{Brand: "جک", Model: "s5", Year: intPtr(1401), Price: floatPtr(900)},
			want:    models.StatusModelMismatch,
		},
		{
			name:    "brand without a model is not a mismatch",
			listing: models.Listing{Brand: "پراید", Year: intPtr(1395), Price: floatPtr(200)},
			want:    models.StatusOK,
		},
		{
			name:    "model token matched case-insensitively",
			listing: models.Listing{Brand: "جک", Model: "J4 اتومات", Year: intPtr(1401), Price: floatPtr(900)},
			want:    models.StatusOK,
		},
		{
			name:    "mileage out of range",
			listing: models.Listing{Brand: "سمند", Price: floatPtr(400), Mileage: intPtr(600000)},
			want:    models.StatusMileageOutRange,
		},
		{
			name:    "missing fields are not checked",
			listing: models.Listing{Model: "پرایم"},
			want:    models.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := tt.listing
			if got := v.Validate(&l); got != tt.want {
				t.Errorf("Validate() = %q; want %q", got, tt.want)
			}
		})
	}
}
