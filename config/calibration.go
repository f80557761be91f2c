package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Calibration holds the corpus-dependent tables and thresholds of the
// extraction pipeline. Every value has a default; a yaml file only needs to
// list what it overrides.
type Calibration struct {
	Brands      []string            `yaml:"brands"`
	Colors      []string            `yaml:"colors"`
	BrandModels map[string][]string `yaml:"brand_models"`
	Entities    []Entity            `yaml:"entities"`

	Years      YearCalibration    `yaml:"years"`
	PriceScale []PriceBand        `yaml:"price_scale"`
	Validation ValidationBounds   `yaml:"validation"`
	Segments   SegmentCalibration `yaml:"segments"`
	Relevance  RelevanceCorpus    `yaml:"relevance"`
}

// Entity is a gazetteer entry for the entity recognizer.
type Entity struct {
	Label string `yaml:"label"`
	Text  string `yaml:"text"`
}

// YearCalibration bounds the years extraction accepts after era resolution.
type YearCalibration struct {
	PersianMin   int `yaml:"persian_min"`
	PersianMax   int `yaml:"persian_max"`
	GregorianMin int `yaml:"gregorian_min"`
	GregorianMax int `yaml:"gregorian_max"`
}

// PriceBand is one step of the price scale policy. A band matches a value
// when every bound it sets holds; the first matching band rescales the value
// by Multiply/Divide.
type PriceBand struct {
	Below    *float64 `yaml:"below,omitempty"`
	AtLeast  *float64 `yaml:"at_least,omitempty"`
	Over     *float64 `yaml:"over,omitempty"`
	AtMost   *float64 `yaml:"at_most,omitempty"`
	Multiply float64  `yaml:"multiply,omitempty"`
	Divide   float64  `yaml:"divide,omitempty"`
}

// Matches reports whether v falls inside the band.
func (b PriceBand) Matches(v float64) bool {
	if b.Below != nil && !(v < *b.Below) {
		return false
	}
	if b.AtLeast != nil && !(v >= *b.AtLeast) {
		return false
	}
	if b.Over != nil && !(v > *b.Over) {
		return false
	}
	if b.AtMost != nil && !(v <= *b.AtMost) {
		return false
	}
	return true
}

// Apply rescales v.
func (b PriceBand) Apply(v float64) float64 {
	if b.Multiply != 0 {
		v *= b.Multiply
	}
	if b.Divide != 0 {
		v /= b.Divide
	}
	return v
}

// ValidationBounds are the plausibility ranges used by the validator.
type ValidationBounds struct {
	PersianYearMin   int     `yaml:"persian_year_min"`
	PersianYearMax   int     `yaml:"persian_year_max"`
	GregorianYearMin int     `yaml:"gregorian_year_min"`
	GregorianYearMax int     `yaml:"gregorian_year_max"`
	PriceMin         float64 `yaml:"price_min"`
	PriceMax         float64 `yaml:"price_max"`
	MileageMin       int     `yaml:"mileage_min"`
	MileageMax       int     `yaml:"mileage_max"`
}

// SegmentCalibration drives the cluster engine and its label thresholds.
type SegmentCalibration struct {
	K                 int     `yaml:"k"`
	Seed              int64   `yaml:"seed"`
	Restarts          int     `yaml:"restarts"`
	MaxIterations     int     `yaml:"max_iterations"`
	NewMinYear        float64 `yaml:"new_min_year"`
	ExpensiveMinPrice float64 `yaml:"expensive_min_price"`
	OldMaxYear        float64 `yaml:"old_max_year"`
}

// RelevanceCorpus is the labelled seed corpus of the relevance classifier.
// Accuracy depends entirely on it.
type RelevanceCorpus struct {
	Seed          []LabeledText `yaml:"seed"`
	BlockKeywords []string      `yaml:"block_keywords"`
}

// LabeledText is one training example.
type LabeledText struct {
	Text     string `yaml:"text"`
	Relevant bool   `yaml:"relevant"`
}

func f64(v float64) *float64 { return &v }

// DefaultCalibration returns the tables tuned on the autokhass, tamasha_car and sourenacars channels.
func DefaultCalibration() *Calibration {
	return &Calibration{
		Brands: []string{
			"دیگنیتی", "پراید", "دنا", "پژو", "سمند", "تویوتا", "هیوندای", "کیا", "بنز",
			"بی ام و", "ام وی ام", "جک", "چری", "رنو", "فولکس", "نیسان", "مزدا", "فورد",
			"شورلت", "سانتافه", "207", "پانا", "فیدلیتی", "سورن", "ری را", "تارا",
			"bmw", "mvm", "kia", "jac",
		},
		Colors: []string{
			"سقف مشکی", "مشکی", "سفید", "خاکستری", "قرمز", "آبی", "سبز", "طلایی",
			"مارون", "تیتانیوم", "طوسی", "نقره ای",
		},
		BrandModels: map[string][]string{
			"پراید":   {"111", "131", "132", "151"},
			"دنا":     {"پلاس", "توربو", "پلاس توربو 6 دنده"},
			"207":     {"پانا", "پانامرا", "تیپ"},
			"دیگنیتی": {"پرایم"},
			"جک":      {"j4", "j7"},
			"فیدلیتی": {"پرستیژ", "داخل طوسی 5 نفره"},
			"سورن":    {"پلاس"},
			"تارا":    {"اتومات v4 تیتانیوم"},
			"تویوتا":  {"لوین 1200"},
		},
		Years: YearCalibration{
			PersianMin:   1370,
			PersianMax:   1404,
			GregorianMin: 2000,
			GregorianMax: 2029,
		},
		PriceScale: []PriceBand{
			{Below: f64(10), Multiply: 1000},
			{AtLeast: f64(10), AtMost: f64(100), Multiply: 1000},
			{Over: f64(100), AtMost: f64(1000)},
			{Over: f64(1000000), Divide: 1000000},
		},
		Validation: ValidationBounds{
			PersianYearMin:   1370,
			PersianYearMax:   1404,
			GregorianYearMin: 2000,
			GregorianYearMax: 2025,
			PriceMin:         50,
			PriceMax:         10000,
			MileageMin:       0,
			MileageMax:       500000,
		},
		Segments: SegmentCalibration{
			K:                 3,
			Seed:              0,
			Restarts:          10,
			MaxIterations:     300,
			NewMinYear:        1402,
			ExpensiveMinPrice: 1500,
			OldMaxYear:        1398,
		},
		Relevance: RelevanceCorpus{
			Seed: []LabeledText{
				{Text: "۲۰۷ پانا ارتقا مشکی ۱۴۰۴ برج روز ۹۲۶/۰۰۰", Relevant: true},
				{Text: "جک j4 مشکی ۱۴۰۴ برج ۲ ۹۶۲/۰۰۰", Relevant: true},
				{Text: "فیدلیتی پرستیژ ۵ نفره داخل طوسی ۱۴۰۳ ۳/۱۲۴/۰۰۰", Relevant: true},
				{Text: "پژو ۲۰۶ تیپ ۲ سفید مدل ۱۳۹۹ کارکرد ۸۰ هزار قیمت ۶۵۰ میلیون", Relevant: true},
				{Text: "دنا پلاس توربو خاکستری ۱۴۰۲ بدنه سالم موتور سالم قیمت ۱.۲۰۰ میلیارد", Relevant: true},
				{Text: "تارا اتومات v4 تیتانیوم صفر ۱۴۰۳ قیمت ۱۴۵۰ میلیون تومان", Relevant: true},
				{Text: "سلام دوستان، امروز می‌خوام درباره آشپزی حرف بزنم", Relevant: false},
				{Text: "فروش گوشی سامسونگ مدل A52 قیمت ۵ میلیون", Relevant: false},
				{Text: "سلام همکاران عزیز روز خوبی داشته باشید", Relevant: false},
				{Text: "امیدوارم حال همه دوستان خوب باشد عید شما مبارک", Relevant: false},
				{Text: "توجه توجه ساعت کاری نمایشگاه فردا تعطیل است", Relevant: false},
				{Text: "درگذشت پدر همکار عزیزمان را تسلیت عرض می‌کنیم", Relevant: false},
			},
			BlockKeywords: []string{"سلام", "توجه", "همکاران", "عید", "تسلیت"},
		},
	}
}

// LoadCalibration overlays the yaml file at path on DefaultCalibration.
// A missing file yields the defaults.
func LoadCalibration(path string) (*Calibration, error) {
	cal := DefaultCalibration()
	if path == "" {
		return cal, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cal, nil
	}
	if err != nil {
		return nil, fmt.Errorf("calibration: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cal); err != nil {
		return nil, fmt.Errorf("calibration: parse %q: %w", path, err)
	}
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("calibration: %q: %w", path, err)
	}
	return cal, nil
}

// Validate rejects calibrations the pipeline cannot run with.
func (c *Calibration) Validate() error {
	if len(c.Brands) == 0 {
		return errors.New("brands must not be empty")
	}
	if len(c.Colors) == 0 {
		return errors.New("colors must not be empty")
	}
	if c.Years.PersianMin > c.Years.PersianMax || c.Years.GregorianMin > c.Years.GregorianMax {
		return errors.New("years: min must not exceed max")
	}
	for i, b := range c.PriceScale {
		if b.Below == nil && b.AtLeast == nil && b.Over == nil && b.AtMost == nil {
			return fmt.Errorf("price_scale[%d]: band has no bounds", i)
		}
		if b.Multiply < 0 || b.Divide < 0 {
			return fmt.Errorf("price_scale[%d]: factors must be positive", i)
		}
	}
	if c.Validation.PriceMin > c.Validation.PriceMax {
		return errors.New("validation: price_min exceeds price_max")
	}
	if c.Segments.K < 1 {
		return errors.New("segments.k must be at least 1")
	}
	if c.Segments.Restarts < 1 || c.Segments.MaxIterations < 1 {
		return errors.New("segments: restarts and max_iterations must be positive")
	}
	return nil
}
