package services

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"car-ads/classifier"
	"car-ads/config"
	"car-ads/models"
	"car-ads/utils"
)

var (
	// numeralRegexp captures maximal numerals, grouping separators included.
	numeralRegexp = regexp.MustCompile(`\d+(?:[.,/]\d+)*`)
	// groupedRegexp accepts numerals written in thousands groups: 926/000, 1.590.
	groupedRegexp = regexp.MustCompile(`^\d{1,3}(?:[.,/]\d{3})+$`)
	// phoneRegexp matches Iranian mobile numbers, which are never prices.
	phoneRegexp = regexp.MustCompile(`^09\d{9}$`)
	// spacedPhoneRegexp matches mobile numbers written in groups or with the
	// country code: 0912 123 4567, +98 912-123-4567.
	spacedPhoneRegexp = regexp.MustCompile(`(?:^|\D)((?:\+98|0098|0)\s*9\d{2}[\s-]?\d{3}[\s-]?\d{4})(?:\D|$)`)

	yearKeywordBefore  = regexp.MustCompile(`(?:سال|مدل)\s*:?\s*$`)
	priceKeywordBefore = regexp.MustCompile(`قیمت\s*:?\s*$`)
	moneyKeywordBefore = regexp.MustCompile(`(?:قیمت|تومان|تومن)\s*:?\s*$`)
	currencyAfter      = regexp.MustCompile(`^\s*(?:میلیون|میلیارد|تومان|تومن)`)
	distanceAfter      = regexp.MustCompile(`(?i)^\s*(هزار\s*)?(?:کیلومتر|km)`)
	usageAfter         = regexp.MustCompile(`^\s*(هزار\s*)?کارکرد`)
	mileageBefore      = regexp.MustCompile(`کارکرد\s*:?\s*$`)
	thousandAfter      = regexp.MustCompile(`^\s*هزار`)
	trimRegexp         = regexp.MustCompile(`داخل\s*[\p{L}\p{Mn}]+\s*\d*\s*نفره?`)
)

// modelStopWords end the model span; colour words are added per calibration.
var modelStopWords = []string{
	"داخل", "رنگ", "سال", "مدل", "قیمت", "میلیون", "میلیارد", "تومان", "تومن",
	"کارکرد", "کیلومتر", "بدنه", "شاسی", "موتور", "km",
}

// conditionStates is the closed set of condition tokens, in canonical spelling.
var conditionStates = []string{
	"سالم", "رنگ شده", "تعمیر شده", "تصادفی", "آسیب دیده", "تعویض", "نیاز به تعمیر",
}

// span is a byte range in the normalized text; the zero span means the value
// was not located in the text.
type span struct{ start, end int }

func (s span) located() bool { return s.end > s.start }

func (s span) overlaps(o span) bool {
	return s.located() && o.located() && s.start < o.end && o.start < s.end
}

// extraction is the per-message working state the rules read and write.
type extraction struct {
	text     string
	numerals []span
	entities []classifier.Entity
	listing  *models.Listing

	brandAt, modelAt, phoneAt, yearAt, mileageAt span
}

func (x *extraction) numeral(s span) string { return x.text[s.start:s.end] }

// digitsOnly reports whether the numeral has no grouping separators.
func (x *extraction) digitsOnly(s span) bool {
	return !strings.ContainsAny(x.numeral(s), ".,/")
}

// latinAttached reports whether the numeral is glued to a Latin letter, as
// in trim names like "A52" or "j4".
func (x *extraction) latinAttached(s span) bool {
	if s.start > 0 && isASCIILetter(x.text[s.start-1]) {
		return true
	}
	return s.end < len(x.text) && isASCIILetter(x.text[s.end])
}

func (x *extraction) before(s span, re *regexp.Regexp) bool { return re.MatchString(x.text[:s.start]) }
func (x *extraction) after(s span, re *regexp.Regexp) bool  { return re.MatchString(x.text[s.end:]) }

// hit is a rule result: the value, where it was found, and which rule won.
type hit[T any] struct {
	value T
	at    span
	rule  string
}

// rule is one entry of a field's ordered rule table. applies may be nil.
type rule[T any] struct {
	name    string
	applies func(x *extraction) bool
	extract func(x *extraction) (*hit[T], error)
}

// firstHit evaluates rules in order; the first rule that yields a value wins.
func firstHit[T any](x *extraction, rules []rule[T]) (*hit[T], error) {
	for _, r := range rules {
		if r.applies != nil && !r.applies(x) {
			continue
		}
		h, err := r.extract(x)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.name, err)
		}
		if h != nil {
			h.rule = r.name
			return h, nil
		}
	}
	return nil, nil
}

// Extractor turns one message into a candidate listing by running the rule
// table of every field.
type Extractor struct {
	norm       *Normalizer
	recognizer classifier.EntityRecognizer

	brandRegexp *regexp.Regexp
	stopRegexp  *regexp.Regexp
	colorRegexp *regexp.Regexp
	conditions  []conditionField

	brandRules   []rule[string]
	modelRules   []rule[string]
	modelRefines []refinement
	colorRules   []rule[string]
	phoneRules   []rule[string]
	yearRules    []rule[int]
	mileageRules []rule[int]
	priceRules   []rule[float64]
}

// NewExtractor compiles the vocabularies of cal into the rule tables. The
// recognizer is optional.
func NewExtractor(cal *config.Calibration, norm *Normalizer, recognizer classifier.EntityRecognizer) *Extractor {
	e := &Extractor{
		norm:        norm,
		recognizer:  recognizer,
		brandRegexp: regexp.MustCompile(`(?i)(?:` + alternation(cal.Brands) + `)`),
		stopRegexp:  regexp.MustCompile(`(?i)(?:` + alternation(append(append([]string{}, modelStopWords...), cal.Colors...)) + `)|\n|،`),
		colorRegexp: regexp.MustCompile(`(?:رنگ\s*)?(` + alternation(cal.Colors) + `)`),
		conditions: []conditionField{
			newConditionField("body", "بدنه", func(l *models.Listing, v string) { l.BodyCondition = v }),
			newConditionField("chassis", "شاسی", func(l *models.Listing, v string) { l.ChassisCondition = v }),
			newConditionField("engine", "موتور", func(l *models.Listing, v string) { l.EngineCondition = v }),
		},
	}
	e.buildRules()
	return e
}

// Extract runs every field's rules over msg. The returned listing has not
// been through the acceptance gate. An error means the message is faulty and
// must be skipped as a whole.
func (e *Extractor) Extract(msg models.RawMessage) (*models.Listing, error) {
	text := utils.NormalizeText(msg.Text)
	x := &extraction{text: text, listing: models.NewListing(msg)}
	for _, loc := range numeralRegexp.FindAllStringIndex(text, -1) {
		x.numerals = append(x.numerals, span{loc[0], loc[1]})
	}
	if e.recognizer != nil {
		x.entities = e.recognizer.Entities(text)
	}

	l := x.listing

	if h, err := firstHit(x, e.brandRules); err != nil {
		return nil, fmt.Errorf("brand: %w", err)
	} else if h != nil {
		l.Brand, x.brandAt = h.value, h.at
	}

	if h, err := firstHit(x, e.modelRules); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	} else if h != nil {
		model := h.value
		for _, r := range e.modelRefines {
			model = r.apply(x, model)
		}
		l.Model, x.modelAt = model, h.at
	}

	if h, err := firstHit(x, e.colorRules); err != nil {
		return nil, fmt.Errorf("color: %w", err)
	} else if h != nil {
		l.Color = h.value
	}

	if h, err := firstHit(x, e.phoneRules); err != nil {
		return nil, fmt.Errorf("phone: %w", err)
	} else if h != nil {
		l.Phone, x.phoneAt = h.value, h.at
	}

	if h, err := firstHit(x, e.yearRules); err != nil {
		return nil, fmt.Errorf("year: %w", err)
	} else if h != nil {
		year := h.value
		l.Year, x.yearAt = &year, h.at
	}

	if h, err := firstHit(x, e.mileageRules); err != nil {
		return nil, fmt.Errorf("mileage: %w", err)
	} else if h != nil {
		mileage := h.value
		l.Mileage, x.mileageAt = &mileage, h.at
	}

	if h, err := firstHit(x, e.priceRules); err != nil {
		return nil, fmt.Errorf("price: %w", err)
	} else if h != nil {
		price := h.value
		l.Price = &price
	}

	for _, c := range e.conditions {
		if v, ok := c.extract(text); ok {
			c.set(l, v)
		}
	}

	return l, nil
}

// stopIndex returns where the first stop word, newline or "،" in s starts,
// or -1. A stop word glued to other letters, like سال in سالن, does not count.
func (e *Extractor) stopIndex(s string) int {
	for _, loc := range e.stopRegexp.FindAllStringIndex(s, -1) {
		if !insideWord(s, loc[0], loc[1]) {
			return loc[0]
		}
	}
	return -1
}

// insideWord reports whether the word s[start:end] continues into letters on
// either side.
func insideWord(s string, start, end int) bool {
	first, _ := utf8.DecodeRuneInString(s[start:end])
	last, _ := utf8.DecodeLastRuneInString(s[start:end])
	if end < len(s) && wordRune(last) {
		if next, _ := utf8.DecodeRuneInString(s[end:]); wordRune(next) {
			return true
		}
	}
	if start > 0 && wordRune(first) {
		if prev, _ := utf8.DecodeLastRuneInString(s[:start]); wordRune(prev) {
			return true
		}
	}
	return false
}

func wordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.Is(unicode.Mn, r)
}

// conditionField is the "<part> <state>" rule shared by body, chassis and
// engine.
type conditionField struct {
	name   string
	regexp *regexp.Regexp
	set    func(l *models.Listing, v string)
}

func newConditionField(name, keyword string, set func(*models.Listing, string)) conditionField {
	return conditionField{
		name:   name,
		regexp: regexp.MustCompile(keyword + `\s*:?\s*(` + alternation(conditionStates) + `)`),
		set:    set,
	}
}

func (c conditionField) extract(text string) (string, bool) {
	m := c.regexp.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	key := strings.Join(strings.Fields(m[1]), "")
	for _, state := range conditionStates {
		if strings.ReplaceAll(state, " ", "") == key {
			return state, true
		}
	}
	return collapseSpaces(m[1]), true
}

// alternation quotes each term, lets internal spaces match any run of
// whitespace, and orders longer terms first.
func alternation(terms []string) string {
	sorted := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(utils.NormalizeText(t)); t != "" {
			sorted = append(sorted, t)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i]) > utf8.RuneCountInString(sorted[j])
	})

	parts := make([]string, len(sorted))
	for i, t := range sorted {
		words := strings.Fields(t)
		for k, w := range words {
			words[k] = regexp.QuoteMeta(w)
		}
		parts[i] = strings.Join(words, `\s*`)
	}
	return strings.Join(parts, "|")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isASCIIAlnum(b byte) bool {
	return isASCIILetter(b) || (b >= '0' && b <= '9')
}

// modelRune reports whether r may appear inside a model span.
func modelRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || r == ' ' || r == '-'
}
