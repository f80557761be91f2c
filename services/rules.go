package services

import (
	"regexp"
	"strings"

	"car-ads/classifier"
)

// maxMileage bounds the parsed odometer so the int conversion stays defined.
const maxMileage = 1e12

// refinement rewrites an already captured model.
type refinement struct {
	name  string
	apply func(x *extraction, model string) string
}

// buildRules lays out each field's rules in precedence order.
func (e *Extractor) buildRules() {
	e.brandRules = []rule[string]{
		{name: "entity", applies: hasEntities, extract: entityBrand},
		{name: "vocabulary", extract: e.vocabularyBrand},
	}

	e.modelRules = []rule[string]{
		{name: "after-brand", applies: brandLocated, extract: e.modelAfterBrand},
		{name: "leading", applies: not(brandLocated), extract: e.leadingModel},
	}
	e.modelRefines = []refinement{
		{name: "trim", apply: appendTrim},
		{name: "alias", apply: aliasModel},
	}

	e.colorRules = []rule[string]{
		{name: "vocabulary", extract: e.vocabularyColor},
	}

	e.phoneRules = []rule[string]{
		{name: "mobile", extract: mobileNumeral},
		{name: "spaced", extract: spacedMobile},
	}

	e.yearRules = []rule[int]{
		{name: "keyword", extract: e.keywordYear},
		{name: "standalone", extract: e.standaloneYear},
	}

	e.mileageRules = []rule[int]{
		{name: "unit", extract: suffixMileage(distanceAfter)},
		{name: "keyword", extract: keywordMileage},
		{name: "usage", extract: suffixMileage(usageAfter)},
	}

	e.priceRules = []rule[float64]{
		{name: "keyword", extract: e.pricedBy(func(x *extraction, n span) bool {
			return x.before(n, priceKeywordBefore)
		})},
		{name: "currency", extract: e.pricedBy(func(x *extraction, n span) bool {
			return x.after(n, currencyAfter)
		})},
		{name: "grouped", extract: e.pricedBy(func(x *extraction, n span) bool {
			return groupedRegexp.MatchString(x.numeral(n)) && !x.latinAttached(n)
		})},
		{name: "bare", extract: e.pricedBy(bareNumeral)},
	}
}

func hasEntities(x *extraction) bool  { return len(x.entities) > 0 }
func brandLocated(x *extraction) bool { return x.brandAt.located() }

func not(f func(*extraction) bool) func(*extraction) bool {
	return func(x *extraction) bool { return !f(x) }
}

// Brand

func entityBrand(x *extraction) (*hit[string], error) {
	for _, ent := range x.entities {
		if ent.Label != classifier.LabelProduct && ent.Label != classifier.LabelOrg {
			continue
		}
		value := strings.TrimSpace(ent.Span)
		if value == "" {
			continue
		}
		h := &hit[string]{value: value}
		if pos := strings.Index(strings.ToLower(x.text), strings.ToLower(value)); pos >= 0 {
			h.at = span{pos, pos + len(value)}
		}
		return h, nil
	}
	return nil, nil
}

// vocabularyBrand takes the leftmost vocabulary term. Terms made of Latin
// letters or digits must stand alone, so "207" inside "12070" does not count.
func (e *Extractor) vocabularyBrand(x *extraction) (*hit[string], error) {
	for _, loc := range e.brandRegexp.FindAllStringIndex(x.text, -1) {
		s := span{loc[0], loc[1]}
		if !standsAlone(x.text, s) {
			continue
		}
		value := strings.ToLower(strings.Join(strings.Fields(x.text[s.start:s.end]), ""))
		return &hit[string]{value: value, at: s}, nil
	}
	return nil, nil
}

func standsAlone(text string, s span) bool {
	if isASCIIAlnum(text[s.start]) && s.start > 0 && isASCIIAlnum(text[s.start-1]) {
		return false
	}
	if isASCIIAlnum(text[s.end-1]) && s.end < len(text) && isASCIIAlnum(text[s.end]) {
		return false
	}
	return true
}

// Model

func (e *Extractor) modelAfterBrand(x *extraction) (*hit[string], error) {
	return e.captureModel(x, x.brandAt.end, x.listing.Brand), nil
}

func (e *Extractor) leadingModel(x *extraction) (*hit[string], error) {
	return e.captureModel(x, 0, x.listing.Brand), nil
}

// captureModel reads from position from up to the first stop word, newline,
// or character that cannot be part of a model name.
func (e *Extractor) captureModel(x *extraction, from int, brand string) *hit[string] {
	rest := x.text[from:]
	if stop := e.stopIndex(rest); stop >= 0 {
		rest = rest[:stop]
	}
	if end := strings.IndexFunc(rest, func(r rune) bool { return !modelRune(r) }); end >= 0 {
		rest = rest[:end]
	}

	model := rest
	if brand != "" {
		model = strings.ReplaceAll(model, brand, "")
	}
	if model = collapseSpaces(model); model == "" {
		return nil
	}
	return &hit[string]{value: model, at: span{from, from + len(rest)}}
}

// appendTrim adds an interior trim phrase such as "داخل کرم 5 نفره".
func appendTrim(x *extraction, model string) string {
	phrase := collapseSpaces(trimRegexp.FindString(x.text))
	if phrase == "" || strings.Contains(model, phrase) {
		return model
	}
	return collapseSpaces(model + " " + phrase)
}

// aliasModel maps the Pana trim of the 207 to its marketed name.
func aliasModel(x *extraction, model string) string {
	lower := strings.ToLower(model)
	if x.listing.Brand == "207" && (strings.Contains(lower, "پانا") || strings.Contains(lower, "pana")) {
		return "پانامرا"
	}
	return model
}

// Color

func (e *Extractor) vocabularyColor(x *extraction) (*hit[string], error) {
	loc := e.colorRegexp.FindStringSubmatchIndex(x.text)
	if loc == nil {
		return nil, nil
	}
	s := span{loc[2], loc[3]}
	return &hit[string]{value: collapseSpaces(x.text[s.start:s.end]), at: s}, nil
}

// Phone

// mobileNumeral takes the first numeral that is a mobile number as written,
// 09121234567, or with the 98 country code.
func mobileNumeral(x *extraction) (*hit[string], error) {
	for _, n := range x.numerals {
		if phone, ok := canonicalPhone(x.numeral(n)); ok && x.digitsOnly(n) {
			return &hit[string]{value: phone, at: n}, nil
		}
	}
	return nil, nil
}

func spacedMobile(x *extraction) (*hit[string], error) {
	loc := spacedPhoneRegexp.FindStringSubmatchIndex(x.text)
	if loc == nil {
		return nil, nil
	}
	s := span{loc[2], loc[3]}
	phone, ok := canonicalPhone(x.text[s.start:s.end])
	if !ok {
		return nil, nil
	}
	return &hit[string]{value: phone, at: s}, nil
}

// canonicalPhone keeps the digits of raw and rewrites a 98 or 0098 prefix
// to the domestic 0.
func canonicalPhone(raw string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	switch {
	case strings.HasPrefix(digits, "0098"):
		digits = "0" + digits[4:]
	case strings.HasPrefix(digits, "98"):
		digits = "0" + digits[2:]
	}
	return digits, phoneRegexp.MatchString(digits)
}

// Year

// keywordYear prefers a numeral directly introduced by سال or مدل.
func (e *Extractor) keywordYear(x *extraction) (*hit[int], error) {
	for _, n := range x.numerals {
		digits := x.numeral(n)
		if !x.digitsOnly(n) || len(digits) < 2 || len(digits) > 4 || !x.before(n, yearKeywordBefore) {
			continue
		}
		if year, ok := e.norm.ResolveYear(digits); ok {
			return &hit[int]{value: year, at: n}, nil
		}
	}
	return nil, nil
}

// standaloneYear accepts any free 3 or 4 digit numeral that resolves into a
// year window and is not obviously a price, a mileage or part of the brand.
func (e *Extractor) standaloneYear(x *extraction) (*hit[int], error) {
	for _, n := range x.numerals {
		digits := x.numeral(n)
		if !x.digitsOnly(n) || len(digits) < 3 || len(digits) > 4 || x.latinAttached(n) {
			continue
		}
		if n.overlaps(x.brandAt) || n.overlaps(x.phoneAt) || x.before(n, moneyKeywordBefore) || x.before(n, mileageBefore) ||
			x.after(n, currencyAfter) || x.after(n, distanceAfter) {
			continue
		}
		if year, ok := e.norm.ResolveYear(digits); ok {
			return &hit[int]{value: year, at: n}, nil
		}
	}
	return nil, nil
}

// Mileage

// suffixMileage reads a numeral followed by a distance word; the first
// submatch of suffix flags the "هزار" (thousand) shorthand.
func suffixMileage(suffix *regexp.Regexp) func(x *extraction) (*hit[int], error) {
	return func(x *extraction) (*hit[int], error) {
		for _, n := range x.numerals {
			m := suffix.FindStringSubmatch(x.text[n.end:])
			if m == nil {
				continue
			}
			return mileageHit(x, n, m[1] != "")
		}
		return nil, nil
	}
}

func keywordMileage(x *extraction) (*hit[int], error) {
	for _, n := range x.numerals {
		if x.before(n, mileageBefore) {
			return mileageHit(x, n, x.after(n, thousandAfter))
		}
	}
	return nil, nil
}

func mileageHit(x *extraction, n span, thousands bool) (*hit[int], error) {
	v, err := ParseNumeral(x.numeral(n))
	if err != nil {
		return nil, err
	}
	if thousands {
		v *= 1000
	}
	if v > maxMileage {
		return nil, ErrUnparseableNumeral
	}
	return &hit[int]{value: int(v), at: n}, nil
}

// Price

// pricedBy returns a rule that prices the first numeral accepted by pick.
// Numerals already read as the phone, the year or the mileage are never
// prices.
func (e *Extractor) pricedBy(pick func(x *extraction, n span) bool) func(x *extraction) (*hit[float64], error) {
	return func(x *extraction) (*hit[float64], error) {
		for _, n := range x.numerals {
			if n.overlaps(x.phoneAt) || n.overlaps(x.yearAt) || n.overlaps(x.mileageAt) || !pick(x, n) {
				continue
			}
			v, err := e.norm.NormalizePrice(x.numeral(n))
			if err != nil {
				return nil, err
			}
			return &hit[float64]{value: v, at: n}, nil
		}
		return nil, nil
	}
}

// bareNumeral accepts a plain numeral of three or more digits that no other
// field has claimed.
func bareNumeral(x *extraction, n span) bool {
	digits := x.numeral(n)
	if !x.digitsOnly(n) || len(digits) < 3 || x.latinAttached(n) || phoneRegexp.MatchString(digits) {
		return false
	}
	for _, taken := range []span{x.brandAt, x.modelAt, x.yearAt, x.mileageAt} {
		if n.overlaps(taken) {
			return false
		}
	}
	return !x.after(n, distanceAfter)
}
