package classifier

import (
	"sort"
	"strings"

	"car-ads/config"
	"car-ads/utils"
)

// Entity labels the brand rule listens to.
const (
	LabelProduct = "PRODUCT"
	LabelOrg     = "ORG"
)

// Entity is a labelled span found in a message.
type Entity struct {
	Label string
	Span  string
}

// EntityRecognizer is the optional named-entity capability.
type EntityRecognizer interface {
	Entities(text string) []Entity
}

// Gazetteer recognizes entities by looking up a fixed list of names.
type Gazetteer struct {
	entries []config.Entity
}

// NewGazetteer normalizes the entries; longer names are tried first so that
// "ایران خودرو دنا" wins over "دنا".
func NewGazetteer(entries []config.Entity) *Gazetteer {
	g := &Gazetteer{}
	for _, e := range entries {
		text := utils.NormalizeText(e.Text)
		if text == "" || e.Label == "" {
			continue
		}
		g.entries = append(g.entries, config.Entity{Label: strings.ToUpper(e.Label), Text: text})
	}
	sort.SliceStable(g.entries, func(i, j int) bool {
		return len(g.entries[i].Text) > len(g.entries[j].Text)
	})
	return g
}

// Entities returns the matched entries in order of appearance.
func (g *Gazetteer) Entities(text string) []Entity {
	if len(g.entries) == 0 {
		return nil
	}
	lower := strings.ToLower(utils.NormalizeText(text))

	type hit struct {
		pos int
		ent Entity
	}
	var hits []hit
	taken := make([]bool, len(lower))
	for _, e := range g.entries {
		needle := strings.ToLower(e.Text)
		pos := strings.Index(lower, needle)
		if pos < 0 || taken[pos] {
			continue
		}
		for i := pos; i < pos+len(needle); i++ {
			taken[i] = true
		}
		hits = append(hits, hit{pos: pos, ent: Entity{Label: e.Label, Span: e.Text}})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]Entity, len(hits))
	for i, h := range hits {
		out[i] = h.ent
	}
	return out
}
