// Package classifier holds the text capabilities the extraction pipeline
// consumes: a trained relevance classifier, a keyword gate, and a gazetteer
// entity recognizer.
package classifier

import (
	"errors"
	"strings"

	"car-ads/config"
	"car-ads/utils"
)

var (
	// ErrEmptyCorpus is returned when the seed corpus has no usable text.
	ErrEmptyCorpus = errors.New("classifier: empty seed corpus")
	// ErrSingleClass is returned when the seed corpus lacks one of the labels.
	ErrSingleClass = errors.New("classifier: seed corpus needs relevant and irrelevant examples")
)

// Relevance decides whether a message is a vehicle ad.
type Relevance interface {
	Classify(text string) bool
}

// Model is a relevance classifier trained once from a labelled corpus. It is
// immutable after construction and safe for concurrent use.
type Model struct {
	vectorizer *Vectorizer
	linear     *LinearModel
}

// Train vectorizes the seed corpus and fits the separator.
func Train(seed []config.LabeledText) (*Model, error) {
	docs := make([]string, 0, len(seed))
	for _, ex := range seed {
		if strings.TrimSpace(ex.Text) != "" {
			docs = append(docs, ex.Text)
		}
	}
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}

	vec := FitVectorizer(docs)

	var positive, negative []Vector
	for _, ex := range seed {
		if strings.TrimSpace(ex.Text) == "" {
			continue
		}
		x := vec.Transform(ex.Text)
		if ex.Relevant {
			positive = append(positive, x)
		} else {
			negative = append(negative, x)
		}
	}

	linear, err := FitCentroids(positive, negative)
	if err != nil {
		return nil, err
	}
	return &Model{vectorizer: vec, linear: linear}, nil
}

// Score returns the decision value for text; positive means relevant.
func (m *Model) Score(text string) float64 {
	return m.linear.Score(m.vectorizer.Transform(text))
}

// Classify reports whether text looks like a vehicle ad.
func (m *Model) Classify(text string) bool {
	return m.Score(text) > 0
}

// KeywordGate rejects messages containing any block keyword, such as
// greetings and announcements posted between ads.
type KeywordGate struct {
	keywords []string
}

// NewKeywordGate builds a gate over the normalized keywords.
func NewKeywordGate(keywords []string) *KeywordGate {
	g := &KeywordGate{}
	for _, k := range keywords {
		if k = strings.ToLower(utils.NormalizeText(k)); k != "" {
			g.keywords = append(g.keywords, k)
		}
	}
	return g
}

// Classify returns false when a block keyword occurs in text.
func (g *KeywordGate) Classify(text string) bool {
	text = strings.ToLower(utils.NormalizeText(text))
	for _, k := range g.keywords {
		if strings.Contains(text, k) {
			return false
		}
	}
	return true
}

// all is relevant only when every member is.
type all []Relevance

// All combines capabilities; evaluation stops at the first rejection.
func All(members ...Relevance) Relevance {
	return all(members)
}

func (a all) Classify(text string) bool {
	for _, r := range a {
		if !r.Classify(text) {
			return false
		}
	}
	return true
}

// FromCorpus trains the model and puts the keyword gate in front of it.
func FromCorpus(corpus config.RelevanceCorpus) (Relevance, error) {
	model, err := Train(corpus.Seed)
	if err != nil {
		return nil, err
	}
	if len(corpus.BlockKeywords) == 0 {
		return model, nil
	}
	return All(NewKeywordGate(corpus.BlockKeywords), model), nil
}
