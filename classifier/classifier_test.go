package classifier

import (
	"errors"
	"math"
	"testing"

	"car-ads/config"
)

func trainDefault(t *testing.T) *Model {
	t.Helper()
	m, err := Train(config.DefaultCalibration().Relevance.Seed)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	return m
}

func TestModelSeparatesAdsFromChatter(t *testing.T) {
	m := trainDefault(t)

	tests := []struct {
		text string
		want bool
	}{
		{"پژو 207 پانا مشکی 1403 قیمت 850 میلیون", true},
		{"۲۰۷ پانا مشکی ۱۴۰۴ برج روز ۹۲۶/۰۰۰", true},
		{"سلام دوستان امیدوارم روز خوبی داشته باشید", false},
		{"فروش گوشی آیفون قیمت 40 میلیون", false},
	}

	for _, tt := range tests {
		if got := m.Classify(tt.text); got != tt.want {
			t.Errorf("Classify(%q) = %v (score %.4f); want %v", tt.text, got, m.Score(tt.text), tt.want)
		}
	}
}

func TestModelIsDeterministic(t *testing.T) {
	texts := []string{
		"دنا پلاس سفید 1401 قیمت 980 میلیون",
		"پژو 207 پانا مشکی 1403 قیمت 850 میلیون",
		"سلام دوستان امیدوارم روز خوبی داشته باشید",
	}

	want := trainDefault(t)
	for round := 0; round < 20; round++ {
		got := trainDefault(t)
		for _, text := range texts {
			if a, b := want.Score(text), got.Score(text); a != b {
				t.Fatalf("round %d: scores differ between identical trainings for %q: %v vs %v", round, text, a, b)
			}
			if a, b := got.Score(text), got.Score(text); a != b {
				t.Fatalf("round %d: repeated scoring of %q differs: %v vs %v", round, text, a, b)
			}
		}
	}
}

func TestDotIsOrderIndependent(t *testing.T) {
	x := Vector{}
	y := Vector{}
	for i := 0; i < 200; i++ {
		x[i] = 1.0 / float64(i+3)
		y[i] = 1.0 / float64(i+7)
	}

	want := x.Dot(y)
	for i := 0; i < 50; i++ {
		if got := x.Dot(y); got != want {
			t.Fatalf("Dot changed between calls: %v vs %v", got, want)
		}
		if got := y.Dot(x); got != want {
			t.Fatalf("Dot is not symmetric: %v vs %v", got, want)
		}
	}
}

func TestTrainRejectsBadCorpus(t *testing.T) {
	if _, err := Train(nil); !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("nil corpus: got %v, want ErrEmptyCorpus", err)
	}

	onlyAds := []config.LabeledText{
		{Text: "پژو 206 سفید 1399", Relevant: true},
		{Text: "دنا پلاس 1402", Relevant: true},
	}
	if _, err := Train(onlyAds); !errors.Is(err, ErrSingleClass) {
		t.Errorf("single class corpus: got %v, want ErrSingleClass", err)
	}
}

func TestFromCorpusBlocksGreetings(t *testing.T) {
	rel, err := FromCorpus(config.DefaultCalibration().Relevance)
	if err != nil {
		t.Fatalf("FromCorpus: %v", err)
	}

	if rel.Classify("سلام دوستان امیدوارم روز خوبی داشته باشید") {
		t.Error("greeting passed the relevance check")
	}
	if !rel.Classify("پژو 207 پانا مشکی 1403 قیمت 850 میلیون") {
		t.Error("car ad rejected by the relevance check")
	}
}

func TestKeywordGate(t *testing.T) {
	g := NewKeywordGate([]string{"تسليت", " "})

	if g.Classify("درگذشت همکار عزیز را تسلیت می‌گوییم") {
		t.Error("keyword with Arabic yeh should still block Persian text")
	}
	if !g.Classify("سمند سورن پلاس 1400") {
		t.Error("ad without block keywords was rejected")
	}
}

func TestVectorizerNormalizesRows(t *testing.T) {
	v := FitVectorizer([]string{"جک j4 مشکی", "جک j7 سفید"})
	if v.Size() != 5 {
		t.Fatalf("vocabulary size: got %d, want 5", v.Size())
	}

	x := v.Transform("جک J4 مشکی ناشناخته")
	if n := math.Sqrt(x.Dot(x)); math.Abs(n-1) > 1e-9 {
		t.Errorf("row norm: got %v, want 1", n)
	}
	if len(x) != 3 {
		t.Errorf("unknown terms must be ignored, got %d weights", len(x))
	}
}

func TestGazetteerEntities(t *testing.T) {
	g := NewGazetteer([]config.Entity{
		{Label: "org", Text: "ایران خودرو"},
		{Label: "PRODUCT", Text: "دنا پلاس"},
		{Label: "PRODUCT", Text: "دنا"},
	})

	got := g.Entities("ایران خودرو دنا پلاس سفید 1402")
	if len(got) != 2 {
		t.Fatalf("got %d entities, want 2: %+v", len(got), got)
	}
	if got[0].Label != LabelOrg || got[0].Span != "ایران خودرو" {
		t.Errorf("first entity: got %+v", got[0])
	}
	if got[1].Label != LabelProduct || got[1].Span != "دنا پلاس" {
		t.Errorf("second entity: got %+v", got[1])
	}

	if ents := NewGazetteer(nil).Entities("دنا"); ents != nil {
		t.Errorf("empty gazetteer returned %+v", ents)
	}
}
