package services

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"car-ads/classifier"
	"car-ads/config"
	"car-ads/models"
	"car-ads/utils"
)

type relevanceFunc func(string) bool

func (f relevanceFunc) Classify(text string) bool { return f(text) }

var relevantAll = relevanceFunc(func(string) bool { return true })

func quietLogger() *utils.Logger {
	l := utils.NewLogger()
	l.SetOutput(io.Discard)
	return l
}

func newTestPipeline(t *testing.T, rel classifier.Relevance) *Pipeline {
	t.Helper()
	cal := config.DefaultCalibration()
	if rel == nil {
		var err error
		if rel, err = classifier.FromCorpus(cal.Relevance); err != nil {
			t.Fatalf("FromCorpus: %v", err)
		}
	}
	return NewPipeline(cal, rel, nil, quietLogger())
}

func TestPipelineEndToEnd(t *testing.T) {
	p := newTestPipeline(t, nil)
	res := p.ProcessLines([]string{
		"autokhass||پژو 207 پانا مشکی 1403 قیمت 850 میلیون",
		"sourenacars||سلام دوستان امیدوارم روز خوبی داشته باشید",
		"a line without a channel",
	})

	want := models.BatchStats{Received: 3, Malformed: 1, Irrelevant: 1, Accepted: 1}
	if res.Stats != want {
		t.Errorf("stats: got %+v, want %+v", res.Stats, want)
	}
	if res.RunID == "" {
		t.Error("missing run id")
	}
	if len(res.Listings) != 1 {
		t.Fatalf("got %d listings, want 1", len(res.Listings))
	}

	l := res.Listings[0]
	if l.Channel != "autokhass" || l.Brand != "پژو" || l.Color != "مشکی" {
		t.Errorf("unexpected listing %+v", l)
	}
	if l.Year == nil || *l.Year != 1403 {
		t.Errorf("year: got %v", deref(l.Year))
	}
	if l.Price == nil || *l.Price != 850 {
		t.Errorf("price: got %v", deref(l.Price))
	}
	if l.Status != models.StatusOK {
		t.Errorf("status: got %q", l.Status)
	}
	if l.Cluster != models.SegmentNone {
		t.Errorf("a single listing must not be clustered, got %q", l.Cluster)
	}
}

func TestPipelineAcceptanceGate(t *testing.T) {
	p := newTestPipeline(t, relevantAll)
	res := p.Process([]models.RawMessage{
		{Channel: "c", Text: "فقط تماس بگیرید"},
		{Channel: "c", Text: "قیمت 850 میلیون"},
		{Channel: "c", Text: "پراید صبا قیمت 250 میلیون"},
	})

	if res.Stats.Rejected != 2 || res.Stats.Accepted != 1 {
		t.Errorf("stats: got %+v", res.Stats)
	}
	if res.Stats.Suspect != 1 || res.Listings[0].Status != models.StatusModelMismatch {
		t.Errorf("expected a model/brand mismatch, got %q", res.Listings[0].Status)
	}
	for _, l := range res.Listings {
		if !l.Accepted() {
			t.Errorf("listing violates the acceptance gate: %+v", l)
		}
	}
}

func TestPipelineBrandWithoutModelIsOK(t *testing.T) {
	p := newTestPipeline(t, relevantAll)
	res := p.Process([]models.RawMessage{
		{Channel: "c", Text: "پراید مشکی 1395 قیمت 200 میلیون"},
	})

	if len(res.Listings) != 1 {
		t.Fatalf("got %d listings, want 1", len(res.Listings))
	}
	l := res.Listings[0]
	if l.Brand != "پراید" || l.Model != "" {
		t.Errorf("brand/model: got %q/%q", l.Brand, l.Model)
	}
	if l.Status != models.StatusOK || res.Stats.Suspect != 0 {
		t.Errorf("status: got %q (suspect %d), want %q", l.Status, res.Stats.Suspect, models.StatusOK)
	}
}

func TestPipelineIsolatesFaults(t *testing.T) {
	panicky := relevanceFunc(func(text string) bool {
		if strings.Contains(text, "boom") {
			panic("classifier exploded")
		}
		return true
	})
	p := newTestPipeline(t, panicky)

	res := p.Process([]models.RawMessage{
		{Channel: "c", Text: "boom"},
		{Channel: "c", Text: "پژو 206 قیمت " + strings.Repeat("9", 400)},
		{Channel: "c", Text: "دنا پلاس سفید 1401 قیمت 980 میلیون"},
	})

	if res.Stats.Faulted != 2 {
		t.Errorf("faulted: got %d, want 2", res.Stats.Faulted)
	}
	if len(res.Listings) != 1 || res.Listings[0].Brand != "دنا" {
		t.Errorf("the healthy message must survive, got %+v", res.Listings)
	}
}

func TestPipelineClustersAcceptedListings(t *testing.T) {
	p := newTestPipeline(t, relevantAll)
	res := p.Process([]models.RawMessage{
		{Channel: "c", Text: "تارا اتومات 1403 قیمت 2000 میلیون"},
		{Channel: "c", Text: "پراید 131 مدل 1395 قیمت 300 میلیون"},
		{Channel: "c", Text: "سمند سورن سفید قیمت 500 میلیون"},
	})

	if res.Stats.Clustered != 2 {
		t.Errorf("clustered: got %d, want 2", res.Stats.Clustered)
	}
	labels := []string{models.SegmentNewExpensive, models.SegmentOldCheap, models.SegmentNone}
	for i, l := range res.Listings {
		if l.Cluster != labels[i] {
			t.Errorf("listing %d: got %q, want %q", i, l.Cluster, labels[i])
		}
	}
}

func TestPipelineLogsCarryRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := utils.NewLogger()
	logger.SetOutput(&buf)
	p := NewPipeline(config.DefaultCalibration(), relevantAll, nil, logger)

	res := p.Process([]models.RawMessage{{Channel: "c", Text: "دنا پلاس سفید 1401 قیمت 980 میلیون"}})

	out := buf.String()
	if !strings.Contains(out, "run_id="+res.RunID) {
		t.Errorf("log lines miss run_id=%s:\n%s", res.RunID, out)
	}
}

func TestPipelineBatchConditions(t *testing.T) {
	p := newTestPipeline(t, relevantAll)

	empty := p.Process(nil)
	if len(empty.Listings) != 0 || len(empty.Conditions) != 1 || empty.Conditions[0] != ConditionEmptyInput {
		t.Errorf("empty input: got %+v", empty)
	}

	down := p.Unavailable(io.ErrUnexpectedEOF)
	if len(down.Conditions) != 1 || !strings.HasPrefix(down.Conditions[0], ConditionSourceUnavailable) {
		t.Errorf("unavailable source: got %+v", down.Conditions)
	}

	garbage := p.ProcessLines([]string{"x", "y"})
	if garbage.Stats.Malformed != 2 || len(garbage.Conditions) != 0 {
		t.Errorf("malformed lines: got %+v", garbage)
	}
}
