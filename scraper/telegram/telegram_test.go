package telegram

import (
	"io"
	"testing"

	"car-ads/config"
	"car-ads/utils"
)

func newTestScraper() *Scraper {
	logger := utils.NewLogger()
	logger.SetOutput(io.Discard)
	return New(&config.Config{MaxConcurrency: 1, MessagesPerChan: 10}, logger)
}

func TestPostID(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"autokhass/1201", 1201, true},
		{"tamasha_car/7", 7, true},
		{"autokhass", 0, false},
		{"autokhass/abc", 0, false},
		{"autokhass/0", 0, false},
	}
	for _, tt := range tests {
		got, ok := postID(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("postID(%q) = (%d, %v); want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPreviewURL(t *testing.T) {
	if got := previewURL("https://t.me/s/", "autokhass", 0); got != "https://t.me/s/autokhass" {
		t.Errorf("first page: got %q", got)
	}
	if got := previewURL("https://t.me/s", "autokhass", 1190); got != "https://t.me/s/autokhass?before=1190" {
		t.Errorf("older page: got %q", got)
	}
}

func TestCollectSkipsDuplicatesAndEmptyPosts(t *testing.T) {
	s := newTestScraper()
	cards := []card{
		{Post: "autokhass/1201", Text: " پژو 207 پانا مشکی 1403 "},
		{Post: "autokhass/1199", Text: ""},
		{Post: "autokhass/1202", Text: "دنا پلاس 1402"},
		{Post: "broken", Text: "بدون شناسه"},
	}

	posts, oldest := s.collect("autokhass", cards)
	if oldest != 1199 {
		t.Errorf("oldest: got %d, want 1199", oldest)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}
	if posts[0].msg.Text != "پژو 207 پانا مشکی 1403" || posts[0].msg.Channel != "autokhass" {
		t.Errorf("first post: %+v", posts[0].msg)
	}

	again, _ := s.collect("autokhass", cards[:1])
	if len(again) != 0 {
		t.Errorf("a post seen on an earlier page must be skipped, got %d", len(again))
	}
}

func TestOrderedFollowsChannelOrder(t *testing.T) {
	s := newTestScraper()
	s.cfg.Channels = []string{"b", "a"}
	s.posts["a"] = []post{{id: 2}}
	s.posts["a"][0].msg.Channel = "a"
	s.posts["b"] = []post{{id: 9}}
	s.posts["b"][0].msg.Channel = "b"

	msgs := s.ordered()
	if len(msgs) != 2 || msgs[0].Channel != "b" || msgs[1].Channel != "a" {
		t.Errorf("got %+v", msgs)
	}
}
