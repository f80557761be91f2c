package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"car-ads/config"
	"car-ads/models"
	"car-ads/utils"
)

// ErrNoChannels is returned when every channel failed or none is configured.
var ErrNoChannels = errors.New("no channel could be fetched")

// extractPostsJS collects the posts rendered on a t.me/s/<channel> page.
const extractPostsJS = `
	(function() {
		var results = [];
		var nodes = document.querySelectorAll('.tgme_widget_message[data-post]');
		for (var i = 0; i < nodes.length; i++) {
			var textEl = nodes[i].querySelector('.tgme_widget_message_text');
			results.push({
				post: nodes[i].getAttribute('data-post') || '',
				text: textEl ? textEl.innerText : ''
			});
		}
		return results;
	})()
`

// card is one post as returned by extractPostsJS.
type card struct {
	Post string `json:"post"`
	Text string `json:"text"`
}

// post is a fetched message with its numeric id inside the channel.
type post struct {
	id  int
	msg models.RawMessage
}

// Scraper pulls recent posts from public Telegram channels through their web
// preview pages.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	pool   *utils.WorkerPool
	seen   *utils.StringSet
	retry  *utils.RetryConfig

	mu    sync.Mutex
	posts map[string][]post
}

// New creates a ready-to-use Telegram Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:    cfg,
		logger: logger,
		pool:   utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		seen:   utils.NewStringSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		posts: make(map[string][]post),
	}
}

// Fetch returns up to MessagesPerChan of the newest posts of every configured
// channel, channel by channel in configuration order, newest first.
func (s *Scraper) Fetch(ctx context.Context) ([]models.RawMessage, error) {
	if len(s.cfg.Channels) == 0 {
		return nil, ErrNoChannels
	}
	s.logger.Info("[telegram] Fetching %d channels, %d messages each",
		len(s.cfg.Channels), s.cfg.MessagesPerChan)

	chromeBin := findChromeBinary(s.cfg.ChromeBin)
	s.logger.Info("[telegram] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("telegram: start browser: %w", err)
	}

	failed := 0
	var failMu sync.Mutex
	for _, channel := range s.cfg.Channels {
		s.pool.Submit(browserCtx, func(ctx context.Context) {
			posts, err := s.fetchChannel(ctx, channel)
			if err != nil {
				s.logger.Error("[telegram] Channel %s failed: %v", channel, err)
				failMu.Lock()
				failed++
				failMu.Unlock()
				return
			}
			s.mu.Lock()
			s.posts[channel] = posts
			s.mu.Unlock()
			s.logger.Info("[telegram] Channel %s done: %d messages", channel, len(posts))
		})
	}
	s.pool.Wait()

	msgs := s.ordered()
	if len(msgs) == 0 && failed > 0 {
		return nil, fmt.Errorf("%w: %d of %d failed", ErrNoChannels, failed, len(s.cfg.Channels))
	}
	s.logger.Info("[telegram] Fetch complete: %d messages, %d distinct posts seen", len(msgs), s.seen.Size())
	return msgs, nil
}

// ordered flattens the collected posts in channel configuration order.
func (s *Scraper) ordered() []models.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var msgs []models.RawMessage
	for _, channel := range s.cfg.Channels {
		for _, p := range s.posts[channel] {
			msgs = append(msgs, p.msg)
		}
	}
	return msgs
}

// fetchChannel walks the preview pages of one channel from the newest page
// backwards using the "before" cursor.
func (s *Scraper) fetchChannel(browserCtx context.Context, channel string) ([]post, error) {
	var collected []post
	before := 0

	for page := 1; len(collected) < s.cfg.MessagesPerChan; page++ {
		pageURL := previewURL(s.cfg.TelegramBaseURL, channel, before)
		s.logger.Debug("[telegram] %s page %d: %s", channel, page, pageURL)

		var cards []card
		err := s.retry.Do(browserCtx, fmt.Sprintf("%s-page-%d", channel, page), func(context.Context) error {
			tabCtx, cancel := chromedp.NewContext(browserCtx)
			defer cancel()

			tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 60*time.Second)
			defer cancelTimeout()

			return chromedp.Run(tabCtx,
				chromedp.Navigate(pageURL),
				chromedp.WaitReady("body", chromedp.ByQuery),
				chromedp.Sleep(2*time.Second),
				chromedp.Evaluate(extractPostsJS, &cards),
			)
		})
		if err != nil {
			if len(collected) > 0 {
				s.logger.Warn("[telegram] %s stopped at page %d: %v", channel, page, err)
				break
			}
			return nil, err
		}

		posts, oldest := s.collect(channel, cards)
		if oldest == 0 {
			break
		}
		collected = append(collected, posts...)

		if oldest <= 1 || (before != 0 && oldest >= before) {
			break
		}
		before = oldest
	}

	sort.SliceStable(collected, func(i, j int) bool { return collected[i].id > collected[j].id })
	if len(collected) > s.cfg.MessagesPerChan {
		collected = collected[:s.cfg.MessagesPerChan]
	}
	return collected, nil
}

// collect keeps the not yet seen posts that carry text and returns the
// lowest post id on the page, the cursor for the next page.
func (s *Scraper) collect(channel string, cards []card) ([]post, int) {
	var posts []post
	oldest := 0
	for _, c := range cards {
		id, ok := postID(c.Post)
		if !ok {
			continue
		}
		if oldest == 0 || id < oldest {
			oldest = id
		}
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		if !s.seen.Add(c.Post) {
			s.logger.Debug("[telegram] Skipping duplicate: %s", c.Post)
			continue
		}
		posts = append(posts, post{id: id, msg: models.RawMessage{Channel: channel, Text: text}})
	}
	return posts, oldest
}

// postID parses the numeric part of a "channel/1234" data-post attribute.
func postID(dataPost string) (int, bool) {
	i := strings.LastIndexByte(dataPost, '/')
	if i < 0 {
		return 0, false
	}
	id, err := strconv.Atoi(dataPost[i+1:])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// previewURL builds the web preview address of a channel page.
func previewURL(base, channel string, before int) string {
	u := strings.TrimRight(base, "/") + "/" + url.PathEscape(channel)
	if before > 0 {
		u += "?before=" + strconv.Itoa(before)
	}
	return u
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
