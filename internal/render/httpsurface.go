package render

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/viewhub/viewhub/internal/infrastructure/logging"
	"github.com/viewhub/viewhub/internal/infrastructure/resilience"
)

// SurfaceOptions configures the HTTP rendering surface.
type SurfaceOptions struct {
	Timeout    time.Duration
	UserAgent  string
	MaxRetries int
}

// DefaultSurfaceOptions returns production-ready surface options.
func DefaultSurfaceOptions() SurfaceOptions {
	return SurfaceOptions{
		Timeout:    30 * time.Second,
		UserAgent:  "viewhub/0.1",
		MaxRetries: 2,
	}
}

// pageSnapshot is the surface's internal state: what is displayed plus
// the navigation history. Serialized as the opaque blob the bridge
// stores; nothing outside this type interprets it.
type pageSnapshot struct {
	URL     string   `json:"url"`
	Title   string   `json:"title"`
	History []string `json:"history"`
	HTML    string   `json:"html,omitempty"`
}

// HTTPSurface is an HTTP-backed rendering surface: it fetches pages with
// a retrying client, sanitizes the HTML, and keeps the displayed page
// plus navigation history as its capturable state.
type HTTPSurface struct {
	client *resty.Client
	policy *bluemonday.Policy
	logger *logging.Logger

	mu       sync.Mutex
	cb       Callbacks
	page     pageSnapshot
	breakers map[string]*resilience.Breaker
}

// NewHTTPSurface creates a surface with retry support.
func NewHTTPSurface(opts SurfaceOptions, logger *logging.Logger) *HTTPSurface {
	if logger == nil {
		logger = logging.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.MaxRetries
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil

	restyClient := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent)

	return &HTTPSurface{
		client:   restyClient,
		policy:   bluemonday.UGCPolicy(),
		logger:   logger,
		cb:       nopCallbacks{},
		breakers: make(map[string]*resilience.Breaker),
	}
}

// Notify sets the callback sink for page lifecycle reports.
func (s *HTTPSurface) Notify(cb Callbacks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cb == nil {
		cb = nopCallbacks{}
	}
	s.cb = cb
}

// Load fetches url and updates the displayed page. The outcome is
// reported through the callbacks before Load returns.
func (s *HTTPSurface) Load(ctx context.Context, url string) {
	s.callbacks().PageStarted(url)

	breaker := s.breakerFor(url)
	if err := breaker.Allow(); err != nil {
		s.callbacks().PageError("server temporarily unavailable: " + err.Error())
		return
	}

	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		breaker.RecordFailure()
		s.logger.Debug("page load failed", zap.String("url", url), zap.Error(err))
		s.callbacks().PageError(err.Error())
		return
	}
	if resp.StatusCode() >= 400 {
		breaker.RecordFailure()
		s.callbacks().PageError(fmt.Sprintf("server returned %d for %s", resp.StatusCode(), url))
		return
	}
	breaker.RecordSuccess()

	body := string(resp.Body())
	title := extractTitle(body)
	sanitized := s.policy.Sanitize(body)

	s.mu.Lock()
	s.page.URL = url
	s.page.Title = title
	s.page.HTML = sanitized
	s.page.History = append(s.page.History, url)
	s.mu.Unlock()

	s.callbacks().PageFinished(url)
}

// CaptureState snapshots the current page and history as an opaque blob.
func (s *HTTPSurface) CaptureState() []byte {
	s.mu.Lock()
	page := s.page
	s.mu.Unlock()

	if page.URL == "" {
		return nil
	}
	blob, err := sonic.Marshal(page)
	if err != nil {
		return nil
	}
	return blob
}

// RestoreState replaces the surface's state with a captured blob. An
// undecodable blob resets to an empty page.
func (s *HTTPSurface) RestoreState(blob []byte) {
	var page pageSnapshot
	if err := sonic.Unmarshal(blob, &page); err != nil {
		s.logger.Warn("discarding undecodable render state", zap.Error(err))
		page = pageSnapshot{}
	}

	s.mu.Lock()
	s.page = page
	s.mu.Unlock()
}

// Page returns the currently displayed url and title.
func (s *HTTPSurface) Page() (url, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page.URL, s.page.Title
}

// breakerFor returns the circuit breaker for a URL's host, creating it
// on first use. Unparseable URLs share one breaker keyed by raw string.
func (s *HTTPSurface) breakerFor(rawURL string) *resilience.Breaker {
	key := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		key = u.Host
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[key]
	if !ok {
		b = resilience.New(key, resilience.Settings{
			FailureThreshold: 3,
			Cooldown:         15 * time.Second,
		})
		s.breakers[key] = b
	}
	return b
}

func (s *HTTPSurface) callbacks() Callbacks {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cb
}

func extractTitle(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
