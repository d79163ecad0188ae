package provider

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/nao1215/attrguard/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultURLTimeout bounds the time spent loading a single page.
const DefaultURLTimeout = 30 * time.Second

// Live is a provider backed by a headless Chrome/Chromium driven via chromedp.
type Live struct {
	browserPath string
	userAgent   string
	concurrency int
	urlTimeout  time.Duration
	logger      *slog.Logger
}

// LiveOption configures a Live provider.
type LiveOption func(*Live)

// WithLiveLogger sets the logger used for per-URL diagnostics.
func WithLiveLogger(logger *slog.Logger) LiveOption {
	return func(l *Live) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithUserAgent overrides the browser user agent.
func WithUserAgent(ua string) LiveOption {
	return func(l *Live) {
		l.userAgent = ua
	}
}

// WithLiveConcurrency sets the number of tabs loaded at once.
func WithLiveConcurrency(n int) LiveOption {
	return func(l *Live) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithURLTimeout sets the per-page load timeout.
func WithURLTimeout(d time.Duration) LiveOption {
	return func(l *Live) {
		if d > 0 {
			l.urlTimeout = d
		}
	}
}

// NewLive creates a live provider using the browser at browserPath.
func NewLive(browserPath string, opts ...LiveOption) *Live {
	l := &Live{
		browserPath: browserPath,
		concurrency: 4,
		urlTimeout:  DefaultURLTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Kind implements Provider.
func (l *Live) Kind() model.ProviderKind {
	return model.ProviderLive
}

// Scan implements Provider. One browser is started per call and each URL is
// loaded in its own tab.
func (l *Live) Scan(ctx context.Context, urls []string) ([]model.DetectionRecord, error) {
	if len(urls) == 0 {
		return []model.DetectionRecord{}, nil
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, l.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// Start the browser before fanning out so a launch failure aborts the batch.
	if err := chromedp.Run(browserCtx); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("live scan interrupted: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", ErrBrowserUnavailable, err)
	}

	perURL := make([][]model.DetectionRecord, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, u := range urls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			recs, err := l.scanPage(browserCtx, u)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				l.logger.Warn("page scan failed", "url", u, "error", err)
				return nil
			}
			perURL[i] = recs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("live scan interrupted: %w", err)
	}
	return flatten(perURL), nil
}

func (l *Live) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.ExecPath(l.browserPath),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-extensions", true),
	)
	if l.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.userAgent))
	}
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
	}
	return opts
}

// scanPage loads one URL in a fresh tab and runs every heuristic on it.
func (l *Live) scanPage(browserCtx context.Context, pageURL string) ([]model.DetectionRecord, error) {
	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()

	timeoutCtx, cancel := context.WithTimeout(tabCtx, l.urlTimeout)
	defer cancel()

	var (
		mu   sync.Mutex
		reqs []ObservedRequest
	)
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if e, ok := ev.(*network.EventRequestWillBeSent); ok && e.Request != nil {
			mu.Lock()
			reqs = append(reqs, ObservedRequest{
				URL:         e.Request.URL,
				DocumentURL: e.DocumentURL,
				Referer:     headerValue(e.Request.Headers, "Referer"),
			})
			mu.Unlock()
		}
	})

	var (
		dom     string
		cookies []*network.Cookie
	)
	err := chromedp.Run(timeoutCtx,
		network.Enable(),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &dom, chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", pageURL, err)
	}

	mu.Lock()
	captured := append([]ObservedRequest(nil), reqs...)
	mu.Unlock()

	observed := make([]ObservedCookie, 0, len(cookies))
	for _, c := range cookies {
		observed = append(observed, ObservedCookie{Name: c.Name, Value: c.Value, Domain: c.Domain})
	}

	iframes, err := DetectHiddenIframes(pageURL, strings.NewReader(dom))
	if err != nil {
		l.logger.Debug("failed to parse rendered DOM", "url", pageURL, "error", err)
		iframes = nil
	}

	recs := DetectRequests(pageURL, captured)
	recs = append(recs, DetectCookies(pageURL, observed)...)
	recs = append(recs, iframes...)
	recs = appendUnique(recs, DetectRedirects(pageURL, dom))

	l.logger.Debug("page scanned",
		"url", pageURL,
		"requests", len(captured),
		"cookies", len(observed),
		"detections", len(recs),
	)
	return recs, nil
}

// headerValue looks up a header case-insensitively.
func headerValue(h network.Headers, key string) string {
	for k, v := range h {
		if strings.EqualFold(k, key) {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}
