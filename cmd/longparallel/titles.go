package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/kbukum/longparallel/logger"
	"github.com/kbukum/longparallel/pipeline"
	"github.com/kbukum/longparallel/resilience"
	"github.com/kbukum/longparallel/util"
)

var titlesCommand = command{
	name:         "titles",
	usage:        "[flags] [urls...]",
	summary:      "Fetch pages and print their <title> (urls from args or stdin lines).",
	interspersed: true,
	setup: func(fs *pflag.FlagSet) runFunc {
		rate := fs.Float64("rate", -1, "requests per second across all workers, 0 for unlimited (default from config)")
		burst := fs.Int("burst", -1, "token bucket size (default from config)")
		attempts := fs.Int("attempts", 0, "attempts per page (default from config)")
		keepGoing := fs.Bool("keep-going", false, "report failed pages as rows instead of failing")
		return func(ctx context.Context, a *app, args []string) error {
			cfg := a.cfg.HTTP
			if *rate >= 0 {
				cfg.Rate = *rate
			}
			if *burst >= 0 {
				cfg.Burst = *burst
			}
			if *attempts > 0 {
				cfg.Retry.MaxAttempts = *attempts
			}
			return runTitles(ctx, a, args, newFetcher(cfg, a.log), *keepGoing)
		}
	},
}

type titleRow struct {
	URL    string `json:"url" yaml:"url"`
	Status int    `json:"status,omitempty" yaml:"status,omitempty"`
	Title  string `json:"title" yaml:"title"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r titleRow) columns() []string {
	if r.Error != "" {
		return []string{"ERROR", r.URL, r.Error}
	}
	return []string{strconv.Itoa(r.Status), r.URL, r.Title}
}

func runTitles(ctx context.Context, a *app, args []string, f *fetcher, keepGoing bool) error {
	root, err := query(a, items(args, a.stdin))
	if err != nil {
		return err
	}
	pages, err := pipeline.Select(root, func(ctx context.Context, raw string) (titleRow, error) {
		r, err := f.title(ctx, raw)
		if err != nil && keepGoing {
			return titleRow{URL: raw, Status: r.Status, Error: err.Error()}, nil
		}
		return r, err
	})
	if err != nil {
		return err
	}
	return emit(ctx, a, pages)
}

// fetcher retrieves pages with retries, throttled by one limiter shared
// across all workers.
type fetcher struct {
	client    *http.Client
	limiter   *resilience.RateLimiter
	retry     resilience.RetryConfig
	userAgent string
	maxBody   int64
}

func newFetcher(cfg HTTPConfig, log *logger.Logger) *fetcher {
	retry := cfg.Retry
	retry.RetryIf = retryableFetch
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.Debug("retrying fetch", logger.Fields(
			"attempt", attempt,
			"backoff_ms", backoff.Milliseconds(),
			logger.FieldError, err.Error(),
		))
	}
	maxBody, err := util.ParseSize(cfg.MaxBody)
	if err != nil {
		maxBody = 1 << 20
	}
	return &fetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   resilience.NewRateLimiter(cfg.RateLimiterConfig),
		retry:     retry,
		userAgent: cfg.UserAgent,
		maxBody:   maxBody,
	}
}

// statusError is a non-2xx response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.code, http.StatusText(e.code))
}

// retryableFetch retries transport failures, 429 and 5xx.
func retryableFetch(err error) bool {
	if !resilience.DefaultRetryIf(err) {
		return false
	}
	var se *statusError
	if stderrors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}

func (f *fetcher) title(ctx context.Context, raw string) (titleRow, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return titleRow{URL: raw}, fmt.Errorf("invalid url %q", raw)
	}

	status := 0
	t, err := resilience.Retry(ctx, f.retry, func(ctx context.Context) (string, error) {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
		var title string
		var err error
		status, title, err = f.fetch(ctx, u.String())
		return title, err
	})
	row := titleRow{URL: raw, Status: status, Title: t}
	if err != nil {
		return row, fmt.Errorf("fetch %s: %w", raw, err)
	}
	return row, nil
}

func (f *fetcher) fetch(ctx context.Context, target string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return 0, "", resilience.Permanent(err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return resp.StatusCode, "", &statusError{code: resp.StatusCode}
	}
	return resp.StatusCode, extractTitle(io.LimitReader(resp.Body, f.maxBody)), nil
}

// extractTitle returns the whitespace-normalized text of the first <title>
// before <body>, or "".
func extractTitle(r io.Reader) string {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Title:
				if z.Next() != html.TextToken {
					return ""
				}
				return strings.Join(strings.Fields(string(z.Text())), " ")
			case atom.Body:
				return ""
			}
		}
	}
}
