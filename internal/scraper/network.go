package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const (
	defaultMaxRetries   = 3
	defaultRetryWait    = 1 * time.Second
	defaultMaxRetryWait = 8 * time.Second
	defaultTimeout      = 10 * time.Second
)

// Fetcher loads a page and parses it into a document.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// FetcherFunc adapts a plain function to Fetcher.
type FetcherFunc func(ctx context.Context, pageURL string) (*goquery.Document, error)

func (f FetcherFunc) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	return f(ctx, pageURL)
}

type FetcherOptions struct {
	Timeout      time.Duration
	MaxRetries   int
	RetryWait    time.Duration
	MaxRetryWait time.Duration
	UserAgent    string
}

// HTTPFetcher issues GET requests through one shared resty client, so every
// fetch in a run reuses the same connection pool and cookie jar.
type HTTPFetcher struct {
	client *resty.Client
	logger *slog.Logger
}

func NewHTTPFetcher(logger *slog.Logger, opts FetcherOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = defaultRetryWait
	}
	if opts.MaxRetryWait < opts.RetryWait {
		opts.MaxRetryWait = defaultMaxRetryWait
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.MaxRetries).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(opts.MaxRetryWait).
		AddRetryCondition(func(res *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return res != nil && (res.StatusCode() >= http.StatusInternalServerError ||
				res.StatusCode() == http.StatusTooManyRequests)
		}).
		AddRetryHook(func(res *resty.Response, err error) {
			attrs := []any{slog.Any("error", err)}
			if res != nil && res.Request != nil {
				attrs = append(attrs,
					slog.String("url", res.Request.URL),
					slog.Int("status_code", res.StatusCode()),
					slog.Int("attempt", res.Request.Attempt),
				)
			}
			logger.Warn("Fetch attempt failed, retrying...", attrs...)
		})
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	return &HTTPFetcher{client: client, logger: logger}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	logger := f.logger.With(slog.String("page_url", pageURL))
	logger.DebugContext(ctx, "Starting to load web page")

	res, err := f.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to fetch page after all attempts", slog.Any("error", err))
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	if !res.IsSuccess() {
		logger.ErrorContext(ctx, "Failed to fetch page after all attempts",
			slog.Int("status_code", res.StatusCode()),
			slog.String("status_text", res.Status()),
		)
		return nil, &FetchError{URL: pageURL, StatusCode: res.StatusCode()}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("failed to parse document: %w", err)}
	}

	logger.DebugContext(ctx, "Successfully fetched page",
		slog.Int("status_code", res.StatusCode()),
		slog.Int("bytes", len(res.Body())),
	)
	return doc, nil
}
