package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFetcher(retries int) *HTTPFetcher {
	return NewHTTPFetcher(newTestLogger(), FetcherOptions{
		Timeout:      2 * time.Second,
		MaxRetries:   retries,
		RetryWait:    5 * time.Millisecond,
		MaxRetryWait: 10 * time.Millisecond,
	})
}

func TestHTTPFetcher_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "<html><head><title>Hello, client</title></head></html>")
	}))
	defer server.Close()

	doc, err := newTestFetcher(0).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, but got: %v", err)
	}
	if got := doc.Find("title").Text(); got != "Hello, client" {
		t.Errorf("Expected title %q, but got %q", "Hello, client", got)
	}
}

func TestHTTPFetcher_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestFetcher(2).Fetch(context.Background(), server.URL)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected a *FetchError, but got: %v", err)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status code %d, but got %d", http.StatusNotFound, fetchErr.StatusCode)
	}
}

func TestHTTPFetcher_FailureAfterRetries(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestFetcher(2).Fetch(context.Background(), server.URL)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected a *FetchError, but got: %v", err)
	}
	if got := atomic.LoadInt32(&requestCount); got != 3 {
		t.Errorf("Expected 3 requests, but got %d", got)
	}
}

func TestHTTPFetcher_SuccessAfterOneRetry(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requestCount, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "<p>ok</p>")
	}))
	defer server.Close()

	doc, err := newTestFetcher(3).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, but got: %v", err)
	}
	if doc.Find("p").Text() != "ok" {
		t.Errorf("Unexpected document body")
	}
	if got := atomic.LoadInt32(&requestCount); got != 2 {
		t.Errorf("Expected 2 requests, but got %d", got)
	}
}

func TestHTTPFetcher_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := newTestFetcher(0).Fetch(context.Background(), server.URL)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected a *FetchError, but got: %v", err)
	}
	if fetchErr.Err == nil {
		t.Error("Expected the transport error to be kept")
	}
}

func TestHTTPFetcher_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := newTestFetcher(0).Fetch(ctx, server.URL)
	if err == nil {
		t.Fatal("Expected an error due to context cancellation, but got none")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in the chain, got: %v", err)
	}
}

func TestHTTPFetcher_SharedSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("session"); err != nil {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			fmt.Fprint(w, "<p>new</p>")
			return
		}
		fmt.Fprint(w, "<p>known</p>")
	}))
	defer server.Close()

	fetcher := newTestFetcher(0)
	ctx := context.Background()
	if _, err := fetcher.Fetch(ctx, server.URL); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	doc, err := fetcher.Fetch(ctx, server.URL)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if got := doc.Find("p").Text(); got != "known" {
		t.Errorf("Expected the session cookie to be reused, got %q", got)
	}
}
