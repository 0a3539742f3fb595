package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPFetcher_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "cachescript-test" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		switch r.URL.Path {
		case "/js/app.js":
			w.Write([]byte("console.log('app')"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f, err := New(Config{BaseURL: srv.URL, UserAgent: "cachescript-test"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer f.Close()

	resp, err := f.Get(context.Background(), "/js/app.js")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !resp.OK() || resp.Body != "console.log('app')" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.URL != srv.URL+"/js/app.js" {
		t.Errorf("URL = %q", resp.URL)
	}

	resp, err = f.Get(context.Background(), "/missing.js")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound || resp.Attempts != 1 {
		t.Errorf("404 should be returned without retry: %+v", resp)
	}
}

func TestHTTPFetcher_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f, _ := New(Config{MaxRetries: 3, Backoff: time.Millisecond})
	resp, err := f.Get(context.Background(), srv.URL+"/x.js")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !resp.OK() || resp.Attempts != 3 {
		t.Errorf("expected success on third attempt, got %+v", resp)
	}
}

func TestHTTPFetcher_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f, _ := New(Config{MaxRetries: 2, Backoff: time.Millisecond})
	resp, err := f.Get(context.Background(), srv.URL+"/x.js")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestHTTPFetcher_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	f, _ := New(Config{MaxRetries: 1, Backoff: time.Millisecond})
	if _, err := f.Get(context.Background(), addr+"/x.js"); err == nil {
		t.Error("expected transport error")
	}
}

func TestHTTPFetcher_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 64)))
	}))
	defer srv.Close()

	f, _ := New(Config{MaxBodyBytes: 16, MaxRetries: 2, Backoff: time.Millisecond})
	_, err := f.Get(context.Background(), srv.URL+"/big.js")
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("expected ErrBodyTooLarge, got %v", err)
	}
}

func TestHTTPFetcher_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f, _ := New(Config{MaxRetries: 5, Backoff: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := f.Get(ctx, srv.URL+"/x.js"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestHTTPFetcher_Resolve(t *testing.T) {
	f, _ := New(Config{BaseURL: "https://cdn.example.com/assets/"})

	tests := map[string]string{
		"app.js":                     "https://cdn.example.com/assets/app.js",
		"/root.css":                  "https://cdn.example.com/root.css",
		"https://other.example/x.js": "https://other.example/x.js",
	}
	for in, want := range tests {
		got, err := f.Resolve(in)
		if err != nil || got != want {
			t.Errorf("Resolve(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	noBase, _ := New(Config{})
	if _, err := noBase.Resolve("/x.js"); err == nil {
		t.Error("expected error resolving relative url without base")
	}
	if _, err := New(Config{BaseURL: "relative/path"}); err == nil {
		t.Error("expected error for relative base url")
	}
}
