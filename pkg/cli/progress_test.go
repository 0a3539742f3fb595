package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/cachescript/pkg/fetch"
	"mercator-hq/cachescript/pkg/loader"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type okFetcher struct{}

func (okFetcher) Get(ctx context.Context, url string) (*fetch.Response, error) {
	return &fetch.Response{StatusCode: 200, Body: "x", URL: url}, nil
}

func TestSimpleProgress(t *testing.T) {
	var buf syncBuffer
	p := NewProgressReporter(&buf)
	p.Start(4)
	p.Update(2)
	p.Finish()

	out := buf.String()
	for _, want := range []string{"2/4 finished", "4/4 finished"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Finish() did not end the line")
	}
}

func TestSimpleProgress_ZeroTotal(t *testing.T) {
	var buf syncBuffer
	p := NewProgressReporter(&buf)
	p.Start(0)
	p.Update(0)
	if buf.String() != "" {
		t.Errorf("output = %q, want empty", buf.String())
	}
}

func TestSimpleProgress_Error(t *testing.T) {
	var buf syncBuffer
	p := NewProgressReporter(&buf)
	p.Error(errors.New("stalled"))
	if !strings.Contains(buf.String(), "Error: stalled") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestTrackSession(t *testing.T) {
	l, err := loader.New(loader.Config{Fetcher: okFetcher{}})
	if err != nil {
		t.Fatalf("loader.New() error = %v", err)
	}
	s, err := l.Load(context.Background(), map[string]any{
		"modules": map[string]any{
			"jq":  map[string]any{"load": map[string]any{"url": "https://cdn.example/jq.js", "version": "1", "cache": 2}},
			"app": map[string]any{"load": map[string]any{"url": "https://cdn.example/app.js", "version": "1", "cache": 2, "after": []any{"jq"}}},
		},
	}, nil, loader.Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var buf syncBuffer
	done := make(chan struct{})
	go func() {
		TrackSession(s, NewProgressReporter(&buf), time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("TrackSession did not return")
	}
	if !strings.Contains(buf.String(), "2/2 finished") {
		t.Errorf("output = %q", buf.String())
	}
}
