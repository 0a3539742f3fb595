package loader

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"mercator-hq/cachescript/pkg/fetch"
	"mercator-hq/cachescript/pkg/manifest"
	"mercator-hq/cachescript/pkg/storage"
)

// countingStore wraps a MemoryStore and counts calls.
type countingStore struct {
	*storage.MemoryStore
	mu      sync.Mutex
	gets    int
	sets    int
	deletes int
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: storage.NewMemoryStore()}
}

func (s *countingStore) Get(ctx context.Context, name string) (*storage.Blob, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.MemoryStore.Get(ctx, name)
}

func (s *countingStore) Set(ctx context.Context, name string, blob *storage.Blob) error {
	s.mu.Lock()
	s.sets++
	s.mu.Unlock()
	return s.MemoryStore.Set(ctx, name, blob)
}

func (s *countingStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	s.deletes++
	s.mu.Unlock()
	return s.MemoryStore.Delete(ctx, name)
}

func (s *countingStore) counts() (gets, sets, deletes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.sets, s.deletes
}

// fakeFetcher serves bodies from a map. URLs with a gate block until the
// gate is closed.
type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	status map[string]int
	gates  map[string]chan struct{}
	calls  map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		bodies: map[string]string{},
		status: map[string]int{},
		gates:  map[string]chan struct{}{},
		calls:  map[string]int{},
	}
}

func (f *fakeFetcher) serve(url, body string) *fakeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[url] = body
	return f
}

func (f *fakeFetcher) fail(url string, status int) *fakeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[url] = status
	return f
}

func (f *fakeFetcher) gate(url string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[url] = ch
	return ch
}

func (f *fakeFetcher) Get(ctx context.Context, url string) (*fetch.Response, error) {
	f.mu.Lock()
	f.calls[url]++
	gate := f.gates[url]
	body, ok := f.bodies[url]
	status := f.status[url]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if status != 0 {
		return &fetch.Response{StatusCode: status, URL: url}, nil
	}
	if !ok {
		return &fetch.Response{StatusCode: http.StatusNotFound, URL: url}, nil
	}
	return &fetch.Response{StatusCode: http.StatusOK, Body: body, URL: url}, nil
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// docOp is one recorded document operation.
type docOp struct {
	op      string // "script", "style" or "link"
	content string
	url     string
}

// fakeDocument records operations in order.
type fakeDocument struct {
	mu       sync.Mutex
	ops      []docOp
	gates    map[string]chan struct{}
	linkErrs map[string]error
}

func newFakeDocument() *fakeDocument {
	return &fakeDocument{gates: map[string]chan struct{}{}, linkErrs: map[string]error{}}
}

func (d *fakeDocument) gate(url string) chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := make(chan struct{})
	d.gates[url] = ch
	return ch
}

func (d *fakeDocument) InsertExecutable(content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ops = append(d.ops, docOp{op: "script", content: content})
	return nil
}

func (d *fakeDocument) InsertStyle(content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ops = append(d.ops, docOp{op: "style", content: content})
	return nil
}

func (d *fakeDocument) Link(ctx context.Context, kind manifest.Kind, url string) error {
	d.mu.Lock()
	d.ops = append(d.ops, docOp{op: "link", url: url})
	gate := d.gates[url]
	err := d.linkErrs[url]
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (d *fakeDocument) snapshot() []docOp {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]docOp(nil), d.ops...)
}

// recorder counts events for assertions.
type recorder struct {
	mu       sync.Mutex
	lookups  map[string][]string
	finished map[string]string
	outcomes []string
	started  int
}

func newRecorder() *recorder {
	return &recorder{lookups: map[string][]string{}, finished: map[string]string{}}
}

func (r *recorder) RecordFetch(string, int, time.Duration, error) {}

func (r *recorder) RecordCacheLookup(module, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups[module] = append(r.lookups[module], result)
}

func (r *recorder) RecordFinished(module string, _ manifest.CacheMode, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished[module] = source
}

func (r *recorder) RecordSession(outcome string, _ time.Duration, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recorder) SessionStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recorder) source(module string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished[module]
}

func (r *recorder) lookupsFor(module string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lookups[module]...)
}

func (r *recorder) startedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// mod builds the generic configuration of one module.
func mod(url, version string, cache int, after ...string) map[string]any {
	load := map[string]any{"url": url, "version": version, "cache": cache}
	if len(after) > 0 {
		list := make([]any, len(after))
		for i, a := range after {
			list[i] = a
		}
		load["after"] = list
	}
	return map[string]any{"load": load}
}

func modules(mods map[string]map[string]any) map[string]any {
	m := make(map[string]any, len(mods))
	for k, v := range mods {
		m[k] = v
	}
	return map[string]any{"modules": m}
}

func eventually(t *testing.T, cond func() bool, format string, args ...any) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", fmt.Sprintf(format, args...))
}

func waitSession(t *testing.T, s *Session) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	if err == context.DeadlineExceeded {
		t.Fatalf("session %s did not end: %+v", s.ID(), s.Report())
	}
	return err
}
