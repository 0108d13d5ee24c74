// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package search_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alan-mat/qagent/internal/api"
	"github.com/alan-mat/qagent/internal/cache"
	"github.com/alan-mat/qagent/internal/search"
)

func TestSearchCachesResults(t *testing.T) {
	p := &stubProvider{records: []search.Record{
		{"title": "Paris", "href": "https://en.wikipedia.org/wiki/Paris", "body": "Capital of France"},
		{"title": "France", "href": "https://en.wikipedia.org/wiki/France", "body": "Country"},
	}}
	c := newClient(t, p)
	req := search.Request{Query: "capital of france", Params: map[string]any{"timeout": 15}}

	first, err := c.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached results differ, expected '%+v', got '%+v'", first, second)
	}
	if p.calls.Load() != 1 {
		t.Errorf("expected 1 provider call, got %d", p.calls.Load())
	}
	if first[0].Title != "Paris" || first[1].Href != "https://en.wikipedia.org/wiki/France" {
		t.Errorf("results out of provider order: %+v", first)
	}
}

func TestSearchCacheKeyIgnoresParamOrder(t *testing.T) {
	p := &stubProvider{records: []search.Record{{"title": "t", "href": "h", "body": "b"}}}
	c := newClient(t, p)

	a := map[string]any{}
	a["timeout"] = 15
	a["proxy"] = "socks5://localhost:1080"
	b := map[string]any{}
	b["proxy"] = "socks5://localhost:1080"
	b["timeout"] = 15

	reqA := search.Request{Query: "q", SafeSearch: api.SafeSearchModerate, Params: a}
	reqB := search.Request{Query: "q", SafeSearch: api.SafeSearchModerate, Params: b}
	if search.Key(reqA) != search.Key(reqB) {
		t.Errorf("expected equal keys, got '%s' and '%s'", search.Key(reqA), search.Key(reqB))
	}

	c.Search(context.Background(), reqA)
	c.Search(context.Background(), reqB)
	if p.calls.Load() != 1 {
		t.Errorf("expected 1 provider call, got %d", p.calls.Load())
	}
}

func TestSearchKeyDistinguishesRequests(t *testing.T) {
	base := search.Request{Query: "q", SafeSearch: api.SafeSearchModerate}
	variants := []search.Request{
		{Query: "q2", SafeSearch: api.SafeSearchModerate},
		{Query: "q", SafeSearch: api.SafeSearchOff},
		{Query: "q", SafeSearch: api.SafeSearchModerate, MaxResults: 5},
		{Query: "q", SafeSearch: api.SafeSearchModerate, Params: map[string]any{"timeout": 5}},
	}
	for _, v := range variants {
		if search.Key(v) == search.Key(base) {
			t.Errorf("request %+v shares key with %+v", v, base)
		}
	}

	pairs := [][2]search.Request{
		{
			{Query: "q", Params: map[string]any{"proxy": "http://h/?a=1&timeout=5"}},
			{Query: "q", Params: map[string]any{"proxy": "http://h/?a=1", "timeout": 5}},
		},
		{
			{Query: "q", Params: map[string]any{"a": "1,b=2"}},
			{Query: "q", Params: map[string]any{"a": "1", "b": "2"}},
		},
		{
			{Query: "q", Params: map[string]any{"timeout": 5}},
			{Query: "q", Params: map[string]any{"timeout": "5"}},
		},
		{
			{Query: "q", Params: map[string]any{"proxy": `x"|moderate`}},
			{Query: "q", Params: map[string]any{"proxy": "x"}, SafeSearch: api.SafeSearchModerate},
		},
	}
	for _, p := range pairs {
		if search.Key(p[0]) == search.Key(p[1]) {
			t.Errorf("params '%v' and '%v' share key '%s'", p[0].Params, p[1].Params, search.Key(p[0]))
		}
	}
}

func TestCanonicalParams(t *testing.T) {
	tests := []struct {
		params   map[string]any
		expected string
	}{
		{nil, "{}"},
		{map[string]any{"timeout": 15}, `{"timeout":15}`},
		{map[string]any{"timeout": 15, "proxy": "socks5://h:1080"}, `{"proxy":"socks5://h:1080","timeout":15}`},
		{map[string]any{"proxy": "http://h/?a=1&timeout=5"}, `{"proxy":"http://h/?a=1\u0026timeout=5"}`},
	}

	for _, tt := range tests {
		got := search.CanonicalParams(tt.params)
		if got != tt.expected {
			t.Errorf("expected '%s', got '%s'", tt.expected, got)
		}
	}
}

func TestSearchDefaultsSafeSearch(t *testing.T) {
	p := &stubProvider{records: []search.Record{}}
	c := newClient(t, p)

	c.Search(context.Background(), search.Request{Query: "q"})
	c.Search(context.Background(), search.Request{Query: "q", SafeSearch: api.SafeSearchModerate})
	if p.calls.Load() != 1 {
		t.Errorf("expected empty safesearch to share the moderate entry, got %d calls", p.calls.Load())
	}
	if p.last.SafeSearch != api.SafeSearchModerate {
		t.Errorf("expected provider to receive 'moderate', got '%s'", p.last.SafeSearch)
	}
}

func TestSearchInvalidArguments(t *testing.T) {
	c := newClient(t, &stubProvider{})
	tests := []search.Request{
		{Query: "   "},
		{Query: "q", SafeSearch: "strict"},
		{Query: "q", MaxResults: -1},
	}
	for _, req := range tests {
		if _, err := c.Search(context.Background(), req); err == nil {
			t.Errorf("expected error for request %+v", req)
		}
	}
}

func TestSearchRateLimitExhausted(t *testing.T) {
	p := &stubProvider{err: search.RateLimitError{Provider: "stub"}}
	var delays []time.Duration
	c := newClient(t, p, search.WithSleep(func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}))

	_, err := c.Search(context.Background(), search.Request{Query: "q"})
	if !errors.Is(err, search.ErrRateLimitExhausted) {
		t.Fatalf("expected ErrRateLimitExhausted, got %v", err)
	}
	var exhausted search.RateLimitExhaustedError
	if !errors.As(err, &exhausted) || exhausted.Attempts != search.DefaultMaxAttempts {
		t.Errorf("expected %d attempts in error, got %+v", search.DefaultMaxAttempts, exhausted)
	}
	if p.calls.Load() != 5 {
		t.Errorf("expected exactly 5 attempts, got %d", p.calls.Load())
	}

	expected := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	if !reflect.DeepEqual(delays, expected) {
		t.Errorf("expected delays %v, got %v", expected, delays)
	}
	for i := 1; i < len(delays); i++ {
		if delays[i] < delays[i-1] || delays[i] > search.DefaultMaxDelay {
			t.Errorf("delay %d out of bounds: %v", i, delays)
		}
	}
}

func TestSearchRateLimitRecovers(t *testing.T) {
	p := &stubProvider{
		records:    []search.Record{{"title": "t", "href": "h", "body": "b"}},
		failFirst:  2,
		retryAfter: 3 * time.Second,
	}
	var delays []time.Duration
	c := newClient(t, p, search.WithSleep(func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}))

	res, err := c.Search(context.Background(), search.Request{Query: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 1 {
		t.Errorf("expected 1 result, got %d", len(res))
	}
	expected := []time.Duration{3 * time.Second, 3 * time.Second}
	if !reflect.DeepEqual(delays, expected) {
		t.Errorf("expected provider suggested delays %v, got %v", expected, delays)
	}
}

func TestSearchRateLimitNotCached(t *testing.T) {
	p := &stubProvider{err: search.RateLimitError{Provider: "stub"}}
	c := newClient(t, p, search.WithMaxAttempts(1))

	c.Search(context.Background(), search.Request{Query: "q"})
	c.Search(context.Background(), search.Request{Query: "q"})
	if p.calls.Load() != 2 {
		t.Errorf("failed searches must not be cached, expected 2 calls, got %d", p.calls.Load())
	}
}

func TestSearchProviderErrorNotRetried(t *testing.T) {
	p := &stubProvider{err: errors.New("connection refused")}
	c := newClient(t, p)

	_, err := c.Search(context.Background(), search.Request{Query: "q"})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, search.ErrRateLimitExhausted) {
		t.Errorf("plain provider errors must not report rate limiting: %v", err)
	}
	if p.calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", p.calls.Load())
	}
}

func TestSearchSchemaValidation(t *testing.T) {
	p := &stubProvider{records: []search.Record{
		{"title": "ok", "href": "https://example.com", "body": "fine"},
		{"title": "broken", "href": "https://example.org"},
	}}
	c := newClient(t, p)

	res, err := c.Search(context.Background(), search.Request{Query: "q"})
	if !errors.Is(err, search.ErrSchemaValidation) {
		t.Fatalf("expected ErrSchemaValidation, got %v", err)
	}
	if res != nil {
		t.Errorf("expected no results, got %+v", res)
	}

	var schemaErr search.SchemaValidationError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaValidationError, got %T", err)
	}
	if schemaErr.Index != 1 || schemaErr.Field != "body" {
		t.Errorf("expected index 1 field 'body', got %+v", schemaErr)
	}
}

func TestSearchContextCancelled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	p := &stubProvider{block: block}
	c := newClient(t, p)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Search(ctx, search.Request{Query: "slow"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestSearchDistinctKeysDoNotBlock(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	slow := &stubProvider{block: block}
	p := &routingProvider{
		slow: slow,
		fast: &stubProvider{records: []search.Record{{"title": "t", "href": "h", "body": "b"}}},
	}
	c := newClient(t, p)

	go c.Search(context.Background(), search.Request{Query: "slow"})

	done := make(chan error, 1)
	go func() {
		_, err := c.Search(context.Background(), search.Request{Query: "fast"})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Error("search for a different key was blocked")
	}
}

func TestSearchConcurrentSameKey(t *testing.T) {
	p := &stubProvider{records: []search.Record{{"title": "t", "href": "h", "body": "b"}}}
	c := newClient(t, p)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Search(context.Background(), search.Request{Query: "same"}); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := p.calls.Load(); n < 1 || n > 8 {
		t.Errorf("unexpected provider call count %d", n)
	}
}

func newClient(t *testing.T, p search.Provider, opts ...search.ClientOption) *search.Client {
	t.Helper()
	store, err := cache.NewMemory[[]api.SearchResult](cache.DefaultCapacity)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	opts = append([]search.ClientOption{search.WithCache(store)}, opts...)
	return search.NewClient(p, opts...)
}

type stubProvider struct {
	records    []search.Record
	err        error
	failFirst  int32
	retryAfter time.Duration
	block      chan struct{}

	calls atomic.Int32
	mu    sync.Mutex
	last  search.Request
}

func (p *stubProvider) Name() string {
	return "stub"
}

func (p *stubProvider) Search(ctx context.Context, req search.Request) ([]search.Record, error) {
	n := p.calls.Add(1)
	p.mu.Lock()
	p.last = req
	p.mu.Unlock()

	if p.block != nil {
		<-p.block
	}
	if n <= p.failFirst {
		return nil, search.RateLimitError{Provider: "stub", RetryAfter: p.retryAfter}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.records, nil
}

type routingProvider struct {
	slow *stubProvider
	fast *stubProvider
}

func (p *routingProvider) Name() string {
	return "routing"
}

func (p *routingProvider) Search(ctx context.Context, req search.Request) ([]search.Record, error) {
	if req.Query == "slow" {
		return p.slow.Search(ctx, req)
	}
	return p.fast.Search(ctx, req)
}
