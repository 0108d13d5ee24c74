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

package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/alan-mat/qagent/internal/api"
	"github.com/alan-mat/qagent/internal/cache"
	"golang.org/x/sync/singleflight"
)

// Record is a raw result as returned by a provider, before validation.
type Record map[string]string

var requiredFields = []string{"title", "href", "body"}

// Provider executes a single search request against an upstream service.
// Rate limiting must be reported as a [RateLimitError].
type Provider interface {
	Name() string
	Search(ctx context.Context, req Request) ([]Record, error)
}

var (
	defaultCacheOnce sync.Once
	defaultCache     *cache.Memory[[]api.SearchResult]
)

// DefaultCache returns the process-wide result cache, creating it on first use.
func DefaultCache() cache.Store[[]api.SearchResult] {
	defaultCacheOnce.Do(func() {
		defaultCache, _ = cache.NewMemory[[]api.SearchResult](cache.DefaultCapacity)
	})
	return defaultCache
}

// Client wraps a [Provider] with result caching and back-off on rate limiting.
type Client struct {
	provider    Provider
	cache       cache.Store[[]api.SearchResult]
	backoff     Backoff
	maxAttempts int
	sleep       SleepFunc

	group singleflight.Group
}

type ClientOption func(*Client)

func WithCache(store cache.Store[[]api.SearchResult]) ClientOption {
	return func(c *Client) {
		c.cache = store
	}
}

func WithBackoff(b Backoff) ClientOption {
	return func(c *Client) {
		c.backoff = b
	}
}

func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

// WithSleep replaces the function used to wait between attempts.
func WithSleep(fn SleepFunc) ClientOption {
	return func(c *Client) {
		c.sleep = fn
	}
}

func NewClient(provider Provider, opts ...ClientOption) *Client {
	c := &Client{
		provider:    provider,
		backoff:     DefaultBackoff,
		maxAttempts: DefaultMaxAttempts,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = DefaultCache()
	}
	c.maxAttempts = max(c.maxAttempts, 1)
	return c
}

// Search returns the results for req, served from cache when an identical
// request was answered before. The provider call runs on its own goroutine;
// Search returns early if ctx is done while waiting for it.
func (c *Client) Search(ctx context.Context, req Request) ([]api.SearchResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	safe, err := api.ParseSafeSearch(string(req.SafeSearch))
	if err != nil {
		return nil, err
	}
	req.SafeSearch = safe
	if req.MaxResults < 0 {
		return nil, fmt.Errorf("max results must not be negative, received '%d'", req.MaxResults)
	}

	key := Key(req)
	if results, ok := c.cache.Get(ctx, key); ok {
		slog.Debug("search: cache hit", "provider", c.provider.Name(), "key", key)
		return slices.Clone(results), nil
	}

	// detached so a cancelled caller does not fail others sharing the call
	callCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		results, err := c.fetch(callCtx, req)
		if err != nil {
			return nil, err
		}
		c.cache.Set(callCtx, key, results)
		return results, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]api.SearchResult)), nil
	}
}

func (c *Client) fetch(ctx context.Context, req Request) ([]api.SearchResult, error) {
	var last error
	for attempt := range c.maxAttempts {
		records, err := c.provider.Search(ctx, req)
		if err == nil {
			return Validate(records)
		}

		var rateErr RateLimitError
		if !errors.As(err, &rateErr) {
			return nil, fmt.Errorf("%s search failed: %w", c.provider.Name(), err)
		}
		last = err

		if attempt == c.maxAttempts-1 {
			break
		}

		wait := rateErr.RetryAfter
		if wait <= 0 {
			wait = c.backoff.Delay(attempt)
		}
		slog.Warn("search: rate limited, backing off",
			"provider", c.provider.Name(), "attempt", attempt+1, "wait", wait)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, RateLimitExhaustedError{
		Attempts: c.maxAttempts,
		Last:     last,
	}
}

// Validate converts provider records into results, failing on the first
// record that lacks a required field.
func Validate(records []Record) ([]api.SearchResult, error) {
	results := make([]api.SearchResult, 0, len(records))
	for i, r := range records {
		if r == nil {
			return nil, SchemaValidationError{Index: i, Field: requiredFields[0]}
		}
		for _, field := range requiredFields {
			if _, ok := r[field]; !ok {
				return nil, SchemaValidationError{Index: i, Field: field}
			}
		}
		results = append(results, api.SearchResult{
			Title: r["title"],
			Href:  r["href"],
			Body:  r["body"],
		})
	}
	return results, nil
}
