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
	"bytes"
	"context"
	"errors"
	"fmt"
	gohttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/alan-mat/qagent/internal/api"
	"github.com/alan-mat/qagent/internal/http"
	"golang.org/x/time/rate"
)

const (
	DuckDuckGoEndpoint = "https://html.duckduckgo.com/html/"
	DefaultTimeout     = 15 * time.Second

	ddgUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// ddgLimiter paces requests across all DuckDuckGo instances to one per second.
var ddgLimiter = rate.NewLimiter(rate.Every(time.Second), 1)

var ddgSafeSearch = map[api.SafeSearch]string{
	api.SafeSearchOn:       "1",
	api.SafeSearchModerate: "-1",
	api.SafeSearchOff:      "-2",
}

// DuckDuckGo searches the DuckDuckGo HTML endpoint.
type DuckDuckGo struct {
	endpoint string
	region   string
	limiter  *rate.Limiter

	// canonical params -> http.Client
	clients sync.Map
}

type DuckDuckGoOption func(*DuckDuckGo)

func WithEndpoint(endpoint string) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		d.endpoint = endpoint
	}
}

func WithRegion(region string) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		d.region = region
	}
}

func WithLimiter(l *rate.Limiter) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		d.limiter = l
	}
}

func NewDuckDuckGo(opts ...DuckDuckGoOption) *DuckDuckGo {
	d := &DuckDuckGo{
		endpoint: DuckDuckGoEndpoint,
		region:   "wt-wt",
		limiter:  ddgLimiter,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DuckDuckGo) Name() string {
	return "duckduckgo"
}

func (d *DuckDuckGo) Search(ctx context.Context, req Request) ([]Record, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	client, err := d.client(req.Params)
	if err != nil {
		return nil, err
	}

	kp, ok := ddgSafeSearch[req.SafeSearch]
	if !ok {
		kp = ddgSafeSearch[api.SafeSearchModerate]
	}
	form := url.Values{
		"q":  {req.Query},
		"kl": {d.region},
		"kp": {kp},
	}

	resp, err := client.Do(ctx, http.MethodPost, d.endpoint, nil, []byte(form.Encode()), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
		"Referer":      "https://html.duckduckgo.com/",
		"User-Agent":   ddgUserAgent,
	})
	if err != nil {
		var statusErr http.StatusError
		if errors.As(err, &statusErr) && isRateLimitStatus(statusErr.StatusCode) {
			return nil, RateLimitError{Provider: d.Name(), RetryAfter: statusErr.RetryAfter}
		}
		return nil, err
	}
	if isRateLimitStatus(resp.StatusCode) {
		return nil, RateLimitError{
			Provider:   d.Name(),
			RetryAfter: http.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	records, err := ParseDuckDuckGoHTML(resp.Body)
	if err != nil {
		return nil, err
	}
	if req.MaxResults > 0 && len(records) > req.MaxResults {
		records = records[:req.MaxResults]
	}
	return records, nil
}

// client returns the HTTP client built for the given connection params.
func (d *DuckDuckGo) client(params map[string]any) (*http.Client, error) {
	key := CanonicalParams(params)
	if c, ok := d.clients.Load(key); ok {
		return c.(*http.Client), nil
	}

	timeout, err := paramDuration(params["timeout"])
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := gohttp.DefaultTransport.(*gohttp.Transport).Clone()
	if proxy, _ := params["proxy"].(string); proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url '%s': %w", proxy, err)
		}
		transport.Proxy = gohttp.ProxyURL(u)
	}

	c := http.NewClient(d.endpoint, http.WithHTTPClient(&gohttp.Client{
		Timeout:   timeout,
		Transport: transport,
	}))
	actual, _ := d.clients.LoadOrStore(key, &c)
	return actual.(*http.Client), nil
}

// paramDuration reads a timeout given in seconds (number or string)
// or as a time.Duration.
func paramDuration(v any) (time.Duration, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return t, nil
	case int:
		return time.Duration(t) * time.Second, nil
	case int64:
		return time.Duration(t) * time.Second, nil
	case uint64:
		return time.Duration(t) * time.Second, nil
	case float64:
		return time.Duration(t * float64(time.Second)), nil
	case string:
		secs, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timeout '%s': %w", t, err)
		}
		return time.Duration(secs * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("invalid timeout type %T", v)
	}
}

// DuckDuckGo answers rate limited requests with 202, 403 or 429.
func isRateLimitStatus(code int) bool {
	switch code {
	case gohttp.StatusAccepted, gohttp.StatusForbidden, gohttp.StatusTooManyRequests:
		return true
	}
	return false
}

// ParseDuckDuckGoHTML extracts result records from an HTML endpoint response.
func ParseDuckDuckGoHTML(data []byte) ([]Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse duckduckgo response: %w", err)
	}

	records := make([]Record, 0)
	doc.Find(".result, .web-result").Each(func(i int, s *goquery.Selection) {
		if s.HasClass("result--ad") {
			return
		}

		link := s.Find("a.result__a, .result__title a").First()
		title := strings.TrimSpace(link.Text())
		href, exists := link.Attr("href")
		if !exists || title == "" {
			return
		}

		href = unwrapDuckDuckGoURL(href)
		if href == "" {
			return
		}

		body := strings.TrimSpace(s.Find(".result__snippet").First().Text())
		records = append(records, Record{
			"title": title,
			"href":  href,
			"body":  body,
		})
	})

	return records, nil
}

// unwrapDuckDuckGoURL extracts the target of a redirect link such as
// //duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com&rut=...
func unwrapDuckDuckGoURL(href string) string {
	if strings.Contains(href, "duckduckgo.com/l/") || strings.Contains(href, "uddg=") {
		if u, err := url.Parse(href); err == nil {
			if target := u.Query().Get("uddg"); target != "" {
				return target
			}
		}
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	return ""
}
