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

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	gohttp "net/http"
	"net/url"
	"strconv"
	"time"
)

// Common HTTP method, as defined in net/http package
const (
	MethodGet    = "GET"
	MethodHead   = "HEAD"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodPatch  = "PATCH" // RFC 5789
	MethodDelete = "DELETE"
)

const maxErrorBody = 512

var retryStatusCodes = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// StatusError is returned for responses with a status code >= 400.
// Body holds at most the first 512 bytes of the response.
type StatusError struct {
	StatusCode int
	Body       string

	// RetryAfter is the delay suggested by a Retry-After header,
	// zero if the server sent none.
	RetryAfter time.Duration
}

func (e StatusError) Error() string {
	return fmt.Sprintf("(HTTP Error %d) %s", e.StatusCode, e.Body)
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     gohttp.Header
	Body       []byte
}

type Client struct {
	httpClient *gohttp.Client
	maxRetries int
	retryWait  time.Duration

	endpoint string
	apiKey   string
	headers  map[string]string
}

type ClientOption func(*Client)

func NewClient(endpoint string, opts ...ClientOption) Client {
	c := Client{
		endpoint: endpoint,
		httpClient: &gohttp.Client{
			Timeout: 60 * time.Second,
		},
		maxRetries: 1,
		retryWait:  500 * time.Millisecond,
		headers:    make(map[string]string),
	}

	for _, opt := range opts {
		opt(&c)
	}

	return c
}

func WithApiKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries sets the number of attempts made for a request
// answered with a retryable status code. Values below 1 are treated as 1.
func WithMaxRetries(maxRetries int) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
	}
}

func WithRetryWait(wait time.Duration) ClientOption {
	return func(c *Client) {
		c.retryWait = wait
	}
}

// WithHTTPClient replaces the underlying client, e.g. to route through a proxy.
func WithHTTPClient(hc *gohttp.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithHeader sets a header sent with every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// Request sends payload as a JSON body and decodes the JSON response into a map.
func (c *Client) Request(ctx context.Context, method string, path string, payload map[string]any) (map[string]any, error) {
	var result map[string]any
	if err := c.RequestJSON(ctx, method, path, payload, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// RequestJSON sends payload as a JSON body and decodes the response into out.
func (c *Client) RequestJSON(ctx context.Context, method string, path string, payload any, out any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize request payload: %w", err)
	}

	resp, err := c.Do(ctx, method, path, nil, jsonData, map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to deserialize response: %w", err)
	}
	return nil
}

// wait sleeps before the retry following attempt, growing linearly.
func (c *Client) wait(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(attempt+1) * c.retryWait):
		return nil
	}
}

// Do sends a request with a raw body and returns the read response.
// path may be absolute, in which case the client endpoint is ignored.
func (c *Client) Do(ctx context.Context, method string, path string, query url.Values, body []byte, headers map[string]string) (*Response, error) {
	uri, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		uri.RawQuery = query.Encode()
	}

	attempts := max(c.maxRetries, 1)
	for i := range attempts {
		req, err := gohttp.NewRequestWithContext(ctx, method, uri.String(), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if i == attempts-1 {
				return nil, err
			}
			if err := c.wait(ctx, i); err != nil {
				return nil, err
			}
			continue
		}

		read, err := readResponse(resp)
		if err != nil {
			return nil, err
		}

		if retryStatusCodes[read.StatusCode] && i < attempts-1 {
			if err := c.wait(ctx, i); err != nil {
				return nil, err
			}
			continue
		}

		if read.StatusCode >= 400 {
			respBytes := read.Body
			// truncate error responses
			if len(respBytes) > maxErrorBody {
				respBytes = respBytes[:maxErrorBody]
			}
			return nil, StatusError{
				StatusCode: read.StatusCode,
				Body:       string(respBytes),
				RetryAfter: ParseRetryAfter(read.Header.Get("Retry-After")),
			}
		}
		return read, nil
	}

	return nil, fmt.Errorf("request to '%s' made no attempts", uri.String())
}

func (c *Client) resolve(path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	if ref.IsAbs() {
		return ref, nil
	}

	uri, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, err
	}
	uri.Path = ref.Path
	return uri, nil
}

func readResponse(resp *gohttp.Response) (*Response, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// ParseRetryAfter reads a Retry-After header value given in seconds.
// HTTP dates and malformed values yield zero.
func ParseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
