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

package tavily

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alan-mat/qagent/internal/api"
	"github.com/alan-mat/qagent/internal/http"
)

const (
	Endpoint           = "https://api.tavily.com"
	SearchDefaultLimit = 5
)

type SearchResponse struct {
	Query        string          `json:"query"`
	Answer       string          `json:"answer"`
	Results      []*SearchResult `json:"results"`
	ResponseTime float32         `json:"response_time"`
}

type SearchResult struct {
	Title   string  `json:"title"`
	Url     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type TavilyProvider struct {
	client   http.Client
	endpoint string
	apiKey   string
}

type Option func(*TavilyProvider)

func WithApiKey(key string) Option {
	return func(p *TavilyProvider) {
		p.apiKey = key
	}
}

func WithEndpoint(endpoint string) Option {
	return func(p *TavilyProvider) {
		p.endpoint = endpoint
	}
}

func New(opts ...Option) *TavilyProvider {
	p := &TavilyProvider{
		endpoint: Endpoint,
		apiKey:   os.Getenv("TAVILY_API_KEY"),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.client = http.NewClient(
		p.endpoint,
		http.WithMaxRetries(3),
		http.WithApiKey(p.apiKey),
	)
	return p
}

func (p *TavilyProvider) Search(ctx context.Context, req api.WebSearchRequest) (*SearchResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	limit := SearchDefaultLimit
	if req.Limit > 0 {
		limit = req.Limit
	}

	requestData := map[string]any{
		"query":               req.Query,
		"topic":               "general",
		"search_depth":        "basic",
		"max_results":         limit,
		"include_answer":      true,
		"include_raw_content": false,
		"include_images":      false,
	}

	var searchResponse SearchResponse
	if err := p.client.RequestJSON(ctx, http.MethodPost, "/search", requestData, &searchResponse); err != nil {
		return nil, fmt.Errorf("web search request failed: %w", err)
	}
	return &searchResponse, nil
}

// WebAnswer answers a question with the answer Tavily generates from its
// search results. The answer is empty when Tavily produced none.
func (p *TavilyProvider) WebAnswer(ctx context.Context, question string) (*api.WebAnswer, error) {
	resp, err := p.Search(ctx, api.WebSearchRequest{Query: question})
	if err != nil {
		return nil, err
	}

	sources := make([]api.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		sources = append(sources, api.SearchResult{
			Title: r.Title,
			Href:  r.Url,
			Body:  r.Content,
		})
	}

	return &api.WebAnswer{
		Query:   question,
		Answer:  strings.TrimSpace(resp.Answer),
		Sources: sources,
	}, nil
}
