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

package app_test

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/alan-mat/qagent/internal/api"
	"github.com/alan-mat/qagent/internal/app"
	"github.com/alan-mat/qagent/internal/config"
	"github.com/alan-mat/qagent/internal/llm"
	"github.com/alan-mat/qagent/internal/search"
	"github.com/alan-mat/qagent/internal/tools"
	"github.com/alan-mat/qagent/internal/youtube"
)

// searchingModel calls the search tool once, then answers with the
// first title it received. Requests without tools are normalizer calls.
type searchingModel struct {
	mu       sync.Mutex
	requests []llm.ChatRequest
}

func (m *searchingModel) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if len(req.Tools) == 0 {
		return &llm.ChatResponse{Message: llm.TextMessage(llm.MessageRoleAssistant, "FINAL ANSWER: Paris")}, nil
	}

	last := req.Messages[len(req.Messages)-1]
	if last.Role != llm.MessageRoleTool {
		msg := llm.TextMessage(llm.MessageRoleAssistant, "")
		msg.ToolCalls = []llm.ToolCall{{ID: "c1", Name: tools.NameSafeSearch, Arguments: `{"query":"capital of france"}`}}
		return &llm.ChatResponse{Message: msg}, nil
	}
	return &llm.ChatResponse{Message: llm.TextMessage(llm.MessageRoleAssistant, "The capital is Paris. Source: "+last.Text())}, nil
}

type stubProvider struct {
	req search.Request
}

func (p *stubProvider) Name() string {
	return "stub"
}

func (p *stubProvider) Search(ctx context.Context, req search.Request) ([]search.Record, error) {
	p.req = req
	return []search.Record{{"title": "Paris", "href": "https://en.wikipedia.org/wiki/Paris", "body": "Capital of France"}}, nil
}

type stubWeb struct{}

func (stubWeb) WebAnswer(ctx context.Context, question string) (*api.WebAnswer, error) {
	return &api.WebAnswer{Query: question, Answer: "Paris"}, nil
}

type stubVideo struct{}

func (stubVideo) VideoAnswer(ctx context.Context, question string, videoURL string) (string, error) {
	return "a cat", nil
}

type stubTranscripts struct{}

func (stubTranscripts) Generated(ctx context.Context, videoID string, langs []string) ([]youtube.Segment, error) {
	return nil, youtube.ErrNoTranscript
}

func newApp(t *testing.T, conf *config.Config, model llm.ChatModel, provider search.Provider) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), conf, config.Credentials{},
		app.WithChatModel(model),
		app.WithWebAnswerer(stubWeb{}),
		app.WithVideoAnswerer(stubVideo{}),
		app.WithTranscripts(stubTranscripts{}),
		app.WithSearchProvider(provider),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return a
}

func TestNewRegistersTools(t *testing.T) {
	a := newApp(t, config.Default(), &searchingModel{}, &stubProvider{})

	var names []string
	for _, tool := range a.Tools {
		names = append(names, tool.Name())
	}
	slices.Sort(names)

	expected := []string{tools.NameSafeSearch, tools.NameTranscriptFetch, tools.NameVideoQA, tools.NameWebSearch}
	slices.Sort(expected)
	if !slices.Equal(names, expected) {
		t.Errorf("expected tools '%v', got '%v'", expected, names)
	}
	if !slices.Equal(a.ToolNames(), expected) {
		t.Errorf("expected agent tools '%v', got '%v'", expected, a.ToolNames())
	}
}

func TestNewWithoutGeminiKey(t *testing.T) {
	a, err := app.New(context.Background(), config.Default(), config.Credentials{},
		app.WithChatModel(&searchingModel{}),
		app.WithTranscripts(stubTranscripts{}),
		app.WithSearchProvider(&stubProvider{}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, tool := range a.Tools {
		if tool.Name() == tools.NameWebSearch || tool.Name() == tools.NameVideoQA {
			t.Errorf("expected gemini tool '%s' to be disabled", tool.Name())
		}
	}
}

func TestPipelineUsesSearchDefaults(t *testing.T) {
	conf := config.Default()
	conf.Search.SafeSearch = "off"
	conf.Search.MaxResults = 3
	model := &searchingModel{}
	provider := &stubProvider{}
	a := newApp(t, conf, model, provider)

	res, err := a.Pipeline(false).Run(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Answer, `"title":"Paris"`) {
		t.Errorf("expected search results in answer, got '%s'", res.Answer)
	}

	if provider.req.SafeSearch != api.SafeSearchOff || provider.req.MaxResults != 3 {
		t.Errorf("unexpected search request '%+v'", provider.req)
	}
	if provider.req.Params["timeout"] != 15 {
		t.Errorf("expected timeout param 15, got '%v'", provider.req.Params["timeout"])
	}
	if model.requests[0].Model != "o3-mini" {
		t.Errorf("expected agent model 'o3-mini', got '%s'", model.requests[0].Model)
	}
}

func TestPipelineNormalizes(t *testing.T) {
	model := &searchingModel{}
	a := newApp(t, config.Default(), model, &stubProvider{})

	res, err := a.Pipeline(true).Run(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Answer != "Paris" {
		t.Errorf("expected 'Paris', got '%s'", res.Answer)
	}

	last := model.requests[len(model.requests)-1]
	if last.Model != "gpt-4.1-mini" {
		t.Errorf("expected normalizer model 'gpt-4.1-mini', got '%s'", last.Model)
	}
}

func TestNewRedisClientWithoutAddr(t *testing.T) {
	rdb, err := app.NewRedisClient(context.Background(), config.RedisConfig{})
	if err != nil || rdb != nil {
		t.Errorf("expected no client and no error, got '%v', '%v'", rdb, err)
	}
}
