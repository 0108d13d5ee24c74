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

// Package app assembles the answer pipeline from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alan-mat/qagent/internal/agent"
	"github.com/alan-mat/qagent/internal/api"
	"github.com/alan-mat/qagent/internal/cache"
	"github.com/alan-mat/qagent/internal/config"
	"github.com/alan-mat/qagent/internal/llm"
	"github.com/alan-mat/qagent/internal/normalize"
	"github.com/alan-mat/qagent/internal/provider/gemini"
	"github.com/alan-mat/qagent/internal/provider/openai"
	"github.com/alan-mat/qagent/internal/provider/tavily"
	"github.com/alan-mat/qagent/internal/qa"
	"github.com/alan-mat/qagent/internal/search"
	"github.com/alan-mat/qagent/internal/tools"
	"github.com/alan-mat/qagent/internal/trace"
	"github.com/alan-mat/qagent/internal/youtube"
	"github.com/redis/go-redis/v9"
)

const (
	searchCachePrefix = "qagent:search:"
	traceTTL          = 24 * time.Hour
)

// App holds the assembled components of one process.
type App struct {
	Model    llm.ChatModel
	Tools    []tools.Tool
	Recorder trace.Recorder

	agent      *agent.Agent
	normalizer *normalize.Normalizer
}

// Option overrides a component that would otherwise be built from config.
type Option func(*builder)

type builder struct {
	model       llm.ChatModel
	web         tools.WebAnswerer
	video       tools.VideoAnswerer
	transcripts tools.TranscriptService
	provider    search.Provider
	rdb         redis.UniversalClient
}

func WithChatModel(m llm.ChatModel) Option {
	return func(b *builder) {
		b.model = m
	}
}

func WithWebAnswerer(w tools.WebAnswerer) Option {
	return func(b *builder) {
		b.web = w
	}
}

func WithVideoAnswerer(v tools.VideoAnswerer) Option {
	return func(b *builder) {
		b.video = v
	}
}

func WithTranscripts(t tools.TranscriptService) Option {
	return func(b *builder) {
		b.transcripts = t
	}
}

func WithSearchProvider(p search.Provider) Option {
	return func(b *builder) {
		b.provider = p
	}
}

// WithRedis enables the shared search cache and trace storage.
func WithRedis(rdb redis.UniversalClient) Option {
	return func(b *builder) {
		b.rdb = rdb
	}
}

func New(ctx context.Context, conf *config.Config, creds config.Credentials, opts ...Option) (*App, error) {
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}

	if b.model == nil {
		b.model = openai.New(openai.WithApiKey(creds.OpenAIKey), openai.WithModel(conf.Agent.Model))
	}
	if err := b.answerers(ctx, conf, creds); err != nil {
		return nil, err
	}
	if b.transcripts == nil {
		b.transcripts = youtube.NewClient()
	}
	if b.provider == nil {
		b.provider = search.NewDuckDuckGo(search.WithRegion(conf.Search.Region))
	}

	recorder := trace.Multi{trace.NewLogRecorder(nil)}
	if b.rdb != nil {
		recorder = append(recorder, trace.NewRedisRecorder(b.rdb, traceTTL))
	}

	searcher, err := b.searchClient(conf)
	if err != nil {
		return nil, err
	}

	ts := make([]tools.Tool, 0, 4)
	if b.web != nil {
		ts = append(ts, tools.WebSearch(b.web))
	}
	if b.video != nil {
		ts = append(ts, tools.VideoQA(b.video))
	}
	ts = append(ts,
		tools.TranscriptFetch(b.transcripts),
		tools.SafeDuckDuckGoSearch(searcher, search.Request{
			SafeSearch: api.SafeSearch(conf.Search.SafeSearch),
			MaxResults: conf.Search.MaxResults,
			Params:     conf.Search.SearchParams(),
		}),
	)
	for i, t := range ts {
		ts[i] = t.With(
			tools.Logging(t.Name()),
			tools.Tracing(t.Name(), recorder),
			tools.Breaker(t.Name(), tools.DefaultBreakerSettings),
		)
	}

	agentOpts := []agent.Option{
		agent.WithTools(ts...),
		agent.WithModelName(conf.Agent.Model),
		agent.WithMaxSteps(conf.Agent.MaxSteps),
	}
	if conf.Agent.SystemPrompt != "" {
		agentOpts = append(agentOpts, agent.WithSystemPrompt(conf.Agent.SystemPrompt))
	}

	ag := agent.New(b.model, agentOpts...)
	slog.Info("registered tools", "tools", ag.Tools())

	return &App{
		Model:      b.model,
		Tools:      ts,
		Recorder:   recorder,
		agent:      ag,
		normalizer: normalize.New(b.model, normalize.WithModelName(conf.Agent.NormalizerModel)),
	}, nil
}

// ToolNames returns the sorted names of the tools the agent may call.
func (a *App) ToolNames() []string {
	return a.agent.Tools()
}

// Pipeline returns the answer pipeline, normalizing when normalize is set.
func (a *App) Pipeline(normalize bool) *qa.Pipeline {
	opts := []qa.Option{qa.WithRecorder(a.Recorder)}
	if normalize {
		opts = append(opts, qa.WithNormalizer(a.normalizer))
	}
	return qa.New(a.agent, opts...)
}

func (b *builder) answerers(ctx context.Context, conf *config.Config, creds config.Credentials) error {
	if b.web == nil && conf.WebSearch.Backend == config.BackendTavily {
		b.web = tavily.New(tavily.WithApiKey(creds.TavilyKey))
	}
	if b.web != nil && b.video != nil {
		return nil
	}

	if creds.GeminiKey == "" {
		slog.Warn("GEMINI_API_KEY not set, gemini backed tools are disabled")
		return nil
	}

	if b.web == nil {
		p, err := gemini.New(ctx, gemini.WithApiKey(creds.GeminiKey), gemini.WithModel(conf.WebSearch.Model))
		if err != nil {
			return err
		}
		b.web = p
	}
	if b.video == nil {
		p, err := gemini.New(ctx, gemini.WithApiKey(creds.GeminiKey), gemini.WithModel(conf.Video.Model))
		if err != nil {
			return err
		}
		b.video = p
	}
	return nil
}

func (b *builder) searchClient(conf *config.Config) (*search.Client, error) {
	l1, err := cache.NewMemory[[]api.SearchResult](conf.Search.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create search cache: %w", err)
	}

	var store cache.Store[[]api.SearchResult] = l1
	if b.rdb != nil {
		ttl, err := conf.Redis.TTL()
		if err != nil {
			return nil, err
		}
		store = cache.NewTiered(l1, cache.NewRedis[[]api.SearchResult](b.rdb, searchCachePrefix, ttl))
	}

	return search.NewClient(b.provider, search.WithCache(store)), nil
}

// NewRedisClient connects to the configured Redis server, or returns nil
// when no address is configured.
func NewRedisClient(ctx context.Context, conf config.RedisConfig) (redis.UniversalClient, error) {
	if conf.Addr == "" {
		return nil, nil
	}
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{conf.Addr},
		Username: conf.Username,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at '%s': %w", conf.Addr, err)
	}
	return rdb, nil
}
