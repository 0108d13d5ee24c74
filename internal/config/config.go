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

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/alan-mat/qagent/internal/api"
	"github.com/alan-mat/qagent/internal/cache"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

const (
	BackendGemini = "gemini"
	BackendTavily = "tavily"
)

type AgentConfig struct {
	Model           string `yaml:"model"`
	MaxSteps        int    `yaml:"max_steps"`
	Normalize       bool   `yaml:"normalize"`
	NormalizerModel string `yaml:"normalizer_model"`
	SystemPrompt    string `yaml:"system_prompt"`
}

type SearchConfig struct {
	SafeSearch string `yaml:"safesearch"`
	MaxResults int    `yaml:"max_results"`
	// Timeout in seconds.
	Timeout   int    `yaml:"timeout"`
	Proxy     string `yaml:"proxy"`
	CacheSize int    `yaml:"cache_size"`
	// Region is the DuckDuckGo region code, e.g. "us-en".
	Region    string `yaml:"region"`
}

type WebSearchConfig struct {
	Backend string `yaml:"backend"`
	Model   string `yaml:"model"`
}

type VideoConfig struct {
	Model string `yaml:"model"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	CacheTTL string `yaml:"cache_ttl"`
}

type WorkerConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type Config struct {
	Agent     AgentConfig     `yaml:"agent"`
	Search    SearchConfig    `yaml:"search"`
	WebSearch WebSearchConfig `yaml:"web_search"`
	Video     VideoConfig     `yaml:"video"`
	Redis     RedisConfig     `yaml:"redis"`
	Worker    WorkerConfig    `yaml:"worker"`
}

func Default() *Config {
	conf := &Config{}
	conf.applyDefaults()
	return conf
}

// Read loads the configuration at path. A missing file yields the defaults.
func Read(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}

	var conf Config
	if err := yaml.Unmarshal(file, &conf); err != nil {
		return nil, fmt.Errorf("failed to parse config '%s': %w", path, err)
	}
	conf.applyDefaults()

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *Config) applyDefaults() {
	if c.Agent.Model == "" {
		c.Agent.Model = "o3-mini"
	}
	if c.Agent.MaxSteps == 0 {
		c.Agent.MaxSteps = 50
	}
	if c.Agent.NormalizerModel == "" {
		c.Agent.NormalizerModel = "gpt-4.1-mini"
	}
	if c.Search.SafeSearch == "" {
		c.Search.SafeSearch = string(api.SafeSearchModerate)
	}
	if c.Search.Timeout == 0 {
		c.Search.Timeout = 15
	}
	if c.Search.Region == "" {
		c.Search.Region = "wt-wt"
	}
	if c.Search.CacheSize == 0 {
		c.Search.CacheSize = cache.DefaultCapacity
	}
	if c.WebSearch.Backend == "" {
		c.WebSearch.Backend = BackendGemini
	}
	if c.WebSearch.Model == "" {
		c.WebSearch.Model = "gemini-2.0-flash"
	}
	if c.Video.Model == "" {
		c.Video.Model = "gemini-2.0-flash"
	}
	if c.Redis.CacheTTL == "" {
		c.Redis.CacheTTL = "24h"
	}
	if c.Worker.Concurrency == 0 {
		c.Worker.Concurrency = 4
	}
}

func (c *Config) Validate() error {
	if _, err := api.ParseSafeSearch(c.Search.SafeSearch); err != nil {
		return err
	}
	if c.Agent.MaxSteps < 0 {
		return fmt.Errorf("agent.max_steps must be positive, received '%d'", c.Agent.MaxSteps)
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must not be negative, received '%d'", c.Search.MaxResults)
	}
	if c.Search.CacheSize < 0 {
		return fmt.Errorf("search.cache_size must be positive, received '%d'", c.Search.CacheSize)
	}
	switch c.WebSearch.Backend {
	case BackendGemini, BackendTavily:
	default:
		return fmt.Errorf("invalid web_search.backend '%s', expected one of %s, %s", c.WebSearch.Backend, BackendGemini, BackendTavily)
	}
	if _, err := c.Redis.TTL(); err != nil {
		return err
	}
	return nil
}

// TTL returns the lifetime of cached search results in Redis.
func (c RedisConfig) TTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid redis.cache_ttl '%s': %w", c.CacheTTL, err)
	}
	return d, nil
}

// SearchParams returns the provider connection params of the search config.
func (c SearchConfig) SearchParams() map[string]any {
	params := map[string]any{
		"timeout": c.Timeout,
	}
	if c.Proxy != "" {
		params["proxy"] = c.Proxy
	}
	return params
}

// Credentials holds API keys read from the environment.
type Credentials struct {
	OpenAIKey string
	GeminiKey string
	TavilyKey string
}

// LoadEnv reads credentials from the environment after loading the
// given .env files. Missing files are ignored.
func LoadEnv(files ...string) Credentials {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			godotenv.Load(f)
		}
	}

	return Credentials{
		OpenAIKey: os.Getenv("OPENAI_API_KEY"),
		GeminiKey: os.Getenv("GEMINI_API_KEY"),
		TavilyKey: os.Getenv("TAVILY_API_KEY"),
	}
}
