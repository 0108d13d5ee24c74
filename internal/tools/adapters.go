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

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alan-mat/qagent/internal/api"
	"github.com/alan-mat/qagent/internal/llm"
	"github.com/alan-mat/qagent/internal/search"
	"github.com/alan-mat/qagent/internal/youtube"
)

const (
	NameWebSearch       = "web_search"
	NameVideoQA         = "video_qa"
	NameTranscriptFetch = "transcript_fetch"
	NameSafeSearch      = "safe_duckduckgo_search"

	transcriptErrorPrefix = "Error fetching transcript: "
)

var transcriptLangs = []string{"en"}

type WebAnswerer interface {
	WebAnswer(ctx context.Context, question string) (*api.WebAnswer, error)
}

type VideoAnswerer interface {
	VideoAnswer(ctx context.Context, question string, videoURL string) (string, error)
}

type TranscriptService interface {
	Generated(ctx context.Context, videoID string, langs []string) ([]youtube.Segment, error)
}

type Searcher interface {
	Search(ctx context.Context, req search.Request) ([]api.SearchResult, error)
}

type webSearchArgs struct {
	Question string `json:"question"`
}

// WebSearch answers a question from live web results.
func WebSearch(a WebAnswerer) Tool {
	return Tool{
		Definition: llm.ToolDefinition{
			Name:        NameWebSearch,
			Description: "Search the web and return a short answer to the question.",
			Parameters: api.ObjectSchema(map[string]string{
				"question": "The question to answer from web search results.",
			}),
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args webSearchArgs
			if err := decodeArgs(NameWebSearch, raw, &args); err != nil {
				return "", err
			}
			if strings.TrimSpace(args.Question) == "" {
				return "", ArgumentError{Tool: NameWebSearch, Reason: "question must not be empty"}
			}

			answer, err := a.WebAnswer(ctx, args.Question)
			if err != nil {
				return "", UpstreamError{Tool: NameWebSearch, Cause: err}
			}
			if answer == nil {
				return "", nil
			}
			return answer.Answer, nil
		},
	}
}

type videoQAArgs struct {
	Question string `json:"question"`
	VideoURL string `json:"video_url"`
}

// VideoQA answers a question about the content of a video.
func VideoQA(a VideoAnswerer) Tool {
	return Tool{
		Definition: llm.ToolDefinition{
			Name:        NameVideoQA,
			Description: "Answer a question about the content of a YouTube video.",
			Parameters: api.ObjectSchema(map[string]string{
				"question":  "The question about the video.",
				"video_url": "The full URL of the YouTube video.",
			}),
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args videoQAArgs
			if err := decodeArgs(NameVideoQA, raw, &args); err != nil {
				return "", err
			}
			if strings.TrimSpace(args.Question) == "" || strings.TrimSpace(args.VideoURL) == "" {
				return "", ArgumentError{Tool: NameVideoQA, Reason: "question and video_url must not be empty"}
			}

			answer, err := a.VideoAnswer(ctx, args.Question, args.VideoURL)
			if err != nil {
				return "", UpstreamError{Tool: NameVideoQA, Cause: err}
			}
			return answer, nil
		},
	}
}

type transcriptArgs struct {
	VideoID string `json:"video_id"`
}

// TranscriptFetch returns the generated English transcript of a video as
// a single line of text. Failures are reported in the returned text.
func TranscriptFetch(s TranscriptService) Tool {
	return Tool{
		Definition: llm.ToolDefinition{
			Name:        NameTranscriptFetch,
			Description: "Fetch the automatically generated English transcript of a YouTube video.",
			Parameters: api.ObjectSchema(map[string]string{
				"video_id": "The YouTube video id, e.g. dQw4w9WgXcQ.",
			}),
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args transcriptArgs
			if err := json.Unmarshal(orEmptyObject(raw), &args); err != nil {
				return transcriptErrorPrefix + err.Error(), nil
			}

			segments, err := s.Generated(ctx, youtube.VideoID(args.VideoID), transcriptLangs)
			if err != nil {
				return transcriptErrorPrefix + err.Error(), nil
			}

			texts := make([]string, 0, len(segments))
			for _, seg := range segments {
				texts = append(texts, seg.Text)
			}
			return strings.Join(texts, " "), nil
		},
	}
}

type safeSearchArgs struct {
	Query string `json:"query"`
}

// SafeDuckDuckGoSearch returns ranked web results as a JSON array of
// {title, href, body} records.
func SafeDuckDuckGoSearch(s Searcher, defaults search.Request) Tool {
	return Tool{
		Definition: llm.ToolDefinition{
			Name:        NameSafeSearch,
			Description: "Search DuckDuckGo and return a JSON list of results with title, href and body.",
			Parameters: api.ObjectSchema(map[string]string{
				"query": "The search query.",
			}),
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args safeSearchArgs
			if err := decodeArgs(NameSafeSearch, raw, &args); err != nil {
				return "", err
			}
			if strings.TrimSpace(args.Query) == "" {
				return "", ArgumentError{Tool: NameSafeSearch, Reason: "query must not be empty"}
			}

			req := defaults
			req.Query = args.Query
			results, err := s.Search(ctx, req)
			if err != nil {
				return "", err
			}

			out, err := json.Marshal(results)
			if err != nil {
				return "", fmt.Errorf("failed to serialize search results: %w", err)
			}
			return string(out), nil
		},
	}
}

func decodeArgs(tool string, raw json.RawMessage, v any) error {
	if err := json.Unmarshal(orEmptyObject(raw), v); err != nil {
		return ArgumentError{Tool: tool, Reason: err.Error()}
	}
	return nil
}

func orEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}
