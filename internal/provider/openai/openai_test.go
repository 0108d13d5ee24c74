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

package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alan-mat/qagent/internal/api"
	"github.com/alan-mat/qagent/internal/llm"
	"github.com/alan-mat/qagent/internal/provider/openai"
)

func TestChatToolCalls(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path '%s'", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&received)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "o3-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "web_search", "arguments": "{\"question\":\"capital of France\"}"}
					}]
				}
			}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19}
		}`))
	}))
	defer srv.Close()

	p := openai.New(openai.WithApiKey("test"), openai.WithBaseURL(srv.URL+"/v1"))
	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{
			llm.TextMessage(llm.MessageRoleSystem, "be helpful"),
			llm.TextMessage(llm.MessageRoleUser, "What is the capital of France?"),
		},
		Tools: []llm.ToolDefinition{{
			Name:        "web_search",
			Description: "search the web",
			Parameters:  api.ObjectSchema(map[string]string{"question": "the question"}),
		}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received["model"] != openai.DefaultModel {
		t.Errorf("expected model '%s', got '%v'", openai.DefaultModel, received["model"])
	}
	if tools, _ := received["tools"].([]any); len(tools) != 1 {
		t.Errorf("expected 1 tool in request, got '%v'", received["tools"])
	}

	if len(resp.Message.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.Message.ToolCalls))
	}
	tc := resp.Message.ToolCalls[0]
	if tc.ID != "call_1" || tc.Name != "web_search" || tc.Arguments != `{"question":"capital of France"}` {
		t.Errorf("unexpected tool call '%+v'", tc)
	}
	if resp.Usage.InputTokens != 12 || resp.Usage.OutputTokens != 7 {
		t.Errorf("unexpected usage '%+v'", resp.Usage)
	}
}

func TestChatEmptyMessages(t *testing.T) {
	p := openai.New(openai.WithApiKey("test"))
	if _, err := p.Chat(context.Background(), llm.ChatRequest{}); err == nil {
		t.Error("expected error for empty request")
	}
}

func TestChatUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "invalid api key", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	p := openai.New(openai.WithApiKey("bad"), openai.WithBaseURL(srv.URL+"/v1"))
	_, err := p.Chat(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{llm.TextMessage(llm.MessageRoleUser, "hi")},
	})
	if err == nil {
		t.Error("expected error for unauthorized response")
	}
}

func TestNewAppliesOptions(t *testing.T) {
	var auth string
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&received)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-2","object":"chat.completion","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Paris"}}]}`))
	}))
	defer srv.Close()

	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	p := openai.New(
		openai.WithApiKey("sk-from-option"),
		openai.WithBaseURL(srv.URL+"/v1"),
		openai.WithModel("gpt-4.1-mini"),
	)
	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{llm.TextMessage(llm.MessageRoleUser, "What is the capital of France?")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if auth != "Bearer sk-from-option" {
		t.Errorf("expected 'Bearer sk-from-option', got '%s'", auth)
	}
	if received["model"] != "gpt-4.1-mini" {
		t.Errorf("expected model 'gpt-4.1-mini', got '%v'", received["model"])
	}
	if resp.Message.Text() != "Paris" {
		t.Errorf("expected 'Paris', got '%s'", resp.Message.Text())
	}
}
