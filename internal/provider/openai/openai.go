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

package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/alan-mat/qagent/internal/llm"
	"github.com/sashabaranov/go-openai"
)

const DefaultModel = "o3-mini"

// OpenAIProvider implements [llm.ChatModel] on the chat completions API.
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	apiKey  string
	baseURL string
}

type Option func(*OpenAIProvider)

func WithApiKey(key string) Option {
	return func(p *OpenAIProvider) {
		p.apiKey = key
	}
}

// WithBaseURL points the client at a compatible API, e.g. a local proxy.
func WithBaseURL(url string) Option {
	return func(p *OpenAIProvider) {
		p.baseURL = url
	}
}

// WithModel sets the model used when a request names none.
func WithModel(model string) Option {
	return func(p *OpenAIProvider) {
		p.model = model
	}
}

func New(opts ...Option) *OpenAIProvider {
	p := &OpenAIProvider{
		model:  DefaultModel,
		apiKey: os.Getenv("OPENAI_API_KEY"),
	}
	for _, opt := range opts {
		opt(p)
	}

	config := openai.DefaultConfig(p.apiKey)
	if p.baseURL != "" {
		config.BaseURL = p.baseURL
	}
	p.client = openai.NewClientWithConfig(config)
	return p
}

func (p OpenAIProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("chat request must contain at least one message")
	}

	messages, err := parseMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	openaiReq := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: messages,
	}
	if req.Model != "" {
		openaiReq.Model = req.Model
	}
	if req.Temperature != nil {
		openaiReq.Temperature = *req.Temperature
	}

	for _, def := range req.Tools {
		openaiReq.Tools = append(openaiReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openaiReq)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	choice := resp.Choices[0]
	msg := llm.TextMessage(llm.MessageRoleAssistant, choice.Message.Content)
	for _, tc := range choice.Message.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return &llm.ChatResponse{
		Message:      msg,
		FinishReason: string(choice.FinishReason),
		Usage: llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func parseMessages(msgs []llm.Message) ([]openai.ChatCompletionMessage, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		for _, part := range m.Parts {
			if part.Type != llm.MessagePartTypeText {
				return nil, fmt.Errorf("unsupported message part type '%s'", part.Type)
			}
		}

		ccm := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Text(),
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			ccm.ToolCalls = append(ccm.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, ccm)
	}
	return out, nil
}
