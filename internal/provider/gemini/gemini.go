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

package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alan-mat/qagent/internal/api"
	"github.com/alan-mat/qagent/internal/llm"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

const webAnswerPrompt = `Answer the question using Google Search. Be concise and factual. If the search results do not contain the answer, say so.`

const videoAnswerPrompt = `Answer the question about the attached video. Base your answer only on what is shown or said in the video.`

type GeminiProvider struct {
	client *genai.Client
	model  string
}

type Option func(*genai.ClientConfig, *GeminiProvider)

func WithApiKey(key string) Option {
	return func(c *genai.ClientConfig, _ *GeminiProvider) {
		c.APIKey = key
	}
}

func WithBaseURL(url string) Option {
	return func(c *genai.ClientConfig, _ *GeminiProvider) {
		c.HTTPOptions = genai.HTTPOptions{
			BaseURL: url,
		}
	}
}

// WithModel sets the model used when a request names none.
func WithModel(model string) Option {
	return func(_ *genai.ClientConfig, p *GeminiProvider) {
		p.model = model
	}
}

func New(ctx context.Context, opts ...Option) (*GeminiProvider, error) {
	config := &genai.ClientConfig{
		APIKey:  os.Getenv("GEMINI_API_KEY"),
		Backend: genai.BackendGeminiAPI,
	}
	p := &GeminiProvider{model: DefaultModel}
	for _, opt := range opts {
		opt(config, p)
	}

	c, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	p.client = c
	return p, nil
}

// Chat implements [llm.ChatModel].
func (p GeminiProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("chat request must contain at least one message")
	}

	system, contents, err := parseMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		Temperature: req.Temperature,
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, "")
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, def := range req.Tools {
			decl := &genai.FunctionDeclaration{
				Name:        def.Name,
				Description: def.Description,
			}
			if def.Parameters != nil {
				decl.Parameters = parseSchema(def.Parameters)
			}
			decls = append(decls, decl)
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.modelName(req.Model), contents, config)
	if err != nil {
		return nil, err
	}

	msg := llm.TextMessage(llm.MessageRoleAssistant, resp.Text())
	for i, fc := range resp.FunctionCalls() {
		args, err := json.Marshal(fc.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize arguments of function call '%s': %w", fc.Name, err)
		}
		id := fc.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", fc.Name, i)
		}
		msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
			ID:        id,
			Name:      fc.Name,
			Arguments: string(args),
		})
	}

	out := &llm.ChatResponse{Message: msg}
	if len(resp.Candidates) > 0 {
		out.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if resp.UsageMetadata != nil {
		out.Usage = llm.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

// WebAnswer answers a question with Google Search grounding.
// The returned sources are the web pages the answer was grounded on.
func (p GeminiProvider) WebAnswer(ctx context.Context, question string) (*api.WebAnswer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, errors.New("question must not be empty")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(webAnswerPrompt, ""),
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(question), config)
	if err != nil {
		return nil, err
	}

	answer := &api.WebAnswer{
		Query:  question,
		Answer: strings.TrimSpace(resp.Text()),
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].GroundingMetadata != nil {
		for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
			if chunk.Web == nil {
				continue
			}
			answer.Sources = append(answer.Sources, api.SearchResult{
				Title: chunk.Web.Title,
				Href:  chunk.Web.URI,
			})
		}
	}
	return answer, nil
}

// VideoAnswer answers a question about the video at videoURL,
// which the model reads directly (e.g. a YouTube link).
func (p GeminiProvider) VideoAnswer(ctx context.Context, question string, videoURL string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", errors.New("question must not be empty")
	}
	if strings.TrimSpace(videoURL) == "" {
		return "", errors.New("video url must not be empty")
	}

	resp, err := p.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			llm.TextMessage(llm.MessageRoleSystem, videoAnswerPrompt),
			{
				Role: llm.MessageRoleUser,
				Parts: []llm.MessagePart{
					llm.NewFilePart("video/*", videoURL),
					llm.NewTextPart(question),
				},
			},
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Message.Text()), nil
}

func (p GeminiProvider) modelName(name string) string {
	if name != "" {
		return name
	}
	return p.model
}

// parseMessages converts a conversation into gemini contents.
// System messages are joined into the returned system instruction.
func parseMessages(msgs []llm.Message) (string, []*genai.Content, error) {
	var system []string
	contents := make([]*genai.Content, 0, len(msgs))
	// tool call id -> function name, gemini responses are matched by name
	callNames := make(map[string]string)

	for _, m := range msgs {
		switch m.Role {
		case llm.MessageRoleSystem:
			system = append(system, m.Text())

		case llm.MessageRoleUser, llm.MessageRoleAssistant:
			role := genai.Role(genai.RoleUser)
			if m.Role == llm.MessageRoleAssistant {
				role = genai.RoleModel
			}

			parts := make([]*genai.Part, 0, len(m.Parts)+len(m.ToolCalls))
			for _, part := range m.Parts {
				switch part.Type {
				case llm.MessagePartTypeText:
					text, err := part.Text()
					if err != nil {
						return "", nil, err
					}
					if text != "" {
						parts = append(parts, genai.NewPartFromText(text))
					}
				case llm.MessagePartTypeFile:
					f, err := part.File()
					if err != nil {
						return "", nil, err
					}
					parts = append(parts, genai.NewPartFromURI(f.URI, f.MIMEType))
				default:
					return "", nil, fmt.Errorf("unsupported message part type '%s'", part.Type)
				}
			}

			for _, tc := range m.ToolCalls {
				var args map[string]any
				if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
					return "", nil, fmt.Errorf("invalid arguments for tool call '%s': %w", tc.Name, err)
				}
				callNames[tc.ID] = tc.Name
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   tc.ID,
						Name: tc.Name,
						Args: args,
					},
				})
			}
			contents = append(contents, genai.NewContentFromParts(parts, role))

		case llm.MessageRoleTool:
			name, ok := callNames[m.ToolCallID]
			if !ok {
				return "", nil, fmt.Errorf("tool result references unknown call '%s'", m.ToolCallID)
			}
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{{
				FunctionResponse: &genai.FunctionResponse{
					ID:       m.ToolCallID,
					Name:     name,
					Response: map[string]any{"output": m.Text()},
				},
			}}, genai.RoleUser))

		default:
			return "", nil, fmt.Errorf("unsupported message role '%s'", m.Role)
		}
	}

	return strings.Join(system, "\n\n"), contents, nil
}

func parseSchema(s *api.Schema) *genai.Schema {
	schema := &genai.Schema{
		Description: s.Description,
		Title:       s.Title,
		Required:    s.Required,
		Type:        genai.Type(strings.ToUpper(string(s.Type))),
	}

	if s.Items != nil {
		schema.Items = parseSchema(s.Items)
	}

	if s.Properties != nil {
		properties := make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			properties[k] = parseSchema(v)
		}
		schema.Properties = properties
	}

	return schema
}
