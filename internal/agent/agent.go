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

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alan-mat/qagent/internal/llm"
	"github.com/alan-mat/qagent/internal/tools"
)

const DefaultMaxSteps = 50

// Agent answers questions with a chat model that may call tools.
type Agent struct {
	model        llm.ChatModel
	modelName    string
	systemPrompt string
	tools        *tools.Set
	maxSteps     int
}

type Option func(*Agent)

func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		a.systemPrompt = prompt
	}
}

func WithTools(ts ...tools.Tool) Option {
	return func(a *Agent) {
		for _, t := range ts {
			a.tools.Register(t.Name(), t)
		}
	}
}

// WithModelName selects the model; empty uses the model's default.
func WithModelName(name string) Option {
	return func(a *Agent) {
		a.modelName = name
	}
}

// WithMaxSteps bounds the number of model calls made for one question.
func WithMaxSteps(n int) Option {
	return func(a *Agent) {
		a.maxSteps = n
	}
}

func New(model llm.ChatModel, opts ...Option) *Agent {
	a := &Agent{
		model:        model,
		systemPrompt: DefaultSystemPrompt,
		tools:        tools.NewSet(),
		maxSteps:     DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.maxSteps = max(a.maxSteps, 1)
	return a
}

// Answer runs the tool-call loop for question and returns the first
// reply of the model that requests no further tools.
func (a *Agent) Answer(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", errors.New("question must not be empty")
	}
	slog.Info("agent received question", "question", truncate(question, 50))

	msgs := []llm.Message{
		llm.TextMessage(llm.MessageRoleSystem, a.systemPrompt),
		llm.TextMessage(llm.MessageRoleUser, question),
	}
	defs := tools.Definitions(a.tools)

	for step := range a.maxSteps {
		resp, err := a.model.Chat(ctx, llm.ChatRequest{
			Model:    a.modelName,
			Messages: msgs,
			Tools:    defs,
		})
		if err != nil {
			return "", ModelInvocationError{Step: step, Cause: err}
		}

		if len(resp.Message.ToolCalls) == 0 {
			answer := strings.TrimSpace(resp.Message.Text())
			slog.Info("agent returning answer", "answer", answer, "steps", step+1)
			return answer, nil
		}

		msgs = append(msgs, resp.Message)
		for _, call := range resp.Message.ToolCalls {
			msgs = append(msgs, llm.ToolResultMessage(call.ID, a.dispatch(ctx, call)))
		}

		if err := ctx.Err(); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: no answer after %d steps", ErrStepLimit, a.maxSteps)
}

// Tools returns the sorted names of the tools the agent may call.
func (a *Agent) Tools() []string {
	return tools.Names(a.tools)
}

// dispatch runs a tool call. Errors are rendered as text for the model.
func (a *Agent) dispatch(ctx context.Context, call llm.ToolCall) string {
	tool, ok := a.tools.Get(call.Name)
	if !ok {
		slog.Warn("model requested unknown tool", "name", call.Name)
		return fmt.Sprintf("error: unknown tool '%s'", call.Name)
	}

	out, err := tool.Call(ctx, json.RawMessage(call.Arguments))
	if err != nil {
		return "error: " + err.Error()
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
