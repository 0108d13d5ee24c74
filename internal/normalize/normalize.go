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

package normalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alan-mat/qagent/internal/llm"
)

const finalAnswerMarker = "FINAL ANSWER:"

type NormalizeError struct {
	Cause error
}

func (e NormalizeError) Error() string {
	return fmt.Sprintf("failed to normalize answer: %v", e.Cause)
}

func (e NormalizeError) Unwrap() error {
	return e.Cause
}

// Normalizer rewrites draft answers into the canonical answer format
// with a single tool-free model call.
type Normalizer struct {
	model     llm.ChatModel
	modelName string
}

type Option func(*Normalizer)

func WithModelName(name string) Option {
	return func(n *Normalizer) {
		n.modelName = name
	}
}

func New(model llm.ChatModel, opts ...Option) *Normalizer {
	n := &Normalizer{model: model}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Normalizer) Normalize(ctx context.Context, question string, draft string) (string, error) {
	if strings.TrimSpace(draft) == "" {
		return "", errors.New("draft answer must not be empty")
	}

	temperature := float32(0)
	resp, err := n.model.Chat(ctx, llm.ChatRequest{
		Model: n.modelName,
		Messages: []llm.Message{
			llm.TextMessage(llm.MessageRoleSystem, SystemPrompt),
			llm.TextMessage(llm.MessageRoleUser, fmt.Sprintf(userTemplate, question, draft)),
		},
		Temperature: &temperature,
	})
	if err != nil {
		return "", NormalizeError{Cause: err}
	}

	answer := Clean(resp.Message.Text())
	if answer == "" {
		return "", NormalizeError{Cause: errors.New("model returned an empty answer")}
	}

	for _, v := range Lint(answer) {
		slog.Warn("normalized answer violates format rule", "rule", string(v.Rule), "element", v.Element)
	}
	return answer, nil
}

// Clean trims model output and strips a leading final answer marker.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= len(finalAnswerMarker) && strings.EqualFold(s[:len(finalAnswerMarker)], finalAnswerMarker) {
		s = strings.TrimSpace(s[len(finalAnswerMarker):])
	}
	return s
}
