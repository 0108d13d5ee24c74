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

package qa_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alan-mat/qagent/internal/agent"
	"github.com/alan-mat/qagent/internal/api"
	"github.com/alan-mat/qagent/internal/llm"
	"github.com/alan-mat/qagent/internal/normalize"
	"github.com/alan-mat/qagent/internal/qa"
	"github.com/alan-mat/qagent/internal/tools"
	"github.com/alan-mat/qagent/internal/trace"
)

func TestPipelineEndToEnd(t *testing.T) {
	web := &stubWeb{answer: "The capital of France is Paris."}
	agentModel := &scriptedModel{steps: []func(req llm.ChatRequest) llm.Message{
		func(req llm.ChatRequest) llm.Message {
			m := llm.TextMessage(llm.MessageRoleAssistant, "")
			m.ToolCalls = []llm.ToolCall{{ID: "c1", Name: tools.NameWebSearch, Arguments: `{"question":"What is the capital of France?"}`}}
			return m
		},
		func(req llm.ChatRequest) llm.Message {
			last := req.Messages[len(req.Messages)-1]
			return llm.TextMessage(llm.MessageRoleAssistant, "According to the web: "+last.Text())
		},
	}}
	normModel := &properNounModel{}
	rec := &memRecorder{}

	recorders := trace.Multi{rec, trace.NewLogRecorder(nil)}
	a := agent.New(agentModel, agent.WithTools(tools.WebSearch(web).With(tools.Tracing(tools.NameWebSearch, recorders))))
	p := qa.New(a, qa.WithNormalizer(normalize.New(normModel)), qa.WithRecorder(recorders))

	res, err := p.Run(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Answer != "Paris" {
		t.Errorf("expected 'Paris', got '%s'", res.Answer)
	}
	if res.Draft != "According to the web: The capital of France is Paris." {
		t.Errorf("unexpected draft '%s'", res.Draft)
	}
	if res.TraceID == "" {
		t.Error("expected trace id")
	}

	final := rec.traces[len(rec.traces)-1]
	if final.Status != trace.StatusCompleted || final.Answer != "Paris" {
		t.Errorf("unexpected final trace '%+v'", final)
	}

	var types []string
	for _, e := range rec.events {
		if e.TraceID != res.TraceID {
			t.Errorf("event recorded under trace '%s', expected '%s'", e.TraceID, res.TraceID)
		}
		types = append(types, string(e.Type))
	}
	expected := "question,tool_call,tool_result,draft,answer"
	if strings.Join(types, ",") != expected {
		t.Errorf("expected events '%s', got '%s'", expected, strings.Join(types, ","))
	}
}

func TestPipelineWithoutNormalizer(t *testing.T) {
	p := qa.New(answerFunc(func(ctx context.Context, q string) (string, error) {
		return "Paris is the capital.", nil
	}))

	res, err := p.Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Answer != res.Draft || res.Answer != "Paris is the capital." {
		t.Errorf("expected draft as answer, got '%+v'", res)
	}
}

func TestPipelineAgentFailure(t *testing.T) {
	rec := &memRecorder{}
	cause := agent.ModelInvocationError{Cause: errors.New("unreachable")}
	p := qa.New(answerFunc(func(ctx context.Context, q string) (string, error) {
		return "", cause
	}), qa.WithRecorder(rec))

	_, err := p.RunTrace(context.Background(), "trace-1", "q")
	if !errors.Is(err, agent.ErrModelInvocation) {
		t.Fatalf("expected ErrModelInvocation, got %v", err)
	}

	final := rec.traces[len(rec.traces)-1]
	if final.ID != "trace-1" || final.Status != trace.StatusFailed || final.FailReason == nil {
		t.Errorf("unexpected final trace '%+v'", final)
	}
	if last := rec.events[len(rec.events)-1]; last.Type != trace.EventError {
		t.Errorf("expected error event last, got '%s'", last.Type)
	}
}

func TestPipelineLintEvents(t *testing.T) {
	rec := &memRecorder{}
	p := qa.New(
		answerFunc(func(ctx context.Context, q string) (string, error) { return "draft", nil }),
		qa.WithNormalizer(normalizeFunc(func(ctx context.Context, q, d string) (string, error) { return "The Paris", nil })),
		qa.WithRecorder(rec),
	)

	if _, err := p.Run(context.Background(), "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := false
	for _, e := range rec.events {
		if e.Type == trace.EventLint && e.Name == string(normalize.RuleLeadingArticle) {
			found = true
		}
	}
	if !found {
		t.Error("expected lint event for leading article")
	}
}

type answerFunc func(ctx context.Context, q string) (string, error)

func (f answerFunc) Answer(ctx context.Context, q string) (string, error) {
	return f(ctx, q)
}

type normalizeFunc func(ctx context.Context, q, d string) (string, error)

func (f normalizeFunc) Normalize(ctx context.Context, q, d string) (string, error) {
	return f(ctx, q, d)
}

type scriptedModel struct {
	steps []func(req llm.ChatRequest) llm.Message
}

func (m *scriptedModel) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if len(m.steps) == 0 {
		return nil, errors.New("no scripted step")
	}
	step := m.steps[0]
	m.steps = m.steps[1:]
	return &llm.ChatResponse{Message: step(req)}, nil
}

// properNounModel extracts the last capitalized word of the draft.
type properNounModel struct{}

func (properNounModel) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	user := req.Messages[len(req.Messages)-1].Text()
	_, draft, _ := strings.Cut(user, "Draft answer: ")

	noun := ""
	for _, w := range strings.Fields(draft) {
		w = strings.Trim(w, ".,!?")
		if w != "" && w[0] >= 'A' && w[0] <= 'Z' {
			noun = w
		}
	}
	return &llm.ChatResponse{Message: llm.TextMessage(llm.MessageRoleAssistant, "FINAL ANSWER: "+noun)}, nil
}

type stubWeb struct {
	answer string
}

func (s *stubWeb) WebAnswer(ctx context.Context, question string) (*api.WebAnswer, error) {
	return &api.WebAnswer{Query: question, Answer: s.answer}, nil
}

type memRecorder struct {
	traces []trace.Trace
	events []trace.Event
}

func (r *memRecorder) SetTrace(ctx context.Context, t *trace.Trace) error {
	r.traces = append(r.traces, *t)
	return nil
}

func (r *memRecorder) Record(ctx context.Context, evt trace.Event) error {
	r.events = append(r.events, evt)
	return nil
}
