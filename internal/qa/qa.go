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

package qa

import (
	"context"
	"log/slog"

	"github.com/alan-mat/qagent/internal/normalize"
	"github.com/alan-mat/qagent/internal/trace"
	"github.com/google/uuid"
)

type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

type Normalizer interface {
	Normalize(ctx context.Context, question string, draft string) (string, error)
}

// Result is the outcome of a single pipeline run.
type Result struct {
	TraceID string
	Draft   string
	Answer  string
}

// Pipeline answers a question with an agent and optionally rewrites the
// draft into the canonical answer format.
type Pipeline struct {
	agent      Answerer
	normalizer Normalizer
	recorder   trace.Recorder
}

type Option func(*Pipeline)

// WithNormalizer enables the normalization stage.
func WithNormalizer(n Normalizer) Option {
	return func(p *Pipeline) {
		p.normalizer = n
	}
}

func WithRecorder(r trace.Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

func New(agent Answerer, opts ...Option) *Pipeline {
	p := &Pipeline{
		agent:    agent,
		recorder: trace.Nop{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run answers question under a new trace id.
func (p *Pipeline) Run(ctx context.Context, question string) (*Result, error) {
	return p.RunTrace(ctx, uuid.NewString(), question)
}

// RunTrace answers question, recording under the given trace id.
func (p *Pipeline) RunTrace(ctx context.Context, traceID string, question string) (*Result, error) {
	t := trace.New(traceID, question)
	ctx = trace.WithTraceID(ctx, traceID)
	p.setTrace(ctx, t)
	p.record(ctx, trace.NewEvent(traceID, trace.EventQuestion, "", map[string]string{
		"question": question,
	}))

	res := &Result{TraceID: traceID}
	draft, err := p.agent.Answer(ctx, question)
	if err != nil {
		return nil, p.fail(ctx, t, err)
	}
	res.Draft = draft
	res.Answer = draft
	p.record(ctx, trace.NewEvent(traceID, trace.EventDraft, "", map[string]string{
		"draft": draft,
	}))

	if p.normalizer != nil {
		answer, err := p.normalizer.Normalize(ctx, question, draft)
		if err != nil {
			return nil, p.fail(ctx, t, err)
		}
		res.Answer = answer

		for _, v := range normalize.Lint(answer) {
			p.record(ctx, trace.NewEvent(traceID, trace.EventLint, string(v.Rule), map[string]string{
				"element": v.Element,
			}))
		}
	}

	p.record(ctx, trace.NewEvent(traceID, trace.EventAnswer, "", map[string]string{
		"answer": res.Answer,
	}))
	t.Complete(res.Answer)
	p.setTrace(ctx, t)
	return res, nil
}

func (p *Pipeline) fail(ctx context.Context, t *trace.Trace, err error) error {
	p.record(ctx, trace.NewEvent(t.ID, trace.EventError, "", map[string]string{
		"error": err.Error(),
	}))
	t.Fail(err)
	p.setTrace(ctx, t)
	return err
}

func (p *Pipeline) setTrace(ctx context.Context, t *trace.Trace) {
	if err := p.recorder.SetTrace(ctx, t); err != nil {
		slog.Warn("failed to store trace", "trace", t.ID, "err", err)
	}
}

func (p *Pipeline) record(ctx context.Context, evt trace.Event) {
	if err := p.recorder.Record(ctx, evt); err != nil {
		slog.Warn("failed to record trace event", "trace", evt.TraceID, "type", string(evt.Type), "err", err)
	}
}
