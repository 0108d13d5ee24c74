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

package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alan-mat/qagent/internal/qa"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Runner answers a question under a given trace id.
type Runner interface {
	RunTrace(ctx context.Context, traceID string, question string) (*qa.Result, error)
}

type AnswerTaskHandler struct {
	plain      Runner
	normalized Runner
}

// NewAnswerTaskHandler returns a handler running tasks on plain, or on
// normalized when the task asks for normalization. normalized may be nil.
func NewAnswerTaskHandler(plain Runner, normalized Runner) *AnswerTaskHandler {
	return &AnswerTaskHandler{
		plain:      plain,
		normalized: normalized,
	}
}

func (h *AnswerTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeAnswer {
		return fmt.Errorf("unrecognized task type '%s' (%w)", t.Type(), asynq.SkipRetry)
	}

	var p answerTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid answer task payload: %v (%w)", err, asynq.SkipRetry)
	}
	if p.Question == "" {
		return fmt.Errorf("answer task has no question (%w)", asynq.SkipRetry)
	}

	// tasks built outside of a server carry no result writer
	rw := t.ResultWriter()
	id := uuid.NewString()
	if rw != nil {
		id = rw.TaskID()
	}
	slog.Info("received answer task", "id", id, "question", p.Question, "normalize", p.Normalize)

	runner := h.plain
	if p.Normalize {
		if h.normalized != nil {
			runner = h.normalized
		} else {
			slog.Warn("normalization requested but not configured", "id", id)
		}
	}

	res, err := runner.RunTrace(ctx, id, p.Question)
	if err != nil {
		slog.Error("answer task failed", "id", id, "err", err)
		return fmt.Errorf("answer pipeline failed: %w (%w)", err, asynq.SkipRetry)
	}

	out, err := json.Marshal(Result{
		TraceID: res.TraceID,
		Draft:   res.Draft,
		Answer:  res.Answer,
	})
	if err != nil {
		return fmt.Errorf("failed to encode task result: %v (%w)", err, asynq.SkipRetry)
	}
	if rw != nil {
		if _, err := rw.Write(out); err != nil {
			slog.Warn("failed to write task result", "id", id, "err", err)
		}
	}

	slog.Info("answer task finished", "id", id, "answer", res.Answer)
	return nil
}
