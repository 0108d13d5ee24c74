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
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeAnswer = "qagent:answer"

	// ResultRetention is how long a finished task and its result stay
	// inspectable in the queue.
	ResultRetention = 24 * time.Hour
)

var ErrTaskFailed = errors.New("answer task failed")

type answerTaskPayload struct {
	Question  string `json:"question"`
	Normalize bool   `json:"normalize"`
}

// Result is the value written as the result of a completed answer task.
type Result struct {
	TraceID string `json:"trace_id"`
	Draft   string `json:"draft"`
	Answer  string `json:"answer"`
}

func NewAnswerTask(question string, normalize bool, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(answerTaskPayload{
		Question:  question,
		Normalize: normalize,
	})
	if err != nil {
		return nil, err
	}
	opts = append([]asynq.Option{asynq.Retention(ResultRetention)}, opts...)
	return asynq.NewTask(TypeAnswer, payload, opts...), nil
}

// Await polls the inspector until the task identified by info has
// finished, returning its decoded result.
func Await(ctx context.Context, insp *asynq.Inspector, info *asynq.TaskInfo, interval time.Duration) (*Result, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ti, err := insp.GetTaskInfo(info.Queue, info.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect task '%s': %w", info.ID, err)
		}

		switch ti.State {
		case asynq.TaskStateCompleted:
			var res Result
			if err := json.Unmarshal(ti.Result, &res); err != nil {
				return nil, fmt.Errorf("failed to decode result of task '%s': %w", info.ID, err)
			}
			return &res, nil
		case asynq.TaskStateArchived, asynq.TaskStateRetry:
			return nil, fmt.Errorf("%w: %s", ErrTaskFailed, ti.LastErr)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
