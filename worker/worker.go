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

package worker

import (
	"errors"

	"github.com/alan-mat/qagent/internal/tasks"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Worker processes queued answer tasks.
type Worker struct {
	rdb         redis.UniversalClient
	asynqServer *asynq.Server
	handler     asynq.Handler
}

func New(rdb redis.UniversalClient, concurrency int, handler *tasks.AnswerTaskHandler) (*Worker, error) {
	if rdb == nil {
		return nil, errors.New("worker requires a redis connection, set redis.addr")
	}
	return &Worker{
		rdb: rdb,
		asynqServer: asynq.NewServerFromRedisClient(
			rdb,
			asynq.Config{
				Concurrency: concurrency,
			},
		),
		handler: handler,
	}, nil
}

// Start runs the worker until it receives a termination signal.
func (w *Worker) Start() error {
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeAnswer, w.handler)

	return w.asynqServer.Run(mux)
}
