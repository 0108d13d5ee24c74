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

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/alan-mat/qagent/internal/trace"
	"github.com/sony/gobreaker"
)

// Logging logs every invocation of the named tool.
func Logging(name string) Middleware {
	return func(next Func) Func {
		return func(ctx context.Context, args json.RawMessage) (string, error) {
			start := time.Now()
			slog.Info("calling tool", "name", name, "args", string(args))

			out, err := next(ctx, args)
			if err != nil {
				slog.Warn("tool failed", "name", name, "err", err, "took", time.Since(start))
				return out, err
			}

			slog.Debug("tool returned", "name", name, "len", len(out), "took", time.Since(start))
			return out, nil
		}
	}
}

// Tracing records call and result events on the trace found in the context.
func Tracing(name string, r trace.Recorder) Middleware {
	return func(next Func) Func {
		return func(ctx context.Context, args json.RawMessage) (string, error) {
			id := trace.TraceID(ctx)
			if id == "" {
				return next(ctx, args)
			}

			record(ctx, r, trace.NewEvent(id, trace.EventToolCall, name, map[string]string{
				"args": string(args),
			}))

			out, err := next(ctx, args)

			attrs := map[string]string{"len": strconv.Itoa(len(out))}
			if err != nil {
				attrs["error"] = err.Error()
			}
			record(ctx, r, trace.NewEvent(id, trace.EventToolResult, name, attrs))
			return out, err
		}
	}
}

func record(ctx context.Context, r trace.Recorder, evt trace.Event) {
	if err := r.Record(ctx, evt); err != nil {
		slog.Warn("failed to record trace event", "trace", evt.TraceID, "type", string(evt.Type), "err", err)
	}
}

// BreakerSettings configures [Breaker].
type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32
	// Cooldown is how long the breaker stays open before probing again.
	Cooldown time.Duration
}

var DefaultBreakerSettings = BreakerSettings{
	MaxFailures: 5,
	Cooldown:    30 * time.Second,
}

// Breaker stops calling the named tool after repeated upstream failures,
// failing fast with an [UpstreamError] until the cooldown has passed.
// Argument errors do not count as failures.
func Breaker(name string, s BreakerSettings) Middleware {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: s.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrInvalidArguments) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("tool circuit breaker changed state", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return func(next Func) Func {
		return func(ctx context.Context, args json.RawMessage) (string, error) {
			out, err := cb.Execute(func() (any, error) {
				return next(ctx, args)
			})
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return "", UpstreamError{Tool: name, Cause: err}
			}
			if err != nil {
				return "", err
			}
			return out.(string), nil
		}
	}
}
