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

package trace

import (
	"context"
	"log/slog"
)

// LogRecorder writes traces and events to a structured logger.
type LogRecorder struct {
	logger *slog.Logger
}

// NewLogRecorder returns a recorder logging to l, or to the default logger if l is nil.
func NewLogRecorder(l *slog.Logger) *LogRecorder {
	if l == nil {
		l = slog.Default()
	}
	return &LogRecorder{logger: l}
}

func (r *LogRecorder) SetTrace(ctx context.Context, t *Trace) error {
	args := []any{"trace", t.ID, "status", t.Status.String()}
	if t.FailReason != nil {
		args = append(args, "reason", *t.FailReason)
	}
	r.logger.DebugContext(ctx, "trace updated", args...)
	return nil
}

func (r *LogRecorder) Record(ctx context.Context, evt Event) error {
	args := []any{"trace", evt.TraceID, "type", string(evt.Type)}
	if evt.Name != "" {
		args = append(args, "name", evt.Name)
	}
	for k, v := range evt.Attrs {
		args = append(args, k, v)
	}
	r.logger.DebugContext(ctx, "trace event", args...)
	return nil
}
