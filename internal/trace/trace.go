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
	"time"
)

// Trace follows a single question through the pipeline.
type Trace struct {
	ID          string `json:"id"`
	Status      Status `json:"status"`
	StartedAt   int64  `json:"started_at"`
	CompletedAt int64  `json:"completed_at"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`

	// FailReason contains the error message related to the failing
	// of this trace. This field must be nil, unless Status is set to StatusFailed.
	FailReason *string `json:"fail_reason,omitempty"`
}

func New(id string, question string) *Trace {
	return &Trace{
		ID:        id,
		Status:    StatusRunning,
		StartedAt: time.Now().UnixNano(),
		Question:  question,
	}
}

func (t *Trace) Complete(answer string) {
	if t.Status != StatusRunning {
		return
	}

	t.CompletedAt = time.Now().UnixNano()
	t.Status = StatusCompleted
	t.Answer = answer
}

func (t *Trace) Fail(reason error) {
	if t.Status != StatusRunning {
		return
	}

	t.CompletedAt = time.Now().UnixNano()
	t.Status = StatusFailed

	errString := reason.Error()
	t.FailReason = &errString
}

type Status int

const (
	StatusUnspecified Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unspecified"
	}
}

type EventType string

const (
	EventQuestion   EventType = "question"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventDraft      EventType = "draft"
	EventAnswer     EventType = "answer"
	EventLint       EventType = "lint"
	EventError      EventType = "error"
)

// Event is a single observation recorded against a trace.
type Event struct {
	TraceID string            `json:"trace_id"`
	Type    EventType         `json:"type"`
	Name    string            `json:"name,omitempty"`
	Attrs   map[string]string `json:"attrs,omitempty"`
	Time    int64             `json:"time"`
}

func NewEvent(traceID string, typ EventType, name string, attrs map[string]string) Event {
	return Event{
		TraceID: traceID,
		Type:    typ,
		Name:    name,
		Attrs:   attrs,
		Time:    time.Now().UnixNano(),
	}
}

// Recorder persists traces and their events.
type Recorder interface {
	SetTrace(ctx context.Context, t *Trace) error
	Record(ctx context.Context, evt Event) error
}

type traceIDKey struct{}

// WithTraceID returns a context carrying the id of the active trace.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}

// TraceID returns the id stored by [WithTraceID], or "" if there is none.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// Nop discards everything.
type Nop struct{}

func (Nop) SetTrace(context.Context, *Trace) error { return nil }
func (Nop) Record(context.Context, Event) error    { return nil }

// Multi fans out to several recorders, returning the first error.
type Multi []Recorder

func (m Multi) SetTrace(ctx context.Context, t *Trace) error {
	var first error
	for _, r := range m {
		if err := r.SetTrace(ctx, t); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Record(ctx context.Context, evt Event) error {
	var first error
	for _, r := range m {
		if err := r.Record(ctx, evt); err != nil && first == nil {
			first = err
		}
	}
	return first
}
