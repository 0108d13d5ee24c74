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
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisTracePrefix  = "qagent:trace:"
	redisEventsPrefix = "qagent:events:"
)

// RedisRecorder stores traces as hashes and events as streams.
// Keys expire after ttl, zero keeps them forever.
type RedisRecorder struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisRecorder(rdb redis.UniversalClient, ttl time.Duration) *RedisRecorder {
	return &RedisRecorder{
		rdb: rdb,
		ttl: ttl,
	}
}

func (r *RedisRecorder) SetTrace(ctx context.Context, t *Trace) error {
	if len(t.ID) == 0 {
		return fmt.Errorf("invalid trace ID")
	}

	values := map[string]any{
		"id":           t.ID,
		"status":       int(t.Status),
		"started_at":   t.StartedAt,
		"completed_at": t.CompletedAt,
		"question":     t.Question,
		"answer":       t.Answer,
	}
	if t.FailReason != nil {
		values["fail_reason"] = *t.FailReason
	}

	key := redisTracePrefix + t.ID
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key, values)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisRecorder) GetTrace(ctx context.Context, id string) (*Trace, error) {
	res, err := r.rdb.HGetAll(ctx, redisTracePrefix+id).Result()
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("trace with id '%s' not found", id)
	}

	status, _ := strconv.Atoi(res["status"])
	startedAt, _ := strconv.ParseInt(res["started_at"], 10, 64)
	completedAt, _ := strconv.ParseInt(res["completed_at"], 10, 64)

	t := &Trace{
		ID:          res["id"],
		Status:      Status(status),
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Question:    res["question"],
		Answer:      res["answer"],
	}
	if reason, ok := res["fail_reason"]; ok {
		t.FailReason = &reason
	}
	return t, nil
}

func (r *RedisRecorder) Record(ctx context.Context, evt Event) error {
	if len(evt.TraceID) == 0 {
		return fmt.Errorf("invalid trace ID")
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	key := redisEventsPrefix + evt.TraceID
	res, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		ID:     "*",
		Values: map[string]any{
			"payload": string(payload),
		},
	}).Result()
	if err != nil {
		return err
	}
	if r.ttl > 0 {
		r.rdb.Expire(ctx, key, r.ttl)
	}

	slog.Debug("recorded trace event", "trace", evt.TraceID, "stream_id", res)
	return nil
}

// Events returns all events recorded for a trace, oldest first.
func (r *RedisRecorder) Events(ctx context.Context, traceID string) ([]Event, error) {
	msgs, err := r.rdb.XRange(ctx, redisEventsPrefix+traceID, "-", "+").Result()
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(msgs))
	for _, msg := range msgs {
		payload, ok := msg.Values["payload"].(string)
		if !ok {
			return nil, fmt.Errorf("failed to read payload from stream message")
		}

		var evt Event
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
			return nil, fmt.Errorf("failed to deserialize stream message payload: %w", err)
		}
		events = append(events, evt)
	}
	return events, nil
}
