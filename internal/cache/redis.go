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

package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores JSON encoded values under a key prefix with a fixed TTL.
// Failures are logged and reported as misses.
type Redis[V any] struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedis[V any](rdb redis.UniversalClient, prefix string, ttl time.Duration) *Redis[V] {
	return &Redis[V]{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *Redis[V]) Get(ctx context.Context, key string) (V, bool) {
	var out V
	data, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Debug("cache: redis get failed", "key", key, "err", err)
		}
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		slog.Debug("cache: corrupt redis entry", "key", key, "err", err)
		var zero V
		return zero, false
	}
	return out, true
}

func (r *Redis[V]) Set(ctx context.Context, key string, value V) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		slog.Debug("cache: redis set failed", "key", key, "err", err)
	}
}
