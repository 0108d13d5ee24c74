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
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is the number of distinct keys kept in memory
// before the oldest inserted entry is dropped.
const DefaultCapacity = 512

// Store is a key/value cache for values of type V.
type Store[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V)
}

// Memory is a bounded in-process cache. Reads never refresh an entry,
// so eviction follows insertion order. Safe for concurrent use.
type Memory[V any] struct {
	entries *lru.Cache[string, V]
}

func NewMemory[V any](capacity int) (*Memory[V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, received '%d'", capacity)
	}
	entries, err := lru.New[string, V](capacity)
	if err != nil {
		return nil, err
	}
	return &Memory[V]{entries: entries}, nil
}

func (m *Memory[V]) Get(_ context.Context, key string) (V, bool) {
	return m.entries.Peek(key)
}

func (m *Memory[V]) Set(_ context.Context, key string, value V) {
	m.entries.Add(key, value)
}

func (m *Memory[V]) Len() int {
	return m.entries.Len()
}

func (m *Memory[V]) Contains(key string) bool {
	return m.entries.Contains(key)
}

// Tiered checks L1 first, then L2; an L2 hit is copied into L1.
// Writes go to both tiers.
type Tiered[V any] struct {
	l1 Store[V]
	l2 Store[V]
}

// NewTiered composes two stores. l2 may be nil.
func NewTiered[V any](l1, l2 Store[V]) *Tiered[V] {
	return &Tiered[V]{l1: l1, l2: l2}
}

func (t *Tiered[V]) Get(ctx context.Context, key string) (V, bool) {
	if v, ok := t.l1.Get(ctx, key); ok {
		return v, true
	}
	if t.l2 == nil {
		var zero V
		return zero, false
	}
	v, ok := t.l2.Get(ctx, key)
	if ok {
		t.l1.Set(ctx, key, v)
	}
	return v, ok
}

func (t *Tiered[V]) Set(ctx context.Context, key string, value V) {
	t.l1.Set(ctx, key, value)
	if t.l2 != nil {
		t.l2.Set(ctx, key, value)
	}
}
