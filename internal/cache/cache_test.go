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

package cache_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alan-mat/qagent/internal/cache"
)

func TestMemoryEvictsOldestInserted(t *testing.T) {
	ctx := context.Background()
	m, err := cache.NewMemory[int](3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.Set(ctx, "a", 1)
	m.Set(ctx, "b", 2)
	m.Set(ctx, "c", 3)

	// reading "a" must not save it from eviction
	if v, ok := m.Get(ctx, "a"); !ok || v != 1 {
		t.Errorf("expected 'a' = 1, got %v (found %v)", v, ok)
	}

	m.Set(ctx, "d", 4)
	if m.Contains("a") {
		t.Error("oldest inserted key 'a' was not evicted")
	}
	for _, k := range []string{"b", "c", "d"} {
		if !m.Contains(k) {
			t.Errorf("key '%s' not found in cache", k)
		}
	}
	if m.Len() != 3 {
		t.Errorf("expected length 3, got %d", m.Len())
	}
}

func TestMemoryBound(t *testing.T) {
	ctx := context.Background()
	m, _ := cache.NewMemory[string](cache.DefaultCapacity)
	for i := range cache.DefaultCapacity + 10 {
		m.Set(ctx, fmt.Sprintf("key-%d", i), "v")
	}
	if m.Len() != cache.DefaultCapacity {
		t.Errorf("expected length %d, got %d", cache.DefaultCapacity, m.Len())
	}
	if m.Contains("key-0") {
		t.Error("expected key-0 to be evicted")
	}
}

func TestMemoryInvalidCapacity(t *testing.T) {
	if _, err := cache.NewMemory[int](0); err == nil {
		t.Error("expected error for zero capacity")
	}
}

func TestTieredPromotesFromL2(t *testing.T) {
	ctx := context.Background()
	l1, _ := cache.NewMemory[string](4)
	l2, _ := cache.NewMemory[string](4)
	l2.Set(ctx, "k", "from-l2")

	tc := cache.NewTiered[string](l1, l2)
	v, ok := tc.Get(ctx, "k")
	if !ok || v != "from-l2" {
		t.Fatalf("expected 'from-l2', got '%s' (found %v)", v, ok)
	}
	if !l1.Contains("k") {
		t.Error("L2 hit was not copied into L1")
	}

	tc.Set(ctx, "n", "new")
	if !l1.Contains("n") || !l2.Contains("n") {
		t.Error("set did not write both tiers")
	}
}

func TestTieredWithoutL2(t *testing.T) {
	ctx := context.Background()
	l1, _ := cache.NewMemory[int](2)
	tc := cache.NewTiered[int](l1, nil)

	if _, ok := tc.Get(ctx, "missing"); ok {
		t.Error("expected miss")
	}
	tc.Set(ctx, "x", 5)
	if v, ok := tc.Get(ctx, "x"); !ok || v != 5 {
		t.Errorf("expected 5, got %v", v)
	}
}
