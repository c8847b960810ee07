// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package cache

import (
	"strconv"
	"sync"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLRU(capacity int, ttl time.Duration) (*LRU[int], *clock) {
	clk := &clock{t: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
	c := NewLRU[int](capacity, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUGetAdd(t *testing.T) {
	c, _ := newTestLRU(3, time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatal("empty cache hit")
	}
	c.Add("a", 1)
	c.Add("a", 2)
	if v, ok := c.Get("a"); !ok || v != 2 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d", c.Len())
	}
	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.HitRate() != 50 {
		t.Fatalf("stats = %+v rate=%v", s, s.HitRate())
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Get("a")
	c.Add("c", 3)

	if c.Contains("b") {
		t.Error("b should have been evicted")
	}
	if !c.Contains("a") || !c.Contains("c") {
		t.Error("a and c should remain")
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("evictions = %d", c.Stats().Evictions)
	}
}

func TestLRUExpiry(t *testing.T) {
	c, clk := newTestLRU(10, time.Minute)
	c.Add("a", 1)
	clk.advance(59 * time.Second)
	if !c.Contains("a") {
		t.Fatal("expired early")
	}
	clk.advance(2 * time.Second)
	if c.Contains("a") {
		t.Fatal("still live after ttl")
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("Get returned an expired entry")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry kept, Len = %d", c.Len())
	}
}

func TestLRURemovePurge(t *testing.T) {
	c, _ := newTestLRU(10, time.Minute)
	c.Add("a", 1)
	c.Add("b", 2)
	if !c.Remove("a") || c.Remove("a") {
		t.Fatal("Remove should succeed once")
	}
	c.Purge()
	if c.Len() != 0 || c.Contains("b") {
		t.Fatal("Purge left entries")
	}
	c.Add("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatal("cache unusable after Purge")
	}
}

func TestLRUDefaults(t *testing.T) {
	c := NewLRU[string](0, 0)
	if c.capacity != defaultCapacity || c.ttl != defaultTTL {
		t.Fatalf("capacity=%d ttl=%v", c.capacity, c.ttl)
	}
}

func TestLRUConcurrent(t *testing.T) {
	c := NewLRU[int](100, time.Minute)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				k := strconv.Itoa((g * i) % 150)
				c.Add(k, i)
				c.Get(k)
			}
		}(g)
	}
	wg.Wait()
	if c.Len() > 100 {
		t.Fatalf("Len = %d exceeds capacity", c.Len())
	}
}

func TestKey(t *testing.T) {
	a := Key("stats", map[string]string{"action": "DELETE"})
	b := Key("stats", map[string]string{"action": "DELETE"})
	c := Key("stats", map[string]string{"action": "CREATE"})
	if a != b || a == c {
		t.Fatalf("keys: %s %s %s", a, b, c)
	}
}
