package lru

import (
	"fmt"
	"sync"
	"testing"
)

func mustNew[K comparable, V any](t *testing.T, capacity int) *Cache[K, V] {
	t.Helper()
	c, err := New[K, V](capacity)
	if err != nil {
		t.Fatalf("New(%d): %v", capacity, err)
	}
	return c
}

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		if _, err := New[string, int](capacity); err == nil {
			t.Fatalf("New(%d) should fail", capacity)
		}
	}
}

func TestGetMissHasNoSideEffects(t *testing.T) {
	c := mustNew[string, int](t, 2)
	if _, ok := c.TryGet("absent"); ok {
		t.Fatal("unexpected hit")
	}
	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0", c.Len())
	}
}

func TestEvictionOrder(t *testing.T) {
	const capacity = 4
	c := mustNew[int, int](t, capacity)

	// insert capacity+1 distinct keys without intervening gets
	for i := 0; i <= capacity; i++ {
		c.Put(i, i*10)
	}

	if _, ok := c.TryGet(0); ok {
		t.Fatal("first-inserted key should have been evicted")
	}
	for i := 1; i <= capacity; i++ {
		if v, ok := c.TryGet(i); !ok || v != i*10 {
			t.Fatalf("key %d: got (%d,%v), want (%d,true)", i, v, ok, i*10)
		}
	}
	if c.Len() != capacity {
		t.Fatalf("Len = %d, want %d", c.Len(), capacity)
	}
}

func TestRecencyPromotion(t *testing.T) {
	c := mustNew[string, string](t, 2)
	c.Put("A", "a")
	c.Put("B", "b")

	// touching A makes B the LRU
	if _, ok := c.TryGet("A"); !ok {
		t.Fatal("A should be present")
	}
	c.Put("C", "c")

	if _, ok := c.TryGet("B"); ok {
		t.Fatal("B should have been evicted, not A")
	}
	if _, ok := c.TryGet("A"); !ok {
		t.Fatal("A should have survived")
	}
}

func TestPutUpdatePromotesWithoutEviction(t *testing.T) {
	c := mustNew[string, int](t, 2)
	c.Put("A", 1)
	c.Put("B", 2)

	if evicted := c.Put("A", 11); evicted {
		t.Fatal("updating an existing key must not evict")
	}
	if v, _ := c.TryGet("A"); v != 11 {
		t.Fatalf("A = %d, want 11", v)
	}

	// A was promoted by the update, so B goes next
	c.Put("C", 3)
	if _, ok := c.TryGet("B"); ok {
		t.Fatal("B should have been evicted")
	}
}

func TestPutReportsEviction(t *testing.T) {
	c := mustNew[int, int](t, 1)
	if evicted := c.Put(1, 1); evicted {
		t.Fatal("first insert should not evict")
	}
	if evicted := c.Put(2, 2); !evicted {
		t.Fatal("insert into full cache should evict")
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestClear(t *testing.T) {
	c := mustNew[int, int](t, 8)
	for i := 0; i < 5; i++ {
		c.Put(i, i)
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Len after Clear = %d", c.Len())
	}
	// cache is still usable
	c.Put(9, 9)
	if v, ok := c.TryGet(9); !ok || v != 9 {
		t.Fatal("cache unusable after Clear")
	}
}

func TestRemoveWhere(t *testing.T) {
	c := mustNew[string, int](t, 16)
	for i := 0; i < 10; i++ {
		prefix := "even/"
		if i%2 == 1 {
			prefix = "odd/"
		}
		c.Put(fmt.Sprintf("%s%d", prefix, i), i)
	}

	removed := c.RemoveWhere(func(k string) bool { return k[:5] == "even/" })
	if removed != 5 {
		t.Fatalf("removed = %d, want 5", removed)
	}
	if c.Len() != 5 {
		t.Fatalf("Len = %d, want 5", c.Len())
	}
	for i := 1; i < 10; i += 2 {
		if _, ok := c.TryGet(fmt.Sprintf("odd/%d", i)); !ok {
			t.Fatalf("odd key %d should have survived", i)
		}
	}
}

func TestRemoveWhereAll(t *testing.T) {
	c := mustNew[int, int](t, 4)
	for i := 0; i < 4; i++ {
		c.Put(i, i)
	}
	if removed := c.RemoveWhere(func(int) bool { return true }); removed != 4 {
		t.Fatalf("removed = %d, want 4", removed)
	}
	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0", c.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := mustNew[int, int](t, 128)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				k := (seed*31 + i) % 256
				switch i % 4 {
				case 0, 1:
					c.Put(k, i)
				case 2:
					c.TryGet(k)
				case 3:
					if i%100 == 0 {
						c.RemoveWhere(func(key int) bool { return key == k })
					}
				}
			}
		}(g)
	}
	wg.Wait()

	if n := c.Len(); n > 128 {
		t.Fatalf("Len = %d exceeds capacity", n)
	}
}
