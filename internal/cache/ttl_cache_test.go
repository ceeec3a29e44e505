package cache

import (
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(ttl time.Duration) (*TTLCache[string, map[string]bool], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string, map[string]bool](ttl)
	c.now = clock.now
	return c, clock
}

func TestTTLCache_Expiry(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	c.Set("doc-1", map[string]bool{"n1": true})
	clock.advance(30 * time.Second)
	c.Set("doc-2", map[string]bool{"n2": true})

	tests := []struct {
		name  string
		after time.Duration
		key   string
		want  bool
	}{
		{"fresh", 0, "doc-1", true},
		{"missing", 0, "doc-3", false},
		{"second still fresh", 29 * time.Second, "doc-2", true},
		{"first expired", 1 * time.Second, "doc-1", false},
		{"second expired", 30 * time.Second, "doc-2", false},
	}
	for _, tt := range tests {
		clock.advance(tt.after)
		if _, ok := c.Get(tt.key); ok != tt.want {
			t.Errorf("%s: Get(%q) ok = %v, want %v", tt.name, tt.key, ok, tt.want)
		}
	}
	if c.Len() != 0 {
		t.Errorf("expired entries not dropped, Len() = %d", c.Len())
	}
}

func TestTTLCache_SetRefreshes(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	c.Set("doc-1", map[string]bool{"n1": true})
	clock.advance(50 * time.Second)
	c.Set("doc-1", map[string]bool{"n2": true})
	clock.advance(50 * time.Second)

	got, ok := c.Get("doc-1")
	if !ok || !got["n2"] || got["n1"] {
		t.Errorf("Get() = %v, %v", got, ok)
	}
}

func TestTTLCache_DeleteAndClear(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	c.Set("a", nil)
	c.Set("b", nil)
	c.Delete("a")
	c.Delete("missing")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key still present")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("Delete removed the wrong key")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
}

func TestTTLCache_Concurrent(t *testing.T) {
	c := New[int, int](time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set(id*100+j, j)
				c.Get(id*100 + j)
				if j%20 == 0 {
					c.Clear()
				}
			}
		}(i)
	}
	wg.Wait()
}
