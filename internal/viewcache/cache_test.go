package viewcache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/model"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(ttl time.Duration, max int) (*Cache, *clock) {
	clk := &clock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	return New(Config{TTL: ttl, MaxEntries: max, Now: clk.now}), clk
}

func TestCache_GetSet(t *testing.T) {
	c, clk := newTestCache(time.Minute, 0)

	c.Set("cart", 42, TagCart)
	got, ok := c.Get("cart")
	if !ok || got != 42 {
		t.Fatalf("Get = %v, %v; want 42, true", got, ok)
	}

	clk.t = clk.t.Add(2 * time.Minute)
	if _, ok := c.Get("cart"); ok {
		t.Error("expired entry should miss")
	}
}

func TestCache_InvalidateTags(t *testing.T) {
	c, _ := newTestCache(time.Minute, 0)

	c.Set("cart", 1, TagCart)
	c.Set("cart:count", 2, TagCart)
	c.Set("wishlist", 3, TagWishlist)
	c.Set("catalog", 4, TagCatalog)

	if n := c.InvalidateTags(TagCart, TagWishlist); n != 3 {
		t.Errorf("dropped = %d, want 3", n)
	}
	if _, ok := c.Get("cart"); ok {
		t.Error("cart should be invalidated")
	}
	if _, ok := c.Get("catalog"); !ok {
		t.Error("catalog should survive")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c, _ := newTestCache(time.Minute, 2)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most recent
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be present")
	}
}

func TestFetch_CachesLoads(t *testing.T) {
	c, _ := newTestCache(time.Minute, 0)
	var loads int32
	load := func(context.Context) (string, error) {
		atomic.AddInt32(&loads, 1)
		return "view", nil
	}

	for range 3 {
		got, err := Fetch(t.Context(), c, "cart", []string{TagCart}, load)
		if err != nil || got != "view" {
			t.Fatalf("Fetch = %q, %v", got, err)
		}
	}
	if loads != 1 {
		t.Errorf("loads = %d, want 1", loads)
	}

	c.InvalidateTags(TagCart)
	Fetch(t.Context(), c, "cart", []string{TagCart}, load)
	if loads != 2 {
		t.Errorf("loads after invalidation = %d, want 2", loads)
	}
}

func TestFetch_StaleOnError(t *testing.T) {
	c, clk := newTestCache(time.Minute, 0)
	c.Set("catalog", []string{"old"}, TagCatalog)
	clk.t = clk.t.Add(time.Hour)

	got, err := Fetch(t.Context(), c, "catalog", []string{TagCatalog}, func(context.Context) ([]string, error) {
		return nil, errors.New("backend down")
	})
	if err != nil {
		t.Fatalf("expected stale fallback, got %v", err)
	}
	if len(got) != 1 || got[0] != "old" {
		t.Errorf("got %v, want stale value", got)
	}
}

func TestFetch_ErrorWithoutStale(t *testing.T) {
	c, _ := newTestCache(time.Minute, 0)
	boom := errors.New("backend down")

	_, err := Fetch(t.Context(), c, "cart", nil, func(context.Context) (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

func TestFetch_NoStaleOnUnauthorized(t *testing.T) {
	c, clk := newTestCache(time.Minute, 0)
	c.Set("cart", "old cart", TagCart)
	clk.t = clk.t.Add(time.Hour)

	_, err := Fetch(t.Context(), c, "cart", []string{TagCart}, func(context.Context) (string, error) {
		return "", model.NewUnauthorizedError("Token expired")
	})
	if !errors.Is(err, model.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestFetch_LoadAcrossInvalidationNotCached(t *testing.T) {
	c, _ := newTestCache(time.Minute, 0)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan string)

	go func() {
		got, _ := Fetch(context.Background(), c, "cart", []string{TagCart}, func(context.Context) (string, error) {
			close(started)
			<-release
			return "pre-sync cart", nil
		})
		done <- got
	}()

	<-started
	c.InvalidateTags(TagCart)
	close(release)
	if got := <-done; got != "pre-sync cart" {
		t.Errorf("in-flight caller got %q", got)
	}

	if _, ok := c.Get("cart"); ok {
		t.Fatal("view loaded across invalidation should not be cached")
	}
	got, err := Fetch(t.Context(), c, "cart", []string{TagCart}, func(context.Context) (string, error) {
		return "synced cart", nil
	})
	if err != nil || got != "synced cart" {
		t.Errorf("Fetch = %q, %v; want synced cart", got, err)
	}
}

func TestFetch_LoadAcrossClearNotCached(t *testing.T) {
	c, _ := newTestCache(time.Minute, 0)

	Fetch(t.Context(), c, "catalog", []string{TagCatalog}, func(context.Context) (string, error) {
		c.Clear()
		return "old catalog", nil
	})
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestFetch_UnrelatedInvalidationStillCaches(t *testing.T) {
	c, _ := newTestCache(time.Minute, 0)

	Fetch(t.Context(), c, "catalog", []string{TagCatalog}, func(context.Context) (string, error) {
		c.InvalidateTags(TagCart)
		return "catalog", nil
	})
	if _, ok := c.Get("catalog"); !ok {
		t.Error("catalog should be cached; only cart was invalidated")
	}
}
