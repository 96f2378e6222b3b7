package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCache_ExpiresExactlyAfterTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := New(0, clock.Now)

	c.Set("plans", "payload", 5*time.Minute)

	clock.Advance(5 * time.Minute)
	if v, ok := c.Get("plans"); !ok || v != "payload" {
		t.Fatalf("失効時刻ちょうどではまだ返るべき: %v, %v", v, ok)
	}

	clock.Advance(time.Millisecond)
	if _, ok := c.Get("plans"); ok {
		t.Fatal("失効時刻を過ぎたら返らないべき")
	}
	if c.Len() != 0 {
		t.Errorf("失効エントリは参照時に削除されるべき: Len = %d", c.Len())
	}
}

func TestCache_DefaultTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := New(0, clock.Now)

	c.Set("k", 1, 0)
	clock.Advance(DefaultTTL)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("デフォルトTTL内では返るべき")
	}
	clock.Advance(time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("デフォルトTTL経過後は返らないべき")
	}
}

func TestCache_SetOverwrites(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := New(time.Minute, clock.Now)

	c.Set("k", "old", time.Second)
	c.Set("k", "new", time.Hour)
	clock.Advance(2 * time.Second)

	v, ok := c.Get("k")
	if !ok || v != "new" {
		t.Errorf("上書き後のエントリ = %v, %v; want new, true", v, ok)
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := New(time.Minute, nil)
	c.Set("user-bookings-{}", 1, 0)
	c.Set("user-bookings-{\"status\":\"confirmed\"}", 2, 0)
	c.Set("membership-plans", 3, 0)
	c.Set("current-user", 4, 0)

	c.Delete("current-user")
	if _, ok := c.Get("current-user"); ok {
		t.Error("Delete 後に残っている")
	}

	c.DeletePrefix("user-bookings")
	if _, ok := c.Get("user-bookings-{}"); ok {
		t.Error("DeletePrefix で削除されるべき")
	}
	if _, ok := c.Get("membership-plans"); !ok {
		t.Error("接頭辞に一致しないキーは残るべき")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Clear 後の Len = %d", c.Len())
	}
}
