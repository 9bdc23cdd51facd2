package context

import "testing"

func TestCacheStartsEmpty(t *testing.T) {
	c := New()
	if _, ok := c.Get(); ok {
		t.Fatal("expected empty cache on construction")
	}
}

func TestCacheSetThenGet(t *testing.T) {
	c := New()
	c.Set("formatted rag context")
	v, ok := c.Get()
	if !ok || v != "formatted rag context" {
		t.Fatalf("expected cached value, got %q ok=%v", v, ok)
	}
}

func TestCacheClear(t *testing.T) {
	c := New()
	c.Set("something")
	c.Clear()
	if _, ok := c.Get(); ok {
		t.Fatal("expected cache to be empty after Clear")
	}
}

func TestCacheSetOverwritesPrevious(t *testing.T) {
	c := New()
	c.Set("first")
	c.Set("second")
	v, _ := c.Get()
	if v != "second" {
		t.Fatalf("expected overwrite, got %q", v)
	}
}
