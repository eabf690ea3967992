package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
)

func TestNewRedisClientDisabledWithoutAddr(t *testing.T) {
	if client := NewRedisClient("", "", 0, zap.NewNop()); client != nil {
		t.Fatal("expected nil client when address is empty")
	}
}

func TestNewRedisClientUnreachableReturnsNil(t *testing.T) {
	if client := NewRedisClient("127.0.0.1:1", "", 0, zap.NewNop()); client != nil {
		t.Fatal("expected nil client when redis is unreachable")
	}
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := NewRedisClient(srv.Addr(), "", 0, zap.NewNop())
	if client == nil {
		t.Fatal("expected client for running server")
	}
	c := New(client, time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	return c, srv
}

func TestCacheGetSet(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
	if err := c.Set(ctx, "k", []byte(`[]`)); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil || string(got) != "[]" {
		t.Fatalf("unexpected value %q err=%v", got, err)
	}

	srv.FastForward(2 * time.Minute)
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected entry to expire, got %v", err)
	}
}

func TestCacheGeneration(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	gen, err := c.Generation(ctx, "g")
	if err != nil || gen != 0 {
		t.Fatalf("expected zero generation, got %d err=%v", gen, err)
	}
	for i := 0; i < 2; i++ {
		if err := c.Bump(ctx, "g"); err != nil {
			t.Fatalf("bump failed: %v", err)
		}
	}
	if gen, err = c.Generation(ctx, "g"); err != nil || gen != 2 {
		t.Fatalf("expected generation 2, got %d err=%v", gen, err)
	}
}

func TestCacheClose(t *testing.T) {
	c, _ := newTestCache(t)
	if err := c.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := c.Set(context.Background(), "k", []byte("v")); err == nil {
		t.Fatal("expected error after close")
	}
}
