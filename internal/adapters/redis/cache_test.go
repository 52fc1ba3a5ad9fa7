package redisad_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	redisad "monobook/internal/adapters/redis"
)

type payload struct {
	ID    string  `json:"id"`
	Price float64 `json:"price"`
}

func TestCacheSetGetDel(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	ctx := context.Background()

	var out payload
	if ok, err := cache.Get(ctx, "room:abc", &out); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	in := payload{ID: "abc", Price: 120.5}
	if err := cache.Set(ctx, "room:abc", in, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	ok, err := cache.Get(ctx, "room:abc", &out)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v", out)
	}

	if err := cache.Del(ctx, "room:abc"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if ok, _ := cache.Get(ctx, "room:abc", &out); ok {
		t.Fatalf("expected miss after delete")
	}
}
