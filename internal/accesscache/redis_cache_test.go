package accesscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"fundops/api/internal/rbac"
)

func setupTestCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	cache, err := NewRedisCache("redis://"+s.Addr(), ttl)
	if err != nil {
		t.Fatalf("failed to create redis cache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache, s
}

func TestNewRedisCache(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)
	if err := cache.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisCacheRejectsBadURL(t *testing.T) {
	if _, err := NewRedisCache("not a url", time.Minute); err == nil {
		t.Fatal("expected error for malformed url")
	}
}

func TestSetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)
	ctx := context.Background()

	if err := cache.Set(ctx, "access:u1:co1:read", true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := cache.Set(ctx, "access:u1:co2:read", false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	allowed, found, err := cache.Get(ctx, "access:u1:co1:read")
	if err != nil || !found || !allowed {
		t.Fatalf("Get(co1) = %v, %v, %v", allowed, found, err)
	}
	allowed, found, err = cache.Get(ctx, "access:u1:co2:read")
	if err != nil || !found || allowed {
		t.Fatalf("Get(co2) = %v, %v, %v", allowed, found, err)
	}
}

func TestGetMiss(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)

	_, found, err := cache.Get(context.Background(), "access:nobody:co1:read")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("expected miss for unknown key")
	}
}

func TestEntriesExpire(t *testing.T) {
	cache, s := setupTestCache(t, 30*time.Second)
	ctx := context.Background()

	if err := cache.Set(ctx, "access:u1:co1:reconcile", true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	s.FastForward(31 * time.Second)

	if _, found, _ := cache.Get(ctx, "access:u1:co1:reconcile"); found {
		t.Error("expected entry to expire")
	}
}

func TestUnknownPayloadIsMiss(t *testing.T) {
	cache, s := setupTestCache(t, time.Minute)
	if err := s.Set("access:u1:co1:read", "yes"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	_, found, err := cache.Get(context.Background(), "access:u1:co1:read")
	if err != nil || found {
		t.Fatalf("Get = found %v, err %v", found, err)
	}
}

type staticRoles struct{ calls int }

func (s *staticRoles) AccessRoles(context.Context, string, string) (string, string, error) {
	s.calls++
	return "viewer", "editor", nil
}

func TestCheckerWithRedisCache(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	roles := &staticRoles{}
	checker := rbac.NewChecker(roles, NewRedisCacheWithClient(client, time.Minute), nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := checker.CanAccess(ctx, "u1", "co1", rbac.ActionReconcile)
		if err != nil || !allowed {
			t.Fatalf("CanAccess = %v, %v", allowed, err)
		}
	}
	if roles.calls != 1 {
		t.Fatalf("expected one role lookup, got %d", roles.calls)
	}
	if got, _ := s.Get(rbac.CacheKey("u1", "co1", rbac.ActionReconcile)); got != "1" {
		t.Fatalf("cached value = %q", got)
	}
}
