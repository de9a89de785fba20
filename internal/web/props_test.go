package web

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPropsCacheRevalidates(t *testing.T) {
	now := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := newPropsCache[int](time.Hour, func() time.Time { return now })

	loads := 0
	load := func(context.Context) (int, error) {
		loads++
		return loads, nil
	}

	for i := 0; i < 3; i++ {
		value, stale, err := cache.get(context.Background(), "home", load)
		if err != nil || stale || value != 1 {
			t.Fatalf("expected cached value 1, got %d %t %v", value, stale, err)
		}
	}

	now = now.Add(time.Hour)
	value, _, err := cache.get(context.Background(), "home", load)
	if err != nil || value != 2 {
		t.Fatalf("expected regenerated value 2, got %d %v", value, err)
	}
	if loads != 2 {
		t.Fatalf("expected 2 loads, got %d", loads)
	}
}

func TestPropsCacheFirstFailureIsFatal(t *testing.T) {
	cache := newPropsCache[int](time.Hour, time.Now)
	boom := errors.New("api down")

	_, stale, err := cache.get(context.Background(), "home", func(context.Context) (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) || stale {
		t.Fatalf("expected fatal first failure, got %v stale=%t", err, stale)
	}

	value, _, err := cache.get(context.Background(), "home", func(context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || value != 7 {
		t.Fatalf("failed generation must not be cached, got %d %v", value, err)
	}
}

func TestPropsCacheServesStaleOnRevalidationFailure(t *testing.T) {
	now := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := newPropsCache[string](time.Minute, func() time.Time { return now })

	if _, _, err := cache.get(context.Background(), "ep", func(context.Context) (string, error) {
		return "first", nil
	}); err != nil {
		t.Fatalf("initial load: %v", err)
	}

	now = now.Add(2 * time.Minute)
	value, stale, err := cache.get(context.Background(), "ep", func(context.Context) (string, error) {
		return "", errors.New("api down")
	})
	if err == nil || !stale || value != "first" {
		t.Fatalf("expected stale value with error, got %q %t %v", value, stale, err)
	}
}

func TestPropsCacheKeysAreIndependent(t *testing.T) {
	cache := newPropsCache[string](time.Hour, time.Now)
	a, _, _ := cache.get(context.Background(), "a", func(context.Context) (string, error) { return "A", nil })
	b, _, _ := cache.get(context.Background(), "b", func(context.Context) (string, error) { return "B", nil })
	if a != "A" || b != "B" {
		t.Fatalf("unexpected values %q %q", a, b)
	}
}
