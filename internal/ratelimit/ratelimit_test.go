package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinBurst(t *testing.T) {
	limiter := New(Config{
		RequestsPerMinute: 60,
		BurstSize:         5,
		CleanupInterval:   time.Minute,
	})
	defer limiter.Stop()

	key := "198.51.100.10"

	for i := 0; i < 5; i++ {
		if !limiter.Allow(key) {
			t.Errorf("request %d within burst should be allowed", i)
		}
	}

	if limiter.Allow(key) {
		t.Error("request past the burst should be denied")
	}

	// 60/min replenishes one token per second.
	time.Sleep(time.Second)

	if !limiter.Allow(key) {
		t.Error("request after replenishment should be allowed")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	limiter := New(Config{
		RequestsPerMinute: 60,
		BurstSize:         3,
		CleanupInterval:   time.Minute,
	})
	defer limiter.Stop()

	for i := 0; i < 3; i++ {
		limiter.Allow("198.51.100.20")
	}

	if limiter.Allow("198.51.100.20") {
		t.Error("exhausted key should be limited")
	}
	if !limiter.Allow("198.51.100.21") {
		t.Error("fresh key should not be limited")
	}
}

func TestTokensReplenishAtConfiguredRate(t *testing.T) {
	limiter := New(Config{
		RequestsPerMinute: 600,
		BurstSize:         1,
		CleanupInterval:   time.Minute,
	})
	defer limiter.Stop()

	key := "198.51.100.30"

	if !limiter.Allow(key) {
		t.Error("first request should be allowed")
	}
	if limiter.Allow(key) {
		t.Error("immediate second request should be denied")
	}

	// 600/min is one token every 100ms.
	time.Sleep(110 * time.Millisecond)

	if !limiter.Allow(key) {
		t.Error("request after replenishment window should be allowed")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.RequestsPerMinute != 60 {
		t.Errorf("RequestsPerMinute = %d, want 60", cfg.RequestsPerMinute)
	}
	if cfg.BurstSize != 10 {
		t.Errorf("BurstSize = %d, want 10", cfg.BurstSize)
	}
	if cfg.CleanupInterval != time.Minute {
		t.Errorf("CleanupInterval = %v, want 1m", cfg.CleanupInterval)
	}
}
