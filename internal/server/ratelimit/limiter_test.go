package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	l := NewLimiter(5, time.Minute, 5)
	defer l.Close()

	for i := range 5 {
		result := l.Allow("k")
		if !result.Allowed {
			t.Errorf("request %d should be allowed", i+1)
		}
		if result.Limit != 5 {
			t.Errorf("expected Limit=5, got %d", result.Limit)
		}
	}
	result := l.Allow("k")
	if result.Allowed {
		t.Error("6th request should be rate limited")
	}
	if result.RetryAfter < time.Second {
		t.Errorf("expected RetryAfter >= 1s, got %v", result.RetryAfter)
	}
	if result.Remaining != 0 {
		t.Errorf("expected Remaining=0, got %d", result.Remaining)
	}

	// Other keys have their own bucket.
	if !l.Allow("other").Allowed {
		t.Error("other key should be allowed")
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	l := NewLimiter(60, time.Minute, 1)
	defer l.Close()
	l.Allow("a")
	l.cleanup(time.Now().Add(20 * time.Minute))
	l.mu.Lock()
	n := len(l.buckets)
	l.mu.Unlock()
	if n != 0 {
		t.Errorf("expected stale bucket to be removed, %d left", n)
	}
	l.Close() // Close is idempotent.
}

func TestConfig(t *testing.T) {
	c := NewConfig(5, 60)
	defer c.Close()
	tests := []struct {
		method, path string
		auth         bool
		want         *Tier
	}{
		{"POST", "/api/auth/signin", false, c.Auth},
		{"POST", "/api/auth/signup", false, c.Auth},
		{"GET", "/api/documents", false, nil},
		{"GET", "/api/health", false, nil},
		{"PUT", "/api/documents/a.md", true, c.Write},
		{"DELETE", "/api/documents/a.md", true, c.Write},
		{"POST", "/api/images", true, c.Write},
		{"GET", "/api/auth/me", true, nil},
	}
	for _, tt := range tests {
		var got *Tier
		if tt.auth {
			got = c.MatchAuth(tt.method, tt.path)
		} else {
			got = c.MatchUnauth(tt.method, tt.path)
		}
		if got != tt.want {
			t.Errorf("%s %s: got %v, want %v", tt.method, tt.path, got, tt.want)
		}
	}

	disabled := NewConfig(0, 0)
	if disabled.MatchUnauth("POST", "/api/auth/signin") != nil || disabled.MatchAuth("PUT", "/x") != nil {
		t.Error("zero rates should disable the tiers")
	}
	var none *Config
	if none.MatchAuth("PUT", "/x") != nil {
		t.Error("nil config should not limit")
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewResponseWriter(rec, Result{Allowed: false, Limit: 5, RetryAfter: 12 * time.Second})
	w.WriteHeader(http.StatusTooManyRequests)
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Errorf("X-RateLimit-Limit = %q", got)
	}
	if got := rec.Header().Get("Retry-After"); got != "12" {
		t.Errorf("Retry-After = %q", got)
	}
	if BuildKey(ScopeUser, "ann", "write") != "user:ann:write" {
		t.Error("unexpected key")
	}
}
