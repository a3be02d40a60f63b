package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		allowed, remaining := limiter.Allow("10.0.0.1", now)
		if !allowed {
			t.Fatalf("Request %d: expected allowed", i+1)
		}
		if remaining != 3-i-1 {
			t.Errorf("Request %d: expected remaining %d, got %d", i+1, 3-i-1, remaining)
		}
	}

	allowed, _ := limiter.Allow("10.0.0.1", now)
	if allowed {
		t.Error("Expected request over limit to be refused")
	}

	// Other clients are unaffected.
	allowed, _ = limiter.Allow("10.0.0.2", now)
	if !allowed {
		t.Error("Expected other client to be allowed")
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	now := time.Now()

	limiter.Allow("10.0.0.1", now)
	limiter.Allow("10.0.0.1", now)

	if allowed, _ := limiter.Allow("10.0.0.1", now.Add(30*time.Second)); allowed {
		t.Error("Expected refusal inside the window")
	}

	if allowed, _ := limiter.Allow("10.0.0.1", now.Add(61*time.Second)); !allowed {
		t.Error("Expected allowance once the window expired")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimit(2, time.Minute))
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:51000"
		r.ServeHTTP(w, req)
		return w
	}

	first := do()
	if first.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", first.Code)
	}
	if first.Header().Get("X-RateLimit-Limit") != "2" {
		t.Errorf("Expected X-RateLimit-Limit 2, got %q", first.Header().Get("X-RateLimit-Limit"))
	}
	if first.Header().Get("X-RateLimit-Remaining") != "1" {
		t.Errorf("Expected X-RateLimit-Remaining 1, got %q", first.Header().Get("X-RateLimit-Remaining"))
	}

	do()

	third := do()
	if third.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", third.Code)
	}
}
