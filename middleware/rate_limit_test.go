package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func TestMemoryWindowResetsAfterWindow(t *testing.T) {
	window := newMemoryWindow()
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		allowed, remaining, _, _ := window.allow(ctx, "k", 3, time.Minute, start.Add(time.Duration(i)*time.Second))
		if !allowed || remaining != 2-i {
			t.Fatalf("request %d: allowed=%v remaining=%d", i, allowed, remaining)
		}
	}

	allowed, _, reset, _ := window.allow(ctx, "k", 3, time.Minute, start.Add(10*time.Second))
	if allowed {
		t.Fatal("fourth request allowed")
	}
	if !reset.Equal(start.Add(time.Minute)) {
		t.Errorf("unexpected reset time %s", reset)
	}

	allowed, _, _, _ = window.allow(ctx, "k", 3, time.Minute, start.Add(time.Minute))
	if !allowed {
		t.Error("request in the next window refused")
	}
}

func TestMemoryWindowEvictsIdleKeys(t *testing.T) {
	window := newMemoryWindow()
	ctx := context.Background()
	start := time.Now()

	window.allow(ctx, "a", 1, time.Minute, start)
	window.allow(ctx, "b", 1, time.Minute, start.Add(2*time.Minute))

	if _, ok := window.windows["a"]; ok {
		t.Error("expired window for a was kept")
	}
}

func TestRedisWindowSlides(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	window := &redisWindow{client: client}
	ctx := context.Background()
	start := time.Now()

	for i := 0; i < 2; i++ {
		allowed, _, _, err := window.allow(ctx, "rl:k", 2, time.Minute, start.Add(time.Duration(i)*time.Millisecond))
		if err != nil || !allowed {
			t.Fatalf("request %d: allowed=%v err=%v", i, allowed, err)
		}
	}

	allowed, remaining, _, err := window.allow(ctx, "rl:k", 2, time.Minute, start.Add(time.Second))
	if err != nil || allowed || remaining != 0 {
		t.Fatalf("third request: allowed=%v remaining=%d err=%v", allowed, remaining, err)
	}

	// The refused request is not counted against the window.
	if n, _ := client.ZCard(ctx, "rl:k").Result(); n != 2 {
		t.Errorf("expected 2 entries in window, got %d", n)
	}

	allowed, _, _, err = window.allow(ctx, "rl:k", 2, time.Minute, start.Add(61*time.Second))
	if err != nil || !allowed {
		t.Errorf("request after the window slid: allowed=%v err=%v", allowed, err)
	}
}

func TestRateLimiterFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	router := gin.New()
	router.Use(SOSRateLimit(client, "sos", 1, 1))
	router.GET("/sos", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sos?userId=u1", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d refused while limiter was down: %d", i, w.Code)
		}
	}
}

func TestRateLimiterDisabledWithZeroLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(SOSRateLimit(nil, "sos", 0, 1))
	router.GET("/sos", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sos", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d refused: %d", i, w.Code)
		}
	}
}
