package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, path string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:9999"
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute})(okHandler())

	for range 2 {
		w := hit(h, "/api/products", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}

	w := hit(h, "/api/products", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, http.StatusTooManyRequests, body.Code)
	assert.Equal(t, "rate limit exceeded", body.Message)

	other := hit(h, "/api/products", func(r *http.Request) { r.RemoteAddr = "10.0.0.2:1" })
	assert.Equal(t, http.StatusOK, other.Code, "clients are limited independently")
}

func TestRateLimit_Skip(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		Skip:   ProbePaths("/livez", "/readyz"),
	})(okHandler())

	for range 5 {
		w := hit(h, "/readyz", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
	assert.Equal(t, http.StatusOK, hit(h, "/api/cart", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "/api/cart", nil).Code)
}

func TestRateLimit_KeyFunc(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:     1,
		Window:  time.Minute,
		KeyFunc: func(r *http.Request) string { return r.Header.Get("api_key") },
	})(okHandler())
	withKey := func(key string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("api_key", key) }
	}

	assert.Equal(t, http.StatusOK, hit(h, "/", withKey("a")).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "/", withKey("a")).Code)
	assert.Equal(t, http.StatusOK, hit(h, "/", withKey("b")).Code)
}

func TestLimiter_SlidingWindow(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 4, Window: time.Minute})
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := range 4 {
		remaining, _, ok := l.take("k", start.Add(time.Duration(i)*time.Second))
		require.True(t, ok)
		assert.Equal(t, 3-i, remaining)
	}
	_, reset, ok := l.take("k", start.Add(30*time.Second))
	assert.False(t, ok)
	assert.Equal(t, start.Add(time.Minute), reset)

	// 15s into the next window, 75% of the previous four still count.
	_, _, ok = l.take("k", start.Add(75*time.Second))
	assert.True(t, ok)
	_, _, ok = l.take("k", start.Add(75*time.Second))
	assert.False(t, ok)

	// Two windows later the history is gone.
	remaining, _, ok := l.take("k", start.Add(3*time.Minute))
	assert.True(t, ok)
	assert.Equal(t, 3, remaining)
}

func TestLimiter_Evict(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l.take("old", start)
	l.take("new", start.Add(2*time.Minute))

	l.evict(start.Add(2*time.Minute + time.Second))
	assert.NotContains(t, l.counters, "old")
	assert.Contains(t, l.counters, "new")
}

func TestClientIP(t *testing.T) {
	for _, tt := range []struct {
		name   string
		header map[string]string
		want   string
	}{
		{name: "RemoteAddr", want: "192.168.1.1"},
		{name: "ForwardedFor", header: map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}, want: "203.0.113.50"},
		{name: "RealIP", header: map[string]string{"X-Real-IP": "198.51.100.7"}, want: "198.51.100.7"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:4444"
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
