package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/order"
	"github.com/Devanshprabhakar24/Scatch/internal/storage"
	"github.com/Devanshprabhakar24/Scatch/pkg/health"
	"github.com/Devanshprabhakar24/Scatch/pkg/httpmiddleware"
)

type noopTelemetry struct{}

func (noopTelemetry) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }
func (noopTelemetry) MeterProvider() metric.MeterProvider  { return metricnoop.NewMeterProvider() }

func testConfig() *Config {
	return &Config{
		Storage:   storage.BackendMemory,
		JWTSecret: "secret",
		TokenTTL:  time.Hour,
		Order:     order.Config{PlatformFee: 20, MaxRefAttempts: 3},
		Coupon:    CouponConfig{UppercaseCodes: true},
		RateLimit: RateLimitConfig{Max: 100, Window: time.Minute},
		CORS:      CORSConfig{Origins: []string{"*"}, AllowCredentials: true},
	}
}

func newTestHandler(t *testing.T, cfg *Config) (http.Handler, *health.Health) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, cfg.Validate())
	repos, err := OpenStorage(ctx, cfg)
	require.NoError(t, err)

	api, err := NewAPI(cfg, repos, noopTelemetry{})
	require.NoError(t, err)

	h := health.New()
	h.AddReadinessCheck(cfg.Storage, time.Second, repos.Ping)
	h.SetReady(true)
	return newHTTPHandler(ctx, zaptest.NewLogger(t), cfg, api, h, noopTelemetry{}), h
}

func serve(h http.Handler, method, target, body string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHTTPHandler_Probes(t *testing.T) {
	h, hs := newTestHandler(t, testConfig())

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/livez", "").Code)
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/readyz", "").Code)

	hs.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, serve(h, http.MethodGet, "/readyz", "").Code)
}

func TestHTTPHandler_API(t *testing.T) {
	h, _ := newTestHandler(t, testConfig())

	w := serve(h, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(httpmiddleware.RequestIDHeader))

	w = serve(h, http.MethodPost, "/api/users/register",
		`{"email":"shopper@example.com","password":"password123","full_name":"Shopper"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = serve(h, http.MethodGet, "/api/users/me", "", "Cookie", cookies[0].Name+"="+cookies[0].Value)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(h, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code":404,"message":"route not found"}`, w.Body.String())
}

func TestHTTPHandler_CORS(t *testing.T) {
	h, _ := newTestHandler(t, testConfig())

	w := serve(h, http.MethodOptions, "/api/cart", "",
		"Origin", "https://shop.example",
		"Access-Control-Request-Method", http.MethodPost,
	)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestHTTPHandler_RateLimitSkipsProbes(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Max = 2
	h, _ := newTestHandler(t, cfg)

	for range 2 {
		require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/products", "").Code)
	}
	w := serve(h, http.MethodGet, "/api/products", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/livez", "").Code)
}
