package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/auth"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/order"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/product"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/user"
	"github.com/Devanshprabhakar24/Scatch/internal/handler"
	"github.com/Devanshprabhakar24/Scatch/internal/storage"
	"github.com/Devanshprabhakar24/Scatch/pkg/health"
	"github.com/Devanshprabhakar24/Scatch/pkg/httpmiddleware"
)

const serviceName = "scatch-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr), zap.String("storage", cfg.Storage))
	ctx = zctx.Base(ctx, lg)

	repos, err := OpenStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repos.Close(closeCtx); err != nil {
			lg.Error("Close storage", zap.Error(err))
		}
	}()

	healthSvc := health.New()
	healthSvc.AddReadinessCheck(cfg.Storage, 5*time.Second, repos.Ping)
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.LastGCPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	api, err := NewAPI(cfg, repos, m)
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           newHTTPHandler(ctx, lg, cfg, api, healthSvc, m),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// NewAPI builds the domain services over repos and returns the HTTP API.
func NewAPI(cfg *Config, repos *storage.Repositories, t httpmiddleware.Telemetry) (*handler.Server, error) {
	coupons := coupon.NewService(repos.Coupons, cfg.Coupon.Domain())
	orders, err := order.NewService(
		repos.Orders, repos.Products, repos.Users, coupons, repos.Tx,
		cfg.Order,
		order.WithTracerProvider(t.TracerProvider()),
		order.WithMeterProvider(t.MeterProvider()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}

	return handler.NewServer(
		handler.Config{
			ImageBaseURL:  cfg.ImageBaseURL,
			SecureCookies: cfg.SecureCookies,
		},
		handler.Services{
			Products: product.NewService(repos.Products),
			Users:    user.NewService(repos.Users, repos.Products),
			Coupons:  coupons,
			Orders:   orders,
			Tokens:   auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL),
			APIKeys:  auth.NewAPIKeyAuthenticator(repos.APIKeys, []byte(cfg.APIKeyPepper)),
		},
	), nil
}

// newHTTPHandler mounts the probes and the API on one mux behind the
// middleware chain.
func newHTTPHandler(
	ctx context.Context,
	lg *zap.Logger,
	cfg *Config,
	api *handler.Server,
	healthSvc *health.Health,
	t httpmiddleware.Telemetry,
) http.Handler {
	routeFinder := httpmiddleware.RouteFinder(api.FindRoute)
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", api)

	return httpmiddleware.Wrap(mux,
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization", "api_key"},
			ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
			Skip:   httpmiddleware.ProbePaths("/livez", "/readyz"),
		}),
		httpmiddleware.Instrument(serviceName, routeFinder, t),
		httpmiddleware.LogRequests(routeFinder),
		httpmiddleware.Labeler(routeFinder),
	)
}
