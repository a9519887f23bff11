// Command api-server runs the Scatch storefront HTTP API.
package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/Devanshprabhakar24/Scatch/internal/app"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	app.Run(serve)
}

func serve(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
	cfg, err := appkg.LoadConfig()
	if err != nil {
		return errors.Wrap(err, "api-server")
	}
	lg.Info("Starting storefront API",
		zap.String("version", version),
		zap.String("storage", cfg.Storage),
		zap.Bool("secure_cookies", cfg.SecureCookies),
	)
	return appkg.Run(ctx, lg, m, cfg)
}
