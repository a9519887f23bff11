// Command seed-db loads the demo catalog, demo coupons and an owner API key
// into the configured store.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/Devanshprabhakar24/Scatch/db"
	appkg "github.com/Devanshprabhakar24/Scatch/internal/app"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/product"
	"github.com/Devanshprabhakar24/Scatch/internal/seed"
)

func main() {
	var (
		productsFile string
		apiKey       string
		skipCoupons  bool
	)
	flag.StringVar(&productsFile, "products-file", "", "products JSON file (default: embedded catalog)")
	flag.StringVar(&apiKey, "api-key", os.Getenv("SCATCH_SEED_API_KEY"), "owner API key to store, generated when empty")
	flag.BoolVar(&skipCoupons, "skip-coupons", false, "do not create demo coupons")
	flag.Parse()

	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		ctx = zctx.Base(ctx, lg)
		cfg, err := appkg.LoadEnvConfig()
		if err != nil {
			return err
		}

		data := db.SeedProducts
		if productsFile != "" {
			if data, err = os.ReadFile(productsFile); err != nil {
				return errors.Wrap(err, "read products file")
			}
		}
		items, err := seed.DecodeProducts(data)
		if err != nil {
			return err
		}

		repos, err := appkg.OpenStorage(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = repos.Close(context.Background()) }()

		n, err := seed.Products(ctx, product.NewService(repos.Products), items)
		if err != nil {
			return errors.Wrap(err, "seed products")
		}
		lg.Info("Products seeded", zap.Int("created", n), zap.Int("total", len(items)))

		if !skipCoupons {
			svc := coupon.NewService(repos.Coupons, cfg.Coupon.Domain())
			n, err := seed.Coupons(ctx, svc, seed.DemoCoupons(time.Now().UTC()))
			if err != nil {
				return errors.Wrap(err, "seed coupons")
			}
			lg.Info("Coupons seeded", zap.Int("created", n))
		}

		raw, err := seed.APIKey(ctx, repos.APIKeys, []byte(cfg.APIKeyPepper), "owner", apiKey)
		if err != nil {
			return errors.Wrap(err, "seed api key")
		}
		if apiKey == "" {
			lg.Warn("Generated owner API key, store it now", zap.String("api_key", raw))
		} else {
			lg.Info("Owner API key stored")
		}
		return nil
	})
}
