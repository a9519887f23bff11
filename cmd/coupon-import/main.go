// Command coupon-import bulk loads coupon definitions from NDJSON files.
//
//	coupon-import -readers 4 coupons-1.ndjson.gz coupons-2.ndjson.gz
package main

import (
	"context"
	"flag"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	appkg "github.com/Devanshprabhakar24/Scatch/internal/app"
	"github.com/Devanshprabhakar24/Scatch/internal/couponimport"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
)

func main() {
	var opts couponimport.Options
	flag.IntVar(&opts.Readers, "readers", 4, "files decoded concurrently")
	flag.UintVar(&opts.ExpectedCodes, "expected-codes", 1_000_000, "expected number of distinct codes")
	flag.Float64Var(&opts.FalsePositiveRate, "fpr", 1e-6, "duplicate filter false positive rate")
	flag.Parse()
	paths := flag.Args()

	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		if len(paths) == 0 {
			return errors.New("no input files: pass one or more NDJSON paths")
		}
		ctx = zctx.Base(ctx, lg)
		cfg, err := appkg.LoadEnvConfig()
		if err != nil {
			return err
		}
		repos, err := appkg.OpenStorage(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = repos.Close(context.Background()) }()

		start := time.Now()
		im := couponimport.New(coupon.NewService(repos.Coupons, cfg.Coupon.Domain()), opts)
		stats, err := im.ImportFiles(ctx, paths)
		lg.Info("Coupon import finished",
			zap.Duration("took", time.Since(start)),
			zap.Int64("records", stats.Records),
			zap.Int64("created", stats.Created),
			zap.Int64("duplicates", stats.Duplicates),
			zap.Int64("existing", stats.Existing),
			zap.Int64("invalid", stats.Invalid),
			zap.Int64("malformed", stats.Malformed),
		)
		return err
	})
}
