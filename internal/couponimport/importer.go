// Package couponimport bulk loads coupon definitions from NDJSON files,
// optionally gzip compressed.
//
// Files are read concurrently and feed a single writer. A code seen earlier
// in the same run is skipped using a bloom filter, so memory stays flat for
// very large dumps; with the configured false positive rate a small number of
// unique codes may be reported as duplicates.
package couponimport

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
)

const maxLineSize = 1 << 20

// Options tune an Importer. Zero values select defaults.
type Options struct {
	// Readers bounds the number of files decoded at once.
	Readers int
	// ExpectedCodes sizes the duplicate filter.
	ExpectedCodes uint
	// FalsePositiveRate of the duplicate filter.
	FalsePositiveRate float64
	// ProgressEvery logs progress after this many processed records.
	ProgressEvery int64
}

func (o *Options) setDefaults() {
	if o.Readers <= 0 {
		o.Readers = 4
	}
	if o.ExpectedCodes == 0 {
		o.ExpectedCodes = 1_000_000
	}
	if o.FalsePositiveRate <= 0 {
		o.FalsePositiveRate = 1e-6
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = 100_000
	}
}

// Stats summarises an import run.
type Stats struct {
	Records    int64 // non-blank lines read
	Malformed  int64 // lines that are not a valid coupon object
	Created    int64
	Duplicates int64 // repeated within this run
	Existing   int64 // code already stored
	Invalid    int64 // rejected by coupon validation
}

// Importer writes decoded coupons through the coupon service.
type Importer struct {
	coupons *coupon.Service
	opts    Options
}

// New creates an Importer.
func New(coupons *coupon.Service, opts Options) *Importer {
	opts.setDefaults()
	return &Importer{coupons: coupons, opts: opts}
}

type record struct {
	source string
	line   int
	coupon coupon.Coupon
}

// ImportFiles imports every file in paths. Files ending in .gz are
// decompressed. Malformed lines are counted and skipped; I/O and storage
// errors abort the run.
func (im *Importer) ImportFiles(ctx context.Context, paths []string) (Stats, error) {
	var (
		stats     Stats
		records   atomic.Int64
		malformed atomic.Int64
	)
	ch := make(chan record, 1024)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(ch)
		readers, rctx := errgroup.WithContext(gctx)
		readers.SetLimit(im.opts.Readers)
		for _, path := range paths {
			readers.Go(func() error {
				n, bad, err := im.readFile(rctx, path, ch)
				records.Add(n)
				malformed.Add(bad)
				return err
			})
		}
		return readers.Wait()
	})
	g.Go(func() error {
		return im.write(gctx, ch, &stats)
	})
	err := g.Wait()

	stats.Records = records.Load()
	stats.Malformed = malformed.Load()
	return stats, err
}

func (im *Importer) readFile(ctx context.Context, path string, out chan<- record) (n, bad int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.EqualFold(filepath.Ext(path), ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "gzip %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	lg := zctx.From(ctx).With(zap.String("file", path))
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		n++
		c, err := decodeRecord(raw)
		if err != nil {
			bad++
			lg.Warn("Skipping malformed coupon", zap.Int("line", line), zap.Error(err))
			continue
		}
		select {
		case out <- record{source: path, line: line, coupon: c}:
		case <-ctx.Done():
			return n, bad, ctx.Err()
		}
	}
	if err := sc.Err(); err != nil {
		return n, bad, errors.Wrapf(err, "read %s", path)
	}
	lg.Info("File read", zap.Int64("records", n), zap.Int64("malformed", bad))
	return n, bad, nil
}

// write is the single consumer; it owns the filter and stats.
func (im *Importer) write(ctx context.Context, in <-chan record, stats *Stats) error {
	lg := zctx.From(ctx)
	seen := bloom.NewWithEstimates(im.opts.ExpectedCodes, im.opts.FalsePositiveRate)
	cfg := im.coupons.Config()

	var processed int64
	for rec := range in {
		processed++
		if processed%im.opts.ProgressEvery == 0 {
			lg.Info("Import progress",
				zap.Int64("processed", processed),
				zap.Int64("created", stats.Created),
			)
		}

		c := rec.coupon
		code := cfg.NormalizeCode(c.Code)
		if code != "" && seen.TestOrAddString(code) {
			stats.Duplicates++
			continue
		}

		err := im.coupons.Create(ctx, &c)
		switch {
		case err == nil:
			stats.Created++
		case errors.Is(err, coupon.ErrCodeTaken):
			stats.Existing++
		case errors.Is(err, coupon.ErrInvalid):
			stats.Invalid++
			lg.Warn("Skipping invalid coupon",
				zap.String("file", rec.source),
				zap.Int("line", rec.line),
				zap.Error(err),
			)
		default:
			return errors.Wrapf(err, "%s:%d", rec.source, rec.line)
		}
	}
	return nil
}
