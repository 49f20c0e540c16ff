package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/coupon"
	"storefront/internal/database"
	"storefront/internal/repository"

	"github.com/joho/godotenv"
)

// couponimport upserts one or more gzipped CODE,discount,quantity files into
// the coupons table. With S3 enabled each name is first read from the bucket
// under the configured prefix, falling back to the local path.
//
//	couponimport [-batch 500] data/coupons/catalogue.csv.gz [more.csv.gz ...]
func main() {
	_ = godotenv.Load()

	batch := flag.Int("batch", coupon.DefaultBatchSize, "rows per upsert transaction")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: couponimport [-batch N] FILE...")
		os.Exit(2)
	}

	if err := run(*batch, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(batch int, files []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	fileLoader := coupon.NewFileLoader(logger)
	var s3Loader coupon.Loader
	if cfg.S3.Enabled {
		s3Loader, err = coupon.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		}
	} else {
		logger.Info().Msg("using local file system for coupon files (S3 disabled)")
	}
	loader := coupon.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, cfg.S3.Enabled, logger)

	importer := coupon.NewImporter(loader, repository.NewCouponRepository(pool, logger), batch, logger)
	result, err := importer.Import(ctx, files...)
	if err != nil {
		return err
	}

	fmt.Printf("imported %d coupons from %d file(s), %d duplicate rows\n",
		result.Upserted, result.Files, result.Duplicates)
	return nil
}
