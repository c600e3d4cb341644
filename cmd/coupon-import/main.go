// Command coupon-import bulk loads promotion codes from gzip-compressed CSV
// files.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-faster/errors"

	"github.com/glowcart/storefront/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		databaseURL string
		workers     int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.csv.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&workers, "workers", 8, "concurrent database writers")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, workers); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		cancel()
		os.Exit(1)
	}

	slog.Info("coupon import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, workers int) error {
	files, err := listFiles(dataDir)
	if err != nil {
		return err
	}
	slog.Info("importing coupons", slog.Int("files", len(files)))

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	im := &Importer{
		Store:   postgres.NewCouponRepository(pool),
		Workers: workers,
		Now:     time.Now,
	}
	st, err := im.Run(ctx, files)
	if err != nil {
		return err
	}
	slog.Info("import finished",
		slog.Int("rows", st.Rows),
		slog.Int("invalid", st.Invalid),
		slog.Int("duplicates", st.Duplicates),
		slog.Int("written", st.Written),
	)
	return nil
}

// listFiles returns the *.csv.gz files of dir in name order, which is also
// the precedence order for duplicate codes.
func listFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.csv.gz"))
	if err != nil {
		return nil, errors.Wrap(err, "list files")
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no *.csv.gz files in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}
