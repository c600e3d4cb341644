package main

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/glowcart/storefront/internal/domain/coupon"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	numColumns    = 6
)

// Upserter stores coupons keyed by code.
type Upserter interface {
	Upsert(ctx context.Context, c *coupon.Coupon) error
}

// Stats summarises an import run.
type Stats struct {
	Rows       int
	Invalid    int
	Duplicates int
	Written    int
}

// fileCodes holds the coupons parsed from one file together with the set of
// its codes.
type fileCodes struct {
	path    string
	coupons []coupon.Coupon
	filter  *bloom.BloomFilter
	exact   map[string]struct{}
	invalid int
	dups    int
}

// seen reports whether code occurs in f. The bloom filter rejects most
// misses without touching the exact set.
func (f *fileCodes) seen(code string) bool {
	if !f.filter.TestString(code) {
		return false
	}
	_, ok := f.exact[code]
	return ok
}

// Importer loads coupon CSV files into a store.
type Importer struct {
	Store   Upserter
	Workers int
	Now     func() time.Time
}

// Run parses files concurrently, drops codes that an earlier file (or an
// earlier row of the same file) already defined, and upserts the rest.
func (im *Importer) Run(ctx context.Context, files []string) (Stats, error) {
	parsed := make([]*fileCodes, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			fc, err := im.readFile(gctx, path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			parsed[i] = fc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	var (
		st    Stats
		batch []coupon.Coupon
	)
	for i, fc := range parsed {
		st.Invalid += fc.invalid
		st.Duplicates += fc.dups
		st.Rows += fc.invalid + fc.dups + len(fc.coupons)
	next:
		for _, c := range fc.coupons {
			for _, earlier := range parsed[:i] {
				if earlier.seen(c.Code) {
					st.Duplicates++
					continue next
				}
			}
			batch = append(batch, c)
		}
	}

	if err := im.write(ctx, batch); err != nil {
		return st, err
	}
	st.Written = len(batch)
	return st, nil
}

func (im *Importer) readFile(ctx context.Context, path string) (*fileCodes, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	fc, err := im.parse(ctx, path, gz)
	if err != nil {
		return nil, err
	}
	slog.Info("parsed file",
		slog.String("path", path),
		slog.Int("coupons", len(fc.coupons)),
		slog.Int("invalid", fc.invalid),
	)
	return fc, nil
}

// parse reads code,type,value,minAmount,maxDiscount,expiresAt rows. A
// leading header row is skipped. Rows repeating a code already read from the
// same file are dropped.
func (im *Importer) parse(ctx context.Context, path string, r io.Reader) (*fileCodes, error) {
	fc := &fileCodes{
		path:   path,
		filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		exact:  make(map[string]struct{}),
	}
	now := im.Now().UTC()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numColumns
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			fc.invalid++
			slog.Warn("skipping malformed row", slog.String("path", path), slog.Int("line", line), slog.String("error", err.Error()))
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "read csv")
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "code") {
			continue
		}

		c, err := parseRow(rec, now)
		if err != nil {
			fc.invalid++
			slog.Warn("skipping invalid row", slog.String("path", path), slog.Int("line", line), slog.String("error", err.Error()))
			continue
		}
		if fc.seen(c.Code) {
			fc.dups++
			continue
		}
		fc.filter.AddString(c.Code)
		fc.exact[c.Code] = struct{}{}
		fc.coupons = append(fc.coupons, c)
	}
	return fc, nil
}

func parseRow(rec []string, now time.Time) (coupon.Coupon, error) {
	field := func(i int) string { return strings.TrimSpace(rec[i]) }

	c := coupon.Coupon{
		ID:           uuid.NewString(),
		Code:         coupon.NormalizeCode(rec[0]),
		DiscountType: coupon.DiscountType(strings.ToLower(field(1))),
		MinAmount:    decimal.Zero,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if c.Code == "" {
		return c, errors.New("code is required")
	}
	if !c.DiscountType.Valid() {
		return c, errors.Errorf("unknown discount type %q", field(1))
	}

	var err error
	if c.DiscountValue, err = decimal.NewFromString(field(2)); err != nil || !c.DiscountValue.IsPositive() {
		return c, errors.Errorf("invalid value %q", field(2))
	}
	if c.DiscountType == coupon.DiscountPercentage && c.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return c, errors.Errorf("percentage %s exceeds 100", c.DiscountValue)
	}
	if v := field(3); v != "" {
		if c.MinAmount, err = decimal.NewFromString(v); err != nil || c.MinAmount.IsNegative() {
			return c, errors.Errorf("invalid minAmount %q", v)
		}
	}
	if v := field(4); v != "" {
		capAmount, err := decimal.NewFromString(v)
		if err != nil || !capAmount.IsPositive() {
			return c, errors.Errorf("invalid maxDiscount %q", v)
		}
		c.MaxDiscount = decimal.NewNullDecimal(capAmount)
	}
	if c.ExpiresAt, err = parseExpiry(field(5)); err != nil {
		return c, err
	}
	return c, nil
}

// parseExpiry accepts an RFC 3339 timestamp or a date, which expires at the
// end of that day in UTC.
func parseExpiry(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	d, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid expiresAt %q", v)
	}
	return d.Add(24*time.Hour - time.Second), nil
}

func (im *Importer) write(ctx context.Context, coupons []coupon.Coupon) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(im.Workers, 1))
	for i := range coupons {
		c := &coupons[i]
		g.Go(func() error {
			if err := im.Store.Upsert(ctx, c); err != nil {
				return errors.Wrapf(err, "upsert coupon %s", c.Code)
			}
			return nil
		})
	}
	return g.Wait()
}
