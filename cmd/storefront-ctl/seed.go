package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/glowcart/storefront/db"
	"github.com/glowcart/storefront/internal/domain/coupon"
	"github.com/glowcart/storefront/internal/domain/product"
)

type productJSON struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Slug        string              `json:"slug"`
	Description string              `json:"description"`
	Images      []string            `json:"images"`
	Price       decimal.Decimal     `json:"price"`
	SalePrice   decimal.NullDecimal `json:"salePrice"`
	Stock       int                 `json:"stock"`
	Tags        []string            `json:"tags"`
	IsFeatured  bool                `json:"isFeatured"`
}

// seedCoupons are the promotions every fresh store starts with.
var seedCoupons = []coupon.Coupon{
	{
		Code:          "WELCOME10",
		DiscountType:  coupon.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		MinAmount:     decimal.Zero,
		MaxDiscount:   decimal.NewNullDecimal(decimal.NewFromInt(50)),
	},
	{
		Code:          "FIVEOFF",
		DiscountType:  coupon.DiscountFixed,
		DiscountValue: decimal.NewFromInt(5),
		MinAmount:     decimal.NewFromInt(25),
	},
}

func newSeedCmd(c *cli) *cobra.Command {
	var productsFile string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load catalog products and default coupons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var catalog io.Reader = bytes.NewReader(db.SeedProducts)
			if productsFile != "" {
				f, err := os.Open(productsFile)
				if err != nil {
					return errors.Wrap(err, "open products file")
				}
				defer func() { _ = f.Close() }()
				catalog = f
			}

			return c.withStore(cmd, func(ctx context.Context, s *store) error {
				now := time.Now().UTC()
				if err := seedProducts(ctx, s.Products, catalog, now); err != nil {
					return errors.Wrap(err, "seed products")
				}
				if err := upsertSeedCoupons(ctx, s.Coupons, now); err != nil {
					return errors.Wrap(err, "seed coupons")
				}
				slog.Info("seed completed successfully")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&productsFile, "products-file", "", "path to products JSON file (default: built-in catalog)")
	return cmd
}

// seedProducts creates the products listed in r, updating the ones whose id
// already exists.
func seedProducts(ctx context.Context, repo product.Repository, r io.Reader, now time.Time) error {
	var items []productJSON
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}
	slog.Info("upserting products", slog.Int("count", len(items)))

	for _, it := range items {
		if it.ID == "" || it.Title == "" || it.Slug == "" {
			return errors.Errorf("product %q: id, title and slug are required", it.ID)
		}
		if !product.ValidPrice(it.Price) || (it.SalePrice.Valid && !product.ValidPrice(it.SalePrice.Decimal)) {
			return errors.Errorf("product %q: prices must be non-negative with at most %d decimals", it.ID, product.PriceScale)
		}
		if it.Stock < 0 || it.Stock > product.MaxStock {
			return errors.Errorf("product %q: stock must be between 0 and %d", it.ID, product.MaxStock)
		}
		p := &product.Product{
			ID:          it.ID,
			Title:       it.Title,
			Slug:        it.Slug,
			Description: it.Description,
			Images:      it.Images,
			Price:       it.Price,
			SalePrice:   it.SalePrice,
			Stock:       it.Stock,
			Tags:        it.Tags,
			IsFeatured:  it.IsFeatured,
			Status:      product.StatusActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		existing, err := repo.GetByID(ctx, p.ID)
		switch {
		case errors.Is(err, product.ErrNotFound):
			err = repo.Create(ctx, p)
		case err == nil:
			p.CreatedAt = existing.CreatedAt
			if err = repo.Update(ctx, p); err == nil && it.Stock != p.Stock {
				_, err = repo.Restock(ctx, p.ID, it.Stock-p.Stock)
			}
		}
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("title", p.Title))
	}
	return nil
}

func upsertSeedCoupons(ctx context.Context, repo coupon.Repository, now time.Time) error {
	for _, c := range seedCoupons {
		c.ID = uuid.NewString()
		c.IsActive = true
		c.ExpiresAt = now.AddDate(1, 0, 0)
		c.CreatedAt = now
		c.UpdatedAt = now
		if err := repo.Upsert(ctx, &c); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}
		slog.Info("upserted coupon", slog.String("code", c.Code))
	}
	return nil
}
