package app

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/glowcart/storefront/internal/domain/audit"
	"github.com/glowcart/storefront/internal/domain/auth"
	"github.com/glowcart/storefront/internal/domain/category"
	"github.com/glowcart/storefront/internal/domain/coupon"
	"github.com/glowcart/storefront/internal/domain/order"
	"github.com/glowcart/storefront/internal/domain/product"
	"github.com/glowcart/storefront/internal/domain/review"
	"github.com/glowcart/storefront/internal/domain/support"
	"github.com/glowcart/storefront/internal/storage/memory"
	"github.com/glowcart/storefront/internal/storage/postgres"
	"github.com/glowcart/storefront/pkg/health"
)

// Store groups the repositories of one storage backend.
type Store struct {
	Products   product.Repository
	Categories category.Repository
	Coupons    coupon.Repository
	Orders     order.Repository
	Reviews    review.Repository
	Tickets    support.Repository
	Audit      audit.Repository
	APIKeys    auth.Repository

	Pinger health.Pinger
	Close  func()
}

// OpenStore connects to the configured backend. PostgreSQL schemas are
// migrated before the store is returned.
func OpenStore(ctx context.Context, cfg *Config) (*Store, error) {
	switch cfg.Storage {
	case StorageMemory:
		zctx.From(ctx).Warn("Using in-memory storage, data is lost on restart")
		db := memory.New()
		return &Store{
			Products:   db.Products(),
			Categories: db.Categories(),
			Coupons:    db.Coupons(),
			Orders:     db.Orders(),
			Reviews:    db.Reviews(),
			Tickets:    db.Tickets(),
			Audit:      db.Audit(),
			APIKeys:    db.APIKeys(),
			Pinger:     db,
			Close:      func() {},
		}, nil
	case StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		zctx.From(ctx).Info("Connected to PostgreSQL", zap.Int32("max_conns", pool.Config().MaxConns))
		return &Store{
			Products:   postgres.NewProductRepository(pool),
			Categories: postgres.NewCategoryRepository(pool),
			Coupons:    postgres.NewCouponRepository(pool),
			Orders:     postgres.NewOrderRepository(pool),
			Reviews:    postgres.NewReviewRepository(pool),
			Tickets:    postgres.NewTicketRepository(pool),
			Audit:      postgres.NewAuditRepository(pool),
			APIKeys:    postgres.NewAPIKeyRepository(pool),
			Pinger:     pool,
			Close:      pool.Close,
		}, nil
	default:
		return nil, errors.Errorf("unknown storage %q", cfg.Storage)
	}
}
