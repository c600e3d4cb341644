// Command storefront-ctl runs administrative tasks against the storefront
// database.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/glowcart/storefront/internal/domain/audit"
	"github.com/glowcart/storefront/internal/domain/auth"
	"github.com/glowcart/storefront/internal/domain/coupon"
	"github.com/glowcart/storefront/internal/domain/product"
	"github.com/glowcart/storefront/internal/domain/review"
	"github.com/glowcart/storefront/internal/storage/postgres"
)

// store is the subset of the storefront repositories the commands use.
type store struct {
	Products product.Repository
	Coupons  coupon.Repository
	Reviews  review.Repository
	Audit    audit.Repository
	APIKeys  auth.Repository

	Migrate func(ctx context.Context) error
	Close   func()
}

type opener func(ctx context.Context, databaseURL string) (*store, error)

func openPostgres(ctx context.Context, databaseURL string) (*store, error) {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	return &store{
		Products: postgres.NewProductRepository(pool),
		Coupons:  postgres.NewCouponRepository(pool),
		Reviews:  postgres.NewReviewRepository(pool),
		Audit:    postgres.NewAuditRepository(pool),
		APIKeys:  postgres.NewAPIKeyRepository(pool),
		Migrate: func(ctx context.Context) error {
			return postgres.RunMigrations(ctx, pool)
		},
		Close: pool.Close,
	}, nil
}

type cli struct {
	databaseURL string
	pepper      string
	open        opener
}

// withStore opens the database for the duration of fn.
func (c *cli) withStore(cmd *cobra.Command, fn func(ctx context.Context, s *store) error) error {
	if c.databaseURL == "" {
		c.databaseURL = os.Getenv("DATABASE_URL")
	}
	if c.databaseURL == "" {
		return errors.New("database URL is required: set --database-url or DATABASE_URL")
	}
	ctx := cmd.Context()
	s, err := c.open(ctx, c.databaseURL)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "storefront-ctl",
		Short:         "Administrative tasks for the storefront database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	root.PersistentFlags().StringVar(&c.pepper, "api-key-pepper", os.Getenv("STOREFRONT_API_KEY_PEPPER"), "HMAC pepper for API key hashing")

	root.AddCommand(
		newMigrateCmd(c),
		newSeedCmd(c),
		newAPIKeyCmd(c),
		newRestockCmd(c),
		newAuditCmd(c),
		newRatingsCmd(c),
	)
	return root
}

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(cmd, func(ctx context.Context, s *store) error {
				slog.Info("running migrations")
				return s.Migrate(ctx)
			})
		},
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd := newRootCmd(&cli{open: openPostgres})
	if err := cmd.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		cancel()
		os.Exit(1)
	}
}
