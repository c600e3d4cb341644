package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/glowcart/storefront/internal/domain/audit"
	"github.com/glowcart/storefront/internal/domain/auth"
	"github.com/glowcart/storefront/internal/domain/product"
	"github.com/glowcart/storefront/internal/domain/review"
)

func newAPIKeyCmd(c *cli) *cobra.Command {
	var (
		name string
		role string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key and print it once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.pepper == "" {
				return errors.New("api key pepper is required: set --api-key-pepper or STOREFRONT_API_KEY_PEPPER")
			}
			r := auth.Role(role)
			if !r.Valid() {
				return errors.Errorf("unknown role %q", role)
			}
			return c.withStore(cmd, func(ctx context.Context, s *store) error {
				raw, err := createAPIKey(ctx, s.APIKeys, []byte(c.pepper), name, r)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), raw)
				return err
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name of the key owner")
	create.Flags().StringVar(&role, "role", string(auth.RoleCustomer), "admin or customer")
	_ = create.MarkFlagRequired("name")

	cmd := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	cmd.AddCommand(create)
	return cmd
}

func createAPIKey(ctx context.Context, repo auth.Repository, pepper []byte, name string, role auth.Role) (string, error) {
	raw, err := auth.GenerateKey()
	if err != nil {
		return "", err
	}
	k := &auth.APIKey{
		ID:        uuid.NewString(),
		KeyHash:   auth.HashKey(pepper, raw),
		Name:      name,
		Role:      role,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, k); err != nil {
		return "", errors.Wrap(err, "store api key")
	}
	slog.Info("created API key", slog.String("id", k.ID), slog.String("name", name), slog.String("role", string(role)))
	return raw, nil
}

func newRestockCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "restock <product-id> <quantity>",
		Short: "Add units to a product's stock",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil || qty <= 0 {
				return errors.Errorf("quantity must be a positive integer, got %q", args[1])
			}
			return c.withStore(cmd, func(ctx context.Context, s *store) error {
				stock, err := s.Products.Restock(ctx, args[0], qty)
				if err != nil {
					return errors.Wrapf(err, "restock %s", args[0])
				}
				slog.Info("restocked product", slog.String("id", args[0]), slog.Int("stock", stock))
				_, err = fmt.Fprintln(cmd.OutOrStdout(), stock)
				return err
			})
		},
	}
}

func newAuditCmd(c *cli) *cobra.Command {
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Print recent audit entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(cmd, func(ctx context.Context, s *store) error {
				entries, err := s.Audit.List(ctx, limit)
				if err != nil {
					return errors.Wrap(err, "list audit entries")
				}
				return printAudit(cmd.OutOrStdout(), entries)
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", audit.DefaultListLimit, "number of entries")

	cmd := &cobra.Command{Use: "audit", Short: "Inspect the audit log"}
	cmd.AddCommand(list)
	return cmd
}

func printAudit(w io.Writer, entries []audit.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TIME\tACTOR\tACTION\tDETAILS")
	for _, e := range entries {
		actor := e.ActorID
		if actor == "" {
			actor = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.CreatedAt.UTC().Format(time.RFC3339), actor, e.Action, e.Details)
	}
	return tw.Flush()
}

func newRatingsCmd(c *cli) *cobra.Command {
	recompute := &cobra.Command{
		Use:   "recompute [product-id]",
		Short: "Rebuild product ratings from their reviews",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd, func(ctx context.Context, s *store) error {
				n, err := recomputeRatings(ctx, s.Products, s.Reviews, args...)
				if err != nil {
					return err
				}
				slog.Info("recomputed ratings", slog.Int("products", n))
				return nil
			})
		},
	}
	cmd := &cobra.Command{Use: "ratings", Short: "Maintain product ratings"}
	cmd.AddCommand(recompute)
	return cmd
}

// recomputeRatings rebuilds the rating of the given products, or of every
// product when ids is empty.
func recomputeRatings(ctx context.Context, products product.Repository, reviews review.Repository, ids ...string) (int, error) {
	if len(ids) == 0 {
		all, err := products.List(ctx, product.Filter{})
		if err != nil {
			return 0, errors.Wrap(err, "list products")
		}
		for _, p := range all {
			ids = append(ids, p.ID)
		}
	}

	agg := review.NewAggregator(reviews, products)
	for _, id := range ids {
		r, err := agg.Recompute(ctx, id)
		if err != nil {
			return 0, errors.Wrapf(err, "recompute %s", id)
		}
		slog.Debug("recomputed rating",
			slog.String("id", id),
			slog.Float64("rating", r.Average),
			slog.Int("reviews", r.Count),
		)
	}
	return len(ids), nil
}
