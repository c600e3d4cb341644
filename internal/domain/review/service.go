package review

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glowcart/storefront/internal/domain/product"
	"github.com/glowcart/storefront/internal/notify"
)

// Products is the product access the review service needs.
type Products interface {
	GetByID(ctx context.Context, id string) (*product.Product, error)
	RatingWriter
}

// Auditor records moderation actions.
type Auditor interface {
	Record(ctx context.Context, actorID, action, details string)
}

// Notifier dispatches events.
type Notifier interface {
	Dispatch(ctx context.Context, e notify.Event)
}

// Patch holds the moderator-editable fields of a review. Nil fields are left
// unchanged.
type Patch struct {
	Rating     *int
	Title      *string
	Comment    *string
	Recommend  *bool
	AdminReply *string
}

// Service handles review writes and keeps product ratings in sync with them.
type Service struct {
	reviews    Repository
	products   Products
	aggregator *Aggregator
	audit      Auditor
	notifier   Notifier
	now        func() time.Time
}

// NewService creates a review Service.
func NewService(reviews Repository, products Products, audit Auditor, notifier Notifier) *Service {
	return &Service{
		reviews:    reviews,
		products:   products,
		aggregator: NewAggregator(reviews, products),
		audit:      audit,
		notifier:   notifier,
		now:        time.Now,
	}
}

// Create stores a new review by r.UserID and refreshes the product rating.
func (s *Service) Create(ctx context.Context, r *Review) error {
	if !ValidRating(r.Rating) {
		return ErrInvalidRating
	}
	p, err := s.products.GetByID(ctx, r.ProductID)
	if err != nil {
		return errors.Wrapf(err, "get product %s", r.ProductID)
	}

	now := s.now().UTC()
	r.ID = uuid.NewString()
	r.CreatedAt = now
	r.UpdatedAt = now
	if err := s.reviews.Create(ctx, r); err != nil {
		return errors.Wrap(err, "create review")
	}

	s.refreshRating(ctx, r.ProductID)
	if s.notifier != nil {
		s.notifier.Dispatch(ctx, notify.Event{
			Type:    notify.TypeAdminNewReview,
			Message: fmt.Sprintf("New %d-star review on %s", r.Rating, p.Title),
			Data:    map[string]string{"productId": r.ProductID, "reviewId": r.ID},
		})
	}
	return nil
}

// Get returns a single review.
func (s *Service) Get(ctx context.Context, id string) (*Review, error) {
	return s.reviews.GetByID(ctx, id)
}

// List returns every review.
func (s *Service) List(ctx context.Context) ([]Review, error) {
	return s.reviews.List(ctx)
}

// ListByProduct returns the reviews of one product.
func (s *Service) ListByProduct(ctx context.Context, productID string) ([]Review, error) {
	return s.reviews.ListByProduct(ctx, productID)
}

// Update applies a moderator patch and refreshes the product rating.
func (s *Service) Update(ctx context.Context, id string, patch Patch, actorID string) (*Review, error) {
	if patch.Rating != nil && !ValidRating(*patch.Rating) {
		return nil, ErrInvalidRating
	}
	r, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get review %s", id)
	}

	if patch.Rating != nil {
		r.Rating = *patch.Rating
	}
	if patch.Title != nil {
		r.Title = *patch.Title
	}
	if patch.Comment != nil {
		r.Comment = *patch.Comment
	}
	if patch.Recommend != nil {
		r.Recommend = *patch.Recommend
	}
	if patch.AdminReply != nil {
		r.AdminReply = *patch.AdminReply
	}
	r.UpdatedAt = s.now().UTC()

	if err := s.reviews.Update(ctx, r); err != nil {
		return nil, errors.Wrapf(err, "update review %s", id)
	}
	s.refreshRating(ctx, r.ProductID)
	s.record(ctx, actorID, "Review Moderation", fmt.Sprintf("review %s on product %s updated", id, r.ProductID))
	return r, nil
}

// Delete removes a review and refreshes the product rating.
func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	r, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "get review %s", id)
	}
	if err := s.reviews.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "delete review %s", id)
	}
	s.refreshRating(ctx, r.ProductID)
	s.record(ctx, actorID, "Review Deletion", fmt.Sprintf("review %s on product %s deleted", id, r.ProductID))
	return nil
}

// refreshRating recomputes the product rating after a committed write. The
// write has already succeeded, so failures are only logged.
func (s *Service) refreshRating(ctx context.Context, productID string) {
	if _, err := s.aggregator.Recompute(ctx, productID); err != nil {
		zctx.From(ctx).Warn("Recompute product rating",
			zap.String("product_id", productID),
			zap.Error(err),
		)
	}
}

func (s *Service) record(ctx context.Context, actorID, action, details string) {
	if s.audit != nil {
		s.audit.Record(ctx, actorID, action, details)
	}
}
