package review

import (
	"context"

	"github.com/go-faster/errors"
)

// RatingWriter stores the aggregate rating of a product.
type RatingWriter interface {
	UpdateRating(ctx context.Context, productID string, rating float64, totalReviews int) error
}

// Rating is the aggregate of all reviews of a product.
type Rating struct {
	Average float64
	Count   int
}

// Aggregate computes the arithmetic mean and count of reviews. No reviews
// yields the zero Rating.
func Aggregate(reviews []Review) Rating {
	if len(reviews) == 0 {
		return Rating{}
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return Rating{
		Average: float64(sum) / float64(len(reviews)),
		Count:   len(reviews),
	}
}

// Aggregator recomputes product ratings from scratch.
type Aggregator struct {
	reviews  Repository
	products RatingWriter
}

// NewAggregator creates an Aggregator.
func NewAggregator(reviews Repository, products RatingWriter) *Aggregator {
	return &Aggregator{reviews: reviews, products: products}
}

// Recompute reads every review of productID and overwrites the product's
// rating and review count.
func (a *Aggregator) Recompute(ctx context.Context, productID string) (Rating, error) {
	reviews, err := a.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return Rating{}, errors.Wrap(err, "list reviews")
	}
	r := Aggregate(reviews)
	if err := a.products.UpdateRating(ctx, productID, r.Average, r.Count); err != nil {
		return Rating{}, errors.Wrap(err, "update rating")
	}
	return r, nil
}
