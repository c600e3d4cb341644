// Package stats computes dashboard figures from orders and products.
package stats

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/glowcart/storefront/internal/domain/order"
	"github.com/glowcart/storefront/internal/domain/product"
)

// ErrInvalidFilter is returned for an unknown progress filter.
var ErrInvalidFilter = errors.New("filter must be one of day, month, year")

// Orders lists every order.
type Orders interface {
	List(ctx context.Context) ([]order.Order, error)
}

// Products lists catalog products.
type Products interface {
	List(ctx context.Context, f product.Filter) ([]product.Product, error)
}

// Dashboard is the admin overview. Revenue figures include delivered orders
// only.
type Dashboard struct {
	TotalOrders   int
	TotalProducts int
	TotalRevenue  decimal.Decimal
	AvgOrderValue decimal.Decimal
	// RevenueTrend and OrdersTrend compare the current calendar month with
	// the previous one, in percent.
	RevenueTrend float64
	OrdersTrend  float64
}

// Point is one bucket of a revenue series.
type Point struct {
	Label   string
	Revenue decimal.Decimal
	Orders  int
}

// Filter selects the bucket size of a progress series.
type Filter string

const (
	FilterDay   Filter = "day"
	FilterMonth Filter = "month"
	FilterYear  Filter = "year"
)

// Service computes statistics.
type Service struct {
	orders   Orders
	products Products
	now      func() time.Time
}

// NewService creates a stats Service.
func NewService(orders Orders, products Products) *Service {
	return &Service{orders: orders, products: products, now: time.Now}
}

// Dashboard returns totals and month-over-month trends.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	products, err := s.products.List(ctx, product.Filter{})
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}

	now := s.now().UTC()
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonth := thisMonth.AddDate(0, -1, 0)

	d := &Dashboard{
		TotalOrders:   len(orders),
		TotalProducts: len(products),
		TotalRevenue:  decimal.Zero,
		AvgOrderValue: decimal.Zero,
	}
	curRevenue, prevRevenue := decimal.Zero, decimal.Zero
	var delivered, curOrders, prevOrders int
	for _, o := range orders {
		inCur := !o.CreatedAt.Before(thisMonth)
		inPrev := !inCur && !o.CreatedAt.Before(lastMonth)
		switch {
		case inCur:
			curOrders++
		case inPrev:
			prevOrders++
		}

		if o.Status != order.StatusDelivered {
			continue
		}
		delivered++
		d.TotalRevenue = d.TotalRevenue.Add(o.TotalAmount)
		switch {
		case inCur:
			curRevenue = curRevenue.Add(o.TotalAmount)
		case inPrev:
			prevRevenue = prevRevenue.Add(o.TotalAmount)
		}
	}
	if delivered > 0 {
		d.AvgOrderValue = d.TotalRevenue.Div(decimal.NewFromInt(int64(delivered))).Round(2)
	}
	d.TotalRevenue = d.TotalRevenue.Round(2)
	d.RevenueTrend = trend(curRevenue.InexactFloat64(), prevRevenue.InexactFloat64())
	d.OrdersTrend = trend(float64(curOrders), float64(prevOrders))
	return d, nil
}

// trend returns the percent change from prev to cur, rounded to one decimal.
// Growth from zero counts as 100%.
func trend(cur, prev float64) float64 {
	if prev == 0 {
		if cur > 0 {
			return 100
		}
		return 0
	}
	pct := (cur - prev) / prev * 100
	return decimal.NewFromFloat(pct).Round(1).InexactFloat64()
}

// Progress returns a delivered-revenue series: the last 7 days, the 12 months
// of the current year, or the last 5 years.
func (s *Service) Progress(ctx context.Context, f Filter) ([]Point, error) {
	now := s.now().UTC()
	var (
		points []Point
		bucket func(t time.Time) string
	)
	switch f {
	case FilterDay:
		bucket = func(t time.Time) string { return t.Format(time.DateOnly) }
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		for i := 6; i >= 0; i-- {
			points = append(points, Point{Label: today.AddDate(0, 0, -i).Format(time.DateOnly)})
		}
	case FilterMonth:
		bucket = func(t time.Time) string {
			if t.Year() != now.Year() {
				return ""
			}
			return t.Month().String()[:3]
		}
		for m := time.January; m <= time.December; m++ {
			points = append(points, Point{Label: m.String()[:3]})
		}
	case FilterYear:
		bucket = func(t time.Time) string { return t.Format("2006") }
		for y := now.Year() - 4; y <= now.Year(); y++ {
			points = append(points, Point{Label: time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")})
		}
	default:
		return nil, ErrInvalidFilter
	}

	index := make(map[string]int, len(points))
	for i := range points {
		points[i].Revenue = decimal.Zero
		index[points[i].Label] = i
	}

	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	for _, o := range orders {
		if o.Status != order.StatusDelivered {
			continue
		}
		i, ok := index[bucket(o.CreatedAt.UTC())]
		if !ok {
			continue
		}
		points[i].Revenue = points[i].Revenue.Add(o.TotalAmount)
		points[i].Orders++
	}
	return points, nil
}
