package stats

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowcart/storefront/internal/domain/order"
	"github.com/glowcart/storefront/internal/domain/product"
)

type stubOrders []order.Order

func (s stubOrders) List(context.Context) ([]order.Order, error) { return s, nil }

type stubProducts []product.Product

func (s stubProducts) List(context.Context, product.Filter) ([]product.Product, error) { return s, nil }

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func newOrder(status order.Status, total string, created time.Time) order.Order {
	return order.Order{Status: status, TotalAmount: decimal.RequireFromString(total), CreatedAt: created}
}

func TestDashboard(t *testing.T) {
	orders := stubOrders{
		newOrder(order.StatusDelivered, "100", at(2025, 6, 3)),
		newOrder(order.StatusDelivered, "50", at(2025, 6, 10)),
		newOrder(order.StatusShipped, "999", at(2025, 6, 11)),
		newOrder(order.StatusCancelled, "999", at(2025, 5, 11)),
		newOrder(order.StatusDelivered, "100", at(2025, 5, 20)),
	}
	svc := NewService(orders, stubProducts{{ID: "p1"}, {ID: "p2"}})
	svc.now = func() time.Time { return at(2025, 6, 15) }

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, d.TotalOrders)
	assert.Equal(t, 2, d.TotalProducts)
	assert.True(t, decimal.RequireFromString("250").Equal(d.TotalRevenue), d.TotalRevenue.String())
	assert.True(t, decimal.RequireFromString("83.33").Equal(d.AvgOrderValue), d.AvgOrderValue.String())
	assert.InDelta(t, 50.0, d.RevenueTrend, 1e-9)
	assert.InDelta(t, 50.0, d.OrdersTrend, 1e-9)
}

func TestDashboard_Empty(t *testing.T) {
	svc := NewService(stubOrders{}, stubProducts{})

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, d.TotalOrders)
	assert.True(t, d.TotalRevenue.IsZero())
	assert.True(t, d.AvgOrderValue.IsZero())
	assert.Zero(t, d.RevenueTrend)
}

func TestProgress(t *testing.T) {
	orders := stubOrders{
		newOrder(order.StatusDelivered, "10", at(2025, 6, 15)),
		newOrder(order.StatusDelivered, "5", at(2025, 6, 14)),
		newOrder(order.StatusPending, "70", at(2025, 6, 14)),
		newOrder(order.StatusDelivered, "20", at(2025, 2, 1)),
		newOrder(order.StatusDelivered, "40", at(2022, 2, 1)),
	}
	svc := NewService(orders, stubProducts{})
	svc.now = func() time.Time { return at(2025, 6, 15) }

	t.Run("day", func(t *testing.T) {
		points, err := svc.Progress(context.Background(), FilterDay)
		require.NoError(t, err)
		require.Len(t, points, 7)
		assert.Equal(t, "2025-06-09", points[0].Label)
		last := points[6]
		assert.Equal(t, "2025-06-15", last.Label)
		assert.True(t, decimal.NewFromInt(10).Equal(last.Revenue))
		assert.Equal(t, 1, points[5].Orders)
	})

	t.Run("month", func(t *testing.T) {
		points, err := svc.Progress(context.Background(), FilterMonth)
		require.NoError(t, err)
		require.Len(t, points, 12)
		assert.Equal(t, "Feb", points[1].Label)
		assert.True(t, decimal.NewFromInt(20).Equal(points[1].Revenue))
		assert.True(t, decimal.NewFromInt(15).Equal(points[5].Revenue))
	})

	t.Run("year", func(t *testing.T) {
		points, err := svc.Progress(context.Background(), FilterYear)
		require.NoError(t, err)
		require.Len(t, points, 5)
		assert.Equal(t, "2021", points[0].Label)
		assert.True(t, decimal.NewFromInt(40).Equal(points[1].Revenue))
		assert.True(t, decimal.NewFromInt(35).Equal(points[4].Revenue))
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := svc.Progress(context.Background(), Filter("week"))
		require.ErrorIs(t, err, ErrInvalidFilter)
	})
}
