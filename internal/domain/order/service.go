package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/glowcart/storefront/internal/domain/coupon"
	"github.com/glowcart/storefront/internal/domain/product"
	"github.com/glowcart/storefront/internal/notify"
)

// lowStockThreshold triggers an admin alert once remaining units drop below it.
const lowStockThreshold = 5

// Auditor records administrative and customer actions.
type Auditor interface {
	Record(ctx context.Context, actorID, action, details string)
}

// Notifier dispatches events to connected clients and downstream consumers.
type Notifier interface {
	Dispatch(ctx context.Context, e notify.Event)
}

// LineRequest is one requested cart line.
type LineRequest struct {
	ProductID string
	Quantity  int
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Items           []LineRequest
	CouponCode      string
	UserID          string // empty for guest checkout
	CustomerName    string
	ShippingAddress Address
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order   *Order
	Summary Summary
}

// Deps are the collaborators of Service. Audit, Notifier and the telemetry
// providers are optional.
type Deps struct {
	Products       product.Repository
	Coupons        coupon.Validator
	Orders         Repository
	Audit          Auditor
	Notifier       Notifier
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Service encapsulates order placement and lifecycle business logic.
type Service struct {
	products product.Repository
	coupons  coupon.Validator
	orders   Repository
	audit    Auditor
	notifier Notifier
	now      func() time.Time

	tracer   trace.Tracer
	placed   metric.Int64Counter
	rejected metric.Int64Counter
	revenue  metric.Float64Counter
}

// NewService creates an order Service with the required domain dependencies.
func NewService(d Deps) (*Service, error) {
	if d.TracerProvider == nil {
		d.TracerProvider = otel.GetTracerProvider()
	}
	if d.MeterProvider == nil {
		d.MeterProvider = otel.GetMeterProvider()
	}
	meter := d.MeterProvider.Meter("storefront/order")

	s := &Service{
		products: d.Products,
		coupons:  d.Coupons,
		orders:   d.Orders,
		audit:    d.Audit,
		notifier: d.Notifier,
		now:      time.Now,
		tracer:   d.TracerProvider.Tracer("storefront/order"),
	}
	if s.audit == nil {
		s.audit = nopAuditor{}
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}

	var err error
	if s.placed, err = meter.Int64Counter("storefront.orders.placed",
		metric.WithDescription("Orders placed successfully"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.placed counter")
	}
	if s.rejected, err = meter.Int64Counter("storefront.orders.rejected",
		metric.WithDescription("Orders rejected at checkout"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.rejected counter")
	}
	if s.revenue, err = meter.Float64Counter("storefront.orders.revenue",
		metric.WithDescription("Total amount of placed orders"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.revenue counter")
	}
	return s, nil
}

// PlaceOrder validates the cart, prices it from current product data, applies
// an eligible coupon, and persists the order while reserving stock.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *PlaceOrderResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.Int("order.lines", len(req.Items))),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
			s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", rejectReason(rerr))))
		}
		span.End()
	}()

	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	// Validate quantities and sum them per product, keeping first-seen order.
	requested := make(map[string]int, len(req.Items))
	ids := make([]string, 0, len(req.Items))
	for i, item := range req.Items {
		// Both operands are capped, so the sum cannot overflow.
		if item.Quantity <= 0 || item.Quantity > MaxQuantity ||
			requested[item.ProductID]+item.Quantity > MaxQuantity {
			return nil, &InvalidQuantityError{Index: i, ProductID: item.ProductID}
		}
		if _, seen := requested[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		requested[item.ProductID] += item.Quantity
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: id}
		}
		if requested[id] > p.Stock {
			return nil, &InsufficientStockError{
				ProductID: id,
				Title:     p.Title,
				Requested: requested[id],
				Available: p.Stock,
			}
		}
	}

	items := make([]Item, len(req.Items))
	subtotal := decimal.Zero
	for i, line := range req.Items {
		p := byID[line.ProductID]
		items[i] = Item{
			ProductID: p.ID,
			Title:     p.Title,
			Quantity:  line.Quantity,
			Price:     p.UnitPrice(),
		}
		subtotal = subtotal.Add(items[i].LineTotal())
	}

	discount, err := s.coupons.Apply(ctx, req.CouponCode, subtotal)
	if err != nil {
		return nil, errors.Wrap(err, "apply coupon")
	}

	now := s.now().UTC()
	o := &Order{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		CustomerName:    req.CustomerName,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		Subtotal:        subtotal,
		Discount:        discount.Amount,
		TotalAmount:     coupon.Total(subtotal, discount.Amount),
		PaymentStatus:   PaymentPending,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if discount.Applied() {
		o.CouponID = discount.Coupon.ID
	}

	if err := s.orders.Create(ctx, o); err != nil {
		var conflict *StockConflictError
		if errors.As(err, &conflict) {
			return nil, conflict
		}
		return nil, errors.Wrap(err, "create order")
	}

	span.SetAttributes(
		attribute.String("order.id", o.ID),
		attribute.Bool("order.coupon_applied", discount.Applied()),
	)
	s.placed.Add(ctx, 1)
	s.revenue.Add(ctx, o.TotalAmount.InexactFloat64())

	if o.UserID != "" {
		s.audit.Record(ctx, o.UserID, "Order Creation",
			fmt.Sprintf("order %s placed, total %s", o.ID, o.TotalAmount.StringFixed(2)))
	}
	s.notifyPlaced(ctx, o, byID, requested)

	return &PlaceOrderResult{Order: o, Summary: o.Summary()}, nil
}

func (s *Service) notifyPlaced(ctx context.Context, o *Order, products map[string]product.Product, requested map[string]int) {
	customer := o.CustomerName
	if customer == "" {
		customer = "guest"
	}
	s.notifier.Dispatch(ctx, notify.Event{
		Type:    notify.TypeAdminNewOrder,
		Message: fmt.Sprintf("New order %s from %s, total %s", o.ID, customer, o.TotalAmount.StringFixed(2)),
		Data:    map[string]string{"orderId": o.ID},
	})
	for id, qty := range requested {
		p := products[id]
		if left := p.Stock - qty; left < lowStockThreshold {
			s.notifier.Dispatch(ctx, notify.Event{
				Type:    notify.TypeAdminLowStock,
				Message: fmt.Sprintf("%s has %d units left", p.Title, left),
				Data:    map[string]string{"productId": id},
			})
		}
	}
}

// Get returns a single order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	return o, nil
}

// List returns all orders, newest first.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// ListByUser returns the orders placed by userID.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list user orders")
	}
	return orders, nil
}

// Pay marks the order as paid on behalf of actorID.
func (s *Service) Pay(ctx context.Context, id, actorID string) (*Order, error) {
	current, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	if current.Status == StatusCancelled {
		return nil, ErrCancelled
	}

	o, err := s.orders.MarkPaid(ctx, id, s.now().UTC())
	if err != nil {
		return nil, errors.Wrapf(err, "mark order %s paid", id)
	}
	s.audit.Record(ctx, actorID, "Payment Update", fmt.Sprintf("order %s marked as paid", id))
	return o, nil
}

// UpdateStatus applies a fulfillment transition and notifies the order owner.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status, actorID string) (*Order, error) {
	current, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	if !CanTransition(current.Status, to) {
		return nil, &TransitionError{From: current.Status, To: to}
	}

	o, err := s.orders.UpdateStatus(ctx, id, current.Status, to, s.now().UTC())
	if err != nil {
		return nil, errors.Wrapf(err, "update order %s status", id)
	}

	zctx.From(ctx).Info("Order status changed",
		zap.String("order_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)),
	)
	s.audit.Record(ctx, actorID, "Order Status",
		fmt.Sprintf("order %s status changed from %s to %s", id, current.Status, to))
	if o.UserID != "" {
		s.notifier.Dispatch(ctx, notify.Event{
			Type:    notify.TypeOrderStatus,
			UserID:  o.UserID,
			Message: fmt.Sprintf("Your order %s is now %s", id, to),
			Data:    map[string]string{"orderId": id, "status": string(to)},
		})
	}
	return o, nil
}

func rejectReason(err error) string {
	var (
		qty      *InvalidQuantityError
		missing  *ProductNotFoundError
		stock    *InsufficientStockError
		conflict *StockConflictError
	)
	switch {
	case errors.Is(err, ErrEmptyItems):
		return "empty"
	case errors.As(err, &qty):
		return "quantity"
	case errors.As(err, &missing):
		return "not_found"
	case errors.As(err, &stock):
		return "insufficient_stock"
	case errors.As(err, &conflict):
		return "stock_conflict"
	default:
		return "internal"
	}
}

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, string, string, string) {}

type nopNotifier struct{}

func (nopNotifier) Dispatch(context.Context, notify.Event) {}
