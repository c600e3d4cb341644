package handler_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowcart/storefront/internal/domain/audit"
	"github.com/glowcart/storefront/internal/domain/auth"
	"github.com/glowcart/storefront/internal/domain/coupon"
	"github.com/glowcart/storefront/internal/domain/order"
	"github.com/glowcart/storefront/internal/domain/product"
	"github.com/glowcart/storefront/internal/domain/review"
	"github.com/glowcart/storefront/internal/domain/stats"
	"github.com/glowcart/storefront/internal/handler"
	"github.com/glowcart/storefront/internal/notify"
	"github.com/glowcart/storefront/internal/storage/memory"
)

var pepper = []byte("test-pepper")

type env struct {
	t   *testing.T
	db  *memory.DB
	api http.Handler

	admin, alice, bob       string // raw API keys
	adminID, aliceID, bobID string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := memory.New()
	recorder := audit.NewRecorder(db.Audit())
	dispatcher := notify.NewDispatcher(notify.NewHub())
	return newEnvWith(t, db, recorder, dispatcher, notify.NewHub())
}

func newEnvWith(t *testing.T, db *memory.DB, recorder *audit.Recorder, dispatcher *notify.Dispatcher, hub *notify.Hub) *env {
	t.Helper()
	validator := coupon.NewRepoValidator(db.Coupons())
	orders, err := order.NewService(order.Deps{
		Products: db.Products(),
		Coupons:  validator,
		Orders:   db.Orders(),
		Audit:    recorder,
		Notifier: dispatcher,
	})
	require.NoError(t, err)

	h := handler.New(handler.Deps{
		Products:   db.Products(),
		Categories: db.Categories(),
		Coupons:    db.Coupons(),
		Validator:  validator,
		Orders:     orders,
		Reviews:    review.NewService(db.Reviews(), db.Products(), recorder, dispatcher),
		Stats:      stats.NewService(db.Orders(), db.Products()),
		Tickets:    db.Tickets(),
		Audit:      recorder,
		Auth:       auth.NewAuthenticator(db.APIKeys(), pepper),
		Hub:        hub,
	})

	e := &env{t: t, db: db, api: h.Routes()}
	e.admin, e.adminID = e.key("admin", auth.RoleAdmin)
	e.alice, e.aliceID = e.key("Alice", auth.RoleCustomer)
	e.bob, e.bobID = e.key("Bob", auth.RoleCustomer)
	return e
}

func (e *env) key(name string, role auth.Role) (raw, id string) {
	raw, err := auth.GenerateKey()
	require.NoError(e.t, err)
	id = uuid.NewString()
	require.NoError(e.t, e.db.APIKeys().Create(context.Background(), &auth.APIKey{
		ID:        id,
		KeyHash:   auth.HashKey(pepper, raw),
		Name:      name,
		Role:      role,
		Active:    true,
		CreatedAt: time.Now(),
	}))
	return raw, id
}

func (e *env) product(id, price, sale string, stock int) {
	p := &product.Product{
		ID:        id,
		Title:     "Product " + id,
		Slug:      id,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		Status:    product.StatusActive,
		CreatedAt: time.Now(),
	}
	if sale != "" {
		p.SalePrice = decimal.NewNullDecimal(decimal.RequireFromString(sale))
	}
	require.NoError(e.t, e.db.Products().Create(context.Background(), p))
}

func (e *env) coupon(code string, typ coupon.DiscountType, value, minAmount string, expires time.Time) {
	require.NoError(e.t, e.db.Coupons().Create(context.Background(), &coupon.Coupon{
		ID:            uuid.NewString(),
		Code:          code,
		DiscountType:  typ,
		DiscountValue: decimal.RequireFromString(value),
		MinAmount:     decimal.RequireFromString(minAmount),
		ExpiresAt:     expires,
		IsActive:      true,
	}))
}

func (e *env) do(method, target, key, body string) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if key != "" {
		req.Header.Set(handler.APIKeyHeader, key)
	}
	w := httptest.NewRecorder()
	e.api.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (e *env) stock(id string) int {
	p, err := e.db.Products().GetByID(context.Background(), id)
	require.NoError(e.t, err)
	return p.Stock
}

func (e *env) auditActions() []string {
	entries, err := e.db.Audit().List(context.Background(), 100)
	require.NoError(e.t, err)
	var out []string
	for _, en := range entries {
		out = append(out, en.Action)
	}
	return out
}

func TestPlaceOrder_Guest(t *testing.T) {
	e := newEnv(t)
	e.product("p1", "100", "80", 5)
	e.coupon("SAVE10", coupon.DiscountPercentage, "10", "0", time.Now().Add(time.Hour))

	w := e.do(http.MethodPost, "/api/orders", "",
		`{"items":[{"productId":"p1","quantity":2}],"couponCode":"save10","customerName":"Guest"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, map[string]any{"subtotal": 160.0, "discount": 16.0, "total": 144.0}, body["summary"])
	o := body["order"].(map[string]any)
	assert.Equal(t, "pending", o["status"])
	assert.Equal(t, "pending", o["paymentStatus"])
	assert.NotContains(t, o, "userId")
	items := o["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, 80.0, items[0].(map[string]any)["price"])

	assert.Equal(t, 3, e.stock("p1"))
	assert.Empty(t, e.auditActions(), "guest checkout is not audited")
}

func TestPlaceOrder_AuthenticatedIsAudited(t *testing.T) {
	e := newEnv(t)
	e.product("p1", "15", "", 5)

	w := e.do(http.MethodPost, "/api/orders", e.alice, `{"items":[{"productId":"p1","quantity":2}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	o := decode(t, w)["order"].(map[string]any)
	assert.Equal(t, e.aliceID, o["userId"])
	assert.Equal(t, "Alice", o["customerName"])
	assert.Equal(t, []string{"Order Creation"}, e.auditActions())
}

func TestPlaceOrder_Errors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantField string
		wantMsg   string
	}{
		{name: "empty body", body: ``, wantCode: 400, wantMsg: "request body is required"},
		{name: "malformed", body: `{"items" [`, wantCode: 400, wantMsg: "malformed JSON body"},
		{name: "not an object", body: `[1]`, wantCode: 400, wantMsg: "must be an object"},
		{name: "trailing data", body: `{"items":[]} {}`, wantCode: 400, wantMsg: "unexpected data after JSON object"},
		{name: "no items", body: `{"items":[]}`, wantCode: 400, wantField: "items", wantMsg: "no order items"},
		{name: "missing items", body: `{}`, wantCode: 400, wantField: "items"},
		{name: "unknown top-level field", body: `{"items":[{"productId":"p1","quantity":1}],"coupon":"X"}`, wantCode: 400, wantField: "coupon", wantMsg: "unknown field"},
		{name: "unknown line field", body: `{"items":[{"product":"p1","quantity":1}]}`, wantCode: 400, wantField: "items[0].product"},
		{name: "wrong type", body: `{"items":[{"productId":"p1","quantity":"two"}]}`, wantCode: 400, wantField: "items[0].quantity", wantMsg: "invalid value"},
		{name: "missing product id", body: `{"items":[{"quantity":1}]}`, wantCode: 400, wantField: "items[0].productId"},
		{name: "zero quantity", body: `{"items":[{"productId":"p1","quantity":1},{"productId":"p1","quantity":0}]}`, wantCode: 400, wantField: "items[1].quantity"},
		{name: "quantity above cap", body: `{"items":[{"productId":"p1","quantity":10001}]}`, wantCode: 400, wantField: "items[0].quantity", wantMsg: "quantity must be between 1 and 10000 for product p1"},
		{name: "quantities overflowing int", body: `{"items":[{"productId":"p1","quantity":4611686018427387904},{"productId":"p1","quantity":4611686018427387904}]}`, wantCode: 400, wantField: "items[0].quantity"},
		{name: "duplicate items key", body: `{"items":[{"productId":"p1","quantity":1}],"items":[{"productId":"p1","quantity":1}]}`, wantCode: 400, wantField: "items", wantMsg: "duplicate field"},
		{name: "unknown product", body: `{"items":[{"productId":"nope","quantity":1}]}`, wantCode: 404, wantMsg: "product nope not found"},
		{name: "insufficient stock", body: `{"items":[{"productId":"p1","quantity":3}]}`, wantCode: 400, wantMsg: "insufficient stock for product Product p1"},
		{name: "unknown address field", body: `{"items":[{"productId":"p1","quantity":1}],"shippingAddress":{"zip":"1"}}`, wantCode: 400, wantField: "shippingAddress.zip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.product("p1", "10", "", 2)

			w := e.do(http.MethodPost, "/api/orders", "", tt.body)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			body := decode(t, w)
			assert.EqualValues(t, tt.wantCode, body["code"])
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, body["field"])
			}
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body["message"])
			}
			assert.Equal(t, 2, e.stock("p1"))
		})
	}
}

func TestAuthorization(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		name     string
		method   string
		target   string
		key      string
		wantCode int
	}{
		{name: "public without key", method: http.MethodGet, target: "/api/products", wantCode: 200},
		{name: "unknown key", method: http.MethodGet, target: "/api/products", key: "bogus", wantCode: 401},
		{name: "user route as guest", method: http.MethodGet, target: "/api/orders/mine", wantCode: 401},
		{name: "user route as customer", method: http.MethodGet, target: "/api/orders/mine", key: e.alice, wantCode: 200},
		{name: "admin route as guest", method: http.MethodGet, target: "/api/audit", wantCode: 401},
		{name: "admin route as customer", method: http.MethodGet, target: "/api/audit", key: e.alice, wantCode: 403},
		{name: "admin route as admin", method: http.MethodGet, target: "/api/audit", key: e.admin, wantCode: 200},
		{name: "unknown route", method: http.MethodGet, target: "/api/nowhere", wantCode: 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(tt.method, tt.target, tt.key, "")
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}
}

func TestOrderLifecycle(t *testing.T) {
	e := newEnv(t)
	e.product("p1", "10", "", 10)

	w := e.do(http.MethodPost, "/api/orders", e.alice, `{"items":[{"productId":"p1","quantity":1}]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["order"].(map[string]any)["id"].(string)
	target := "/api/orders/" + id

	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, target, e.alice, "").Code)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, target, e.admin, "").Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, target, e.bob, "").Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/orders/missing", e.admin, "").Code)

	mine := decodeList(t, e.do(http.MethodGet, "/api/orders/mine", e.alice, ""))
	assert.Len(t, mine, 1)
	assert.Empty(t, decodeList(t, e.do(http.MethodGet, "/api/orders/mine", e.bob, "")))

	w = e.do(http.MethodPut, target+"/pay", e.alice, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paid := decode(t, w)
	assert.Equal(t, "paid", paid["paymentStatus"])
	assert.NotEmpty(t, paid["paidAt"])

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPut, target+"/status", e.alice, `{"status":"shipped"}`).Code)

	w = e.do(http.MethodPut, target+"/status", e.admin, `{"status":"shipped"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "shipped", decode(t, w)["status"])

	w = e.do(http.MethodPut, target+"/status", e.admin, `{"status":"pending"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "status", decode(t, w)["field"])

	w = e.do(http.MethodPut, target+"/status", e.admin, `{"status":"lost"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPut, target+"/status", e.admin, `{"status":"delivered"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["deliveredAt"])

	assert.Equal(t,
		[]string{"Order Status", "Order Status", "Payment Update", "Order Creation"},
		e.auditActions())

	dash := decode(t, e.do(http.MethodGet, "/api/stats/dashboard", e.admin, ""))
	assert.EqualValues(t, 1, dash["totalOrders"])
	assert.EqualValues(t, 10, dash["totalRevenue"])
}

func TestCoupons(t *testing.T) {
	e := newEnv(t)
	expires := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)

	w := e.do(http.MethodPost, "/api/coupons", e.admin,
		`{"code":"welcome","discountType":"percentage","discountValue":15,"minAmount":"50","maxDiscount":20,"expiresAt":"`+expires+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "WELCOME", created["code"])
	assert.Equal(t, true, created["isActive"])
	assert.Equal(t, 20.0, created["maxDiscount"])

	w = e.do(http.MethodPost, "/api/coupons", e.admin,
		`{"code":"WELCOME","discountType":"fixed","discountValue":5,"expiresAt":"`+expires+`"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(http.MethodPost, "/api/coupons", e.admin,
		`{"code":"LEGACY","discountType":"fixed","value":5,"expiresAt":"`+expires+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "value", decode(t, w)["field"])

	w = e.do(http.MethodPost, "/api/coupons", e.admin,
		`{"code":"HUGE","discountType":"percentage","discountValue":150,"expiresAt":"`+expires+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "discountValue", decode(t, w)["field"])

	w = e.do(http.MethodGet, "/api/coupons/validate/welcome", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "WELCOME", decode(t, w)["code"])

	e.coupon("OLD", coupon.DiscountFixed, "5", "0", time.Now().Add(-time.Hour))
	w = e.do(http.MethodGet, "/api/coupons/validate/old", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "invalid or expired coupon code", decode(t, w)["message"])

	id := created["id"].(string)
	w = e.do(http.MethodPut, "/api/coupons/"+id, e.admin, `{"isActive":false}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/coupons/validate/WELCOME", "", "").Code)

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/api/coupons/"+id, e.admin, "").Code)
	assert.Equal(t, []string{"Promotion Deletion", "Promotion Update", "Promotion Creation"}, e.auditActions())
}

func TestReviews_KeepRatingInSync(t *testing.T) {
	e := newEnv(t)
	e.product("p1", "10", "", 10)
	rating := func() (float64, int) {
		p, err := e.db.Products().GetByID(context.Background(), "p1")
		require.NoError(t, err)
		return p.Rating, p.TotalReviews
	}

	w := e.do(http.MethodPost, "/api/reviews", e.alice, `{"productId":"p1","rating":5,"title":"Great"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	aliceReview := decode(t, w)
	assert.Equal(t, "Alice", aliceReview["name"])

	assert.Equal(t, http.StatusConflict, e.do(http.MethodPost, "/api/reviews", e.alice, `{"productId":"p1","rating":4}`).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/api/reviews", e.alice, `{"productId":"nope","rating":4}`).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/reviews", e.bob, `{"productId":"p1","rating":9}`).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/api/reviews", "", `{"productId":"p1","rating":4}`).Code)

	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/reviews", e.bob, `{"productId":"p1","rating":4}`).Code)
	avg, n := rating()
	assert.Equal(t, 4.5, avg)
	assert.Equal(t, 2, n)

	id := aliceReview["id"].(string)
	w = e.do(http.MethodPut, "/api/reviews/"+id, e.admin, `{"rating":2,"adminReply":"Thanks"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Thanks", decode(t, w)["adminReply"])
	avg, n = rating()
	assert.Equal(t, 3.0, avg)
	assert.Equal(t, 2, n)

	assert.Len(t, decodeList(t, e.do(http.MethodGet, "/api/products/p1/reviews", "", "")), 2)

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/api/reviews/"+id, e.admin, "").Code)
	avg, n = rating()
	assert.Equal(t, 4.0, avg)
	assert.Equal(t, 1, n)
}

func TestProducts_AdminCRUD(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/api/products", e.admin,
		`{"title":"Linen Shirt","price":"40","salePrice":30,"stock":3,"tags":["summer"]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode(t, w)
	id := p["id"].(string)
	assert.Equal(t, "linen-shirt", p["slug"])
	assert.Equal(t, "25% OFF", p["saleBadge"])
	assert.Equal(t, "Only 3 Left", p["availabilityLabel"])
	assert.Equal(t, 30.0, p["unitPrice"])

	w = e.do(http.MethodPost, "/api/products", e.admin, `{"title":"Linen Shirt","price":1}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = e.do(http.MethodPost, "/api/products", e.admin, `{"price":1}`)
	assert.Equal(t, "title", decode(t, w)["field"])

	w = e.do(http.MethodPost, "/api/products/"+id+"/restock", e.admin, `{"quantity":7}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 10, decode(t, w)["stock"])
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/products/"+id+"/restock", e.admin, `{"quantity":0}`).Code)

	w = e.do(http.MethodPut, "/api/products/"+id, e.admin, `{"salePrice":null,"status":"inactive"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, decode(t, w)["salePrice"])
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/products/"+id, "", "").Code)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/products/"+id, e.admin, "").Code)
	assert.Empty(t, decodeList(t, e.do(http.MethodGet, "/api/products", "", "")))

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/api/products/"+id, e.admin, "").Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/products/"+id, e.admin, "").Code)

	assert.Equal(t,
		[]string{"Product Deletion", "Product Update", "Product Restock", "Product Creation"},
		e.auditActions())
}

func TestUpdateProduct_KeepsStock(t *testing.T) {
	e := newEnv(t)
	e.product("p1", "10", "", 1)

	w := e.do(http.MethodGet, "/api/products/p1", e.admin, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodPost, "/api/orders", e.alice, `{"items":[{"productId":"p1","quantity":1}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(http.MethodPut, "/api/products/p1", e.admin, `{"title":"Renamed","price":"10"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 0, decode(t, w)["stock"])
	assert.Equal(t, 0, e.stock("p1"))

	w = e.do(http.MethodPost, "/api/orders", e.bob, `{"items":[{"productId":"p1","quantity":1}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestProductValidation(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		target    string
		body      string
		wantField string
		wantMsg   string
	}{
		{name: "stock on update", method: http.MethodPut, target: "/api/products/p1", body: `{"stock":100}`, wantField: "stock", wantMsg: "unknown field"},
		{name: "create above max", method: http.MethodPost, target: "/api/products", body: `{"title":"Big","price":1,"stock":2147483648}`, wantField: "stock", wantMsg: "must be between 0 and 2147483647"},
		{name: "create negative", method: http.MethodPost, target: "/api/products", body: `{"title":"Neg","price":1,"stock":-1}`, wantField: "stock"},
		{name: "restock above max", method: http.MethodPost, target: "/api/products/p1/restock", body: `{"quantity":2147483648}`, wantField: "quantity", wantMsg: "must be between 1 and 2147483647"},
		{name: "price with three decimals", method: http.MethodPost, target: "/api/products", body: `{"title":"Odd","price":"19.999"}`, wantField: "price", wantMsg: "must be a non-negative amount with at most 2 decimals"},
		{name: "sale price with three decimals", method: http.MethodPut, target: "/api/products/p1", body: `{"salePrice":9.995}`, wantField: "salePrice"},
		{name: "negative price on update", method: http.MethodPut, target: "/api/products/p1", body: `{"price":-1}`, wantField: "price"},
		{name: "restock past max", method: http.MethodPost, target: "/api/products/p1/restock", body: `{"quantity":2147483647}`, wantField: "quantity", wantMsg: "stock out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.product("p1", "10", "", 5)

			w := e.do(tt.method, tt.target, e.admin, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			body := decode(t, w)
			assert.Equal(t, tt.wantField, body["field"])
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body["message"])
			}
			assert.Equal(t, 5, e.stock("p1"))
		})
	}
}

func TestCategories(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/api/categories", e.admin, `{"title":"Home & Garden"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	c := decode(t, w)
	assert.Equal(t, "home-garden", c["slug"])

	assert.Equal(t, http.StatusConflict, e.do(http.MethodPost, "/api/categories", e.admin, `{"title":"Home & Garden"}`).Code)
	assert.Len(t, decodeList(t, e.do(http.MethodGet, "/api/categories", "", "")), 1)

	id := c["id"].(string)
	w = e.do(http.MethodPut, "/api/categories/"+id, e.admin, `{"description":"Everything for the house"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Everything for the house", decode(t, w)["description"])
	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/api/categories/"+id, e.admin, "").Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/categories/"+id, "", "").Code)
}

func TestStatsProgress(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/api/stats/progress?filter=day", e.admin, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w), 7)

	w = e.do(http.MethodGet, "/api/stats/progress", e.admin, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w), 12)

	w = e.do(http.MethodGet, "/api/stats/progress?filter=week", e.admin, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "filter", decode(t, w)["field"])

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/audit?limit=ten", e.admin, "").Code)
}

func TestNotificationStream(t *testing.T) {
	db := memory.New()
	hub := notify.NewHub()
	e := newEnvWith(t, db, audit.NewRecorder(db.Audit()), notify.NewDispatcher(hub), hub)
	e.product("p1", "10", "", 3)

	srv := httptest.NewServer(e.api)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/notifications/stream", nil)
	require.NoError(t, err)
	req.Header.Set(handler.APIKeyHeader, e.admin)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := bufio.NewScanner(resp.Body)
	nextEvent := func() string {
		for events.Scan() {
			if name, ok := strings.CutPrefix(events.Text(), "event: "); ok {
				return name
			}
		}
		return ""
	}
	require.Equal(t, notify.TypeConnected, nextEvent())
	require.Equal(t, 1, hub.Len())

	w := e.do(http.MethodPost, "/api/orders", e.alice, `{"items":[{"productId":"p1","quantity":1}]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, notify.TypeAdminNewOrder, nextEvent())
	assert.Equal(t, notify.TypeAdminLowStock, nextEvent())

	cancel()
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSupportTickets(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/api/support-tickets", "",
		`{"name":" Guest ","email":"guest@example.com","message":"Where is my parcel?"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	guest := decode(t, w)
	assert.Equal(t, "Guest", guest["name"])
	assert.Equal(t, "open", guest["status"])
	assert.NotContains(t, guest, "userId")

	w = e.do(http.MethodPost, "/api/support-tickets", e.alice,
		`{"name":"Alice","email":"alice@example.com","message":"Wrong size"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	alice := decode(t, w)
	assert.Equal(t, e.aliceID, alice["userId"])

	mine := decodeList(t, e.do(http.MethodGet, "/api/support-tickets/mine", e.alice, ""))
	require.Len(t, mine, 1)
	assert.Equal(t, alice["id"], mine[0]["id"])
	assert.Empty(t, decodeList(t, e.do(http.MethodGet, "/api/support-tickets/mine", e.bob, "")))
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/support-tickets", e.alice, "").Code)
	assert.Len(t, decodeList(t, e.do(http.MethodGet, "/api/support-tickets", e.admin, "")), 2)

	id := guest["id"].(string)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPut, "/api/support-tickets/"+id, e.alice, `{"status":"resolved"}`).Code)
	w = e.do(http.MethodPut, "/api/support-tickets/"+id, e.admin, `{"status":"in-progress"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode(t, w)
	assert.Equal(t, "in-progress", updated["status"])
	assert.Equal(t, "Where is my parcel?", updated["message"])

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/api/support-tickets/"+id, e.admin, "").Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPut, "/api/support-tickets/"+id, e.admin, `{"status":"resolved"}`).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/api/support-tickets/"+id, e.admin, "").Code)

	assert.Equal(t, []string{"Support Deletion", "Support Update"}, e.auditActions())
}

func TestSupportTickets_Validation(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		body      string
		wantField string
		wantMsg   string
	}{
		{name: "missing name", method: http.MethodPost, body: `{"email":"a@b.co","message":"hi"}`, wantField: "name", wantMsg: "is required"},
		{name: "blank name", method: http.MethodPost, body: `{"name":"  ","email":"a@b.co","message":"hi"}`, wantField: "name"},
		{name: "bad email", method: http.MethodPost, body: `{"name":"A","email":"not-an-email","message":"hi"}`, wantField: "email", wantMsg: "must be a valid email address"},
		{name: "missing message", method: http.MethodPost, body: `{"name":"A","email":"a@b.co"}`, wantField: "message"},
		{name: "status on create", method: http.MethodPost, body: `{"name":"A","email":"a@b.co","message":"hi","status":"resolved"}`, wantField: "status", wantMsg: "unknown field"},
		{name: "unknown status", method: http.MethodPut, body: `{"status":"closed"}`, wantField: "status", wantMsg: "status must be open, in-progress or resolved"},
		{name: "message on update", method: http.MethodPut, body: `{"message":"edited"}`, wantField: "message", wantMsg: "unknown field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			w := e.do(http.MethodPost, "/api/support-tickets", "", `{"name":"Seed","email":"seed@example.com","message":"first"}`)
			require.Equal(t, http.StatusCreated, w.Code)
			id := decode(t, w)["id"].(string)

			target := "/api/support-tickets"
			if tt.method == http.MethodPut {
				target += "/" + id
			}
			w = e.do(tt.method, target, e.admin, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			body := decode(t, w)
			assert.Equal(t, tt.wantField, body["field"])
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body["message"])
			}
			assert.Empty(t, e.auditActions())
		})
	}
}
