package handler

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Linen Shirt", want: "linen-shirt"},
		{in: "  Home & Garden ", want: "home-garden"},
		{in: "Café No. 5", want: "café-no-5"},
		{in: "---", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, slugify(tt.in))
		})
	}
}

func TestDecodeBody(t *testing.T) {
	type payload struct {
		name  string
		price decimal.Decimal
		sale  decimal.NullDecimal
		tags  []string
	}
	decodeInto := func(body string) (payload, error) {
		var p payload
		r := httptest.NewRequest("POST", "/", strings.NewReader(body))
		err := decodeBody(r, fields{
			"name":  str(&p.name),
			"price": money(&p.price),
			"sale":  optMoney(&p.sale),
			"tags":  stringList(&p.tags),
		})
		return p, err
	}

	t.Run("Valid", func(t *testing.T) {
		p, err := decodeInto(`{"name":"a","price":"12.50","sale":9.99,"tags":["x","y"]}`)
		require.NoError(t, err)
		assert.Equal(t, "a", p.name)
		assert.True(t, p.price.Equal(decimal.RequireFromString("12.5")))
		require.True(t, p.sale.Valid)
		assert.True(t, p.sale.Decimal.Equal(decimal.RequireFromString("9.99")))
		assert.Equal(t, []string{"x", "y"}, p.tags)
	})
	t.Run("NullSale", func(t *testing.T) {
		p, err := decodeInto(`{"sale":null}`)
		require.NoError(t, err)
		assert.False(t, p.sale.Valid)
	})

	errs := []struct {
		name      string
		body      string
		wantField string
		wantMsg   string
	}{
		{name: "Empty", body: " ", wantMsg: "request body is required"},
		{name: "Unknown", body: `{"title":"a"}`, wantField: "title", wantMsg: "unknown field"},
		{name: "BadPrice", body: `{"price":"abc"}`, wantField: "price", wantMsg: "invalid value"},
		{name: "PriceBool", body: `{"price":true}`, wantField: "price", wantMsg: "invalid value"},
		{name: "TagsNotArray", body: `{"tags":"x"}`, wantField: "tags", wantMsg: "invalid value"},
		{name: "DuplicateScalar", body: `{"name":"a","name":"b"}`, wantField: "name", wantMsg: "duplicate field"},
		{name: "DuplicateList", body: `{"tags":["x"],"tags":["y"]}`, wantField: "tags", wantMsg: "duplicate field"},
		{name: "Trailing", body: `{} []`, wantMsg: "unexpected data after JSON object"},
		{name: "TooLarge", body: `{"name":"` + strings.Repeat("a", maxBodySize) + `"}`, wantMsg: "request body too large"},
	}
	for _, tt := range errs {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeInto(tt.body)
			ve, ok := asValidation(err)
			require.True(t, ok, "%v", err)
			assert.Equal(t, tt.wantField, ve.Field)
			assert.Equal(t, tt.wantMsg, ve.Message)
		})
	}
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest("GET", "/?limit=7&bad=x", nil)

	n, err := queryInt(r, "limit", 50)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = queryInt(r, "missing", 50)
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	_, err = queryInt(r, "bad", 50)
	ve, ok := asValidation(err)
	require.True(t, ok)
	assert.Equal(t, "bad", ve.Field)
}
