package product

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sale(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestUnitPrice(t *testing.T) {
	tests := []struct {
		name string
		p    Product
		want string
	}{
		{name: "no sale price", p: Product{Price: price("100")}, want: "100"},
		{name: "sale lower than price", p: Product{Price: price("100"), SalePrice: sale("80")}, want: "80"},
		{name: "sale higher than price ignored", p: Product{Price: price("100"), SalePrice: sale("120")}, want: "100"},
		{name: "sale equal to price ignored", p: Product{Price: price("100"), SalePrice: sale("100")}, want: "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.p.UnitPrice()
			assert.True(t, price(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestSaleBadge(t *testing.T) {
	p := Product{Price: price("40"), SalePrice: sale("30")}
	assert.Equal(t, "25% OFF", p.SaleBadge())

	p = Product{Price: price("40"), SalePrice: sale("45")}
	assert.Empty(t, p.SaleBadge())

	p = Product{Price: price("30")}
	assert.Empty(t, p.SaleBadge())
}

func TestAvailabilityLabel(t *testing.T) {
	tests := []struct {
		name string
		p    Product
		want string
	}{
		{name: "empty", p: Product{Stock: 0}, want: "Out of Stock"},
		{name: "low", p: Product{Stock: 3}, want: "Only 3 Left"},
		{name: "bestseller", p: Product{Stock: 50, TotalReviews: 21, Rating: 4.2}, want: "Bestseller"},
		{name: "popular but low rated", p: Product{Stock: 50, TotalReviews: 40, Rating: 3.9}, want: "In Stock"},
		{name: "plain", p: Product{Stock: 5}, want: "In Stock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.AvailabilityLabel())
		})
	}
}

func TestValidPrice(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{in: "0", want: true},
		{in: "19.99", want: true},
		{in: "19.90", want: true},
		{in: "19.999", want: false},
		{in: "0.001", want: false},
		{in: "-1", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidPrice(price(tt.in)))
		})
	}
}
