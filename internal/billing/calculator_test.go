package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corebill/corebill/internal/types"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(name, qty, price string) LineItem {
	return LineItem{Name: name, Quantity: dec(qty), UnitPrice: dec(price)}
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name          string
		items         []LineItem
		taxRate       decimal.Decimal
		discountType  types.DiscountType
		discountValue decimal.Decimal
		want          Totals
	}{
		{
			name:    "no tax no discount",
			items:   []LineItem{line("Design work", "10", "150.00")},
			taxRate: decimal.Zero,
			want: Totals{
				Subtotal: dec("1500"),
				Total:    dec("1500"),
			},
		},
		{
			name:    "tax applies to subtotal",
			items:   []LineItem{line("Consulting", "2", "500")},
			taxRate: dec("10"),
			want: Totals{
				Subtotal:  dec("1000"),
				TaxAmount: dec("100"),
				Total:     dec("1100"),
			},
		},
		{
			name:          "fixed discount applies after tax",
			items:         []LineItem{line("Consulting", "2", "500")},
			taxRate:       dec("10"),
			discountType:  types.DiscountTypeFixed,
			discountValue: dec("100"),
			want: Totals{
				Subtotal:       dec("1000"),
				TaxAmount:      dec("100"),
				DiscountAmount: dec("100"),
				Total:          dec("1000"),
			},
		},
		{
			name:          "percent discount taken from subtotal",
			items:         []LineItem{line("Consulting", "1", "200")},
			taxRate:       dec("10"),
			discountType:  types.DiscountTypePercent,
			discountValue: dec("50"),
			want: Totals{
				Subtotal:       dec("200"),
				TaxAmount:      dec("20"),
				DiscountAmount: dec("100"),
				Total:          dec("120"),
			},
		},
		{
			name:          "oversized fixed discount clamps to zero total",
			items:         []LineItem{line("Small job", "1", "50")},
			taxRate:       decimal.Zero,
			discountType:  types.DiscountTypeFixed,
			discountValue: dec("80"),
			want: Totals{
				Subtotal:       dec("50"),
				DiscountAmount: dec("50"),
				Total:          dec("0"),
			},
		},
		{
			name:          "percent discount above 100 clamps to zero total",
			items:         []LineItem{line("Small job", "1", "50")},
			taxRate:       decimal.Zero,
			discountType:  types.DiscountTypePercent,
			discountValue: dec("200"),
			want: Totals{
				Subtotal:       dec("50"),
				DiscountAmount: dec("50"),
				Total:          dec("0"),
			},
		},
		{
			name: "blank lines dropped from subtotal",
			items: []LineItem{
				line("Real work", "1", "100"),
				line("", "3", "999"),
				line("   ", "2", "50"),
			},
			taxRate: decimal.Zero,
			want: Totals{
				Subtotal: dec("100"),
				Total:    dec("100"),
			},
		},
		{
			name:    "per line rounding before summation",
			items:   []LineItem{line("Hourly", "3", "33.335"), line("Hourly B", "3", "33.335")},
			taxRate: decimal.Zero,
			want: Totals{
				// each line rounds to 100.01 before summing
				Subtotal: dec("200.02"),
				Total:    dec("200.02"),
			},
		},
		{
			name:    "fractional tax rounds to cents",
			items:   []LineItem{line("Widget", "1", "99.99")},
			taxRate: dec("8.25"),
			want: Totals{
				Subtotal:  dec("99.99"),
				TaxAmount: dec("8.25"),
				Total:     dec("108.24"),
			},
		},
		{
			name:    "empty item list totals to zero",
			items:   nil,
			taxRate: dec("10"),
			want: Totals{
				Subtotal: dec("0"),
				Total:    dec("0"),
			},
		},
		{
			name:    "zero quantity line contributes nothing",
			items:   []LineItem{line("Placeholder", "0", "500")},
			taxRate: decimal.Zero,
			want: Totals{
				Subtotal: dec("0"),
				Total:    dec("0"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeTotals(tt.items, tt.taxRate, tt.discountType, tt.discountValue)
			require.NoError(t, err)
			assert.True(t, tt.want.Subtotal.Equal(got.Subtotal), "subtotal: want %s got %s", tt.want.Subtotal, got.Subtotal)
			assert.True(t, tt.want.TaxAmount.Equal(got.TaxAmount), "tax: want %s got %s", tt.want.TaxAmount, got.TaxAmount)
			assert.True(t, tt.want.DiscountAmount.Equal(got.DiscountAmount), "discount: want %s got %s", tt.want.DiscountAmount, got.DiscountAmount)
			assert.True(t, tt.want.Total.Equal(got.Total), "total: want %s got %s", tt.want.Total, got.Total)
		})
	}
}

func TestComputeTotalsValidation(t *testing.T) {
	items := []LineItem{line("Work", "1", "100")}

	_, err := ComputeTotals(items, dec("-5"), "", decimal.Zero)
	assert.Error(t, err, "negative tax rate")

	_, err = ComputeTotals(items, dec("101"), "", decimal.Zero)
	assert.Error(t, err, "tax rate above 100")

	_, err = ComputeTotals(items, decimal.Zero, types.DiscountTypeFixed, dec("-1"))
	assert.Error(t, err, "negative discount")

	_, err = ComputeTotals(items, decimal.Zero, types.DiscountType("bogus"), dec("10"))
	assert.Error(t, err, "unknown discount type")

	_, err = ComputeTotals([]LineItem{line("Bad", "-1", "100")}, decimal.Zero, "", decimal.Zero)
	assert.Error(t, err, "negative quantity")
}
