package coupon

import (
	"testing"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coupon(code string, discount int64, quantity int) model.Coupon {
	return model.Coupon{Code: code, DiscountPrice: decimal.NewFromInt(discount), Quantity: quantity}
}

func TestCatalogue_AddAndLookup(t *testing.T) {
	c := NewCatalogue(4)
	c.Add(coupon("SAVE10", 10, 5))
	c.Add(coupon("SAVE20", 20, 1))

	got, ok := c.Lookup("SAVE10")
	require.True(t, ok)
	assert.Equal(t, 5, got.Quantity)

	_, ok = c.Lookup("save10")
	assert.False(t, ok, "codes are case-sensitive")
	assert.Equal(t, 2, c.Size())
	assert.Zero(t, c.Duplicates())
}

func TestCatalogue_LaterEntryWins(t *testing.T) {
	c := NewCatalogue(0)
	c.Add(coupon("SAVE10", 10, 5))
	c.Add(coupon("SAVE10", 15, 2))

	got, _ := c.Lookup("SAVE10")
	assert.True(t, decimal.NewFromInt(15).Equal(got.DiscountPrice))
	assert.Equal(t, 1, c.Size())
	assert.Equal(t, 1, c.Duplicates())
}

func TestCatalogue_Merge(t *testing.T) {
	first := NewCatalogue(0)
	first.Add(coupon("A", 1, 1))
	first.Add(coupon("B", 2, 2))

	second := NewCatalogue(0)
	second.Add(coupon("B", 20, 20))
	second.Add(coupon("C", 3, 3))

	first.Merge(second)
	first.Merge(nil)

	assert.Equal(t, 3, first.Size())
	assert.Equal(t, 1, first.Duplicates())
	b, _ := first.Lookup("B")
	assert.Equal(t, 20, b.Quantity)
}

func TestCatalogue_CouponsSorted(t *testing.T) {
	c := NewCatalogue(0)
	for _, code := range []string{"ZETA", "ALPHA", "MIDDLE"} {
		c.Add(coupon(code, 1, 1))
	}

	got := c.Coupons()

	require.Len(t, got, 3)
	assert.Equal(t, "ALPHA", got[0].Code)
	assert.Equal(t, "MIDDLE", got[1].Code)
	assert.Equal(t, "ZETA", got[2].Code)
}
