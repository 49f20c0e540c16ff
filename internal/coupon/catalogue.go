package coupon

import (
	"sort"

	"storefront/internal/model"
)

// Catalogue is a set of coupons keyed by code. Adding a code twice keeps the
// later entry.
type Catalogue struct {
	coupons    map[string]model.Coupon
	duplicates int
}

// NewCatalogue creates an empty catalogue sized for capacity entries.
func NewCatalogue(capacity int) *Catalogue {
	return &Catalogue{coupons: make(map[string]model.Coupon, capacity)}
}

// Add inserts or replaces a coupon.
func (c *Catalogue) Add(coupon model.Coupon) {
	if _, exists := c.coupons[coupon.Code]; exists {
		c.duplicates++
	}
	c.coupons[coupon.Code] = coupon
}

// Merge adds every coupon of other, letting other win on conflicts.
func (c *Catalogue) Merge(other *Catalogue) {
	if other == nil {
		return
	}
	for _, coupon := range other.coupons {
		c.Add(coupon)
	}
	c.duplicates += other.duplicates
}

// Lookup returns the coupon for code.
func (c *Catalogue) Lookup(code string) (model.Coupon, bool) {
	coupon, ok := c.coupons[code]
	return coupon, ok
}

// Size returns the number of distinct codes.
func (c *Catalogue) Size() int {
	return len(c.coupons)
}

// Duplicates returns how many rows were shadowed by a later row with the same code.
func (c *Catalogue) Duplicates() int {
	return c.duplicates
}

// Coupons returns the entries ordered by code.
func (c *Catalogue) Coupons() []model.Coupon {
	out := make([]model.Coupon, 0, len(c.coupons))
	for _, coupon := range c.coupons {
		out = append(out, coupon)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
