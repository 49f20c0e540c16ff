// Package coupon imports the coupon catalogue. Catalogue files are gzipped
// CSV with one CODE,discount,quantity row per coupon and are read from the
// local file system or S3 before being upserted into the coupons table.
package coupon

import (
	"context"
	"errors"

	"storefront/internal/model"
)

// ErrMalformed marks a catalogue file that was read but could not be decoded.
var ErrMalformed = errors.New("malformed coupon catalogue")

// Loader reads one catalogue file.
type Loader interface {
	// Load reads a gzipped catalogue file and returns its coupons.
	Load(ctx context.Context, name string) (*Catalogue, error)
}

// Store persists catalogue entries. repository.CouponRepository satisfies it.
type Store interface {
	Upsert(ctx context.Context, coupons []model.Coupon) (int, error)
}
