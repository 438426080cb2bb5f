package coupon

import (
	"context"

	"hardware-checkout/internal/model"
)

// Catalog resolves coupons by code. Lookups are case-insensitive.
type Catalog interface {
	// Lookup returns the coupon for a code, normalizing the code first.
	Lookup(code string) (*model.Coupon, bool)

	// Size returns the number of coupons in the catalog.
	Size() int
}

// CouponSet is a set of coupons read from a single catalog file.
type CouponSet interface {
	// Get returns the coupon stored under an already normalized code.
	Get(code string) (*model.Coupon, bool)

	// Size returns the number of coupons in the set.
	Size() int

	// Each calls fn for every coupon in the set.
	Each(fn func(*model.Coupon))
}

// Loader defines the interface for loading coupon catalog files.
type Loader interface {
	// Load reads a gzipped coupon catalog file and returns a CouponSet.
	Load(ctx context.Context, filePath string) (CouponSet, error)
}
