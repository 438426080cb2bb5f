package coupon

import "hardware-checkout/internal/model"

// mapCouponSet implements CouponSet using a map keyed by normalized code.
type mapCouponSet struct {
	coupons map[string]*model.Coupon
}

// NewMapCouponSet creates a new map-based coupon set.
func NewMapCouponSet(capacity int) CouponSet {
	return &mapCouponSet{
		coupons: make(map[string]*model.Coupon, capacity),
	}
}

// Get returns the coupon stored under code.
func (s *mapCouponSet) Get(code string) (*model.Coupon, bool) {
	c, exists := s.coupons[code]
	return c, exists
}

// Size returns the number of coupons in the set.
func (s *mapCouponSet) Size() int {
	return len(s.coupons)
}

// Each calls fn for every coupon in the set.
func (s *mapCouponSet) Each(fn func(*model.Coupon)) {
	for _, c := range s.coupons {
		fn(c)
	}
}

// Add stores a coupon under its normalized code. A later row for the same
// code replaces the earlier one.
func (s *mapCouponSet) Add(c *model.Coupon) {
	c.Code = model.NormalizeCouponCode(c.Code)
	s.coupons[c.Code] = c
}
