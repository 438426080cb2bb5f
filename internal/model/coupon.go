package model

import (
	"strings"
	"time"
)

// CouponType distinguishes percent and fixed-amount coupons.
type CouponType string

const (
	CouponPercent     CouponType = "percent"
	CouponFixedAmount CouponType = "fixed"
)

// Coupon is a named, time-bounded reduction applied at checkout.
type Coupon struct {
	Code     string     `json:"code"`
	Type     CouponType `json:"type"`
	Value    int64      `json:"value"`
	StartsAt time.Time  `json:"startsAt"`
	EndsAt   time.Time  `json:"endsAt"`
	Active   bool       `json:"active"`
}

// NormalizeCouponCode trims and upper-cases a code for case-insensitive lookup.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ApplicableAt reports whether the coupon is active and inside its validity window.
func (c *Coupon) ApplicableAt(now time.Time) bool {
	if c == nil || !c.Active {
		return false
	}
	if !c.StartsAt.IsZero() && now.Before(c.StartsAt) {
		return false
	}
	if !c.EndsAt.IsZero() && now.After(c.EndsAt) {
		return false
	}
	return true
}
