// Package pricing computes checkout totals from a priced cart snapshot.
//
// All amounts are integer units of currency. Line prices already include tax,
// so the tax component is derived from the final total rather than added to it.
package pricing

import (
	"time"

	"hardware-checkout/internal/model"

	"github.com/shopspring/decimal"
)

// DefaultTaxRatePercent is the VAT rate contained in catalogue prices.
const DefaultTaxRatePercent = 19

// CouponSource resolves coupons by code. Implementations must not perform I/O.
type CouponSource interface {
	Lookup(code string) (*model.Coupon, bool)
}

// Input is everything needed to price a checkout.
type Input struct {
	Lines        []model.CartLine
	CouponCode   string
	ShippingCost int64
}

// PricedLine is a cart line with its effective price resolved.
type PricedLine struct {
	model.CartLine
	EffectivePrice int64
	Subtotal       int64
	PriceNote      string
}

// Quote is the result of pricing a cart.
type Quote struct {
	Lines                  []PricedLine
	SubtotalBase           int64
	TotalWithLineDiscounts int64
	DiscountBase           int64
	DiscountCoupon         int64
	ShippingCost           int64
	TotalFinal             int64
	Tax                    int64
	// Coupon is the applied coupon, nil when the code was absent or not applicable.
	Coupon *model.Coupon
}

// Engine prices carts.
type Engine struct {
	coupons        CouponSource
	taxRatePercent int64
	now            func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithTaxRate overrides the tax rate percent.
func WithTaxRate(percent int64) Option {
	return func(e *Engine) { e.taxRatePercent = percent }
}

// WithClock overrides the time source used for coupon validity windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a pricing engine. coupons may be nil, in which case every
// coupon code is ignored.
func NewEngine(coupons CouponSource, opts ...Option) *Engine {
	e := &Engine{
		coupons:        coupons,
		taxRatePercent: DefaultTaxRatePercent,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Price computes the quote for the given input.
func (e *Engine) Price(in Input) Quote {
	q := Quote{
		Lines:        make([]PricedLine, 0, len(in.Lines)),
		ShippingCost: in.ShippingCost,
	}

	for _, line := range in.Lines {
		qty := int64(line.Quantity)
		effective := line.EffectivePrice()
		sticker := max(line.UnitPriceOriginal, effective)

		note := model.PriceNoteOriginal
		if line.UnitPriceDiscounted > 0 {
			note = model.PriceNoteDiscounted
		}

		q.SubtotalBase += sticker * qty
		q.TotalWithLineDiscounts += effective * qty
		q.Lines = append(q.Lines, PricedLine{
			CartLine:       line,
			EffectivePrice: effective,
			Subtotal:       effective * qty,
			PriceNote:      note,
		})
	}

	q.DiscountBase = q.SubtotalBase - q.TotalWithLineDiscounts

	if coupon := e.resolveCoupon(in.CouponCode); coupon != nil {
		q.Coupon = coupon
		q.DiscountCoupon = CouponDiscount(coupon, q.TotalWithLineDiscounts)
	}

	q.TotalFinal = q.TotalWithLineDiscounts - q.DiscountCoupon + q.ShippingCost
	q.Tax = IncludedTax(q.TotalFinal, e.taxRatePercent)

	return q
}

func (e *Engine) resolveCoupon(code string) *model.Coupon {
	code = model.NormalizeCouponCode(code)
	if code == "" || e.coupons == nil {
		return nil
	}
	coupon, ok := e.coupons.Lookup(code)
	if !ok || !coupon.ApplicableAt(e.now()) {
		return nil
	}
	return coupon
}

// CouponDiscount returns the discount a coupon grants on a discountable
// subtotal. The result is never negative and never exceeds the subtotal.
func CouponDiscount(c *model.Coupon, subtotal int64) int64 {
	if c == nil || subtotal <= 0 || c.Value <= 0 {
		return 0
	}

	var discount int64
	switch c.Type {
	case model.CouponPercent:
		pct := min(c.Value, 100)
		discount = decimal.NewFromInt(subtotal).
			Mul(decimal.NewFromInt(pct)).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	case model.CouponFixedAmount:
		discount = c.Value
	default:
		return 0
	}

	return min(discount, subtotal)
}

// IncludedTax back-computes the tax contained in a tax-inclusive total:
// round(total / (1+r) * r), evaluated exactly as total*r/(100+r).
func IncludedTax(total, ratePercent int64) int64 {
	if total <= 0 || ratePercent <= 0 {
		return 0
	}
	return decimal.NewFromInt(total).
		Mul(decimal.NewFromInt(ratePercent)).
		Div(decimal.NewFromInt(100 + ratePercent)).
		Round(0).
		IntPart()
}
