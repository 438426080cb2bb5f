package coupon

import (
	"regexp"

	"hardware-checkout/internal/model"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)

// ValidateFormat checks the shape of a coupon code supplied by a caller.
// An empty code is valid and means no coupon.
func ValidateFormat(code string) error {
	normalized := model.NormalizeCouponCode(code)
	if normalized == "" {
		return nil
	}
	if !codePattern.MatchString(normalized) {
		return model.NewValidationError(model.ErrCodeInvalidCouponFormat,
			"coupon code must be 3 to 32 letters, digits, '-' or '_'", "couponCode")
	}
	return nil
}
