package promo

import (
	"errors"
	"strings"
)

const AggregateType = "Promo"

const EventPromoAdded = "PromoAdded"

var (
	ErrInvalidCode     = errors.New("promo code is required")
	ErrInvalidDiscount = errors.New("discount percentage must be between 1 and 100")
	ErrPromoNotFound   = errors.New("promo code not found")
)

// PromoCode is a named percentage discount. Codes are not unique.
type PromoCode struct {
	Code               string `json:"code"`
	DiscountPercentage int    `json:"discountPercentage"`
}

type PromoAdded struct {
	Promo PromoCode `json:"promo"`
}

// Normalize trims and upper-cases the code, the way the admin form does.
func (p PromoCode) Normalize() PromoCode {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	return p
}

func (p PromoCode) Validate() error {
	if strings.TrimSpace(p.Code) == "" {
		return ErrInvalidCode
	}
	if p.DiscountPercentage < 1 || p.DiscountPercentage > 100 {
		return ErrInvalidDiscount
	}
	return nil
}

// Find returns the first promo whose code equals code, ignoring case.
func Find(promos []PromoCode, code string) (PromoCode, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return PromoCode{}, false
	}
	for _, p := range promos {
		if strings.EqualFold(p.Code, code) {
			return p, true
		}
	}
	return PromoCode{}, false
}
