package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest = errors.New("coupon code is required")
	ErrNotFound       = errors.New("coupon not available or already claimed")
)

// RateLimitedError reports how long an identity must wait before it
// may claim again, in whole seconds rounded up.
type RateLimitedError struct {
	TimeRemaining int64
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("claim rate limited, retry in %ds", e.TimeRemaining)
}

// Identity is the pair of facets a claimant is known by. Denial is
// OR-based across both facets, so a fresh cookie behind a shared IP
// is still blocked by that IP's recent claim.
type Identity struct {
	IP     string
	Cookie string
}

type Coupon struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
}

// Claim is one row of the append-only claim ledger. ClaimedAtMs is
// epoch milliseconds stored as int64.
type Claim struct {
	IP          string
	Cookie      string
	ClaimedAtMs int64
}

type CouponPage struct {
	Coupons      []Coupon `json:"coupons"`
	Page         int      `json:"page"`
	TotalCoupons int64    `json:"totalCoupons"`
	PageSize     int      `json:"pageSize"`
}
