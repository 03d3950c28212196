package usecase

import (
	"context"

	"coupondrop/internal/domain"
)

// CouponGateway is what the HTTP layer talks to. It is implemented
// in-process (DirectGateway) or over Kafka request/reply (Gateway).
type CouponGateway interface {
	ClaimCoupon(ctx context.Context, identity domain.Identity, code string) (string, error)
	ListCoupons(ctx context.Context, page int, search string) (*domain.CouponPage, error)
}
