package kafka

import (
	"context"

	"coupondrop/internal/domain"
	"coupondrop/internal/usecase"
)

// DirectGateway calls the service in-process, for deployments that
// run without Kafka.
type DirectGateway struct {
	service *usecase.CouponService
}

func NewDirectGateway(service *usecase.CouponService) usecase.CouponGateway {
	return &DirectGateway{service: service}
}

func (g *DirectGateway) ClaimCoupon(ctx context.Context, identity domain.Identity, code string) (string, error) {
	return g.service.ClaimCoupon(ctx, identity, code)
}

func (g *DirectGateway) ListCoupons(ctx context.Context, page int, search string) (*domain.CouponPage, error) {
	return g.service.ListCoupons(ctx, page, search)
}
