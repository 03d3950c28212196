package usecase

import (
	"context"
	"fmt"
	"time"

	"coupondrop/internal/domain"
	"coupondrop/internal/repository"
)

// PageSize is the number of coupons per listing page.
const PageSize = 12

type CouponService struct {
	store   repository.Store
	limiter *RateLimiter
	now     func() time.Time
}

func NewCouponService(store repository.Store) *CouponService {
	return &CouponService{
		store:   store,
		limiter: NewRateLimiter(ClaimWindow),
		now:     time.Now,
	}
}

// ClaimCoupon assigns the coupon to the identity, enforcing the claim
// window. The whole attempt runs in one transaction; the conditional
// delete's row count decides races, and the ledger row is written only
// after the delete is confirmed, so no partial state survives a
// failure.
func (s *CouponService) ClaimCoupon(ctx context.Context, identity domain.Identity, code string) (string, error) {
	if code == "" {
		return "", domain.ErrInvalidRequest
	}

	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		now := s.now()

		if err := s.limiter.Check(ctx, q, identity, now); err != nil {
			return err
		}

		rows, err := q.DeleteCouponByCode(ctx, code)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrNotFound
		}

		return q.InsertClaim(ctx, domain.Claim{
			IP:          identity.IP,
			Cookie:      identity.Cookie,
			ClaimedAtMs: now.UnixMilli(),
		})
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// ListCoupons returns one page of unclaimed coupons matching the
// case-insensitive substring filter, ordered by id, plus the total
// matching count for pagination.
func (s *CouponService) ListCoupons(ctx context.Context, page int, search string) (*domain.CouponPage, error) {
	if page < 1 {
		page = 1
	}

	coupons, err := s.store.ListCoupons(ctx, search, PageSize, (page-1)*PageSize)
	if err != nil {
		return nil, err
	}
	if coupons == nil {
		coupons = []domain.Coupon{}
	}

	total, err := s.store.CountCoupons(ctx, search)
	if err != nil {
		return nil, err
	}

	return &domain.CouponPage{
		Coupons:      coupons,
		Page:         page,
		TotalCoupons: total,
		PageSize:     PageSize,
	}, nil
}

// SeedCoupons bulk-inserts codes, skipping ones that already exist.
// Returns how many rows were actually created.
func (s *CouponService) SeedCoupons(ctx context.Context, codes []string) (int64, error) {
	var created int64
	for _, code := range codes {
		n, err := s.store.InsertCoupon(ctx, code)
		if err != nil {
			return created, err
		}
		created += n
	}
	return created, nil
}

// SeedCodes generates the code set used by the seeding utility:
// PREFIX-1 .. PREFIX-n.
func SeedCodes(prefix string, n int) []string {
	codes := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		codes = append(codes, fmt.Sprintf("%s-%d", prefix, i))
	}
	return codes
}
