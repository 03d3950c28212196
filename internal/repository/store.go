package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"coupondrop/internal/domain"
)

type Store interface {
	ExecTx(ctx context.Context, fn func(Querier) error) error
	InsertCoupon(ctx context.Context, code string) (int64, error)
	ListCoupons(ctx context.Context, search string, limit, offset int) ([]domain.Coupon, error)
	CountCoupons(ctx context.Context, search string) (int64, error)
	LatestClaimSince(ctx context.Context, ip, cookie string, sinceMs int64) (domain.Claim, error)
	DeleteCouponByCode(ctx context.Context, code string) (int64, error)
	InsertClaim(ctx context.Context, claim domain.Claim) error
}

// Querier is the transaction-scoped subset of Store used by the claim
// path.
type Querier interface {
	LatestClaimSince(ctx context.Context, ip, cookie string, sinceMs int64) (domain.Claim, error)
	DeleteCouponByCode(ctx context.Context, code string) (int64, error)
	InsertClaim(ctx context.Context, claim domain.Claim) error
}

type store struct {
	pool    *pgxpool.Pool
	queries *Queries
}

func New(pool *pgxpool.Pool) Store {
	return &store{
		pool:    pool,
		queries: NewQueries(pool),
	}
}

func (s *store) ExecTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	q := s.queries.WithTx(tx)
	if err := fn(q); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx err: %v, rollback err: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *store) InsertCoupon(ctx context.Context, code string) (int64, error) {
	return s.queries.InsertCoupon(ctx, code)
}

func (s *store) ListCoupons(ctx context.Context, search string, limit, offset int) ([]domain.Coupon, error) {
	return s.queries.ListCoupons(ctx, search, limit, offset)
}

func (s *store) CountCoupons(ctx context.Context, search string) (int64, error) {
	return s.queries.CountCoupons(ctx, search)
}

func (s *store) LatestClaimSince(ctx context.Context, ip, cookie string, sinceMs int64) (domain.Claim, error) {
	return s.queries.LatestClaimSince(ctx, ip, cookie, sinceMs)
}

func (s *store) DeleteCouponByCode(ctx context.Context, code string) (int64, error) {
	return s.queries.DeleteCouponByCode(ctx, code)
}

func (s *store) InsertClaim(ctx context.Context, claim domain.Claim) error {
	return s.queries.InsertClaim(ctx, claim)
}
