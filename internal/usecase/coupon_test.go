package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"coupondrop/internal/domain"
	"coupondrop/internal/repository"
)

type mockStore struct {
	insertCouponFn       func(ctx context.Context, code string) (int64, error)
	listCouponsFn        func(ctx context.Context, search string, limit, offset int) ([]domain.Coupon, error)
	countCouponsFn       func(ctx context.Context, search string) (int64, error)
	latestClaimSinceFn   func(ctx context.Context, ip, cookie string, sinceMs int64) (domain.Claim, error)
	deleteCouponByCodeFn func(ctx context.Context, code string) (int64, error)
	insertClaimFn        func(ctx context.Context, claim domain.Claim) error
	execTxFn             func(ctx context.Context, fn func(repository.Querier) error) error
}

func (m *mockStore) InsertCoupon(ctx context.Context, code string) (int64, error) {
	if m.insertCouponFn != nil {
		return m.insertCouponFn(ctx, code)
	}
	return 1, nil
}

func (m *mockStore) ListCoupons(ctx context.Context, search string, limit, offset int) ([]domain.Coupon, error) {
	if m.listCouponsFn != nil {
		return m.listCouponsFn(ctx, search, limit, offset)
	}
	return nil, nil
}

func (m *mockStore) CountCoupons(ctx context.Context, search string) (int64, error) {
	if m.countCouponsFn != nil {
		return m.countCouponsFn(ctx, search)
	}
	return 0, nil
}

func (m *mockStore) LatestClaimSince(ctx context.Context, ip, cookie string, sinceMs int64) (domain.Claim, error) {
	if m.latestClaimSinceFn != nil {
		return m.latestClaimSinceFn(ctx, ip, cookie, sinceMs)
	}
	return domain.Claim{}, pgx.ErrNoRows
}

func (m *mockStore) DeleteCouponByCode(ctx context.Context, code string) (int64, error) {
	if m.deleteCouponByCodeFn != nil {
		return m.deleteCouponByCodeFn(ctx, code)
	}
	return 1, nil
}

func (m *mockStore) InsertClaim(ctx context.Context, claim domain.Claim) error {
	if m.insertClaimFn != nil {
		return m.insertClaimFn(ctx, claim)
	}
	return nil
}

func (m *mockStore) ExecTx(ctx context.Context, fn func(repository.Querier) error) error {
	if m.execTxFn != nil {
		return m.execTxFn(ctx, fn)
	}
	return fn(m)
}

func newTestService(store repository.Store, now time.Time) *CouponService {
	svc := NewCouponService(store)
	svc.now = func() time.Time { return now }
	return svc
}

func TestClaimCoupon_Success(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	var inserted *domain.Claim

	store := &mockStore{
		insertClaimFn: func(ctx context.Context, claim domain.Claim) error {
			inserted = &claim
			return nil
		},
	}

	svc := newTestService(store, now)
	identity := domain.Identity{IP: "203.0.113.7", Cookie: "tok-1"}
	code, err := svc.ClaimCoupon(context.Background(), identity, "TOKEN-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if code != "TOKEN-1" {
		t.Fatalf("expected TOKEN-1, got %s", code)
	}
	if inserted == nil {
		t.Fatal("expected a claim to be recorded")
	}
	if inserted.IP != identity.IP || inserted.Cookie != identity.Cookie {
		t.Fatalf("claim recorded for wrong identity: %+v", inserted)
	}
	if inserted.ClaimedAtMs != now.UnixMilli() {
		t.Fatalf("expected claim at %d, got %d", now.UnixMilli(), inserted.ClaimedAtMs)
	}
}

func TestClaimCoupon_EmptyCode(t *testing.T) {
	store := &mockStore{
		execTxFn: func(ctx context.Context, fn func(repository.Querier) error) error {
			t.Fatal("transaction must not start for an empty code")
			return nil
		},
	}

	svc := newTestService(store, time.Now())
	_, err := svc.ClaimCoupon(context.Background(), domain.Identity{IP: "203.0.113.7"}, "")
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestClaimCoupon_NotFound(t *testing.T) {
	store := &mockStore{
		deleteCouponByCodeFn: func(ctx context.Context, code string) (int64, error) {
			return 0, nil
		},
		insertClaimFn: func(ctx context.Context, claim domain.Claim) error {
			t.Fatal("no claim may be recorded when the delete affected zero rows")
			return nil
		},
	}

	svc := newTestService(store, time.Now())
	_, err := svc.ClaimCoupon(context.Background(), domain.Identity{IP: "203.0.113.7"}, "GONE-1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClaimCoupon_RateLimited(t *testing.T) {
	claimedAt := int64(1_700_000_000_000)
	now := time.UnixMilli(claimedAt + 10*time.Minute.Milliseconds())

	store := &mockStore{
		latestClaimSinceFn: func(ctx context.Context, ip, cookie string, sinceMs int64) (domain.Claim, error) {
			return domain.Claim{IP: ip, Cookie: "other", ClaimedAtMs: claimedAt}, nil
		},
		deleteCouponByCodeFn: func(ctx context.Context, code string) (int64, error) {
			t.Fatal("coupon must not be deleted for a rate-limited identity")
			return 0, nil
		},
	}

	svc := newTestService(store, now)
	_, err := svc.ClaimCoupon(context.Background(), domain.Identity{IP: "203.0.113.7", Cookie: "tok-1"}, "TOKEN-1")

	var rl *domain.RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	// 50 minutes of the window remain.
	if rl.TimeRemaining != 50*60 {
		t.Fatalf("expected 3000s remaining, got %d", rl.TimeRemaining)
	}
}

func TestClaimCoupon_RateLimitRoundsUp(t *testing.T) {
	claimedAt := int64(1_700_000_000_000)
	// 1ms into the window: 3,599,999ms remain, reported as 3600s.
	now := time.UnixMilli(claimedAt + 1)

	store := &mockStore{
		latestClaimSinceFn: func(ctx context.Context, ip, cookie string, sinceMs int64) (domain.Claim, error) {
			return domain.Claim{ClaimedAtMs: claimedAt}, nil
		},
	}

	svc := newTestService(store, now)
	_, err := svc.ClaimCoupon(context.Background(), domain.Identity{IP: "203.0.113.7"}, "TOKEN-1")

	var rl *domain.RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if rl.TimeRemaining != 3600 {
		t.Fatalf("expected 3600s remaining, got %d", rl.TimeRemaining)
	}
}

func TestClaimCoupon_WindowExpired(t *testing.T) {
	claimedAt := int64(1_700_000_000_000)
	now := time.UnixMilli(claimedAt + time.Hour.Milliseconds())

	store := &mockStore{
		latestClaimSinceFn: func(ctx context.Context, ip, cookie string, sinceMs int64) (domain.Claim, error) {
			// The cutoff excludes the hour-old claim.
			if claimedAt > sinceMs {
				t.Fatalf("claim at %d should be outside cutoff %d", claimedAt, sinceMs)
			}
			return domain.Claim{}, pgx.ErrNoRows
		},
	}

	svc := newTestService(store, now)
	code, err := svc.ClaimCoupon(context.Background(), domain.Identity{IP: "203.0.113.7"}, "TOKEN-2")
	if err != nil {
		t.Fatalf("expected claim to succeed after the window, got %v", err)
	}
	if code != "TOKEN-2" {
		t.Fatalf("expected TOKEN-2, got %s", code)
	}
}

func TestClaimCoupon_StoreError(t *testing.T) {
	storeErr := errors.New("connection refused")
	store := &mockStore{
		deleteCouponByCodeFn: func(ctx context.Context, code string) (int64, error) {
			return 0, storeErr
		},
	}

	svc := newTestService(store, time.Now())
	_, err := svc.ClaimCoupon(context.Background(), domain.Identity{IP: "203.0.113.7"}, "TOKEN-1")
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
}

func TestListCoupons_FirstPage(t *testing.T) {
	store := &mockStore{
		listCouponsFn: func(ctx context.Context, search string, limit, offset int) ([]domain.Coupon, error) {
			if limit != PageSize || offset != 0 {
				t.Fatalf("expected limit %d offset 0, got %d/%d", PageSize, limit, offset)
			}
			coupons := make([]domain.Coupon, PageSize)
			for i := range coupons {
				coupons[i] = domain.Coupon{ID: int64(i + 1), Code: "TOKEN-1"}
			}
			return coupons, nil
		},
		countCouponsFn: func(ctx context.Context, search string) (int64, error) {
			return 20, nil
		},
	}

	svc := newTestService(store, time.Now())
	page, err := svc.ListCoupons(context.Background(), 1, "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(page.Coupons) != 12 || page.TotalCoupons != 20 || page.Page != 1 || page.PageSize != 12 {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestListCoupons_PastEnd(t *testing.T) {
	store := &mockStore{
		listCouponsFn: func(ctx context.Context, search string, limit, offset int) ([]domain.Coupon, error) {
			if offset != 2*PageSize {
				t.Fatalf("expected offset %d for page 3, got %d", 2*PageSize, offset)
			}
			return nil, nil
		},
		countCouponsFn: func(ctx context.Context, search string) (int64, error) {
			return 20, nil
		},
	}

	svc := newTestService(store, time.Now())
	page, err := svc.ListCoupons(context.Background(), 3, "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if page.Coupons == nil || len(page.Coupons) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", page.Coupons)
	}
	if page.TotalCoupons != 20 {
		t.Fatalf("total must not depend on the page, got %d", page.TotalCoupons)
	}
}

func TestListCoupons_PageDefaultsToOne(t *testing.T) {
	store := &mockStore{
		listCouponsFn: func(ctx context.Context, search string, limit, offset int) ([]domain.Coupon, error) {
			if offset != 0 {
				t.Fatalf("expected offset 0 for defaulted page, got %d", offset)
			}
			return nil, nil
		},
	}

	svc := newTestService(store, time.Now())
	page, err := svc.ListCoupons(context.Background(), 0, "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if page.Page != 1 {
		t.Fatalf("expected page 1, got %d", page.Page)
	}
}

func TestSeedCodes(t *testing.T) {
	codes := SeedCodes("TOKEN", 20)
	if len(codes) != 20 {
		t.Fatalf("expected 20 codes, got %d", len(codes))
	}
	if codes[0] != "TOKEN-1" || codes[19] != "TOKEN-20" {
		t.Fatalf("unexpected codes: first %s last %s", codes[0], codes[19])
	}
}

func TestSeedCoupons_SkipsExisting(t *testing.T) {
	existing := map[string]bool{"TOKEN-1": true, "TOKEN-2": true}
	store := &mockStore{
		insertCouponFn: func(ctx context.Context, code string) (int64, error) {
			if existing[code] {
				return 0, nil
			}
			return 1, nil
		},
	}

	svc := newTestService(store, time.Now())
	created, err := svc.SeedCoupons(context.Background(), SeedCodes("TOKEN", 5))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created != 3 {
		t.Fatalf("expected 3 new coupons, got %d", created)
	}
}
