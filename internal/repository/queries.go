package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"coupondrop/internal/domain"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so the same
// queries run standalone or inside ExecTx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// InsertCoupon inserts a code, skipping duplicates. Returns 1 when a
// row was created, 0 when the code already existed.
func (q *Queries) InsertCoupon(ctx context.Context, code string) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`INSERT INTO coupons (code) VALUES ($1) ON CONFLICT (code) DO NOTHING`,
		code,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) ListCoupons(ctx context.Context, search string, limit, offset int) ([]domain.Coupon, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, code FROM coupons WHERE code ILIKE $1 ORDER BY id ASC LIMIT $2 OFFSET $3`,
		likePattern(search), limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coupons []domain.Coupon
	for rows.Next() {
		var c domain.Coupon
		if err := rows.Scan(&c.ID, &c.Code); err != nil {
			return nil, err
		}
		coupons = append(coupons, c)
	}
	return coupons, rows.Err()
}

func (q *Queries) CountCoupons(ctx context.Context, search string) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM coupons WHERE code ILIKE $1`,
		likePattern(search),
	).Scan(&count)
	return count, err
}

// DeleteCouponByCode removes the coupon and reports how many rows the
// delete affected. The row count is the arbiter between concurrent
// claimants: zero means someone else already took it.
func (q *Queries) DeleteCouponByCode(ctx context.Context, code string) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM coupons WHERE code = $1`, code)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) InsertClaim(ctx context.Context, claim domain.Claim) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO claims (ip, cookie, claimed_at_ms) VALUES ($1, $2, $3)`,
		claim.IP, claim.Cookie, claim.ClaimedAtMs,
	)
	return err
}

// LatestClaimSince returns the newest claim matching either identity
// facet with claimed_at_ms > sinceMs. pgx.ErrNoRows when none match.
func (q *Queries) LatestClaimSince(ctx context.Context, ip, cookie string, sinceMs int64) (domain.Claim, error) {
	var claim domain.Claim
	err := q.db.QueryRow(ctx,
		`SELECT ip, cookie, claimed_at_ms FROM claims
		 WHERE (ip = $1 OR cookie = $2) AND claimed_at_ms > $3
		 ORDER BY claimed_at_ms DESC LIMIT 1`,
		ip, cookie, sinceMs,
	).Scan(&claim.IP, &claim.Cookie, &claim.ClaimedAtMs)
	if err != nil {
		return domain.Claim{}, err
	}
	return claim, nil
}

// likePattern wraps the search term for a substring ILIKE match,
// escaping the LIKE metacharacters so user input matches literally.
func likePattern(search string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(search)
	return "%" + escaped + "%"
}
