package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"coupondrop/internal/domain"
	"coupondrop/internal/repository"
)

// ClaimWindow is how long an identity must wait between successful
// claims. Fixed by design; only the most recent claim per identity
// matters, not a count within the window.
const ClaimWindow = time.Hour

// RateLimiter decides from the claim ledger whether an identity may
// claim now. It is a pure read; store failures surface as errors, not
// as rate-limit decisions.
type RateLimiter struct {
	window time.Duration
}

func NewRateLimiter(window time.Duration) *RateLimiter {
	return &RateLimiter{window: window}
}

// Check returns nil when the identity may claim, or a
// *domain.RateLimitedError carrying the remaining wait in whole
// seconds rounded up.
func (rl *RateLimiter) Check(ctx context.Context, q repository.Querier, identity domain.Identity, now time.Time) error {
	nowMs := now.UnixMilli()
	windowMs := rl.window.Milliseconds()

	last, err := q.LatestClaimSince(ctx, identity.IP, identity.Cookie, nowMs-windowMs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	remainingMs := last.ClaimedAtMs + windowMs - nowMs
	return &domain.RateLimitedError{TimeRemaining: (remainingMs + 999) / 1000}
}
