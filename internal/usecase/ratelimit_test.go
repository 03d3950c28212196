package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"coupondrop/internal/domain"
)

func TestRateLimiter_QueriesBothIdentityFacets(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	store := &mockStore{
		latestClaimSinceFn: func(ctx context.Context, ip, cookie string, sinceMs int64) (domain.Claim, error) {
			if ip != "203.0.113.7" || cookie != "tok-1" {
				t.Fatalf("limiter must pass both facets, got ip=%q cookie=%q", ip, cookie)
			}
			if want := now.UnixMilli() - time.Hour.Milliseconds(); sinceMs != want {
				t.Fatalf("expected cutoff %d, got %d", want, sinceMs)
			}
			// An earlier claimant on the same IP, different cookie.
			return domain.Claim{IP: ip, Cookie: "someone-else", ClaimedAtMs: now.UnixMilli() - 1000}, nil
		},
	}

	rl := NewRateLimiter(ClaimWindow)
	err := rl.Check(context.Background(), store, domain.Identity{IP: "203.0.113.7", Cookie: "tok-1"}, now)

	var limited *domain.RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitedError for shared IP, got %v", err)
	}
	if limited.TimeRemaining != 3599 {
		t.Fatalf("expected 3599s remaining, got %d", limited.TimeRemaining)
	}
}

func TestRateLimiter_StoreErrorIsNotADecision(t *testing.T) {
	storeErr := errors.New("connection reset")
	store := &mockStore{
		latestClaimSinceFn: func(ctx context.Context, ip, cookie string, sinceMs int64) (domain.Claim, error) {
			return domain.Claim{}, storeErr
		},
	}

	rl := NewRateLimiter(ClaimWindow)
	err := rl.Check(context.Background(), store, domain.Identity{IP: "203.0.113.7"}, time.Now())

	var limited *domain.RateLimitedError
	if errors.As(err, &limited) {
		t.Fatal("store failure must not surface as a rate-limit denial")
	}
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
}
