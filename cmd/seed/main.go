package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"coupondrop/internal/config"
	"coupondrop/internal/repository"
	"coupondrop/internal/usecase"
)

// Seeds the coupon table with SEED_COUNT codes of the form
// SEED_PREFIX-<n>. Safe to run repeatedly: existing codes are skipped.
func main() {
	cfg := config.Load()

	connStr := fmt.Sprintf(
		"postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBSSLMode,
	)

	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := repository.RunMigrations(pool, "db/migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	store := repository.New(pool)
	service := usecase.NewCouponService(store)

	codes := usecase.SeedCodes(cfg.SeedPrefix, cfg.SeedCouponCount())
	created, err := service.SeedCoupons(context.Background(), codes)
	if err != nil {
		log.Fatalf("Failed to seed coupons: %v", err)
	}

	log.Printf("Seeded %d new coupons (%d requested)", created, len(codes))
}
