package main

import (
	"context"
	"log"
	"os"

	"ipdispute/arbiter"
	"ipdispute/db"
	"ipdispute/dispute"
	"ipdispute/identity"
	"ipdispute/ledger"
)

func main() {
	ctx := context.Background()

	connString := os.Getenv("DATABASE_URL")
	pool, err := db.NewPool(ctx, connString)
	if err != nil {
		log.Fatalf("bootstrap database pool: %v", err)
	}
	defer pool.Close()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	identityRepo := identity.NewRepository(pool)
	arbiterRepo := arbiter.NewRepository(pool)

	identityService := identity.NewService(pool, identityRepo, jwtSecret)
	ledgerService := ledger.NewService(pool)
	arbiterService := arbiter.NewService(pool, arbiterRepo, identityRepo)
	disputeService := dispute.NewService(pool, dispute.NewRepository(pool), identityService, ledgerService, arbiterRepo)

	// Custody is seeded by migrations; re-opening it is a no-op but keeps a
	// fresh database usable without a separate bootstrap step.
	if err := ledgerService.OpenAccount(ctx, ledger.AccountCustody, 0); err != nil {
		log.Fatalf("bootstrap custody account: %v", err)
	}

	log.Printf("services ready: identity=%t arbiter=%t dispute=%t",
		identityService != nil, arbiterService != nil, disputeService != nil)
}
