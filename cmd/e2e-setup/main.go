package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"shorts-studio/internal/config"
	"shorts-studio/internal/infra/api"
	"shorts-studio/internal/infra/db/postgres"
	"shorts-studio/internal/infra/redis"
)

// This script is for setting up a clean, predictable state for manual
// end-to-end testing, and prints a bearer token for the test owner.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	owner := flag.String("owner", "e2e-user", "owner to mint a bearer token for")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	// --- Connect to Postgres ---
	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	// --- Connect to Redis ---
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	log.Println("[1/3] Wiping Redis (asset cache, locks, rate limits, progress)...")
	if err := redisClient.FlushDB(ctx); err != nil {
		log.Fatalf("failed to flush redis: %v", err)
	}

	log.Println("[2/3] Truncating assets, render_tasks and videos...")
	if _, err := pool.Exec(ctx, `TRUNCATE assets, render_tasks, videos;`); err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	log.Printf("[3/3] Minting a token for %q...", *owner)
	auth, err := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}
	tok, err := auth.Mint(*owner)
	if err != nil {
		log.Fatalf("mint: %v", err)
	}

	log.Println("--- E2E Environment Setup Complete ---")
	fmt.Println(tok)
}
