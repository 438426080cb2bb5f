package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"hardware-checkout/internal/config"
	"hardware-checkout/internal/database"
	"hardware-checkout/internal/migrate"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger, "checkout-migrate")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	switch direction {
	case "up":
		return migrate.Apply(ctx, pool, logger)
	case "down":
		return migrate.Rollback(ctx, pool, logger)
	default:
		return fmt.Errorf("unknown direction %q (want up or down)", direction)
	}
}
