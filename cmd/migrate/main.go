package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const usage = "usage: migrate [up|down|check]"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger).With().Str("component", "migrate").Logger()
	connString := cfg.Database.ConnectionString()

	switch command {
	case "up":
		return database.Migrate(connString, logger)
	case "down":
		return database.Rollback(connString, logger)
	case "check":
		return check(connString, logger)
	default:
		return fmt.Errorf("unknown command %q, %s", command, usage)
	}
}

// check verifies the database is reachable with the configured credentials.
func check(connString string, logger zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}
	defer conn.Close(ctx)

	var dbName, version string
	if err := conn.QueryRow(ctx, "SELECT current_database(), version()").Scan(&dbName, &version); err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	logger.Info().
		Str("database", dbName).
		Str("version", version).
		Msg("database connection ok")

	return nil
}
