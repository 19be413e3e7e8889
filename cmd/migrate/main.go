package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	// Get command
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go [drop|up]")
		os.Exit(1)
	}

	command := os.Args[1]

	// Connect to database
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Usage: go run main.go [drop|up]")
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP TABLE IF EXISTS payments CASCADE`,
		`DROP TABLE IF EXISTS votes CASCADE`,
		`DROP TABLE IF EXISTS polls CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", query)
	}

	return nil
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		// Polls table. Slug is the public handle; admin_token gates
		// deletion and the analytics view.
		`CREATE TABLE IF NOT EXISTS polls (
			id BIGSERIAL PRIMARY KEY,
			slug VARCHAR(32) UNIQUE NOT NULL,
			title VARCHAR(500) NOT NULL,
			options JSONB NOT NULL,
			type VARCHAR(10) NOT NULL,
			max_choices INTEGER NOT NULL DEFAULT 1,
			visibility VARCHAR(30) NOT NULL,
			reveal_after_n_votes INTEGER,
			admin_token VARCHAR(64) UNIQUE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Votes table. The unique (poll_id, client_hash) pair is the
		// one-vote-per-identity authority; everything else is a fast path.
		`CREATE TABLE IF NOT EXISTS votes (
			id BIGSERIAL PRIMARY KEY,
			poll_id BIGINT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
			client_hash VARCHAR(32) NOT NULL,
			ip_address INET,
			selected_options JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(poll_id, client_hash)
		)`,

		// Payments table. checkout_session_id uniqueness makes webhook
		// confirmation idempotent at the storage layer.
		`CREATE TABLE IF NOT EXISTS payments (
			id BIGSERIAL PRIMARY KEY,
			poll_id BIGINT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
			client_hash VARCHAR(32) NOT NULL,
			checkout_session_id VARCHAR(255) UNIQUE NOT NULL,
			payment_intent_id VARCHAR(255),
			reveal_token VARCHAR(64) NOT NULL,
			amount BIGINT NOT NULL,
			paid BOOLEAN NOT NULL DEFAULT false,
			paid_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_votes_poll_id ON votes(poll_id)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_created_at ON votes(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_poll_hash ON payments(poll_id, client_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_reveal_token ON payments(poll_id, reveal_token)`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
		fmt.Printf("  Created: %s\n", queryLabel(query))
	}

	return nil
}

func queryLabel(query string) string {
	if len(query) > 50 {
		return query[:50] + "..."
	}
	return query
}
