package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateSchema creates all tables and constraints if they do not exist.
// Run once at startup, before River migrations.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id UUID PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL CHECK (role IN ('client', 'professional')),
			credit_balance INT NOT NULL DEFAULT 0 CHECK (credit_balance >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS professional_profiles (
			account_id UUID PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
			categories TEXT[] NOT NULL DEFAULT '{}',
			regions TEXT[] NOT NULL DEFAULT '{}',
			notify_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS service_requests (
			id UUID PRIMARY KEY,
			client_id UUID NOT NULL REFERENCES accounts(id),
			categories TEXT[] NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			region TEXT NOT NULL,
			budget INT,
			photo_refs TEXT[] NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'active', 'completed', 'cancelled')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			completed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS leads (
			id UUID PRIMARY KEY,
			request_id UUID NOT NULL REFERENCES service_requests(id) ON DELETE CASCADE,
			category TEXT NOT NULL,
			cost INT NOT NULL CHECK (cost > 0),
			region TEXT NOT NULL,
			summary TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (request_id, category)
		)`,
		`CREATE TABLE IF NOT EXISTS unlocked_leads (
			lead_id UUID NOT NULL REFERENCES leads(id),
			professional_id UUID NOT NULL REFERENCES accounts(id),
			cost_paid INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (lead_id, professional_id)
		)`,
		`CREATE TABLE IF NOT EXISTS credit_transactions (
			id UUID PRIMARY KEY,
			professional_id UUID NOT NULL REFERENCES accounts(id),
			amount INT NOT NULL,
			balance_after INT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS proposals (
			id UUID PRIMARY KEY,
			request_id UUID NOT NULL REFERENCES service_requests(id),
			professional_id UUID NOT NULL REFERENCES accounts(id),
			price INT NOT NULL CHECK (price > 0),
			description TEXT NOT NULL,
			estimated_days INT,
			status TEXT NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'accepted', 'rejected')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		// One live (non-rejected) proposal per professional per request.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_proposals_live
			ON proposals (request_id, professional_id) WHERE status <> 'rejected'`,
		// At most one accepted proposal per request.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_proposals_accepted
			ON proposals (request_id) WHERE status = 'accepted'`,
		`CREATE INDEX IF NOT EXISTS idx_leads_category ON leads (category)`,
		`CREATE INDEX IF NOT EXISTS idx_unlocked_leads_professional
			ON unlocked_leads (professional_id)`,
		`CREATE INDEX IF NOT EXISTS idx_credit_transactions_professional
			ON credit_transactions (professional_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
