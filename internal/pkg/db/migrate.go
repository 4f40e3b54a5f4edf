package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "users table",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				id BIGSERIAL PRIMARY KEY,
				phone_number VARCHAR(10) NOT NULL,
				user_name VARCHAR(255) NOT NULL,
				password VARCHAR(255) NOT NULL,
				tiktok_name VARCHAR(255),
				youtube_name VARCHAR(255),
				instagram_name VARCHAR(255),
				referral_code CHAR(6) NOT NULL,
				referred_by VARCHAR(32),
				bonus_amount_tl BIGINT NOT NULL DEFAULT 0,
				bonus_amount_refs BIGINT NOT NULL DEFAULT 0,
				bonus_amount_tasks BIGINT NOT NULL DEFAULT 0,
				balance BIGINT NOT NULL DEFAULT 100,
				referrals BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CONSTRAINT users_phone_number_key UNIQUE (phone_number),
				CONSTRAINT users_referral_code_key UNIQUE (referral_code)
			);
		`,
	},
	{
		name: "transactions table",
		sql: `
			CREATE TABLE IF NOT EXISTS transactions (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				amount BIGINT NOT NULL,
				type VARCHAR(50) NOT NULL,
				description TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC);
		`,
	},
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
