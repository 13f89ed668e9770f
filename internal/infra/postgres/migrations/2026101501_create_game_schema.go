package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 2026101501_create_game_schema.sql
var createGameSchemaSQL string

// Migrations holds every schema migration of the service.
var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createGameSchemaSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS
				password_reset_tokens, advantage_purchases, advantages,
				cosmetics_inventory, cosmetics, attempts, game_sessions,
				response_options, questions, points_accounts, users`)
			return err
		},
	)
}
