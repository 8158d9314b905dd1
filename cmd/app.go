package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/meetsched/internal/config"
	"github.com/example/meetsched/internal/db"
	"github.com/example/meetsched/internal/infrastructure/crypto"
	"github.com/example/meetsched/internal/infrastructure/google"
	"github.com/example/meetsched/internal/infrastructure/postgres"
	"github.com/example/meetsched/internal/logging"
	"github.com/example/meetsched/internal/migrate"
)

// app holds what every subcommand that touches the database needs.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	db     *db.DB
	store  *postgres.Store
}

func openApp(ctx context.Context, runMigrations bool) (*app, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(string(cfg.Env), cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	d, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if runMigrations {
		applied, err := migrate.Up(ctx, d)
		if err != nil {
			d.Close()
			return nil, err
		}
		for _, name := range applied {
			logger.Info("migration applied", zap.String("file", name))
		}
	}
	return &app{cfg: cfg, logger: logger, db: d, store: postgres.NewStore(d)}, nil
}

func (a *app) Close() {
	a.db.Close()
	_ = a.logger.Sync()
}

// googleTokens wires the OAuth client to the sealed credential table.
func (a *app) googleTokens() (*google.Tokens, error) {
	if err := a.cfg.RequireSecrets(); err != nil {
		return nil, err
	}
	if err := a.cfg.RequireGoogle(); err != nil {
		return nil, err
	}
	sealer, err := crypto.New(a.cfg.CredEncKey)
	if err != nil {
		return nil, err
	}
	return &google.Tokens{
		Config: google.OAuthConfig(a.cfg.Google.ClientID, a.cfg.Google.ClientSecret, a.cfg.BaseURL),
		Store:  postgres.NewCredentialRepo(a.db, sealer),
	}, nil
}
