package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/oficio-app/backend/internal/auth"
	"github.com/oficio-app/backend/internal/config"
	"github.com/oficio-app/backend/internal/notify"
	"github.com/oficio-app/backend/internal/pricing"
	"github.com/oficio-app/backend/internal/repository"
	"github.com/oficio-app/backend/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL")

	if err := repository.CreateSchema(ctx, pool); err != nil {
		slog.Error("Schema creation failed", "error", err)
		os.Exit(1)
	}

	// River migrations (job queue tables)
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Repositories
	accountRepo := repository.NewAccountRepo(pool)
	profileRepo := repository.NewProfileRepo(pool)
	requestRepo := repository.NewRequestRepo(pool)
	leadRepo := repository.NewLeadRepo(pool)
	unlockRepo := repository.NewUnlockRepo(pool)
	creditRepo := repository.NewCreditRepo(pool)
	proposalRepo := repository.NewProposalRepo(pool)

	// Notification enqueue is set after the River client exists (breaks the
	// init cycle between fan-out and the client that carries its worker).
	var insertMu sync.Mutex
	var insertFn services.EnqueueNotifyTxFunc
	enqueueNotify := func(ctx context.Context, tx pgx.Tx, args notify.LeadNotificationArgs) error {
		insertMu.Lock()
		fn := insertFn
		insertMu.Unlock()
		if fn == nil {
			panic("river insert not wired")
		}
		return fn(ctx, tx, args)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, notify.NewLeadNotificationWorker(logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	insertMu.Lock()
	insertFn = func(ctx context.Context, tx pgx.Tx, args notify.LeadNotificationArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}
	insertMu.Unlock()

	// Services
	validator, err := services.NewValidator()
	if err != nil {
		slog.Error("Schema validator init failed", "error", err)
		os.Exit(1)
	}
	fanout := services.NewFanoutService(profileRepo, unlockRepo, enqueueNotify, cfg.FanoutCap, logger)
	derivation := services.NewDerivationService(pool, requestRepo, leadRepo, proposalRepo, fanout,
		pricing.Cost, cfg.RefreshUnlockedLeads, logger)
	unlock := services.NewUnlockService(pool, leadRepo, unlockRepo, accountRepo, creditRepo, logger)
	proposals := services.NewProposalService(pool, proposalRepo, requestRepo, unlockRepo, logger)

	authSvc := auth.NewService(accountRepo, cfg.JWTSecret, 0)
	authHandler := auth.NewHandler(authSvc, logger)

	mux := http.NewServeMux()
	registerRoutes(mux, routeDeps{
		auth:       authSvc,
		authH:      authHandler,
		validator:  validator,
		derivation: derivation,
		unlock:     unlock,
		proposals:  proposals,
		accounts:   accountRepo,
		profiles:   profileRepo,
		requests:   requestRepo,
		leads:      leadRepo,
		unlocks:    unlockRepo,
		credits:    creditRepo,
		logger:     logger,
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)

	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	addr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", addr)
	if err := http.ListenAndServe(addr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
