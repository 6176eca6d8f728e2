package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nyashahama/event-admin-backend/internal/api"
	"github.com/nyashahama/event-admin-backend/internal/bulk"
	"github.com/nyashahama/event-admin-backend/internal/config"
	"github.com/nyashahama/event-admin-backend/internal/db"
	"github.com/nyashahama/event-admin-backend/internal/email"
	"github.com/nyashahama/event-admin-backend/internal/invoice"
	"github.com/nyashahama/event-admin-backend/internal/mailtemplate"
	"github.com/nyashahama/event-admin-backend/internal/metrics"
	"github.com/nyashahama/event-admin-backend/internal/retry"
	"github.com/nyashahama/event-admin-backend/internal/store"
	"github.com/nyashahama/event-admin-backend/internal/verification"
	"github.com/nyashahama/event-admin-backend/internal/worker"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)
	if !cfg.SMTPConfigured() {
		logger.Warn("smtp credentials missing: verification and email endpoints will return 503")
	}

	// ── Postgres (teams, members, email log) ──────────────────────────────────
	pool, queries, err := openDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	st := store.New(pool, queries)

	// ── MongoDB (email templates) ─────────────────────────────────────────────
	mongoClient, err := openMongo(cfg.MongoURI)
	if err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(ctx)
	}()

	mongoTemplates := mailtemplate.NewMongoStore(mongoClient.Database(cfg.MongoDatabase))
	idxCtx, cancelIdx := context.WithTimeout(context.Background(), 10*time.Second)
	err = mongoTemplates.EnsureIndexes(idxCtx)
	cancelIdx()
	if err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}
	templates := mailtemplate.NewCached(mongoTemplates, 5*time.Minute)
	logger.Info("mongo connected", "database", cfg.MongoDatabase)

	// ── Metrics ───────────────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// ── Mail transport (SMTP) ─────────────────────────────────────────────────
	mailer := email.NewSMTPTransport(email.SMTPConfig{
		Host:               cfg.SMTPHost,
		Port:               cfg.SMTPPort,
		Username:           cfg.SMTPUser,
		Password:           cfg.SMTPPass,
		FromName:           cfg.SMTPFromName,
		InsecureSkipVerify: cfg.SMTPInsecureSkipVerify,
		Timeout:            cfg.SMTPTimeout,
	}, logger,
		email.WithRetryPolicy(retry.Policy{
			MaxAttempts: cfg.MailMaxAttempts,
			BaseDelay:   cfg.MailBaseBackoff,
			MaxDelay:    cfg.MailMaxBackoff,
		}),
		email.WithMetrics(rec),
	)

	// ── Temporary file janitor ────────────────────────────────────────────────
	janitor := worker.NewJanitor(worker.JanitorConfig{
		Dir:     cfg.InvoiceDir,
		Pattern: invoice.TempPattern,
		MaxAge:  cfg.InvoiceMaxAge,
	}, logger)

	// ── Bulk dispatch & verification ──────────────────────────────────────────
	dispatcher := bulk.NewDispatcher(mailer, templates, logger,
		bulk.WithDelay(cfg.BulkSendDelay),
		bulk.WithMetrics(rec),
	)

	renderer := invoice.NewPDFRenderer()
	verifier := verification.New(st, queries, renderer, mailer, janitor, verification.Config{
		InvoiceDir:     cfg.InvoiceDir,
		CleanupDelay:   cfg.InvoiceCleanupDelay,
		AttachmentName: cfg.EventSlug + "_Invoice.pdf",
		Branding: invoice.Branding{
			EventName:     cfg.EventName,
			OrganizerName: cfg.OrganizerName,
			ContactEmail:  cfg.ContactEmail,
			Currency:      cfg.Currency,
		},
	}, logger, rec)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(api.Deps{
		Q:          queries,
		Store:      st,
		Verifier:   verifier,
		Dispatcher: dispatcher,
		Templates:  templates,
		Mailer:     mailer,
		Invoices:   renderer,
		Cleaner:    janitor,
		Metrics:    rec,
	}, api.Config{
		JWTSecret:   cfg.JWTSecret,
		FrontendURL: cfg.FrontendURL,
		InvoiceDir:  cfg.InvoiceDir,
		EventName:   cfg.EventName,
		Env:         cfg.Env,
	}, logger)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// A bulk send to every team is paced at BULK_SEND_DELAY per recipient
		// and each attempt may wait for SMTP_TIMEOUT.
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	// Root context cancelled by OS signal. Janitor and HTTP server both respect it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	janitorDone := make(chan struct{})
	go func() {
		janitor.Start(ctx)
		close(janitorDone)
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until either a signal arrives or the server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// In-flight bulk sends and verifications get up to a minute to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	<-janitorDone

	logger.Info("shutdown complete")
	return nil
}

// openDB opens the Postgres connection pool and verifies it is reachable.
func openDB(dsn string) (*sql.DB, *db.Queries, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}

	// Tune the connection pool.
	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(10)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}

	return pool, db.New(pool), nil
}

// openMongo connects and pings so a bad URI fails at startup.
func openMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}
	return client, nil
}
