package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	_ "modernc.org/sqlite"

	"leadtracker/internal/adapters/email"
	web "leadtracker/internal/adapters/http"
	"leadtracker/internal/adapters/http/perf"
	"leadtracker/internal/adapters/storage"
	contestStore "leadtracker/internal/adapters/storage/contest"
	leadStore "leadtracker/internal/adapters/storage/lead"
	outboxStore "leadtracker/internal/adapters/storage/outbox"
	"leadtracker/internal/application/orchestrators"
	"leadtracker/internal/config"
	"leadtracker/internal/domain/outbox"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	path := flag.String("config", "", "path to a TOML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(config.NewLogger(cfg.Log, os.Stderr))

	if err := run(cfg); err != nil {
		slog.Error("server_failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	csrfKey, err := cfg.CSRFKey()
	if err != nil {
		return err
	}

	// WAL mode and busy timeout let concurrent readers run beside the single writer
	dsn := cfg.DB.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if err := storage.InitDB(db); err != nil {
		return err
	}
	slog.Info("database_ready", "path", cfg.DB.Path)

	// Performance instrumentation: wrap DB with timing, create collector
	var collector *perf.Collector
	if cfg.HTTP.PerfEnabled {
		collector = perf.NewCollector(perf.DefaultRingSize)
	}
	timedDB := storage.NewTimedDB(db, collector, cfg.DB.SlowQueryMs)

	stores := &web.Stores{
		LeadStore:    leadStore.NewSQLiteStore(timedDB),
		ContestStore: contestStore.NewSQLiteStore(timedDB),
		OutboxStore:  outboxStore.NewSQLiteStore(timedDB),
	}

	notify := notifier(cfg)
	workerDone := startOutbox(ctx, cfg, stores.OutboxStore, notify.Sender)

	mux := web.NewMux(web.Deps{
		Stores:    stores,
		Notify:    notify,
		Collector: collector,
		Location:  loc,
		Endpoint:  cfg.Endpoint,
	})
	handler := web.NewHandler(ctx, mux, web.Edge{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		CSRFKey:        csrfKey,
		Secure:         cfg.IsProduction(),
		RatePerMinute:  cfg.HTTP.RatePerMinute,
		SlowRequestMs:  cfg.HTTP.SlowRequestMs,
	}, collector)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_starting", "version", version, "addr", cfg.Addr, "endpoint", cfg.Endpoint,
			"env", cfg.Env, "timezone", cfg.Timezone)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("server_stopping", "timeout", cfg.ShutdownTimeout())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	if workerDone != nil {
		<-workerDone
	}
	return err
}

// startOutbox retries queued notifications in the background. Returns nil
// when notifications are disabled.
func startOutbox(ctx context.Context, cfg config.Config, store outboxStore.Store, sender email.Sender) <-chan struct{} {
	if sender == nil {
		return nil
	}
	if counts, err := store.CountByStatus(ctx); err != nil {
		slog.Warn("outbox_backlog_unknown", "error", err)
	} else if counts[outbox.StatusPending]+counts[outbox.StatusRetrying] > 0 {
		slog.Info("outbox_backlog", "pending", counts[outbox.StatusPending], "retrying", counts[outbox.StatusRetrying],
			"failed", counts[outbox.StatusFailed])
	}
	return orchestrators.StartOutboxWorker(ctx, cfg.Notify.RetryInterval(), orchestrators.DeliverOutboxDeps{
		OutboxStore: store,
		Sender:      sender,
		Now:         time.Now,
	})
}

// notifier picks the email sender for slab achievement notifications.
func notifier(cfg config.Config) web.Notifier {
	n := web.Notifier{
		Recipients:  cfg.Notify.Recipients,
		Printer:     message.NewPrinter(language.Make(cfg.Notify.Locale)),
		Currency:    cfg.Notify.Currency,
		MaxAttempts: cfg.Notify.MaxAttempts,
	}
	switch {
	case len(n.Recipients) == 0:
		slog.Info("notifications_disabled", "reason", "no recipients configured")
	case cfg.Notify.ResendAPIKey != "":
		n.Sender = email.NewResendSender(cfg.Notify.ResendAPIKey, cfg.Notify.From)
		slog.Info("notifications_enabled", "sender", "resend", "recipients", len(n.Recipients))
	default:
		n.Sender = email.NewNoopSender()
		if cfg.IsProduction() {
			slog.Warn("notifications_not_delivered", "reason", "CRM_NOTIFY_RESEND_API_KEY is not set")
		} else {
			slog.Info("notifications_enabled", "sender", "noop", "recipients", len(n.Recipients))
		}
	}
	return n
}
