package main

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"MentorMatchserver/internal/auth"
	"MentorMatchserver/internal/config"
	"MentorMatchserver/internal/httpapi"
	"MentorMatchserver/internal/notifications"
	"MentorMatchserver/internal/service"
	"MentorMatchserver/internal/store/memory"
	"MentorMatchserver/internal/store/postgres"
)

type stores struct {
	users      service.UsersStore
	profiles   service.ProfileStore
	candidates service.CandidatesStore
	ledger     service.LedgerStore
	tokens     service.NotificationTokensStore
	ping       func(context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	var st stores
	if cfg.DBDSN != "" {
		pgPool, err := postgres.Open(ctx, cfg.DBDSN, cfg.DBMaxConns)
		if err != nil {
			logger.Error("db open failed", "err", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		if err := postgres.Migrate(ctx, pgPool, logger); err != nil {
			logger.Error("db migrate failed", "err", err)
			os.Exit(1)
		}

		users := postgres.NewUsersStore(pgPool)
		profiles := postgres.NewProfilesStore(pgPool)
		st = stores{
			users:      users,
			profiles:   profiles,
			candidates: profiles,
			ledger:     postgres.NewLedgerStore(pgPool),
			tokens:     postgres.NewNotificationTokensStore(pgPool),
			ping:       users.Ping,
		}
	} else {
		logger.Warn("APP_DB_DSN not set, using in-memory store; data is lost on restart")
		mem := memory.NewStore()
		st = stores{
			users:      mem,
			profiles:   mem,
			candidates: mem,
			ledger:     mem,
			tokens:     mem,
		}
	}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			logger.Error("generate jwt secret failed", "err", err)
			os.Exit(1)
		}
		logger.Warn("APP_JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}

	var sender service.PushSender
	if cfg.PushEnabled() {
		fcm, err := notifications.NewFCMSender(ctx, cfg.FCMProjectID, cfg.FCMCredentialsFile)
		if err != nil {
			logger.Error("fcm sender init failed", "err", err)
			os.Exit(1)
		}
		sender = fcm
		logger.Info("push notifications enabled", "project_id", cfg.FCMProjectID)
	} else {
		logger.Info("push notifications disabled")
	}

	notificationsSvc := &service.NotificationService{
		Tokens: st.tokens,
		Users:  st.users,
		Sender: sender,
		Logger: logger,
	}
	ledgerSvc := &service.LedgerService{
		Users:    st.users,
		Ledger:   st.ledger,
		Notifier: notificationsSvc,
		Logger:   logger,
	}

	apiRouter := httpapi.NewRouter(httpapi.RouterOpts{
		Logger: logger,
		IsProd: cfg.IsProd(),
		DBPing: st.ping,
		Auth: &service.AuthService{
			Users:               st.users,
			Tokens:              auth.NewTokenCodec(secret, cfg.TokenTTL),
			GoogleClientID:      cfg.GoogleClientID,
			VerifyGoogleIDToken: auth.VerifyGoogleIDToken,
			AppleServiceID:      cfg.AppleServiceID,
			VerifyAppleIDToken:  auth.VerifyAppleIDToken,
		},
		Ledger:        ledgerSvc,
		Discover:      &service.DiscoverService{Candidates: st.candidates, Ledger: ledgerSvc},
		Profile:       &service.ProfileService{Store: st.profiles},
		Notifications: notificationsSvc,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiRouter,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr, "db_enabled", cfg.DBDSN != "")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", "err", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
