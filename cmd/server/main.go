package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"bot_license_panel/internal/auth"
	"bot_license_panel/internal/config"
	"bot_license_panel/internal/domain"
	"bot_license_panel/internal/health"
	"bot_license_panel/internal/httpapi"
	"bot_license_panel/internal/logging"
	"bot_license_panel/internal/notify"
	"bot_license_panel/internal/store"
	"bot_license_panel/internal/telegram"
)

const (
	mongoConnectTimeout    = 10 * time.Second
	mongoIndexTimeout      = 5 * time.Second
	mongoDisconnectTimeout = 5 * time.Second
	startupStatsTimeout    = 5 * time.Second
	httpShutdownTimeout    = 10 * time.Second
)

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(config.FormatRedacted(cfg))
		return
	}

	logger.WithFields(logging.Fields{
		"event":    "startup",
		"mongo_db": cfg.MongoDB,
	}).Info("configuration loaded")

	connectCtx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	mongoManager, err := store.NewManager(connectCtx, cfg)
	cancel()
	if err != nil {
		logger.WithError(err).Error("mongo connection error")
		fmt.Fprintf(os.Stderr, "mongo connection error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "mongo_connect").Info("connected to mongo")

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), mongoIndexTimeout)
	if err := mongoManager.EnsureBaseIndexes(indexCtx); err != nil {
		cancelIndexes()
		logger.WithError(err).Error("mongo index setup error")
		fmt.Fprintf(os.Stderr, "mongo index setup error: %v\n", err)
		os.Exit(1)
	}
	cancelIndexes()

	logger.WithField("event", "mongo_indexes").Info("ensured base mongo indexes")

	bots := domain.NewBotRepository(mongoManager.Bots())
	sessions := domain.NewSessionRepository(mongoManager.Sessions())
	statsProvider := store.NewStatsProvider(mongoManager.Bots())

	logStartupStats(logger, statsProvider)

	sessionManager, err := auth.NewSessionManager(sessions, cfg.SessionSecret)
	if err != nil {
		logger.WithError(err).Error("session manager setup error")
		fmt.Fprintf(os.Stderr, "session manager setup error: %v\n", err)
		os.Exit(1)
	}

	flow, err := auth.NewFlow(cfg, sessionManager, logger)
	if err != nil {
		logger.WithError(err).Error("oauth flow setup error")
		fmt.Fprintf(os.Stderr, "oauth flow setup error: %v\n", err)
		os.Exit(1)
	}

	gate := auth.NewGate(cfg.AdminID, sessionManager, logger)
	notifier := notify.NewNotifier(cfg.NotifySecret, logger)

	alerter, err := telegram.NewAlerter(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("telegram alerter setup error")
		fmt.Fprintf(os.Stderr, "telegram alerter setup error: %v\n", err)
		os.Exit(1)
	}

	var serverOpts []httpapi.Option
	if alerter != nil {
		serverOpts = append(serverOpts, httpapi.WithAlerter(alerter))
		logger.WithField("event", "alerts_ready").Info("telegram operator alerts enabled")
	}

	apiServer, err := httpapi.NewServer(cfg.HTTPPort, bots, notifier, gate, flow, logger, serverOpts...)
	if err != nil {
		logger.WithError(err).Error("api server setup error")
		fmt.Fprintf(os.Stderr, "api server setup error: %v\n", err)
		os.Exit(1)
	}

	healthServer := health.NewServer(cfg.HealthPort, mongoManager, logger)

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiDone := make(chan struct{})
	go func() {
		if err := apiServer.ListenAndServe(); err != nil {
			logger.WithError(err).Error("api server error")
		}
		close(apiDone)
	}()

	healthDone := make(chan struct{})
	go func() {
		if err := healthServer.ListenAndServe(); err != nil {
			logger.WithError(err).Error("health server error")
		}
		close(healthDone)
	}()

	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping servers")
	case <-apiDone:
		logger.WithField("event", "api_stopped_early").Warn("api server stopped before shutdown signal")
	case <-healthDone:
		logger.WithField("event", "health_stopped_early").Warn("health server stopped before shutdown signal")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), httpShutdownTimeout)
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("api server shutdown error")
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("health server shutdown error")
	}
	cancelShutdown()

	disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
	if err := mongoManager.Close(disconnectCtx); err != nil {
		logger.WithError(err).Error("mongo disconnect error")
	} else {
		logger.WithField("event", "mongo_disconnect").Info("mongo client disconnected")
	}
	cancelDisconnect()

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}

func logStartupStats(logger *logrus.Entry, stats *store.StatsProvider) {
	ctx, cancel := context.WithTimeout(context.Background(), startupStatsTimeout)
	defer cancel()

	total, err := stats.CountBots(ctx)
	if err != nil {
		logger.WithError(err).Warn("startup bot count failed")
		return
	}

	approved, err := stats.CountApproved(ctx)
	if err != nil {
		logger.WithError(err).Warn("startup approved count failed")
		return
	}

	pending, err := stats.CountAwaitingApproval(ctx)
	if err != nil {
		logger.WithError(err).Warn("startup pending count failed")
		return
	}

	logger.WithFields(logging.Fields{
		"event":    "startup_stats",
		"bots":     total,
		"approved": approved,
		"pending":  pending,
	}).Info("bot registry stats")
}
