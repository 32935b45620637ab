package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lysyi3m/autoleech/app/api"
	"github.com/lysyi3m/autoleech/app/cfg"
	"github.com/lysyi3m/autoleech/app/database"
	"github.com/lysyi3m/autoleech/app/feed"
	"github.com/lysyi3m/autoleech/app/ledger"
	"github.com/lysyi3m/autoleech/app/pipeline"
	"github.com/lysyi3m/autoleech/app/tasks"
	"github.com/lysyi3m/autoleech/app/telegram"
	"github.com/lysyi3m/autoleech/app/torrent"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting autoleech", "version", appCfg.Version)

	policy, err := cfg.LoadPolicy(appCfg.PolicyFile)
	if err != nil {
		slog.Error("Failed to load delivery policy", "file", appCfg.PolicyFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Delivery policy loaded", "extensions", policy.Extensions, "max_upload_size", policy.MaxUploadSize)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	schema, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", schema.Version, "applied", schema.Applied)

	deliveries := database.NewDeliveryRepository(db)
	feeds := ledger.New(appCfg.FeedsFile)

	backend := torrent.NewQBittorrent(appCfg.QBURL(), appCfg.QBUsername, appCfg.QBPassword, appCfg.BackendTimeout)
	if err := backend.Authenticate(context.Background()); err != nil {
		// Keep running; every cycle retries and logs backend errors
		slog.Error("qBittorrent login failed, continuing degraded", "url", appCfg.QBURL(), "error", err)
	} else {
		slog.Info("Connected to qBittorrent", "url", appCfg.QBURL())
	}

	messenger, err := telegram.NewMessenger(appCfg.TelegramToken, appCfg.TelegramAPIEndpoint,
		appCfg.TelegramTarget, appCfg.UploadTimeout)
	if err != nil {
		slog.Error("Invalid Telegram configuration", "error", err)
		os.Exit(1)
	}

	fetcher := feed.NewFetcher(&http.Client{}, feed.NewParser(), appCfg.UserAgent, appCfg.FeedTimeout)
	gate := pipeline.NewGate(feeds, fetcher, backend, appCfg.DownloadPath, appCfg.MarkerTag)
	scanner := pipeline.NewScanner(backend, appCfg.MarkerTag, policy.Extensions)
	deliverer := pipeline.NewDeliverer(backend, messenger, deliveries, policy.MaxUploadSize)

	scheduler := tasks.NewScheduler(feeds, gate, scanner, deliverer, backend, appCfg.MarkerTag, appCfg.SchedulerInterval)
	slog.Info("Starting scheduler", "interval", appCfg.SchedulerInterval, "feeds_file", feeds.Path(), "tag", appCfg.MarkerTag)
	scheduler.Start()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	bot := telegram.NewBot(messenger, scheduler, appCfg.TelegramAdminIDs)
	wg.Add(1)
	go func() {
		defer wg.Done()
		bot.Run(ctx)
	}()

	serverErrChan := make(chan error, 1)
	var httpServer *http.Server
	if appCfg.Port != "" {
		handler := api.NewHandler(scheduler, deliveries, appCfg.Version)
		httpServer = &http.Server{
			Addr:         ":" + appCfg.Port,
			Handler:      api.NewServer(handler, appCfg.APIAccessKey),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute, // /api/refresh waits for a full enqueue run
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			slog.Info("Starting HTTP server", "port", appCfg.Port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("autoleech started successfully")

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server stopped")
		}
	}

	cancel()
	wg.Wait()
	slog.Info("Telegram bot stopped")

	scheduler.Stop()
	slog.Info("Scheduler stopped")

	slog.Info("autoleech shutdown complete")
}
