// Package main is the entry point for the predictarena server. It wires the
// in-memory engine to the public API, the admin backoffice, the WebSocket
// hub, the event dispatcher and the background scheduler, and runs them all
// until SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evetabi/predictarena/internal/api"
	"github.com/evetabi/predictarena/internal/backoffice"
	"github.com/evetabi/predictarena/internal/config"
	"github.com/evetabi/predictarena/internal/notify"
	"github.com/evetabi/predictarena/internal/repository"
	"github.com/evetabi/predictarena/internal/scheduler"
	"github.com/evetabi/predictarena/internal/service"
	"github.com/evetabi/predictarena/internal/ws"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

func main() {
	// ── 1. Logger ─────────────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting predictarena server", "env", cfg.Server.Env, "port", cfg.Server.Port)

	// ── 2. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 3. Store & repositories ───────────────────────────────────────────────
	store := repository.NewStore()
	locks := repository.NewLockTable()
	marketRepo := repository.NewMarketRepository(store)
	tradeRepo := repository.NewTradeRepository(store)
	stakeRepo := repository.NewStakeRepository(store)
	tournamentRepo := repository.NewTournamentRepository(store)
	userRepo := repository.NewUserRepository(store)

	// ── 4. Snapshot archive (optional) ────────────────────────────────────────
	var snapshots *repository.SnapshotWriter
	if cfg.Snapshot.Enabled {
		db, err := sqlx.Connect("postgres", cfg.Snapshot.DSN)
		if err != nil {
			logger.Error("snapshot database connection failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()

		snapshots = repository.NewSnapshotWriter(db, store, logger)
		if err := snapshots.EnsureSchema(ctx); err != nil {
			logger.Error("snapshot schema failed", "err", err)
			os.Exit(1)
		}
		logger.Info("snapshot archive enabled", "interval", cfg.Snapshot.Interval)
	}

	// ── 5. Services ───────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(cfg)
	marketSvc := service.NewMarketService(store, marketRepo, tradeRepo, cfg, logger)
	tradeSvc := service.NewTradeService(store, locks, marketRepo, tradeRepo, cfg, logger)
	stakeSvc := service.NewStakeService(store, locks, marketRepo, stakeRepo, cfg, logger)
	settlementSvc := service.NewSettlementService(store, locks, marketRepo, stakeRepo, cfg, logger)
	tournamentSvc := service.NewTournamentService(store, locks, marketRepo, tournamentRepo, cfg, logger)
	statsSvc := service.NewStatsService(store, marketRepo, stakeRepo, tournamentRepo, userRepo, cfg, logger)

	// ── 6. WebSocket hub & event dispatcher ───────────────────────────────────
	hub := ws.NewHub([]byte(cfg.Auth.AccessSecret), cfg.Server.WSAllowedOrigins, logger)

	dispatcher := notify.NewDispatcher(cfg.Notify, logger, notify.NewLogSink(logger), hub)
	if cfg.Redis.Enabled {
		rdb, err := notify.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Error("redis connection failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		dispatcher.AddSink(notify.NewRedisSink(rdb, cfg.Redis))
		logger.Info("redis event publisher enabled", "addr", cfg.Redis.Addr)
	}

	// Wire the dispatcher into every mutating service
	marketSvc.SetNotifier(dispatcher)
	tradeSvc.SetNotifier(dispatcher)
	stakeSvc.SetNotifier(dispatcher)
	settlementSvc.SetNotifier(dispatcher)
	tournamentSvc.SetNotifier(dispatcher)

	// ── 7. Scheduler ──────────────────────────────────────────────────────────
	var flusher scheduler.SnapshotFlusher
	if snapshots != nil {
		flusher = snapshots
	}
	sched := scheduler.NewScheduler(statsSvc, hub, flusher, cfg, logger)

	// ── 8. HTTP servers ───────────────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		AuthSvc:       authSvc,
		MarketSvc:     marketSvc,
		TradeSvc:      tradeSvc,
		StakeSvc:      stakeSvc,
		SettlementSvc: settlementSvc,
		TournamentSvc: tournamentSvc,
		StatsSvc:      statsSvc,
		Hub:           hub,
		Cfg:           cfg,
	})
	servers := []*http.Server{{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}}

	if cfg.Server.BackofficePort != "" {
		adminRouter := backoffice.SetupBackofficeRouter(backoffice.BackofficeDeps{
			AuthSvc:       authSvc,
			MarketSvc:     marketSvc,
			TradeSvc:      tradeSvc,
			StakeSvc:      stakeSvc,
			TournamentSvc: tournamentSvc,
			StatsSvc:      statsSvc,
			Dispatcher:    dispatcher,
			Hub:           hub,
			Cfg:           cfg,
		})
		servers = append(servers, &http.Server{
			Addr:         ":" + cfg.Server.BackofficePort,
			Handler:      adminRouter,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		})
	}

	// ── 9. Run everything ─────────────────────────────────────────────────────
	// The hub and dispatcher outlive the servers so events emitted by
	// requests still in flight during shutdown are delivered.
	lc := &lifecycle{
		servers:         servers,
		foreground:      []runFunc{sched.Run},
		background:      []runFunc{hub.Run, dispatcher.Run},
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		log:             logger,
	}
	if err := lc.run(ctx); err != nil {
		logger.Error("server exited with error", "err", err)
	}

	// Final archive so the last writes survive the restart.
	if snapshots != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := snapshots.Flush(flushCtx)
		cancel()
		if err != nil {
			logger.Error("final snapshot failed", "err", err)
		} else {
			logger.Info("final snapshot written", "rows", n)
		}
	}

	logger.Info("server stopped cleanly")
}
