package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
	"github.com/MRamiBalles/cookie-engine/internal/engine"
	"github.com/MRamiBalles/cookie-engine/internal/events"
	"github.com/MRamiBalles/cookie-engine/internal/infra/storage"
	"github.com/MRamiBalles/cookie-engine/internal/network"
	"github.com/MRamiBalles/cookie-engine/internal/platform/config"
	"github.com/MRamiBalles/cookie-engine/internal/platform/logger"
	"github.com/MRamiBalles/cookie-engine/internal/platform/metrics"
	"github.com/MRamiBalles/cookie-engine/internal/save"
)

func newServeCmd() *cobra.Command {
	var retain time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine with the websocket and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(retain)
		},
	}
	cmd.Flags().DurationVar(&retain, "retain", 30*24*time.Hour, "prune persisted events older than this at startup (0 keeps all)")
	return cmd
}

func runServe(retain time.Duration) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	appLogger := logger.NewLogger()
	slot := cfg.Storage.Slot

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLogger.Infof("Initializing SQLite database '%s'...", cfg.Storage.SQLitePath)
	db, err := storage.InitSQLite(cfg.Storage.SQLitePath, cfg.Storage.MaxOpenConns)
	if err != nil {
		return fmt.Errorf("init sqlite: %w", err)
	}
	defer db.Close()
	saves := storage.NewSQLiteSaveRepository(db)
	eventRepo := storage.NewSQLiteEventRepository(db)

	if retain > 0 {
		if n, err := eventRepo.Prune(ctx, slot, time.Now().Add(-retain)); err != nil {
			appLogger.Warnf("event prune failed: %v", err)
		} else if n > 0 {
			appLogger.Infof("Pruned %d old events from slot %s.", n, slot)
		}
	}

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewEventLog(storage.NewPersister(eventRepo, slot), cfg.Server.EventRetention)
	defer eventLog.Close()

	appLogger.Info("Bootstrapping Engine...")
	eng, err := engine.NewEngine(nil, cfg.Engine, engine.WithSink(eventLog), engine.WithLogger(appLogger))
	if err != nil {
		return err
	}
	if err := restoreSlot(ctx, eng, saves, slot, appLogger); err != nil {
		return err
	}

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(eng, cfg.Server, appLogger)
	hub.Attach(eventLog)
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/metrics/prometheus", metrics.PrometheusHandler())
	network.NewHistoryHandler(eventLog, storage.NewReconstructor(eventRepo), slot, appLogger).RegisterRoutes(mux)
	network.NewTriggerBridge(eng, appLogger).RegisterRoutes(mux)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		appLogger.Infof("HTTP API & WS Server listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Errorf("Server failed: %v", err)
			stop()
		}
	}()

	saveFn := func(ctx context.Context, data []byte) error {
		return saves.Put(ctx, storage.SaveRecord{Slot: slot, Data: data, Version: save.Version, SavedAt: time.Now()})
	}
	ticker := engine.NewTicker(eng, cfg.Engine.TickInterval, cfg.Engine.AutosaveInterval, saveFn, appLogger)
	runErr := ticker.Start(ctx)

	appLogger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Warnf("http shutdown: %v", err)
	}
	for _, note := range config.Analyze(cfg, metrics.Get().Snapshot()).Notes {
		appLogger.Infof("tuning: %s", note)
	}
	return runErr
}

// restoreSlot loads the saved game, if any. A corrupt save is copied aside
// under "<slot>.corrupt" and the engine starts fresh.
func restoreSlot(ctx context.Context, eng *engine.Engine, saves storage.SaveRepository, slot string, log *logger.Logger) error {
	rec, err := saves.Get(ctx, slot)
	if errors.Is(err, storage.ErrNotFound) {
		log.Infof("No save in slot %s, starting a fresh game.", slot)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read slot %s: %w", slot, err)
	}

	rep, err := eng.Load(rec.Data)
	if gameerr.IsCorrupt(err) {
		bad := *rec
		bad.Slot = slot + ".corrupt"
		if perr := saves.Put(ctx, bad); perr != nil {
			log.Errorf("could not keep corrupt save: %v", perr)
		}
		log.Warnf("Save in slot %s was corrupt, kept as %s.", slot, bad.Slot)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load slot %s: %w", slot, err)
	}
	log.Infof("Restored slot %s: %s offline, +%s cookies.", slot, rep.Elapsed.Round(time.Second), logger.Cookies(rep.OfflineCredit))
	return nil
}
