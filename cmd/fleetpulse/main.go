package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/fleetpulse/internal/config"
	"github.com/HerbHall/fleetpulse/internal/device"
	"github.com/HerbHall/fleetpulse/internal/event"
	"github.com/HerbHall/fleetpulse/internal/export"
	"github.com/HerbHall/fleetpulse/internal/monitor"
	"github.com/HerbHall/fleetpulse/internal/probe"
	"github.com/HerbHall/fleetpulse/internal/server"
	"github.com/HerbHall/fleetpulse/internal/settings"
	"github.com/HerbHall/fleetpulse/internal/store"
	"github.com/HerbHall/fleetpulse/internal/version"
	"github.com/HerbHall/fleetpulse/internal/ws"
)

func main() {
	// Subcommand dispatch (before flag.Parse).
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println(version.Info())
		return
	}

	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	v, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("FleetPulse starting", zap.String("version", version.Short()))

	if f := v.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	ctx := context.Background()

	// Open database.
	dbPath := v.GetString("database.path")
	db, err := store.New(dbPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("database initialized",
		zap.String("component", "database"),
		zap.String("path", dbPath),
	)

	// Stores.
	deviceStore, err := device.NewStore(ctx, db)
	if err != nil {
		logger.Fatal("failed to initialize device store", zap.Error(err))
	}
	settingsStore, err := settings.NewStore(ctx, db, logger.Named("settings"))
	if err != nil {
		logger.Fatal("failed to initialize settings store", zap.Error(err))
	}

	// Shared services.
	bus := event.NewBus(logger.Named("event"))
	fastRefresh := settings.NewFastRefresh(settingsStore, deviceStore, logger.Named("fastrefresh"))

	// Monitoring pipeline.
	dispatcher := probe.NewDispatcher(v.GetDuration("monitor.detector_timeout"), logger.Named("probe"))
	queue := monitor.NewResultQueue()
	scheduler := monitor.NewScheduler(
		deviceStore,
		settingsStore,
		dispatcher,
		queue,
		v.GetDuration("monitor.sleep_increment"),
		logger.Named("scheduler"),
	)
	reconciler := monitor.NewReconciler(
		queue,
		deviceStore,
		bus,
		v.GetDuration("monitor.reconcile_interval"),
		logger.Named("reconciler"),
	)

	reconciler.Start(ctx)
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}

	// HTTP surface.
	ready := func(ctx context.Context) error {
		return db.DB().PingContext(ctx)
	}
	addr := net.JoinHostPort(
		v.GetString("server.host"),
		strconv.Itoa(v.GetInt("server.port")),
	)
	srv := server.New(addr, logger.Named("server"), ready,
		device.NewHandler(deviceStore, fastRefresh, logger.Named("device")),
		settings.NewHandler(settingsStore, logger.Named("settings")),
		monitor.NewHandler(ctx, scheduler, reconciler, logger.Named("monitor")),
		ws.NewHandler(bus, logger.Named("ws")),
	)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	scheduler.Stop()
	reconciler.Stop()

	if settingsStore.ExportOnClose(shutdownCtx) {
		exporter := export.NewExporter(deviceStore, reconciler, v.GetString("server.data_dir"), logger.Named("export"))
		if _, err := exporter.WriteReport(shutdownCtx); err != nil {
			logger.Error("failed to write closing report", zap.Error(err))
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("FleetPulse stopped")
}
