package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/duskfield/wxengine/internal/backup"
	"github.com/duskfield/wxengine/internal/clients/forecasts"
	"github.com/duskfield/wxengine/internal/clients/markets"
	"github.com/duskfield/wxengine/internal/config"
	"github.com/duskfield/wxengine/internal/control"
	"github.com/duskfield/wxengine/internal/logging"
	"github.com/duskfield/wxengine/internal/pipeline"
	"github.com/duskfield/wxengine/internal/store"
	"github.com/duskfield/wxengine/internal/supervisor"
)

const defaultControlAddr = "127.0.0.1:8777"

func runDaemon(args []string) error {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the YAML config file")
	dataDir := fs.String("data-dir", "", "override the data directory")
	addr := fs.String("addr", defaultControlAddr, "control server listen address")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	pretty := fs.Bool("pretty", false, "console-format logs instead of JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.New(logging.Config{Level: *logLevel, Pretty: *pretty})

	db, err := store.New(store.Config{Path: cfg.DBPath, Name: "engine"}, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	gammaClient := markets.New(time.Duration(cfg.Ops.RequestDelayMs)*time.Millisecond, log)
	gridClient := forecasts.New(log)

	runner := pipeline.New(cfg, db, gammaClient, gridClient, gammaClient, log)

	daemon := supervisor.New(
		runner,
		cfg.PIDFile,
		filepath.Join(cfg.DataDir, "wxengine_stats.json"),
		cfg.LogDir,
		string(cfg.Execution.Mode),
		time.Duration(cfg.Ops.ScanIntervalMinutes)*time.Minute,
		log,
	)

	controlServer := control.New(*addr, db, &cfg, log)
	go func() {
		if err := controlServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("control server stopped")
		}
	}()

	var backupScheduler *backup.Scheduler
	if cfg.Backup.Enabled {
		backupScheduler, err = buildBackupScheduler(db, cfg, log)
		if err != nil {
			log.Error().Err(err).Msg("backup scheduler disabled: setup failed")
			backupScheduler = nil
		} else if err := backupScheduler.Start(); err != nil {
			log.Error().Err(err).Msg("backup scheduler failed to start")
		}
	}

	err = daemon.Start(context.Background())

	if backupScheduler != nil {
		backupScheduler.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := controlServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("control server forced to shutdown")
	}

	return err
}

func buildBackupScheduler(db *store.DB, cfg config.Config, log zerolog.Logger) (*backup.Scheduler, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := backup.NewClient(ctx, cfg.Backup, log)
	if err != nil {
		return nil, fmt.Errorf("build backup client: %w", err)
	}
	service := backup.NewService(db, "engine", filepath.Join(cfg.DataDir, "backup-staging"), client, log)
	return backup.NewScheduler(service, cfg.Backup, log), nil
}
