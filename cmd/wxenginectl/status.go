package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/duskfield/wxengine/internal/config"
	"github.com/duskfield/wxengine/internal/supervisor"
)

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the YAML config file")
	dataDir := fs.String("data-dir", "", "override the data directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	stats, err := supervisor.ReadStats(filepath.Join(cfg.DataDir, "wxengine_stats.json"))
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no daemon has run in this data directory")
			return nil
		}
		return fmt.Errorf("read stats: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func runStop(args []string) error {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the YAML config file")
	dataDir := fs.String("data-dir", "", "override the data directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := supervisor.Stop(cfg.PIDFile); err != nil {
		return fmt.Errorf("stop daemon: %w", err)
	}
	fmt.Println("daemon stopped")
	return nil
}
