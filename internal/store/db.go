// Package store is the engine's single SQLite-backed State Store:
// connection setup with profile-tuned PRAGMAs and pool limits, the
// migration runner, and one repo_*.go file per logical table group
// (market, forecast, signal, risk, order, position, state, run).
//
// The wrapping pattern (Config{Path,Profile,Name}, PRAGMA tuning by
// profile, pool sizing, context-bounded ping) follows the shape of the
// database layer this service was generalized from: a DatabaseProfile
// enum picking fsync/auto_vacuum tradeoffs, and New() opening with
// those baked into the DSN.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rs/zerolog"
)

// Profile selects a PRAGMA/pool tuning tradeoff for the store's write
// pattern.
type Profile string

const (
	// ProfileLedger favors durability over throughput: full fsync, no
	// auto-vacuum reclaiming. This is the only profile the engine uses —
	// every table here is either append-only audit or a small control
	// surface, and both want durability over write throughput.
	ProfileLedger Profile = "ledger"
)

// Config describes how to open the store.
type Config struct {
	Path string
	Name string
}

// DB wraps a configured *sql.DB.
type DB struct {
	*sql.DB
	cfg Config
	log zerolog.Logger
}

// New opens (creating if absent) the SQLite database at cfg.Path with
// ledger-profile PRAGMAs and pool limits sized for a single-writer
// daemon.
func New(cfg Config, log zerolog.Logger) (*DB, error) {
	if cfg.Name == "" {
		cfg.Name = "engine"
	}

	connStr := buildConnectionString(cfg.Path)
	sqlDB, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.Name, err)
	}

	configureConnectionPool(sqlDB)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("store: ping %s: %w", cfg.Name, err)
	}

	return &DB{
		DB:  sqlDB,
		cfg: cfg,
		log: log.With().Str("component", "store").Str("db", cfg.Name).Logger(),
	}, nil
}

func buildConnectionString(path string) string {
	pragmas := []string{
		"foreign_keys(1)",
		"wal_autocheckpoint(1000)",
		"cache_size(-64000)",
		"synchronous(FULL)",
		"auto_vacuum(NONE)",
		"journal_mode(WAL)",
	}
	return fmt.Sprintf("file:%s?_pragma=%s", path, strings.Join(pragmas, "&_pragma="))
}

func configureConnectionPool(db *sql.DB) {
	// A single daemon process drives the whole pipeline sequentially
	// (spec: one cycle at a time); a small pool just absorbs the
	// occasional concurrent control-surface request.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(24 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)
}
