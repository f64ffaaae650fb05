package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/duskfield/wxengine/internal/domain"
)

// ControlFlags reads the three system_state rows that gate every order
// submission (mode, paused, kill_switch).
func (db *DB) ControlFlags() (domain.ControlFlags, error) {
	flags := domain.ControlFlags{Mode: domain.ModeDryRun}
	mode, err := db.stateValue("mode")
	if err != nil {
		return flags, err
	}
	if mode != "" {
		flags.Mode = domain.ExecutionMode(mode)
	}
	paused, err := db.stateValue("paused")
	if err != nil {
		return flags, err
	}
	flags.Paused = paused == "true"
	killSwitch, err := db.stateValue("kill_switch")
	if err != nil {
		return flags, err
	}
	flags.KillSwitch = killSwitch == "true"
	return flags, nil
}

func (db *DB) stateValue(key string) (string, error) {
	var value string
	row := db.QueryRow(`SELECT value FROM system_state WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("store: state value %s: %w", key, err)
	}
	return value, nil
}

// SetState sets one system_state key, the primitive behind the control
// surface's pause/resume/kill-switch/mode operator commands.
func (db *DB) SetState(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO system_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("store: set state %s: %w", key, err)
	}
	return nil
}

// RecordOperatorCommand audits one operator control-surface invocation.
func (db *DB) RecordOperatorCommand(command, args, result string) error {
	_, err := db.Exec(`
		INSERT INTO operator_commands (command, args, result) VALUES (?, ?, ?)
	`, command, args, result)
	if err != nil {
		return fmt.Errorf("store: record operator command %s: %w", command, err)
	}
	return nil
}

// InsertConfigSnapshot records a config document's content under its hash,
// a no-op if that hash was already recorded.
func (db *DB) InsertConfigSnapshot(hash, configJSON string) error {
	_, err := db.Exec(`
		INSERT OR IGNORE INTO config_snapshots (config_hash, config_json) VALUES (?, ?)
	`, hash, configJSON)
	if err != nil {
		return fmt.Errorf("store: insert config snapshot: %w", err)
	}
	return nil
}
