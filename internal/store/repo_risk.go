package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/duskfield/wxengine/internal/domain"
)

// InsertRiskChecks persists all ten RiskCheckResults for one candidate
// signal, keyed by its prospective idempotency key, regardless of verdict.
// The risk engine never short-circuits, so every check is recorded even
// when an earlier one already failed.
func (db *DB) InsertRiskChecks(runID, idempotencyKey string, checks []domain.RiskCheckResult) error {
	if len(checks) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("store: insert risk checks: begin: %w", err)
	}
	defer tx.Rollback()

	for _, c := range checks {
		var blockReason any
		if !c.Passed {
			blockReason = string(c.BlockReason)
		}
		if _, err := tx.Exec(`
			INSERT INTO risk_checks (run_id, idempotency_key, check_name, passed, block_reason, detail)
			VALUES (?, ?, ?, ?, ?, ?)
		`, runID, idempotencyKey, c.CheckName, c.Passed, blockReason, c.Detail); err != nil {
			return fmt.Errorf("store: insert risk check %s: %w", c.CheckName, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: insert risk checks: commit: %w", err)
	}
	return nil
}

// DailyLossSoFar sums realized PnL recorded for the given calendar date
// (YYYY-MM-DD), used by the daily_loss risk check.
func (db *DB) DailyLossSoFar(date string) (float64, error) {
	var total float64
	row := db.QueryRow(`SELECT COALESCE(realized_pnl, 0.0) FROM daily_pnl WHERE date = ?`, date)
	if err := row.Scan(&total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("store: daily loss so far: %w", err)
	}
	return total, nil
}
