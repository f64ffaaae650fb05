package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/duskfield/wxengine/internal/domain"
)

// IntentExists reports whether an order intent with this idempotency key
// has already been persisted, the executor's first line of defense against
// double-submission across process restarts.
func (db *DB) IntentExists(idempotencyKey string) (bool, error) {
	var count int
	row := db.QueryRow(`SELECT COUNT(1) FROM order_intents WHERE idempotency_key = ?`, idempotencyKey)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("store: intent exists: %w", err)
	}
	return count > 0, nil
}

// InsertOrderIntent persists the intent to submit an order. This must
// commit before the executor dispatches to a broker adapter, so that a
// crash mid-dispatch leaves a durable record to reconcile against.
func (db *DB) InsertOrderIntent(in domain.OrderIntent) error {
	_, err := db.Exec(`
		INSERT INTO order_intents (
			run_id, idempotency_key, market_id, clob_token_id, side, price, size_usd,
			city_slug, target_date, bucket_label, net_edge
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		in.RunID, in.IdempotencyKey, in.MarketID, in.ClobTokenID, string(in.Side),
		in.Price, in.SizeUSD, in.CitySlug, in.TargetDate, in.BucketLabel, in.NetEdge,
	)
	if err != nil {
		return fmt.Errorf("store: insert order intent %s: %w", in.IdempotencyKey, err)
	}
	return nil
}

// InsertOrderResult persists the terminal outcome of dispatching an intent.
func (db *DB) InsertOrderResult(res domain.OrderResult) error {
	_, err := db.Exec(`
		INSERT INTO order_results (idempotency_key, status, fill_price, fill_size, error_message)
		VALUES (?, ?, ?, ?, ?)
	`, res.IdempotencyKey, string(res.Status), nullableFloat(res.FillPrice), nullableFloat(res.FillSize), res.ErrorMessage)
	if err != nil {
		return fmt.Errorf("store: insert order result %s: %w", res.IdempotencyKey, err)
	}
	return nil
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// TradesExecutedInRun counts FILLED/DRY_RUN/SUBMITTED order results whose
// intent belongs to runID, used by the trades_per_run risk check.
func (db *DB) TradesExecutedInRun(runID string) (int, error) {
	var n int
	row := db.QueryRow(`
		SELECT COUNT(1)
		FROM order_results r
		JOIN order_intents i ON i.idempotency_key = r.idempotency_key
		WHERE i.run_id = ? AND r.status IN ('FILLED', 'DRY_RUN', 'SUBMITTED')
	`, runID)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("store: trades executed in run: %w", err)
	}
	return n, nil
}

// LastFilledAt returns the most recent executed_at among FILLED/DRY_RUN
// order results for the given market, used by the cooldown risk check.
func (db *DB) LastFilledAt(marketID string) (string, bool, error) {
	row := db.QueryRow(`
		SELECT r.executed_at
		FROM order_results r
		JOIN order_intents i ON i.idempotency_key = r.idempotency_key
		WHERE i.market_id = ? AND r.status IN ('FILLED', 'DRY_RUN')
		ORDER BY r.executed_at DESC LIMIT 1
	`, marketID)
	var executedAt string
	if err := row.Scan(&executedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("store: last filled at: %w", err)
	}
	return executedAt, true, nil
}
