// Package execute coordinates the safety pipeline around dispatching one
// order intent to a broker adapter: a defense-in-depth kill-switch
// recheck, idempotency detection, and intent-before-dispatch persistence
// so a crash mid-dispatch always leaves a durable, reconcilable record.
package execute

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/duskfield/wxengine/internal/domain"
	"github.com/duskfield/wxengine/internal/store"
)

// Executor dispatches OrderIntents through one BrokerAdapter.
type Executor struct {
	db      *store.DB
	adapter domain.BrokerAdapter
	log     zerolog.Logger
}

// New binds an Executor to a database handle and the adapter that will
// carry out approved orders (dry-run or live, per the configured mode).
func New(db *store.DB, adapter domain.BrokerAdapter, log zerolog.Logger) *Executor {
	return &Executor{db: db, adapter: adapter, log: log.With().Str("component", "executor").Logger()}
}

// Execute runs intent through the full safety pipeline:
//  1. Recheck kill switch (defense in depth — the risk engine already
//     checked it, but the flag can flip between evaluation and dispatch).
//  2. Check idempotency against persisted intents.
//  3. Persist the intent (this must commit before dispatch).
//  4. Dispatch to the adapter, trapping any error as FAILED.
//  5. Persist the result.
func (e *Executor) Execute(intent domain.OrderIntent) (domain.OrderResult, error) {
	killSwitch, err := e.db.ControlFlags()
	if err != nil {
		return domain.OrderResult{}, err
	}
	if killSwitch.KillSwitch {
		e.log.Warn().Str("idempotency_key", intent.IdempotencyKey).Msg("kill switch active at executor level, blocking")
		return domain.OrderResult{
			IdempotencyKey: intent.IdempotencyKey,
			Status:         domain.StatusRejected,
			ErrorMessage:   "kill switch active at executor level",
			ExecutedAt:     time.Now().UTC(),
		}, nil
	}

	exists, err := e.db.IntentExists(intent.IdempotencyKey)
	if err != nil {
		return domain.OrderResult{}, err
	}
	if exists {
		e.log.Info().Str("idempotency_key", intent.IdempotencyKey).Msg("duplicate idempotency key, skipping")
		return domain.OrderResult{
			IdempotencyKey: intent.IdempotencyKey,
			Status:         domain.StatusDuplicate,
			ErrorMessage:   "duplicate idempotency key",
			ExecutedAt:     time.Now().UTC(),
		}, nil
	}

	if err := e.db.InsertOrderIntent(intent); err != nil {
		return domain.OrderResult{}, err
	}

	result, execErr := e.adapter.Execute(intent)
	if execErr != nil {
		e.log.Error().Err(execErr).Str("idempotency_key", intent.IdempotencyKey).Msg("execution failed")
		result = domain.OrderResult{
			IdempotencyKey: intent.IdempotencyKey,
			Status:         domain.StatusFailed,
			ErrorMessage:   execErr.Error(),
			ExecutedAt:     time.Now().UTC(),
		}
	}

	if err := e.db.InsertOrderResult(result); err != nil {
		return result, err
	}
	return result, nil
}
