package store

import (
	"fmt"
)

// RunSummary is the set of counters the scan pipeline accumulates across
// its six stages and persists once the run completes.
type RunSummary struct {
	CitiesScanned      int
	EventsFound        int
	OpportunitiesFound int
	OrdersAttempted    int
	OrdersSucceeded    int
	BestEdge           *float64
}

// CreateRun inserts the run record at INIT time, before any ingest work
// starts, so a crash mid-cycle still leaves a "running" row to reconcile.
func (db *DB) CreateRun(runID, mode, configHash string) error {
	_, err := db.Exec(`
		INSERT INTO runs (run_id, mode, config_hash, status) VALUES (?, ?, ?, 'running')
	`, runID, mode, configHash)
	if err != nil {
		return fmt.Errorf("store: create run %s: %w", runID, err)
	}
	return nil
}

// CompleteRun finalizes a run with its terminal status ("completed",
// "aborted" or "failed"), accumulated counters, and an optional error
// message.
func (db *DB) CompleteRun(runID, status string, summary RunSummary, summaryJSON string, errMsg string) error {
	var errVal any
	if errMsg != "" {
		errVal = errMsg
	}
	var bestEdge any
	if summary.BestEdge != nil {
		bestEdge = *summary.BestEdge
	}
	_, err := db.Exec(`
		UPDATE runs SET
			completed_at = CURRENT_TIMESTAMP,
			status = ?,
			cities_scanned = ?,
			events_found = ?,
			opportunities_found = ?,
			orders_attempted = ?,
			orders_succeeded = ?,
			best_edge = ?,
			summary_json = ?,
			error_message = ?
		WHERE run_id = ?
	`, status, summary.CitiesScanned, summary.EventsFound, summary.OpportunitiesFound,
		summary.OrdersAttempted, summary.OrdersSucceeded, bestEdge, summaryJSON, errVal, runID)
	if err != nil {
		return fmt.Errorf("store: complete run %s: %w", runID, err)
	}
	return nil
}
