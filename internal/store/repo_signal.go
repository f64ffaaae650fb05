package store

import (
	"fmt"

	"github.com/duskfield/wxengine/internal/domain"
)

// InsertEdgeResults persists every EdgeResult produced by one run's signal
// generation stage, in one transaction, regardless of reason code — the
// engine records rejections alongside opportunities for later audit.
func (db *DB) InsertEdgeResults(results []domain.EdgeResult) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("store: insert edge results: begin: %w", err)
	}
	defer tx.Rollback()

	for _, r := range results {
		if _, err := tx.Exec(`
			INSERT INTO edge_results (
				run_id, event_id, market_id, city_slug, target_date, bucket_label,
				bucket_probability, market_price_yes, gross_edge, fee_estimate,
				slippage_estimate, net_edge, reason_code, sigma_used
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			r.RunID, r.EventID, r.MarketID, r.CitySlug, r.TargetDate, r.BucketLabel,
			r.BucketProbability, r.MarketPriceYes, r.GrossEdge, r.FeeEstimate,
			r.SlippageEstimate, r.NetEdge, string(r.ReasonCode), r.SigmaUsed,
		); err != nil {
			return fmt.Errorf("store: insert edge result %s: %w", r.MarketID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: insert edge results: commit: %w", err)
	}
	return nil
}
