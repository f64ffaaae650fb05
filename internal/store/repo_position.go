package store

import (
	"fmt"

	"github.com/duskfield/wxengine/internal/domain"
)

// InsertPosition opens a new Position row after a BUY fills.
func (db *DB) InsertPosition(p domain.Position) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO positions (market_id, city_slug, target_date, bucket_label, entry_price, current_price, size_usd, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'open')
	`, p.MarketID, p.CitySlug, p.TargetDate, p.BucketLabel, p.EntryPrice, p.EntryPrice, p.SizeUSD)
	if err != nil {
		return 0, fmt.Errorf("store: insert position: %w", err)
	}
	return res.LastInsertId()
}

// OpenPositions returns every position with status = 'open', the exit
// pipeline's mark-to-market sweep target set.
func (db *DB) OpenPositions() ([]domain.Position, error) {
	rows, err := db.Query(`
		SELECT id, market_id, city_slug, target_date, bucket_label, entry_price,
		       current_price, size_usd, unrealized_pnl, status
		FROM positions WHERE status = 'open'
	`)
	if err != nil {
		return nil, fmt.Errorf("store: open positions: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var p domain.Position
		var status string
		if err := rows.Scan(&p.ID, &p.MarketID, &p.CitySlug, &p.TargetDate, &p.BucketLabel,
			&p.EntryPrice, &p.CurrentPrice, &p.SizeUSD, &p.UnrealizedPnL, &status); err != nil {
			return nil, fmt.Errorf("store: open positions: scan: %w", err)
		}
		p.Status = domain.PositionStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkPosition updates a position's current price and recomputed
// unrealized PnL, as of one exit-pipeline sweep.
func (db *DB) MarkPosition(id int64, currentPrice, unrealizedPnL float64) error {
	_, err := db.Exec(`
		UPDATE positions SET current_price = ?, unrealized_pnl = ? WHERE id = ?
	`, currentPrice, unrealizedPnL, id)
	if err != nil {
		return fmt.Errorf("store: mark position %d: %w", id, err)
	}
	return nil
}

// ClosePosition marks a position closed after its SELL intent fills.
func (db *DB) ClosePosition(id int64) error {
	_, err := db.Exec(`
		UPDATE positions SET status = 'closed', closed_at = CURRENT_TIMESTAMP WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("store: close position %d: %w", id, err)
	}
	return nil
}

// TotalExposure sums size_usd across every open position, used by the
// total_exposure risk check.
func (db *DB) TotalExposure() (float64, error) {
	var sum float64
	row := db.QueryRow(`SELECT COALESCE(SUM(size_usd), 0.0) FROM positions WHERE status = 'open'`)
	if err := row.Scan(&sum); err != nil {
		return 0, fmt.Errorf("store: total exposure: %w", err)
	}
	return sum, nil
}

// PerCityExposure sums size_usd across open positions for one city, used
// by the per_city_exposure risk check.
func (db *DB) PerCityExposure(citySlug string) (float64, error) {
	var sum float64
	row := db.QueryRow(`SELECT COALESCE(SUM(size_usd), 0.0) FROM positions WHERE status = 'open' AND city_slug = ?`, citySlug)
	if err := row.Scan(&sum); err != nil {
		return 0, fmt.Errorf("store: per city exposure: %w", err)
	}
	return sum, nil
}
