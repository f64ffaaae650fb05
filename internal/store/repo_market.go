package store

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/duskfield/wxengine/internal/domain"
)

// InsertMarketEvent persists one scan snapshot of a MarketEvent and all of
// its BucketMarkets. The raw vendor payload is msgpack-encoded rather than
// kept as JSON text, since it is never queried, only archived for replay.
func (db *DB) InsertMarketEvent(runID string, ev domain.MarketEvent) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("store: insert market event: begin: %w", err)
	}
	defer tx.Rollback()

	snapshot, err := msgpack.Marshal(ev.RawJSON)
	if err != nil {
		return 0, fmt.Errorf("store: insert market event: encode snapshot: %w", err)
	}

	res, err := tx.Exec(`
		INSERT INTO market_events (event_id, slug, city_slug, target_date, title, raw_snapshot)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ev.EventID, ev.Slug, ev.CitySlug, ev.TargetDate, ev.Title, snapshot)
	if err != nil {
		return 0, fmt.Errorf("store: insert market event: %w", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: insert market event: last insert id: %w", err)
	}

	for _, b := range ev.Buckets {
		if _, err := tx.Exec(`
			INSERT INTO bucket_markets (
				event_row_id, market_id, condition_id, clob_token_id_yes, clob_token_id_no,
				outcome_price_yes, best_bid, best_ask, last_trade_price, liquidity, volume_24hr,
				maker_base_fee, taker_base_fee, order_min_size, accepting_orders, end_date,
				group_item_title, group_item_threshold, bucket_type, bucket_low, bucket_high, bucket_unit
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rowID, b.MarketID, b.ConditionID, b.ClobTokenIDYes, b.ClobTokenIDNo,
			b.OutcomePriceYes, b.BestBid, b.BestAsk, b.LastTradePrice, b.Liquidity, b.Volume24hr,
			b.MakerBaseFee, b.TakerBaseFee, b.OrderMinSize, b.AcceptingOrders, b.EndDate,
			b.GroupItemTitle, b.GroupItemThreshold, string(b.Bucket.Type), b.Bucket.Low, b.Bucket.High, string(b.Bucket.Unit),
		); err != nil {
			return 0, fmt.Errorf("store: insert bucket market %s: %w", b.MarketID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: insert market event: commit: %w", err)
	}
	return rowID, nil
}

// LatestBucketMarkets returns the most recently fetched BucketMarket rows
// for the given city and target date, joined back to their parsed Bucket.
func (db *DB) LatestBucketMarkets(citySlug, targetDate string) ([]domain.BucketMarket, error) {
	rows, err := db.Query(`
		SELECT bm.market_id, bm.condition_id, bm.clob_token_id_yes, bm.clob_token_id_no,
		       bm.outcome_price_yes, bm.best_bid, bm.best_ask, bm.last_trade_price,
		       bm.liquidity, bm.volume_24hr, bm.maker_base_fee, bm.taker_base_fee,
		       bm.order_min_size, bm.accepting_orders, bm.end_date,
		       bm.group_item_title, bm.group_item_threshold,
		       bm.bucket_type, bm.bucket_low, bm.bucket_high, bm.bucket_unit
		FROM bucket_markets bm
		JOIN market_events me ON me.id = bm.event_row_id
		WHERE me.city_slug = ? AND me.target_date = ?
		  AND me.fetched_at = (
		      SELECT MAX(fetched_at) FROM market_events
		      WHERE city_slug = me.city_slug AND target_date = me.target_date
		  )
	`, citySlug, targetDate)
	if err != nil {
		return nil, fmt.Errorf("store: latest bucket markets: %w", err)
	}
	defer rows.Close()

	var out []domain.BucketMarket
	for rows.Next() {
		var b domain.BucketMarket
		var bucketType, bucketUnit string
		if err := rows.Scan(
			&b.MarketID, &b.ConditionID, &b.ClobTokenIDYes, &b.ClobTokenIDNo,
			&b.OutcomePriceYes, &b.BestBid, &b.BestAsk, &b.LastTradePrice,
			&b.Liquidity, &b.Volume24hr, &b.MakerBaseFee, &b.TakerBaseFee,
			&b.OrderMinSize, &b.AcceptingOrders, &b.EndDate,
			&b.GroupItemTitle, &b.GroupItemThreshold,
			&bucketType, &b.Bucket.Low, &b.Bucket.High, &bucketUnit,
		); err != nil {
			return nil, fmt.Errorf("store: latest bucket markets: scan: %w", err)
		}
		b.Bucket.Type = domain.BucketType(bucketType)
		b.Bucket.Unit = domain.TemperatureUnit(bucketUnit)
		out = append(out, b)
	}
	return out, rows.Err()
}
