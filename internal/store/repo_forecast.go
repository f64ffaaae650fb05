package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/duskfield/wxengine/internal/domain"
)

// InsertForecastSnapshot persists one fetched ForecastPoint, including its
// raw periods for later replay/debugging.
func (db *DB) InsertForecastSnapshot(fp domain.ForecastPoint) error {
	raw, err := msgpack.Marshal(fp.RawPeriods)
	if err != nil {
		return fmt.Errorf("store: insert forecast snapshot: encode periods: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO forecast_snapshots (city_slug, target_date, high_temp_f, source_generated_at, raw_periods)
		VALUES (?, ?, ?, ?, ?)
	`, fp.CitySlug, fp.TargetDate, fp.HighTempF, fp.SourceGeneratedAt, raw)
	if err != nil {
		return fmt.Errorf("store: insert forecast snapshot: %w", err)
	}
	return nil
}

// LatestForecast returns the most recently fetched ForecastPoint for
// (citySlug, targetDate), or ok=false if none exists.
func (db *DB) LatestForecast(citySlug, targetDate string) (domain.ForecastPoint, bool, error) {
	row := db.QueryRow(`
		SELECT city_slug, target_date, high_temp_f, source_generated_at, fetched_at, raw_periods
		FROM forecast_snapshots
		WHERE city_slug = ? AND target_date = ?
		ORDER BY fetched_at DESC LIMIT 1
	`, citySlug, targetDate)

	var fp domain.ForecastPoint
	var raw []byte
	var fetchedAt string
	if err := row.Scan(&fp.CitySlug, &fp.TargetDate, &fp.HighTempF, &fp.SourceGeneratedAt, &fetchedAt, &raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ForecastPoint{}, false, nil
		}
		return domain.ForecastPoint{}, false, fmt.Errorf("store: latest forecast: %w", err)
	}
	if parsed, err := time.Parse("2006-01-02 15:04:05", fetchedAt); err == nil {
		fp.FetchedAt = parsed
	}
	if err := msgpack.Unmarshal(raw, &fp.RawPeriods); err != nil {
		return domain.ForecastPoint{}, false, fmt.Errorf("store: latest forecast: decode periods: %w", err)
	}
	return fp, true, nil
}
