// Package forecast retrieves and caches the daytime-high forecast for
// each (city, target date) pair a scan cycle needs.
package forecast

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/duskfield/wxengine/internal/config"
	"github.com/duskfield/wxengine/internal/domain"
)

// NWSForecast is the subset of the forecasts API's gridpoint response the
// fetcher parses.
type NWSForecast struct {
	Properties struct {
		GeneratedAt string `json:"generatedAt"`
		Periods     []struct {
			Name            string `json:"name"`
			StartTime       string `json:"startTime"`
			EndTime         string `json:"endTime"`
			Temperature     int    `json:"temperature"`
			TemperatureUnit string `json:"temperatureUnit"`
			IsDaytime       bool   `json:"isDaytime"`
			ShortForecast   string `json:"shortForecast"`
		} `json:"periods"`
	} `json:"properties"`
}

// Client fetches a gridpoint forecast for one (gridID, gridX, gridY).
type Client interface {
	GetForecast(gridID string, gridX, gridY int) (NWSForecast, error)
}

// Fetcher resolves ForecastPoints, caching within one cycle so multiple
// events for the same city/date never trigger duplicate requests.
type Fetcher struct {
	client Client
	cache  map[cacheKey]domain.ForecastPoint
	log    zerolog.Logger
}

type cacheKey struct {
	citySlug   string
	targetDate string
}

// New builds a Fetcher bound to one forecasts-API client.
func New(client Client, log zerolog.Logger) *Fetcher {
	return &Fetcher{client: client, cache: map[cacheKey]domain.ForecastPoint{}, log: log.With().Str("component", "forecast_fetcher").Logger()}
}

// Fetch returns the ForecastPoint for city/targetDate, hitting the cache
// first. A fetch or parse failure is logged and returns (zero, false)
// rather than propagating, so one city's forecast outage never aborts the
// whole cycle.
func (f *Fetcher) Fetch(city config.CityConfig, targetDate string) (domain.ForecastPoint, bool) {
	key := cacheKey{citySlug: city.Slug, targetDate: targetDate}
	if cached, ok := f.cache[key]; ok {
		return cached, true
	}

	raw, err := f.client.GetForecast(city.GridID, city.GridX, city.GridY)
	if err != nil {
		f.log.Warn().Err(err).Str("city", city.Slug).Str("target_date", targetDate).Msg("failed to fetch forecast")
		return domain.ForecastPoint{}, false
	}

	point, ok := extractForecastPoint(raw, city.Slug, targetDate)
	if !ok {
		f.log.Warn().Str("city", city.Slug).Str("target_date", targetDate).
			Int("periods", len(raw.Properties.Periods)).Msg("no daytime high found for target date")
		return domain.ForecastPoint{}, false
	}
	f.cache[key] = point
	return point, true
}

// ClearCache discards all cached forecasts. The scan pipeline builds a new
// Fetcher for every run, so the cache never outlives one cycle.
func (f *Fetcher) ClearCache() {
	f.cache = map[cacheKey]domain.ForecastPoint{}
}

func extractForecastPoint(raw NWSForecast, citySlug, targetDate string) (domain.ForecastPoint, bool) {
	var periods []domain.ForecastPeriod
	var highTemp *int

	for _, p := range raw.Properties.Periods {
		period := domain.ForecastPeriod{
			Name:            p.Name,
			StartTime:       p.StartTime,
			EndTime:         p.EndTime,
			Temperature:     p.Temperature,
			TemperatureUnit: p.TemperatureUnit,
			IsDaytime:       p.IsDaytime,
			ShortForecast:   p.ShortForecast,
		}
		periods = append(periods, period)

		if period.IsDaytime && periodMatchesDate(period, targetDate) {
			if highTemp == nil || period.Temperature > *highTemp {
				t := period.Temperature
				highTemp = &t
			}
		}
	}

	if highTemp == nil {
		return domain.ForecastPoint{}, false
	}

	return domain.ForecastPoint{
		CitySlug:          citySlug,
		TargetDate:        targetDate,
		HighTempF:         *highTemp,
		SourceGeneratedAt: raw.Properties.GeneratedAt,
		FetchedAt:         time.Now().UTC(),
		RawPeriods:        periods,
	}, true
}

// periodMatchesDate checks the period's ISO start time's date portion
// (e.g. "2026-02-11T06:00:00-05:00" -> "2026-02-11") against targetDate.
func periodMatchesDate(period domain.ForecastPeriod, targetDate string) bool {
	if len(period.StartTime) < 10 {
		return false
	}
	return strings.HasPrefix(period.StartTime, targetDate)
}
