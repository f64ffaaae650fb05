package forecast

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskfield/wxengine/internal/config"
)

type fakeGridClient struct {
	forecast NWSForecast
	err      error
	calls    int
}

func (f *fakeGridClient) GetForecast(gridID string, gridX, gridY int) (NWSForecast, error) {
	f.calls++
	return f.forecast, f.err
}

func testCity() config.CityConfig {
	return config.CityConfig{Name: "New York", Slug: "nyc", GridID: "OKX", GridX: 33, GridY: 37, Enabled: true}
}

func TestFetchPicksMaxDaytimeHighForTargetDate(t *testing.T) {
	raw := NWSForecast{}
	raw.Properties.GeneratedAt = "2026-02-10T12:00:00Z"
	raw.Properties.Periods = []struct {
		Name            string `json:"name"`
		StartTime       string `json:"startTime"`
		EndTime         string `json:"endTime"`
		Temperature     int    `json:"temperature"`
		TemperatureUnit string `json:"temperatureUnit"`
		IsDaytime       bool   `json:"isDaytime"`
		ShortForecast   string `json:"shortForecast"`
	}{
		{Name: "Today", StartTime: "2026-02-11T06:00:00-05:00", Temperature: 40, IsDaytime: true},
		{Name: "Today (afternoon bump)", StartTime: "2026-02-11T12:00:00-05:00", Temperature: 45, IsDaytime: true},
		{Name: "Tonight", StartTime: "2026-02-11T18:00:00-05:00", Temperature: 30, IsDaytime: false},
		{Name: "Tomorrow", StartTime: "2026-02-12T06:00:00-05:00", Temperature: 50, IsDaytime: true},
	}

	client := &fakeGridClient{forecast: raw}
	f := New(client, zerolog.Nop())

	point, ok := f.Fetch(testCity(), "2026-02-11")
	require.True(t, ok)
	assert.Equal(t, 45, point.HighTempF)
	assert.Equal(t, "nyc", point.CitySlug)
	assert.Equal(t, "2026-02-11", point.TargetDate)
	assert.Len(t, point.RawPeriods, 4)
}

func TestFetchCachesWithinCycle(t *testing.T) {
	raw := NWSForecast{}
	raw.Properties.Periods = []struct {
		Name            string `json:"name"`
		StartTime       string `json:"startTime"`
		EndTime         string `json:"endTime"`
		Temperature     int    `json:"temperature"`
		TemperatureUnit string `json:"temperatureUnit"`
		IsDaytime       bool   `json:"isDaytime"`
		ShortForecast   string `json:"shortForecast"`
	}{
		{StartTime: "2026-02-11T06:00:00-05:00", Temperature: 41, IsDaytime: true},
	}
	client := &fakeGridClient{forecast: raw}
	f := New(client, zerolog.Nop())

	_, ok := f.Fetch(testCity(), "2026-02-11")
	require.True(t, ok)
	_, ok = f.Fetch(testCity(), "2026-02-11")
	require.True(t, ok)
	assert.Equal(t, 1, client.calls)

	f.ClearCache()
	_, ok = f.Fetch(testCity(), "2026-02-11")
	require.True(t, ok)
	assert.Equal(t, 2, client.calls)
}

func TestFetchReturnsFalseWhenNoDaytimePeriodMatchesDate(t *testing.T) {
	raw := NWSForecast{}
	raw.Properties.Periods = []struct {
		Name            string `json:"name"`
		StartTime       string `json:"startTime"`
		EndTime         string `json:"endTime"`
		Temperature     int    `json:"temperature"`
		TemperatureUnit string `json:"temperatureUnit"`
		IsDaytime       bool   `json:"isDaytime"`
		ShortForecast   string `json:"shortForecast"`
	}{
		{StartTime: "2026-02-12T06:00:00-05:00", Temperature: 50, IsDaytime: true},
	}
	client := &fakeGridClient{forecast: raw}
	f := New(client, zerolog.Nop())

	_, ok := f.Fetch(testCity(), "2026-02-11")
	assert.False(t, ok)
}

func TestFetchReturnsFalseOnClientError(t *testing.T) {
	client := &fakeGridClient{err: errors.New("network timeout")}
	f := New(client, zerolog.Nop())

	_, ok := f.Fetch(testCity(), "2026-02-11")
	assert.False(t, ok)
}
