package risk

import (
	"time"

	"github.com/duskfield/wxengine/internal/store"
)

// StateTracker supplies the facts the risk checks read. Control flags and
// exposure are hydrated lazily, once per run, then kept current in memory
// as trades are recorded, so evaluating signal N+1 reflects trades
// approved earlier in the same run without a round-trip per check. Daily
// loss and cooldown are read from the database on every call.
type StateTracker struct {
	db *store.DB

	TradesThisRun int

	totalExposure  *float64
	cityExposure   map[string]float64
	killSwitch     bool
	paused         bool
	flagsHydrated  bool
}

// NewStateTracker returns a tracker bound to one run's database handle.
func NewStateTracker(db *store.DB) *StateTracker {
	return &StateTracker{db: db, cityExposure: map[string]float64{}}
}

func (s *StateTracker) hydrateFlags() error {
	if s.flagsHydrated {
		return nil
	}
	flags, err := s.db.ControlFlags()
	if err != nil {
		return err
	}
	s.killSwitch = flags.KillSwitch
	s.paused = flags.Paused
	s.flagsHydrated = true
	return nil
}

// KillSwitchActive reports the current kill-switch flag, re-read from the
// database on first access per run.
func (s *StateTracker) KillSwitchActive() (bool, error) {
	if err := s.hydrateFlags(); err != nil {
		return false, err
	}
	return s.killSwitch, nil
}

// IsPaused reports the current paused flag.
func (s *StateTracker) IsPaused() (bool, error) {
	if err := s.hydrateFlags(); err != nil {
		return false, err
	}
	return s.paused, nil
}

// TotalExposure returns the sum of open position sizes, hydrated once and
// kept current by RecordTrade.
func (s *StateTracker) TotalExposure() (float64, error) {
	if s.totalExposure == nil {
		v, err := s.db.TotalExposure()
		if err != nil {
			return 0, err
		}
		s.totalExposure = &v
	}
	return *s.totalExposure, nil
}

// CityExposure returns open exposure for one city, hydrated on first
// access per city and kept current by RecordTrade.
func (s *StateTracker) CityExposure(citySlug string) (float64, error) {
	if v, ok := s.cityExposure[citySlug]; ok {
		return v, nil
	}
	v, err := s.db.PerCityExposure(citySlug)
	if err != nil {
		return 0, err
	}
	s.cityExposure[citySlug] = v
	return v, nil
}

// DailyLoss returns today's realized loss (zero if today's PnL is flat or
// positive — only drawdown blocks trading).
func (s *StateTracker) DailyLoss(now time.Time) (float64, error) {
	total, err := s.db.DailyLossSoFar(now.UTC().Format("2006-01-02"))
	if err != nil {
		return 0, err
	}
	if total < 0 {
		return -total, nil
	}
	return 0, nil
}

// MinutesSinceLastTrade returns nil if marketID has never been traded, or
// the elapsed minutes since its last FILLED/DRY_RUN order result.
func (s *StateTracker) MinutesSinceLastTrade(marketID string, now time.Time) (*float64, error) {
	executedAt, ok, err := s.db.LastFilledAt(marketID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	last, err := time.Parse("2006-01-02 15:04:05", executedAt)
	if err != nil {
		return nil, nil
	}
	minutes := now.UTC().Sub(last).Minutes()
	return &minutes, nil
}

// RecordTrade updates in-memory exposure/trade-count state immediately
// after a signal is approved and executed, so later signals in the same
// run see it without a database round-trip.
func (s *StateTracker) RecordTrade(citySlug string, sizeUSD float64) {
	s.TradesThisRun++
	if s.totalExposure != nil {
		*s.totalExposure += sizeUSD
	}
	if v, ok := s.cityExposure[citySlug]; ok {
		s.cityExposure[citySlug] = v + sizeUSD
	}
}
