// Package summary aggregates one scan cycle's pipeline output into a
// reportable Summary and renders it for logs and the status surface.
package summary

import (
	"fmt"
	"time"

	"github.com/duskfield/wxengine/internal/domain"
	"github.com/duskfield/wxengine/internal/store"
)

// Summary is the set of counters and highlights one run produces.
type Summary struct {
	RunID              string
	Mode               string
	CitiesScanned      int
	EventsFound        int
	BucketsAnalyzed    int
	OpportunitiesFound int
	BlockedCount       int
	BlockReasons       map[string]int
	OrdersAttempted    int
	OrdersSucceeded    int
	OrdersFailed       int
	BestEdge           float64
	BestEdgeLabel      string
	TotalExposureUSD   float64
	DailyPnLUSD        float64
	DurationSeconds    float64
	Errors             []string
}

// Summarizer accumulates a Summary as each pipeline stage reports in.
type Summarizer struct {
	s Summary
}

// New starts a Summarizer for one run.
func New(runID, mode string) *Summarizer {
	return &Summarizer{s: Summary{RunID: runID, Mode: mode, BlockReasons: map[string]int{}}}
}

// RecordScan records the market-scan stage's city and event counts.
func (r *Summarizer) RecordScan(citiesScanned, eventsFound int) {
	r.s.CitiesScanned = citiesScanned
	r.s.EventsFound = eventsFound
}

// RecordEdgeResults records the signal stage's output, picking the highest
// net-edge opportunity as the run's highlight.
func (r *Summarizer) RecordEdgeResults(results []domain.EdgeResult) {
	r.s.BucketsAnalyzed = len(results)

	var best *domain.EdgeResult
	opportunities := 0
	for i := range results {
		res := &results[i]
		if res.ReasonCode != domain.ReasonOpportunity {
			continue
		}
		opportunities++
		if best == nil || res.NetEdge > best.NetEdge {
			best = res
		}
	}
	r.s.OpportunitiesFound = opportunities
	if best != nil {
		r.s.BestEdge = best.NetEdge
		r.s.BestEdgeLabel = fmt.Sprintf("%s %s $%.3f", best.CitySlug, best.BucketLabel, best.MarketPriceYes)
	}
}

// RecordRiskVerdict tallies a blocked verdict's reasons. Approved verdicts
// are not counted as blocked.
func (r *Summarizer) RecordRiskVerdict(verdict domain.RiskVerdict) {
	if verdict.Approved {
		return
	}
	r.s.BlockedCount++
	for _, reason := range verdict.BlockReasons() {
		r.s.BlockReasons[string(reason)]++
	}
}

// RecordOrderResult tallies one executed order attempt by its terminal
// status.
func (r *Summarizer) RecordOrderResult(result domain.OrderResult) {
	r.s.OrdersAttempted++
	switch result.Status {
	case domain.StatusDryRun, domain.StatusFilled:
		r.s.OrdersSucceeded++
	case domain.StatusFailed, domain.StatusRejected:
		r.s.OrdersFailed++
	}
}

// RecordExposure records the portfolio's current total exposure and
// today's realized P&L as of the end of the run.
func (r *Summarizer) RecordExposure(totalExposure, dailyPnL float64) {
	r.s.TotalExposureUSD = totalExposure
	r.s.DailyPnLUSD = dailyPnL
}

// RecordDuration records the run's wall-clock duration.
func (r *Summarizer) RecordDuration(d time.Duration) {
	r.s.DurationSeconds = d.Seconds()
}

// RecordError appends a non-fatal error observed during the run.
func (r *Summarizer) RecordError(err error) {
	if err == nil {
		return
	}
	r.s.Errors = append(r.s.Errors, err.Error())
}

// Finalize returns the accumulated Summary.
func (r *Summarizer) Finalize() Summary {
	return r.s
}

// ToStoreSummary projects the subset of fields the runs table persists.
func (s Summary) ToStoreSummary() store.RunSummary {
	var bestEdge *float64
	if s.OpportunitiesFound > 0 {
		edge := s.BestEdge
		bestEdge = &edge
	}
	return store.RunSummary{
		CitiesScanned:      s.CitiesScanned,
		EventsFound:        s.EventsFound,
		OpportunitiesFound: s.OpportunitiesFound,
		OrdersAttempted:    s.OrdersAttempted,
		OrdersSucceeded:    s.OrdersSucceeded,
		BestEdge:           bestEdge,
	}
}

// FormatText renders a plain-text summary for logs.
func FormatText(s Summary) string {
	runIDPrefix := s.RunID
	if len(runIDPrefix) > 8 {
		runIDPrefix = runIDPrefix[:8]
	}
	out := fmt.Sprintf("=== Scan Complete (%s) | Run %s ===\n", s.Mode, runIDPrefix)
	out += fmt.Sprintf("Scanned: %d cities, %d events, %d buckets\n", s.CitiesScanned, s.EventsFound, s.BucketsAnalyzed)
	out += fmt.Sprintf("Opportunities: %d found, %d blocked\n", s.OpportunitiesFound, s.BlockedCount)
	out += fmt.Sprintf("Orders: %d attempted, %d succeeded, %d failed\n", s.OrdersAttempted, s.OrdersSucceeded, s.OrdersFailed)
	if s.BestEdge > 0 {
		out += fmt.Sprintf("Best edge: +%.3f (%s)\n", s.BestEdge, s.BestEdgeLabel)
	}
	out += fmt.Sprintf("Exposure: $%.2f | Daily P&L: %+.2f\n", s.TotalExposureUSD, s.DailyPnLUSD)
	if len(s.Errors) > 0 {
		out += fmt.Sprintf("Errors: %d\n", len(s.Errors))
	}
	out += fmt.Sprintf("Duration: %.1fs", s.DurationSeconds)
	return out
}
