// Package signal turns a forecast high temperature and a market's bucket
// prices into edge results: a calibrated probability distribution over
// outcomes, compared against market-implied probability, net of fees and
// slippage.
package signal

import "time"

// MinSigma floors forecast uncertainty so same-day forecasts are never
// treated as certainties.
const MinSigma = 1.0

// ComputeSigma widens forecast uncertainty linearly with days until the
// target date's end-of-day UTC resolution, floored at MinSigma.
func ComputeSigma(targetDate string, now time.Time, base, perDay float64) (float64, error) {
	target, err := time.Parse("2006-01-02", targetDate)
	if err != nil {
		return 0, err
	}
	target = time.Date(target.Year(), target.Month(), target.Day(), 23, 59, 59, 0, time.UTC)

	daysOut := target.Sub(now).Hours() / 24
	if daysOut < 0 {
		daysOut = 0
	}
	sigma := base + daysOut*perDay
	if sigma < MinSigma {
		sigma = MinSigma
	}
	return sigma, nil
}
