// Package idgen generates the two identifiers the engine relies on for
// crash-safe, replay-safe operation: run IDs and order idempotency keys.
package idgen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// NewRunID returns a fresh run identifier for one scan-pipeline cycle.
func NewRunID() string {
	return uuid.NewString()
}

// IdempotencyKey deterministically derives the order intent key from the
// run, market, side and price, truncated to 32 hex characters. Identical
// inputs always produce the same key, which is what lets the executor
// detect and refuse a duplicate submission across process restarts.
func IdempotencyKey(runID, marketID, side string, price float64) string {
	input := fmt.Sprintf("%s|%s|%s|%.4f", runID, marketID, side, price)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:32]
}
