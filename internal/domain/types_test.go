package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskVerdictBlockReasonsSkipsPassedChecks(t *testing.T) {
	verdict := RiskVerdict{
		Approved: false,
		Checks: []RiskCheckResult{
			{CheckName: "position_size", Passed: true},
			{CheckName: "cooldown", Passed: false, BlockReason: BlockCooldown},
			{CheckName: "daily_loss", Passed: false, BlockReason: BlockDailyLoss},
		},
	}

	assert.Equal(t, []BlockReason{BlockCooldown, BlockDailyLoss}, verdict.BlockReasons())
}

func TestRiskVerdictBlockReasonsEmptyWhenAllPassed(t *testing.T) {
	verdict := RiskVerdict{
		Approved: true,
		Checks: []RiskCheckResult{
			{CheckName: "position_size", Passed: true},
			{CheckName: "cooldown", Passed: true},
		},
	}

	assert.Empty(t, verdict.BlockReasons())
}
