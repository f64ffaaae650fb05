package market

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGammaEventWithRawArrayFields(t *testing.T) {
	raw := GammaEvent{
		ID:    "evt-1",
		Slug:  "highest-temperature-in-nyc-on-february-11-2026",
		Title: "Highest temperature in NYC on February 11?",
		Markets: []GammaMarket{
			{
				ID:              "mkt-1",
				ConditionID:     "cond-1",
				Slug:            "highest-temperature-in-nyc-on-february-11-2026-34-35f",
				ClobTokenIDs:    stringArray{"tok-yes", "tok-no"},
				OutcomePrices:   stringArray{"0.42", "0.58"},
				BestBid:         0.40,
				BestAsk:         0.44,
				AcceptingOrders: true,
				EndDate:         "2026-02-12T05:00:00Z",
			},
		},
	}

	event, ok := parseGammaEvent(raw, "nyc", "2026-02-11")
	require.True(t, ok)
	assert.Equal(t, "evt-1", event.EventID)
	require.Len(t, event.Buckets, 1)
	assert.Equal(t, "mkt-1", event.Buckets[0].MarketID)
	assert.Equal(t, 34, event.Buckets[0].Bucket.Low)
	assert.Equal(t, 35, event.Buckets[0].Bucket.High)
	assert.Equal(t, 0.42, event.Buckets[0].OutcomePriceYes)
}

func TestParseGammaEventSkipsUnparseableBucketsButKeepsRest(t *testing.T) {
	raw := GammaEvent{
		ID:   "evt-2",
		Slug: "highest-temperature-in-denver-on-march-01-2026",
		Markets: []GammaMarket{
			{ID: "mkt-bad", Slug: "not-a-bucket-slug", ClobTokenIDs: stringArray{"a", "b"}},
			{ID: "mkt-good", Slug: "highest-temperature-in-denver-on-march-01-2026-50forhigher", ClobTokenIDs: stringArray{"a", "b"}, OutcomePrices: stringArray{"0.1", "0.9"}},
		},
	}

	event, ok := parseGammaEvent(raw, "denver", "2026-03-01")
	require.True(t, ok)
	require.Len(t, event.Buckets, 1)
	assert.Equal(t, "mkt-good", event.Buckets[0].MarketID)
}

func TestParseGammaEventRejectsEmptyMarkets(t *testing.T) {
	_, ok := parseGammaEvent(GammaEvent{ID: "evt-3", Slug: "x"}, "nyc", "2026-02-11")
	assert.False(t, ok)
}

func TestStringArrayUnmarshalsDirectArray(t *testing.T) {
	var s stringArray
	require.NoError(t, json.Unmarshal([]byte(`["a","b"]`), &s))
	assert.Equal(t, stringArray{"a", "b"}, s)
}

func TestStringArrayUnmarshalsJSONEncodedStringOfArray(t *testing.T) {
	var s stringArray
	require.NoError(t, json.Unmarshal([]byte(`"[\"a\",\"b\"]"`), &s))
	assert.Equal(t, stringArray{"a", "b"}, s)
}

func TestStringArrayUnmarshalsEmptyEncodedString(t *testing.T) {
	var s stringArray
	require.NoError(t, json.Unmarshal([]byte(`""`), &s))
	assert.Nil(t, s)
}

func TestParseBucketMarketRejectsFewerThanTwoClobTokens(t *testing.T) {
	_, ok := parseBucketMarket(GammaMarket{ID: "mkt-1", Slug: "x-34-35f", ClobTokenIDs: stringArray{"only-one"}}, "")
	assert.False(t, ok)
}
