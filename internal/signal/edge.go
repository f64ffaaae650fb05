package signal

import "github.com/duskfield/wxengine/internal/domain"

// edgeInput bundles everything ComputeEdge needs about one bucket market.
type edgeInput struct {
	RunID             string
	EventID           string
	MarketID          string
	CitySlug          string
	TargetDate        string
	BucketLabel       string
	BucketProbability float64
	MarketPriceYes    float64
	FeeEstimate       float64
	SlippageEstimate  float64
	SigmaUsed         float64
	MinEdgeThreshold  float64
	MaxEntryPrice     float64
	AcceptingOrders   bool
	Liquidity         float64
}

// ComputeEdge applies the fixed, first-match-wins reason code resolution
// to one bucket market's computed probability vs. its market price.
func ComputeEdge(in edgeInput) domain.EdgeResult {
	grossEdge := in.BucketProbability - in.MarketPriceYes
	netEdge := grossEdge - in.FeeEstimate - in.SlippageEstimate

	var reason domain.ReasonCode
	switch {
	case !in.AcceptingOrders:
		reason = domain.ReasonNotAcceptingOrders
	case in.Liquidity <= 0:
		reason = domain.ReasonZeroLiquidity
	case in.MarketPriceYes > in.MaxEntryPrice:
		reason = domain.ReasonPriceAboveMaxEntry
	case netEdge < 0:
		reason = domain.ReasonNegativeEdge
	case netEdge < in.MinEdgeThreshold:
		reason = domain.ReasonEdgeBelowThreshold
	default:
		reason = domain.ReasonOpportunity
	}

	return domain.EdgeResult{
		RunID:             in.RunID,
		EventID:           in.EventID,
		MarketID:          in.MarketID,
		CitySlug:          in.CitySlug,
		TargetDate:        in.TargetDate,
		BucketLabel:       in.BucketLabel,
		BucketProbability: in.BucketProbability,
		MarketPriceYes:    in.MarketPriceYes,
		GrossEdge:         grossEdge,
		FeeEstimate:       in.FeeEstimate,
		SlippageEstimate:  in.SlippageEstimate,
		NetEdge:           netEdge,
		ReasonCode:        reason,
		SigmaUsed:         in.SigmaUsed,
	}
}
