package market

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/duskfield/wxengine/internal/config"
	"github.com/duskfield/wxengine/internal/domain"
)

// GammaEvent is the subset of the markets API's event payload the scanner
// parses. Field names mirror the vendor response, not domain naming.
type GammaEvent struct {
	ID      string          `json:"id"`
	Slug    string          `json:"slug"`
	Title   string          `json:"title"`
	Markets []GammaMarket   `json:"markets"`
	Raw     json.RawMessage `json:"-"`
}

// GammaMarket is one bucket market within a GammaEvent.
type GammaMarket struct {
	ID                 string      `json:"id"`
	ConditionID        string      `json:"conditionId"`
	Slug               string      `json:"slug"`
	ClobTokenIDs       stringArray `json:"clobTokenIds"`
	OutcomePrices      stringArray `json:"outcomePrices"`
	BestBid            float64     `json:"bestBid"`
	BestAsk            float64     `json:"bestAsk"`
	LastTradePrice     float64     `json:"lastTradePrice"`
	Liquidity          float64     `json:"liquidity"`
	Volume24hr         float64     `json:"volume24hr"`
	MakerBaseFee       float64     `json:"makerBaseFee"`
	TakerBaseFee       float64     `json:"takerBaseFee"`
	OrderMinSize       float64     `json:"orderMinSize"`
	AcceptingOrders    bool        `json:"acceptingOrders"`
	EndDate            string      `json:"endDate"`
	GroupItemTitle     string      `json:"groupItemTitle"`
	GroupItemThreshold string      `json:"groupItemThreshold"`
}

// stringArray decodes a vendor field that is sometimes a JSON array and
// sometimes a JSON-encoded string containing that array.
type stringArray []string

func (s *stringArray) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*s = arr
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = nil
		return nil
	}
	return json.Unmarshal([]byte(raw), (*[]string)(s))
}

// GammaClient fetches one event by its slug, returning (nil, nil) when no
// event exists for that slug.
type GammaClient interface {
	GetEventBySlug(slug string) (*GammaEvent, error)
}

// Scanner discovers active weather events across every enabled city and
// lookahead day.
type Scanner struct {
	cfg   config.Config
	gamma GammaClient
	log   zerolog.Logger
}

// New builds a Scanner bound to one config and markets-API client.
func New(cfg config.Config, gamma GammaClient, log zerolog.Logger) *Scanner {
	return &Scanner{cfg: cfg, gamma: gamma, log: log.With().Str("component", "market_scanner").Logger()}
}

// Scan checks every enabled city for an event on each of the next
// ops.lookahead_days days, starting from today (UTC). A fetch or parse
// failure for one slug is logged and skipped; it never aborts the scan.
func (s *Scanner) Scan(today time.Time) []domain.MarketEvent {
	var events []domain.MarketEvent

	for _, city := range s.cfg.Cities {
		if !city.Enabled {
			continue
		}
		for offset := 0; offset < s.cfg.Ops.LookaheadDays; offset++ {
			target := today.AddDate(0, 0, offset)
			slug := BuildEventSlug(city.Slug, target.Year(), target.Month(), target.Day())

			raw, err := s.gamma.GetEventBySlug(slug)
			if err != nil {
				s.log.Warn().Err(err).Str("slug", slug).Msg("error scanning slug")
				continue
			}
			if raw == nil {
				s.log.Debug().Str("slug", slug).Msg("no event for slug")
				continue
			}

			event, ok := parseGammaEvent(*raw, city.Slug, target.Format("2006-01-02"))
			if !ok {
				continue
			}
			s.log.Info().Str("slug", slug).Int("buckets", len(event.Buckets)).Msg("found event")
			events = append(events, event)
		}
	}
	return events
}

func parseGammaEvent(raw GammaEvent, citySlug, targetDate string) (domain.MarketEvent, bool) {
	if raw.ID == "" || len(raw.Markets) == 0 {
		return domain.MarketEvent{}, false
	}

	var buckets []domain.BucketMarket
	for _, m := range raw.Markets {
		bm, ok := parseBucketMarket(m, raw.Slug)
		if ok {
			buckets = append(buckets, bm)
		}
	}
	if len(buckets) == 0 {
		return domain.MarketEvent{}, false
	}

	return domain.MarketEvent{
		EventID:    raw.ID,
		Slug:       raw.Slug,
		CitySlug:   citySlug,
		TargetDate: targetDate,
		Title:      raw.Title,
		Buckets:    buckets,
		RawJSON:    raw.Raw,
	}, true
}

func parseBucketMarket(m GammaMarket, eventSlug string) (domain.BucketMarket, bool) {
	if len(m.ClobTokenIDs) < 2 {
		return domain.BucketMarket{}, false
	}

	var priceYes float64
	if len(m.OutcomePrices) > 0 {
		if p, err := strconv.ParseFloat(m.OutcomePrices[0], 64); err == nil {
			priceYes = p
		}
	}

	bucket, ok := resolveBucket(m.Slug, eventSlug)
	if !ok {
		return domain.BucketMarket{}, false
	}

	return domain.BucketMarket{
		MarketID:           m.ID,
		ConditionID:        m.ConditionID,
		ClobTokenIDYes:     m.ClobTokenIDs[0],
		ClobTokenIDNo:      m.ClobTokenIDs[1],
		OutcomePriceYes:    priceYes,
		BestBid:            m.BestBid,
		BestAsk:            m.BestAsk,
		LastTradePrice:     m.LastTradePrice,
		Liquidity:          m.Liquidity,
		Volume24hr:         m.Volume24hr,
		MakerBaseFee:       m.MakerBaseFee,
		TakerBaseFee:       m.TakerBaseFee,
		OrderMinSize:       m.OrderMinSize,
		AcceptingOrders:    m.AcceptingOrders,
		EndDate:            m.EndDate,
		GroupItemTitle:     m.GroupItemTitle,
		GroupItemThreshold: m.GroupItemThreshold,
		Bucket:             bucket,
	}, true
}

func resolveBucket(marketSlug, eventSlug string) (domain.Bucket, bool) {
	suffix, ok := BucketSuffix(marketSlug, eventSlug)
	if !ok {
		return domain.Bucket{}, false
	}
	return ParseBucketSuffix(suffix)
}
