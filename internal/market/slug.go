// Package market discovers active weather events across configured
// cities and lookahead days, and parses Gamma-API-shaped event/market
// payloads into domain types.
package market

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/duskfield/wxengine/internal/domain"
)

var monthNames = map[int]string{
	1: "january", 2: "february", 3: "march", 4: "april",
	5: "may", 6: "june", 7: "july", 8: "august",
	9: "september", 10: "october", 11: "november", 12: "december",
}

var monthNumbers = func() map[string]int {
	m := make(map[string]int, 12)
	for n, name := range monthNames {
		m[name] = n
	}
	return m
}()

const tempPattern = `(?:neg)?-?\d+`

var bucketPatterns = []struct {
	re         *regexp.Regexp
	bucketType domain.BucketType
}{
	{regexp.MustCompile(`^(` + tempPattern + `)(f|c)orhigher$`), domain.BucketOrHigher},
	{regexp.MustCompile(`^(` + tempPattern + `)(f|c)orbelow$`), domain.BucketOrBelow},
	{regexp.MustCompile(`^(` + tempPattern + `)-(` + tempPattern + `)(f|c)$`), domain.BucketRange},
	{regexp.MustCompile(`^(` + tempPattern + `)(f|c)$`), domain.BucketExact},
}

func parseTemp(s string) (int, error) {
	if strings.HasPrefix(s, "neg") {
		n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimPrefix(s, "neg"), "-"))
		if err != nil {
			return 0, err
		}
		return -n, nil
	}
	return strconv.Atoi(s)
}

// ParseBucketSuffix parses the bucket portion of a market slug (everything
// after the event slug and its separating dash). Returns false if suffix
// matches none of the four known shapes.
func ParseBucketSuffix(suffix string) (domain.Bucket, bool) {
	suffix = strings.ToLower(strings.TrimSpace(suffix))

	for _, p := range bucketPatterns {
		m := p.re.FindStringSubmatch(suffix)
		if m == nil {
			continue
		}

		var low, high int
		var unitStr string
		switch p.bucketType {
		case domain.BucketRange:
			l, err1 := parseTemp(m[1])
			h, err2 := parseTemp(m[2])
			if err1 != nil || err2 != nil {
				return domain.Bucket{}, false
			}
			low, high, unitStr = l, h, m[3]
		case domain.BucketOrHigher, domain.BucketOrBelow:
			t, err := parseTemp(m[1])
			if err != nil {
				return domain.Bucket{}, false
			}
			low, high, unitStr = t, t, m[2]
		default: // BucketExact
			t, err := parseTemp(m[1])
			if err != nil {
				return domain.Bucket{}, false
			}
			low, high, unitStr = t, t, m[2]
		}

		unit := domain.UnitFahrenheit
		if unitStr == "c" {
			unit = domain.UnitCelsius
		}
		return domain.Bucket{Type: p.bucketType, Low: low, High: high, Unit: unit}, true
	}
	return domain.Bucket{}, false
}

// BuildEventSlug constructs the deterministic event slug the markets API
// uses for one city's daily-high-temperature event.
func BuildEventSlug(citySlug string, year int, month time.Month, day int) string {
	return fmt.Sprintf("highest-temperature-in-%s-on-%s-%d-%d", citySlug, monthNames[int(month)], day, year)
}

var eventSlugRE = regexp.MustCompile(`^highest-temperature-in-(\w+)-on-(\w+)-(\d+)-(\d+)$`)

// ParsedEventSlug is the decomposed form of an event slug.
type ParsedEventSlug struct {
	CitySlug string
	Year     int
	Month    int
	Day      int
}

// ParseEventSlug extracts city and target date from an event slug, or
// returns false if slug doesn't match the expected shape.
func ParseEventSlug(slug string) (ParsedEventSlug, bool) {
	m := eventSlugRE.FindStringSubmatch(strings.ToLower(slug))
	if m == nil {
		return ParsedEventSlug{}, false
	}
	day, err := strconv.Atoi(m[3])
	if err != nil {
		return ParsedEventSlug{}, false
	}
	year, err := strconv.Atoi(m[4])
	if err != nil {
		return ParsedEventSlug{}, false
	}
	month, ok := monthNumbers[m[2]]
	if !ok {
		return ParsedEventSlug{}, false
	}
	return ParsedEventSlug{CitySlug: m[1], Year: year, Month: month, Day: day}, true
}

// BucketSuffix extracts the bucket suffix from a market slug given its
// parent event slug, trying the canonical "eventslug-suffix" shape first
// and falling back to the legacy "-be-" separator used by older markets.
func BucketSuffix(marketSlug, eventSlug string) (string, bool) {
	if eventSlug != "" && strings.HasPrefix(marketSlug, eventSlug+"-") {
		return marketSlug[len(eventSlug)+1:], true
	}
	if idx := strings.LastIndex(marketSlug, "-be-"); idx >= 0 {
		return marketSlug[idx+4:], true
	}
	return "", false
}
