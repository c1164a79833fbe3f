package markets

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"PolyPulse/internal/domain/models"
	"PolyPulse/pkg/util"
)

const (
	maxTopicPositions = 10
	maxTopicKeywords  = 8
)

// ParseMarket normalizes a raw Gamma market or Data API position into a
// Market. A position wraps its market under "market" and carries the
// wallet's stake alongside it.
func ParseMarket(raw map[string]interface{}) models.Market {
	market := raw
	var position *models.PositionInfo
	if nested, ok := raw["market"].(map[string]interface{}); ok {
		market = nested
		position = &models.PositionInfo{
			Size:         num(raw, "size"),
			InitialValue: num(raw, "initialValue"),
			CurrentValue: num(raw, "currentValue"),
			CashPnl:      num(raw, "cashPnl"),
			PercentPnl:   num(raw, "percentPnl"),
			Outcome:      str(raw, "outcome"),
			Side:         str(raw, "side"),
		}
	}

	title := firstStr(market, "question", "title", "description")
	if title == "" {
		title = "Unknown Market"
	}

	yes, no := outcomePrices(market)

	endDate := firstStr(market, "endDateIso", "end_date_iso", "endDate", "end_date")
	if endDate == "" {
		endDate = "N/A"
	} else if i := strings.Index(endDate, "T"); i > 0 {
		endDate = endDate[:i]
	}

	active := true
	if v, ok := market["active"].(bool); ok {
		active = v
	}
	if closed, ok := market["closed"].(bool); ok {
		active = !closed
	}

	return models.Market{
		Title:     title,
		Slug:      firstStr(market, "slug", "conditionId", "questionID"),
		YesPrice:  yes,
		NoPrice:   no,
		Volume24h: firstNum(market, "volume24hr", "volume_24hr", "volume", "volumeNum"),
		EndDate:   endDate,
		Active:    active,
		Position:  position,
	}
}

// outcomePrices resolves YES/NO prices in percent, trying the fields
// Gamma actually populates, most reliable first: outcomePrices, then
// lastTradePrice, then the tokens array. A lone price gets its
// complement filled in.
func outcomePrices(market map[string]interface{}) (yes, no float64) {
	if prices, ok := market["outcomePrices"].([]interface{}); ok {
		switch {
		case len(prices) >= 2:
			yes = toFloat(prices[0]) * 100
			no = toFloat(prices[1]) * 100
		case len(prices) == 1:
			yes = toFloat(prices[0]) * 100
			no = 100 - yes
		}
	}

	if yes == 0 {
		if v, ok := market["lastTradePrice"]; ok {
			yes = toFloat(v) * 100
			no = 100 - yes
		}
	}

	if yes == 0 {
		if tokens, ok := market["tokens"].([]interface{}); ok {
			for i, t := range tokens {
				tok, ok := t.(map[string]interface{})
				if !ok {
					continue
				}
				price := num(tok, "price")
				if price == 0 {
					price = num(tok, "lastPrice")
				}
				outcome := strings.ToUpper(str(tok, "outcome"))
				switch {
				case strings.Contains(outcome, "YES") || i == 0:
					yes = price * 100
				case strings.Contains(outcome, "NO") || i == 1:
					no = price * 100
				}
			}
		}
	}

	if yes > 0 && no == 0 {
		no = 100 - yes
	} else if no > 0 && yes == 0 {
		yes = 100 - no
	}
	return yes, no
}

var keywordStopWords = map[string]struct{}{
	"will": {}, "be": {}, "the": {}, "a": {}, "an": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "have": {}, "has": {}, "had": {}, "do": {},
	"does": {}, "did": {}, "can": {}, "could": {}, "would": {}, "should": {},
	"may": {}, "might": {}, "must": {}, "shall": {}, "by": {}, "before": {},
	"after": {}, "on": {}, "in": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "from": {}, "as": {}, "into": {}, "through": {}, "during": {},
	"or": {}, "and": {}, "but": {}, "if": {}, "than": {}, "more": {},
	"less": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"end": {}, "year": {},
}

var (
	yearRe       = regexp.MustCompile(`\b20\d{2}\b`)
	monthDayRe   = regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}\b`)
	quotedRe     = regexp.MustCompile(`"([^"]+)"`)
	properNounRe = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	wordRe       = regexp.MustCompile(`\b[A-Za-z]+\b`)
	keySlugRe    = regexp.MustCompile(`[^a-z0-9]+`)
)

// ExtractKeywords derives search terms from a market title: quoted
// phrases first, then capitalized runs (likely entities), then the
// longer remaining words, minus dates and question-word noise.
func ExtractKeywords(title string) []string {
	stripped := yearRe.ReplaceAllString(title, "")
	stripped = monthDayRe.ReplaceAllString(stripped, "")

	var candidates []string
	for _, m := range quotedRe.FindAllStringSubmatch(stripped, -1) {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, properNounRe.FindAllString(title, -1)...)

	var significant []string
	for _, w := range wordRe.FindAllString(strings.ToLower(stripped), -1) {
		if len(w) <= 3 {
			continue
		}
		if _, stop := keywordStopWords[w]; stop {
			continue
		}
		significant = append(significant, w)
		if len(significant) == 5 {
			break
		}
	}
	candidates = append(candidates, significant...)

	seen := make(map[string]struct{})
	keywords := make([]string, 0, maxTopicKeywords)
	for _, kw := range candidates {
		folded := strings.ToLower(kw)
		if _, dup := seen[folded]; dup {
			continue
		}
		if _, stop := keywordStopWords[folded]; stop {
			continue
		}
		seen[folded] = struct{}{}
		keywords = append(keywords, kw)
		if len(keywords) == maxTopicKeywords {
			break
		}
	}
	return keywords
}

// GenerateTopics builds one tracked topic per position, top ten by the
// API's P&L ordering. overrides, when non-nil, supplies hand-curated
// keywords per market slug and wins over extraction.
func GenerateTopics(positions []map[string]interface{}, overrides func(slug string) []string) []models.Topic {
	if len(positions) > maxTopicPositions {
		positions = positions[:maxTopicPositions]
	}

	topics := make([]models.Topic, 0, len(positions))
	for i, raw := range positions {
		parsed := ParseMarket(raw)

		keySrc := strings.ToLower(parsed.Title)
		if len(keySrc) > 50 {
			keySrc = keySrc[:50]
		}
		key := strings.Trim(keySlugRe.ReplaceAllString(keySrc, "_"), "_")

		var keywords []string
		if overrides != nil && parsed.Slug != "" {
			keywords = overrides(parsed.Slug)
		}
		if len(keywords) == 0 {
			keywords = ExtractKeywords(parsed.Title)
		}
		if len(keywords) == 0 {
			keywords = []string{util.Truncate(parsed.Title, 30)}
		}
		if len(keywords) > maxTopicKeywords {
			keywords = keywords[:maxTopicKeywords]
		}

		topics = append(topics, models.Topic{
			Key:       fmt.Sprintf("position_%d_%s", i+1, key),
			Title:     util.Truncate(parsed.Title, 43),
			FullTitle: parsed.Title,
			Slug:      parsed.Slug,
			Markets:   []models.Market{parsed},
			Keywords:  keywords,
		})
	}
	return topics
}

func str(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func firstStr(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s := str(m, key); s != "" {
			return s
		}
	}
	return ""
}

func num(m map[string]interface{}, key string) float64 {
	return toFloat(m[key])
}

func firstNum(m map[string]interface{}, keys ...string) float64 {
	for _, key := range keys {
		if v := num(m, key); v != 0 {
			return v
		}
	}
	return 0
}

// toFloat accepts the numeric encodings the APIs actually emit:
// JSON numbers and numeric strings.
func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	case int:
		return float64(n)
	default:
		return 0
	}
}
