package markets

import (
	"strings"
	"testing"
)

func TestParseMarketOutcomePrices(t *testing.T) {
	raw := map[string]interface{}{
		"question":      "Will the Fed cut rates?",
		"outcomePrices": []interface{}{"0.64", "0.36"},
		"volume24hr":    12345.5,
		"endDateIso":    "2025-12-31T00:00:00Z",
		"slug":          "fed-cut",
	}
	m := ParseMarket(raw)
	if m.YesPrice != 64 || m.NoPrice != 36 {
		t.Fatalf("prices = %v/%v", m.YesPrice, m.NoPrice)
	}
	if m.EndDate != "2025-12-31" {
		t.Fatalf("end date = %q", m.EndDate)
	}
	if m.Slug != "fed-cut" || m.Volume24h != 12345.5 {
		t.Fatalf("unexpected market %+v", m)
	}
	if m.Position != nil {
		t.Fatalf("direct market must not carry a position")
	}
}

func TestParseMarketLastTradeFallback(t *testing.T) {
	m := ParseMarket(map[string]interface{}{
		"title":          "BTC above 100k",
		"lastTradePrice": 0.8,
	})
	if m.YesPrice != 80 || m.NoPrice != 20 {
		t.Fatalf("prices = %v/%v", m.YesPrice, m.NoPrice)
	}
}

func TestParseMarketTokensFallback(t *testing.T) {
	m := ParseMarket(map[string]interface{}{
		"question": "Outcome via tokens",
		"tokens": []interface{}{
			map[string]interface{}{"outcome": "Yes", "price": 0.25},
			map[string]interface{}{"outcome": "No", "price": 0.75},
		},
	})
	if m.YesPrice != 25 || m.NoPrice != 75 {
		t.Fatalf("prices = %v/%v", m.YesPrice, m.NoPrice)
	}
}

func TestParseMarketPosition(t *testing.T) {
	raw := map[string]interface{}{
		"size":       100.0,
		"cashPnl":    42.5,
		"percentPnl": 12.0,
		"outcome":    "Yes",
		"side":       "BUY",
		"market": map[string]interface{}{
			"question":      "Will X happen?",
			"outcomePrices": []interface{}{"0.5", "0.5"},
		},
	}
	m := ParseMarket(raw)
	if m.Position == nil {
		t.Fatalf("expected position info")
	}
	if m.Position.CashPnl != 42.5 || m.Position.Side != "BUY" {
		t.Fatalf("unexpected position %+v", m.Position)
	}
	if m.Title != "Will X happen?" {
		t.Fatalf("title = %q", m.Title)
	}
}

func TestParseMarketClosedOverridesActive(t *testing.T) {
	m := ParseMarket(map[string]interface{}{
		"question": "Done deal",
		"active":   true,
		"closed":   true,
	})
	if m.Active {
		t.Fatalf("closed market must not be active")
	}
}

func TestParseMarketEmpty(t *testing.T) {
	m := ParseMarket(map[string]interface{}{})
	if m.Title != "Unknown Market" {
		t.Fatalf("title = %q", m.Title)
	}
	if m.EndDate != "N/A" {
		t.Fatalf("end date = %q", m.EndDate)
	}
}

func TestExtractKeywords(t *testing.T) {
	kws := ExtractKeywords(`Will Donald Trump win the "Iowa Caucus" by January 15 2025?`)
	if len(kws) == 0 {
		t.Fatalf("no keywords")
	}
	if kws[0] != "Iowa Caucus" {
		t.Fatalf("quoted phrase must come first, got %q", kws[0])
	}
	joined := strings.ToLower(strings.Join(kws, " "))
	if !strings.Contains(joined, "donald trump") {
		t.Fatalf("proper noun missing from %v", kws)
	}
	if strings.Contains(joined, "2025") {
		t.Fatalf("year leaked into keywords: %v", kws)
	}
	for _, kw := range kws {
		if strings.EqualFold(kw, "will") {
			t.Fatalf("stop word leaked: %v", kws)
		}
	}
}

func TestExtractKeywordsCap(t *testing.T) {
	kws := ExtractKeywords("Alpha Beta Gamma Delta Epsilon Zeta Eta Theta Iota Kappa together forever always everywhere")
	if len(kws) > 8 {
		t.Fatalf("got %d keywords, cap is 8", len(kws))
	}
}

func TestGenerateTopics(t *testing.T) {
	positions := make([]map[string]interface{}, 12)
	for i := range positions {
		positions[i] = map[string]interface{}{
			"size": 10.0,
			"market": map[string]interface{}{
				"question": "Will the Lakers win the Championship?",
				"slug":     "lakers-title",
			},
		}
	}

	topics := GenerateTopics(positions, nil)
	if len(topics) != 10 {
		t.Fatalf("expected top 10 positions, got %d", len(topics))
	}
	if !strings.HasPrefix(topics[0].Key, "position_1_") {
		t.Fatalf("key = %q", topics[0].Key)
	}
	if len(topics[0].Keywords) == 0 || len(topics[0].Keywords) > 8 {
		t.Fatalf("keywords = %v", topics[0].Keywords)
	}
	if topics[0].Markets[0].Position == nil {
		t.Fatalf("topic market lost its position")
	}
}

func TestGenerateTopicsOverrides(t *testing.T) {
	positions := []map[string]interface{}{{
		"market": map[string]interface{}{
			"question": "Will BTC close above 100k?",
			"slug":     "btc-100k",
		},
	}}
	topics := GenerateTopics(positions, func(slug string) []string {
		if slug == "btc-100k" {
			return []string{"bitcoin", "btc price"}
		}
		return nil
	})
	if len(topics) != 1 || topics[0].Keywords[0] != "bitcoin" {
		t.Fatalf("override ignored: %+v", topics)
	}
}

func TestDecodeEventsShapes(t *testing.T) {
	single := []byte(`{"event_type":"last_trade_price","asset_id":"a1","price":"0.42"}`)
	got := decodeEvents(single)
	if len(got) != 1 || got[0].Price != 0.42 {
		t.Fatalf("single frame: %+v", got)
	}

	batch := []byte(`[{"event_type":"price_change","price_changes":[{"asset_id":"a2","price":"0.10","side":"BUY"},{"asset_id":"a3","price":"0.90","side":"SELL"}]}]`)
	got = decodeEvents(batch)
	if len(got) != 2 || got[1].AssetID != "a3" {
		t.Fatalf("batch frame: %+v", got)
	}

	if got := decodeEvents([]byte(`garbage`)); got != nil {
		t.Fatalf("garbage frame: %+v", got)
	}
}
