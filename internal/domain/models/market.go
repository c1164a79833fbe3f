package models

// PositionInfo carries the wallet's stake in a market, when any.
type PositionInfo struct {
	Size         float64 `json:"size"`
	InitialValue float64 `json:"initial_value"`
	CurrentValue float64 `json:"current_value"`
	CashPnl      float64 `json:"cash_pnl"`
	PercentPnl   float64 `json:"percent_pnl"`
	Outcome      string  `json:"outcome"`
	Side         string  `json:"side"`
}

// Market is a normalized Polymarket market.
type Market struct {
	Title     string        `json:"title"`
	Slug      string        `json:"slug"`
	YesPrice  float64       `json:"yes_price"`
	NoPrice   float64       `json:"no_price"`
	Volume24h float64       `json:"volume_24h"`
	EndDate   string        `json:"end_date"`
	Active    bool          `json:"active"`
	Position  *PositionInfo `json:"position,omitempty"`
}

// Topic is a tracked subject derived from a market or configured by hand.
// Keywords drive feed queries and spike analysis.
type Topic struct {
	Key       string   `json:"key"`
	Title     string   `json:"title"`
	FullTitle string   `json:"full_title,omitempty"`
	Slug      string   `json:"slug,omitempty"`
	Markets   []Market `json:"markets,omitempty"`
	Keywords  []string `json:"keywords"`
}

// PriceUpdate is a live price tick from the market stream.
type PriceUpdate struct {
	AssetID string  `json:"asset_id"`
	Price   float64 `json:"price"`
	Side    string  `json:"side"`
}
