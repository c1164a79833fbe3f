package models

import "time"

// Confidence grades how much history backs a spike verdict.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Sample is one historical mention count for a keyword.
type Sample struct {
	Count     int   `json:"count"`
	Timestamp int64 `json:"timestamp"`
}

// SpikeResult is the verdict for one keyword in one analysis pass.
type SpikeResult struct {
	Keyword       string     `json:"keyword"`
	SpikePercent  float64    `json:"spike_percent"`
	IsSpike       bool       `json:"is_spike"`
	HistoricalAvg float64    `json:"historical_avg"`
	CurrentCount  int        `json:"current_count"`
	Confidence    Confidence `json:"confidence"`
}

// MentionSample is an archived observation, one row per keyword per pass.
type MentionSample struct {
	Keyword      string
	Count        int
	SpikePercent float64
	IsSpike      bool
	At           time.Time
}
