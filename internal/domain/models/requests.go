package models

// FeedRequest selects a topic's aggregated feed.
type FeedRequest struct {
	Topic string `query:"topic"`
	Limit int    `query:"limit" default:"20" validate:"gte=1,lte=100"`
}

// SpikesRequest filters the spike report.
type SpikesRequest struct {
	OnlySpikes bool `query:"only_spikes"`
}
