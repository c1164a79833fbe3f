package models

import "strings"

// FeedItem is one normalized item from a social or news feed.
type FeedItem struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
	Source    string `json:"source"`
}

// DedupKey is the case-folded title used to drop duplicate items.
func (f FeedItem) DedupKey() string {
	return strings.ToLower(f.Title)
}
