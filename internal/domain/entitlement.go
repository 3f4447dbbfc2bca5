package domain

// StreamItem is the slice of a stream record the entitlement summary needs.
// The streams API returns richer objects; everything else is ignored here.
type StreamItem struct {
	StreamType string `json:"stream_type"`
	Enabled    bool   `json:"enabled"`
}

// EntitlementSummary is a read-only projection of a user's current usage.
// Counters are pointers so that a failed fetch is distinguishable from zero:
// nil means "unknown, render a placeholder", 0 means the user has no streams.
type EntitlementSummary struct {
	TotalItems   *int `json:"total_items"`
	EnabledItems *int `json:"enabled_items"`
}
