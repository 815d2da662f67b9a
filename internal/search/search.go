// Package search mirrors the merged tool catalog into Meilisearch. The
// index is an accelerator only: when Meilisearch is unavailable the caller
// falls back to in-memory substring matching over the merged taxonomy, so
// search never depends on the index being up.
package search

// Record is the flat tool document pushed to the search index.
type Record struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Icon        string `json:"icon"`
	Phase       string `json:"phase"`
	PhaseNumber int    `json:"phaseNumber"`
	Section     string `json:"section"`
	Source      string `json:"source"`
}

// Query describes a search request against the tool index.
type Query struct {
	Text        string
	Icon        string // empty = all icons
	PhaseNumber int    // 0 = all phases
	Limit       int
}
