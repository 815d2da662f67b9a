package search

import "log"

// Service is the facade in front of Meilisearch. Search reports whether the
// index handled the query; on false the caller runs its in-memory matching
// instead, which keeps results available while the index is down.
type Service struct {
	meili *Meili
}

// NewService creates a search service. meili may be nil when Meilisearch is
// not configured.
func NewService(meili *Meili) *Service {
	return &Service{meili: meili}
}

// Enabled reports whether a Meilisearch backend is configured at all.
func (s *Service) Enabled() bool {
	return s.meili != nil
}

// Search tries the Meilisearch index. ok is false when the index is absent,
// unhealthy, or errored; the caller should fall back to in-memory matching.
func (s *Service) Search(q Query) (records []Record, total int, ok bool) {
	if s.meili == nil || !s.meili.Healthy() {
		return nil, 0, false
	}
	records, total, err := s.meili.Search(q)
	if err != nil {
		log.Printf("search: meilisearch error, falling back to in-memory: %v", err)
		return nil, 0, false
	}
	return records, total, true
}

// ReindexAll replaces the tool index with the given records
// (fire-and-forget).
func (s *Service) ReindexAll(records []Record) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexTools(records); err != nil {
			log.Printf("search: reindex tools: %v", err)
		}
	}()
}
