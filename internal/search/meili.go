package search

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxTools = "designflow_tools"

// Meili wraps the Meilisearch client for the tool index.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the tool index.
// An unreachable server is not an error; the health monitor keeps probing
// and reconfigures the index when the server comes back.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxTools,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxTools, err)
	}

	index := m.client.Index(idxTools)
	filterable := []interface{}{"icon", "phaseNumber", "source"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxTools, err)
	}
	searchable := []string{"name", "description", "phase", "section"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxTools, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the tool index.
func (m *Meili) Search(q Query) ([]Record, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 50
	}

	sr := &meili.SearchRequest{
		Limit: limit,
	}
	var filters []string
	if q.Icon != "" {
		filters = append(filters, fmt.Sprintf("icon = %q", q.Icon))
	}
	if q.PhaseNumber != 0 {
		filters = append(filters, fmt.Sprintf("phaseNumber = %d", q.PhaseNumber))
	}
	if len(filters) > 0 {
		sr.Filter = filters
	}

	resp, err := m.client.Index(idxTools).Search(q.Text, sr)
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	records := make([]Record, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		records = append(records, hitToRecord(hit))
	}
	return records, int(resp.EstimatedTotalHits), nil
}

func hitToRecord(hit meili.Hit) Record {
	var r Record
	r.ID = decodeString(hit, "id")
	r.Name = decodeString(hit, "name")
	r.Description = decodeString(hit, "description")
	r.URL = decodeString(hit, "url")
	r.Icon = decodeString(hit, "icon")
	r.Phase = decodeString(hit, "phase")
	r.Section = decodeString(hit, "section")
	r.Source = decodeString(hit, "source")
	if raw, ok := hit["phaseNumber"]; ok {
		var n int
		if err := json.Unmarshal(raw, &n); err == nil {
			r.PhaseNumber = n
		}
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

// IndexTools bulk-indexes tool records, replacing existing documents with
// the same id.
func (m *Meili) IndexTools(records []Record) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxTools).AddDocuments(records, nil)
	return err
}

// DeleteTool removes a tool record from the index.
func (m *Meili) DeleteTool(id string) error {
	_, err := m.client.Index(idxTools).DeleteDocument(id, nil)
	return err
}
