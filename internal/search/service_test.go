package search

import "testing"

func TestServiceWithoutMeiliFallsBack(t *testing.T) {
	svc := NewService(nil)
	if svc.Enabled() {
		t.Fatal("nil backend should not be enabled")
	}

	records, total, ok := svc.Search(Query{Text: "persona"})
	if ok {
		t.Fatal("expected ok=false without a backend")
	}
	if records != nil || total != 0 {
		t.Fatalf("expected empty results, got %v total=%d", records, total)
	}

	// Must not panic without a backend.
	svc.ReindexAll([]Record{{ID: "static-1", Name: "Persona Builder"}})
}
