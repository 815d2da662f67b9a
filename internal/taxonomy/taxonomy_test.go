package taxonomy

import "testing"

func TestPhaseByNumber(t *testing.T) {
	s := Default()

	phase, ok := s.PhaseByNumber(1)
	if !ok {
		t.Fatal("expected phase 1")
	}
	if phase.Title != "Discovery" {
		t.Errorf("expected Discovery, got %q", phase.Title)
	}

	if _, ok := s.PhaseByNumber(99); ok {
		t.Error("expected no phase 99")
	}
}

func TestFindToolByName(t *testing.T) {
	s := Default()

	tool, phase, section, ok := s.FindToolByName("Miro discovery board template")
	if !ok {
		t.Fatal("expected to find tool")
	}
	if tool.Icon != IconMiro {
		t.Errorf("expected miro icon, got %q", tool.Icon)
	}
	if phase.Number != 1 {
		t.Errorf("expected phase 1, got %d", phase.Number)
	}
	if section.Title != "A. PRD Review" {
		t.Errorf("expected section A. PRD Review, got %q", section.Title)
	}

	if _, _, _, ok := s.FindToolByName("does not exist"); ok {
		t.Error("expected lookup miss")
	}
}

func TestFindToolByNameReturnsFirstMatch(t *testing.T) {
	// Two sections carrying the same tool name: lookup must return the
	// first in phase/section declaration order.
	s := NewStore([]Phase{
		{
			Number: 1,
			Title:  "One",
			Sections: []Section{
				{Title: "A", Tools: []Tool{{Name: "Dup", URL: "https://first.example"}}},
				{Title: "B", Tools: []Tool{{Name: "Dup", URL: "https://second.example"}}},
			},
		},
	})

	tool, _, section, ok := s.FindToolByName("Dup")
	if !ok {
		t.Fatal("expected to find tool")
	}
	if section.Title != "A" || tool.URL != "https://first.example" {
		t.Errorf("expected first match from section A, got section %q url %q", section.Title, tool.URL)
	}
}

func TestCloneDoesNotShareToolSlices(t *testing.T) {
	s := Default()
	cloned := s.Clone()

	cloned[0].Sections[0].Tools[0].Name = "mutated"
	cloned[0].Sections[0].Tools = append(cloned[0].Sections[0].Tools, Tool{Name: "extra"})

	original := s.Phases()[0].Sections[0].Tools[0]
	if original.Name == "mutated" {
		t.Fatal("clone mutated the frozen store")
	}
}
