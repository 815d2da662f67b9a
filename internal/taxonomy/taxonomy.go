// Package taxonomy holds the static catalog of design-process phases,
// sections, and tools. The tree is defined in code, loaded once at process
// start, and treated as frozen for the life of the process.
package taxonomy

type Icon string

const (
	IconGemini Icon = "gemini"
	IconMiro   Icon = "miro"
)

// FrameDetail is one labelled row inside an output frame.
type FrameDetail struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Frame describes one structured output a tool produces.
type Frame struct {
	Frame           string        `json:"frame"`
	KeyDeliverables string        `json:"keyDeliverables"`
	Details         []FrameDetail `json:"details"`
}

type Tool struct {
	Name            string   `json:"name"`
	Icon            Icon     `json:"icon"`
	URL             string   `json:"url"`
	Description     string   `json:"description"`
	CoreOutputFocus []Frame  `json:"coreOutputFocus,omitempty"`
	Instructions    []string `json:"instructions,omitempty"`
}

type Section struct {
	Title string `json:"title"`
	Tools []Tool `json:"tools"`
}

type Phase struct {
	Number      int       `json:"number"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Sections    []Section `json:"sections"`
}

// Store exposes read-only access to the static tree. Safe for unlimited
// concurrent readers; there are no mutation operations.
type Store struct {
	phases []Phase
}

func NewStore(phases []Phase) *Store {
	return &Store{phases: phases}
}

// Default returns a store over the built-in phase data.
func Default() *Store {
	return NewStore(phases)
}

// Phases returns the full ordered phase list. Callers must not mutate the
// returned slice; use Clone for a mutable copy.
func (s *Store) Phases() []Phase {
	return s.phases
}

// PhaseByNumber returns the phase with the given number, or false when no
// phase carries it. Numbers follow declaration order but are not required
// to be contiguous.
func (s *Store) PhaseByNumber(number int) (Phase, bool) {
	for _, phase := range s.phases {
		if phase.Number == number {
			return phase, true
		}
	}
	return Phase{}, false
}

// FindToolByName scans phases in order, then sections in order, and returns
// the first tool with the given name. When multiple tools share a name only
// the first encountered is returned.
func (s *Store) FindToolByName(name string) (Tool, Phase, Section, bool) {
	for _, phase := range s.phases {
		for _, section := range phase.Sections {
			for _, tool := range section.Tools {
				if tool.Name == name {
					return tool, phase, section, true
				}
			}
		}
	}
	return Tool{}, Phase{}, Section{}, false
}

// Clone deep-copies the phase tree so callers can overlay and filter without
// touching the frozen store.
func (s *Store) Clone() []Phase {
	return ClonePhases(s.phases)
}

func ClonePhases(src []Phase) []Phase {
	out := make([]Phase, len(src))
	for i, phase := range src {
		copied := phase
		copied.Sections = make([]Section, len(phase.Sections))
		for j, section := range phase.Sections {
			copiedSection := section
			copiedSection.Tools = make([]Tool, len(section.Tools))
			copy(copiedSection.Tools, section.Tools)
			copied.Sections[j] = copiedSection
		}
		out[i] = copied
	}
	return out
}
