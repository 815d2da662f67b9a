// Package merge overlays visible approved tools onto the static taxonomy
// and derives the filtered views served by the read API. Everything here is
// a pure function over its inputs; the merged tree is recomputed on every
// read so there is no cached state to go stale between requests.
package merge

import (
	"fmt"
	"strings"

	"designflow/api/internal/store"
	"designflow/api/internal/taxonomy"
)

const (
	SourceStatic    = "static"
	SourceSubmitted = "submitted"
)

// Tool is a taxonomy tool decorated with its provenance. Static tools carry
// no id; submitted tools carry the approved_tools row id.
type Tool struct {
	taxonomy.Tool
	Source string `json:"source"`
	ID     int64  `json:"id,omitempty"`
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

// Filters narrows the merged taxonomy. Search is a case-insensitive
// substring match on tool name or description; Icon is an exact match.
type Filters struct {
	Search string
	Icon   string
}

// ListFilters narrows the flattened tool list.
type ListFilters struct {
	Search string
	Icon   string
	Phase  *int
}

// FlatTool is a tool decorated with its phase and section context, for the
// tools endpoints.
type FlatTool struct {
	taxonomy.Tool
	Phase       string `json:"phase"`
	PhaseNumber int    `json:"phaseNumber"`
	Section     string `json:"section"`
	Source      string `json:"source"`
	ID          int64  `json:"id,omitempty"`
}

// Merge deep-copies the static tree and appends each visible approved tool
// to its (phase_number, section_title) slot, static tools first and approved
// tools in the order given (approval time). Rows whose denormalized
// reference matches no static phase/section are returned as orphans for the
// caller to log; they are never a fatal error.
func Merge(static *taxonomy.Store, approved []store.ApprovedTool) ([]Phase, []store.ApprovedTool) {
	phases := make([]Phase, 0, len(static.Phases()))
	for _, phase := range static.Phases() {
		merged := Phase{
			Number:      phase.Number,
			Title:       phase.Title,
			Description: phase.Description,
			Sections:    make([]Section, 0, len(phase.Sections)),
		}
		for _, section := range phase.Sections {
			tools := make([]Tool, 0, len(section.Tools))
			for _, tool := range section.Tools {
				tools = append(tools, Tool{Tool: tool, Source: SourceStatic})
			}
			merged.Sections = append(merged.Sections, Section{Title: section.Title, Tools: tools})
		}
		phases = append(phases, merged)
	}

	var orphans []store.ApprovedTool
	for _, row := range approved {
		slot := findSection(phases, row.PhaseNumber, row.SectionTitle)
		if slot == nil {
			orphans = append(orphans, row)
			continue
		}
		slot.Tools = append(slot.Tools, Tool{
			Tool: taxonomy.Tool{
				Name:        row.Name,
				Icon:        taxonomy.Icon(row.Icon),
				URL:         row.URL,
				Description: row.Description,
			},
			Source: SourceSubmitted,
			ID:     row.ID,
		})
	}
	return phases, orphans
}

func findSection(phases []Phase, phaseNumber int, sectionTitle string) *Section {
	for i := range phases {
		if phases[i].Number != phaseNumber {
			continue
		}
		for j := range phases[i].Sections {
			if phases[i].Sections[j].Title == sectionTitle {
				return &phases[i].Sections[j]
			}
		}
	}
	return nil
}

// Filter applies search then icon filtering. Sections left with no tools
// are dropped, and phases left with no sections are dropped; a phase never
// appears with an empty tool array.
func Filter(phases []Phase, filters Filters) []Phase {
	if filters.Search != "" {
		phases = filterTools(phases, func(tool Tool) bool {
			return matchesSearch(tool.Name, tool.Description, filters.Search)
		})
	}
	if filters.Icon != "" {
		phases = filterTools(phases, func(tool Tool) bool {
			return string(tool.Icon) == filters.Icon
		})
	}
	return phases
}

func filterTools(phases []Phase, keep func(Tool) bool) []Phase {
	out := make([]Phase, 0, len(phases))
	for _, phase := range phases {
		filtered := Phase{
			Number:      phase.Number,
			Title:       phase.Title,
			Description: phase.Description,
			Sections:    make([]Section, 0, len(phase.Sections)),
		}
		for _, section := range phase.Sections {
			tools := make([]Tool, 0, len(section.Tools))
			for _, tool := range section.Tools {
				if keep(tool) {
					tools = append(tools, tool)
				}
			}
			if len(tools) > 0 {
				filtered.Sections = append(filtered.Sections, Section{Title: section.Title, Tools: tools})
			}
		}
		if len(filtered.Sections) > 0 {
			out = append(out, filtered)
		}
	}
	return out
}

// ToolList flattens the merged taxonomy into phase/section-decorated tools.
// Search here also matches the phase and section titles, mirroring the
// tools endpoint's wider net.
func ToolList(phases []Phase, filters ListFilters) []FlatTool {
	tools := make([]FlatTool, 0)
	for _, phase := range phases {
		for _, section := range phase.Sections {
			for _, tool := range section.Tools {
				tools = append(tools, FlatTool{
					Tool:        tool.Tool,
					Phase:       phase.Title,
					PhaseNumber: phase.Number,
					Section:     section.Title,
					Source:      tool.Source,
					ID:          tool.ID,
				})
			}
		}
	}

	filtered := make([]FlatTool, 0, len(tools))
	for _, tool := range tools {
		if filters.Search != "" &&
			!matchesSearch(tool.Name, tool.Description, filters.Search) &&
			!containsFold(tool.Phase, filters.Search) &&
			!containsFold(tool.Section, filters.Search) {
			continue
		}
		if filters.Icon != "" && string(tool.Icon) != filters.Icon {
			continue
		}
		if filters.Phase != nil && tool.PhaseNumber != *filters.Phase {
			continue
		}
		filtered = append(filtered, tool)
	}
	return filtered
}

// FindTool returns the first merged tool with the given name, scanning
// phases then sections in order.
func FindTool(phases []Phase, name string) (FlatTool, bool) {
	for _, phase := range phases {
		for _, section := range phase.Sections {
			for _, tool := range section.Tools {
				if tool.Name == name {
					return FlatTool{
						Tool:        tool.Tool,
						Phase:       phase.Title,
						PhaseNumber: phase.Number,
						Section:     section.Title,
						Source:      tool.Source,
						ID:          tool.ID,
					}, true
				}
			}
		}
	}
	return FlatTool{}, false
}

// SectionSummary is a section decorated with phase context and tool count.
type SectionSummary struct {
	Title       string `json:"title"`
	Phase       string `json:"phase"`
	PhaseNumber int    `json:"phaseNumber"`
	ToolCount   int    `json:"toolCount"`
}

func Sections(phases []Phase, phaseNumber *int) []SectionSummary {
	sections := make([]SectionSummary, 0)
	for _, phase := range phases {
		if phaseNumber != nil && phase.Number != *phaseNumber {
			continue
		}
		for _, section := range phase.Sections {
			sections = append(sections, SectionSummary{
				Title:       section.Title,
				Phase:       phase.Title,
				PhaseNumber: phase.Number,
				ToolCount:   len(section.Tools),
			})
		}
	}
	return sections
}

type PhaseResult struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type SectionResult struct {
	Title       string `json:"title"`
	Phase       string `json:"phase"`
	PhaseNumber int    `json:"phaseNumber"`
	Type        string `json:"type"`
}

type ToolResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	URL         string `json:"url"`
	Phase       string `json:"phase"`
	PhaseNumber int    `json:"phaseNumber"`
	Section     string `json:"section"`
	Type        string `json:"type"`
}

// SearchResults carries the three parallel collections of the full-text
// search endpoint.
type SearchResults struct {
	Phases   []PhaseResult   `json:"phases"`
	Sections []SectionResult `json:"sections"`
	Tools    []ToolResult    `json:"tools"`
}

func (r SearchResults) Total() int {
	return len(r.Phases) + len(r.Sections) + len(r.Tools)
}

// Search performs an independent substring match across phases, sections,
// and tools.
func Search(phases []Phase, query string) SearchResults {
	results := SearchResults{
		Phases:   make([]PhaseResult, 0),
		Sections: make([]SectionResult, 0),
		Tools:    make([]ToolResult, 0),
	}
	for _, phase := range phases {
		if containsFold(phase.Title, query) || containsFold(phase.Description, query) {
			results.Phases = append(results.Phases, PhaseResult{
				Number:      phase.Number,
				Title:       phase.Title,
				Description: phase.Description,
				Type:        "phase",
			})
		}
		for _, section := range phase.Sections {
			if containsFold(section.Title, query) {
				results.Sections = append(results.Sections, SectionResult{
					Title:       section.Title,
					Phase:       phase.Title,
					PhaseNumber: phase.Number,
					Type:        "section",
				})
			}
			for _, tool := range section.Tools {
				if matchesSearch(tool.Name, tool.Description, query) {
					results.Tools = append(results.Tools, ToolResult{
						Name:        tool.Name,
						Description: tool.Description,
						Icon:        string(tool.Icon),
						URL:         tool.URL,
						Phase:       phase.Title,
						PhaseNumber: phase.Number,
						Section:     section.Title,
						Type:        "tool",
					})
				}
			}
		}
	}
	return results
}

// Stats is the aggregate view, recomputed by full traversal on demand.
type Stats struct {
	TotalPhases          int            `json:"totalPhases"`
	TotalSections        int            `json:"totalSections"`
	TotalTools           int            `json:"totalTools"`
	ToolsByIcon          map[string]int `json:"toolsByIcon"`
	ToolsByPhase         map[string]int `json:"toolsByPhase"`
	AverageToolsPerPhase string         `json:"averageToolsPerPhase"`
}

func ComputeStats(phases []Phase) Stats {
	stats := Stats{
		TotalPhases: len(phases),
		ToolsByIcon: map[string]int{
			string(taxonomy.IconGemini): 0,
			string(taxonomy.IconMiro):   0,
		},
		ToolsByPhase: make(map[string]int),
	}
	for _, phase := range phases {
		phaseTools := 0
		for _, section := range phase.Sections {
			stats.TotalSections++
			phaseTools += len(section.Tools)
			for _, tool := range section.Tools {
				stats.ToolsByIcon[string(tool.Icon)]++
			}
		}
		stats.ToolsByPhase[phase.Title] = phaseTools
		stats.TotalTools += phaseTools
	}
	average := 0.0
	if len(phases) > 0 {
		average = float64(stats.TotalTools) / float64(len(phases))
	}
	stats.AverageToolsPerPhase = fmt.Sprintf("%.2f", average)
	return stats
}

func matchesSearch(name, description, query string) bool {
	return containsFold(name, query) || containsFold(description, query)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
