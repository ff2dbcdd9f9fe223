package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/citesync/internal/citation"
)

// Scenario defines an editing scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Style is a builtin style name or a path to a .cue file, relative to
	// the scenario file. Defaults to "numeric".
	Style string `yaml:"style,omitempty"`

	// Processor selects the style engine: "csl" or "ids". The ids engine
	// renders item ids verbatim, for scenarios that test plumbing rather
	// than formatting.
	Processor string `yaml:"processor,omitempty"`

	// Mode is "sync" or "deferred".
	Mode string `yaml:"mode,omitempty"`

	// Library is loaded into the store before the manuscript is imported.
	Library []citation.LibraryItem `yaml:"library,omitempty"`

	// Manuscript is Markdown source.
	Manuscript string `yaml:"manuscript"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`

	// dir is the directory of the scenario file.
	dir string
}

// Step is one editing action.
type Step struct {
	Action string `yaml:"action"`

	// AtText positions insert_text and insert_citation directly after its
	// first occurrence.
	AtText string `yaml:"at_text,omitempty"`

	// Text is inserted by insert_text.
	Text string `yaml:"text,omitempty"`

	// Items are the item ids cited by insert_citation.
	Items []string `yaml:"items,omitempty"`

	// Index selects the citation for delete_citation.
	Index int `yaml:"index,omitempty"`

	// Item is added by add_library_item.
	Item *citation.LibraryItem `yaml:"item,omitempty"`

	// ID names the item removed by remove_library_item.
	ID string `yaml:"id,omitempty"`
}

// Step action constants.
const (
	StepRefresh           = "refresh"
	StepInsertText        = "insert_text"
	StepInsertCitation    = "insert_citation"
	StepDeleteCitation    = "delete_citation"
	StepAddLibraryItem    = "add_library_item"
	StepRemoveLibraryItem = "remove_library_item"
	StepUndo              = "undo"
	StepRedo              = "redo"
	StepSettle            = "settle"
)

// Assertion validates the trace or the final document.
type Assertion struct {
	Type string `yaml:"type"`

	// Index is the citation index (citation_text).
	Index int `yaml:"index,omitempty"`

	// Expect is the expected citation contents (citation_text).
	Expect string `yaml:"expect,omitempty"`

	// Text is the expected substring (bibliography_contains).
	Text string `yaml:"text,omitempty"`

	// Class is the decoration class (decoration_count).
	Class string `yaml:"class,omitempty"`

	// Count is the expected number (bibliography_entries, decoration_count,
	// referencing).
	Count int `yaml:"count,omitempty"`

	// Phase is the expected coordinator phase (outcome).
	Phase string `yaml:"phase,omitempty"`

	// Step is the 1-based step the outcome is read after (outcome);
	// 0 means the last step.
	Step int `yaml:"step,omitempty"`

	// Item is the library item id (referencing).
	Item string `yaml:"item,omitempty"`
}

// Assertion type constants.
const (
	AssertCitationText         = "citation_text"
	AssertBibliographyContains = "bibliography_contains"
	AssertBibliographyEntries  = "bibliography_entries"
	AssertDecorationCount      = "decoration_count"
	AssertOutcome              = "outcome"
	AssertReferencing          = "referencing"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	scenario.dir = filepath.Dir(path)
	return scenario, nil
}

// ParseScenario parses scenario YAML. Relative style paths resolve against
// the working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// stylePath resolves a relative style file against the scenario directory.
func (s *Scenario) stylePath() string {
	if filepath.IsAbs(s.Style) || s.dir == "" {
		return s.Style
	}
	return filepath.Join(s.dir, s.Style)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Manuscript == "" {
		return fmt.Errorf("manuscript is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	switch s.Processor {
	case "", "csl", "ids":
	default:
		return fmt.Errorf("unknown processor %q", s.Processor)
	}
	switch s.Mode {
	case "", "sync", "deferred":
	default:
		return fmt.Errorf("unknown mode %q", s.Mode)
	}

	for i, it := range s.Library {
		if it.ID == "" {
			return fmt.Errorf("library[%d]: id is required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Steps)); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, st *Step) error {
	switch st.Action {
	case StepRefresh, StepUndo, StepRedo, StepSettle:
	case StepInsertText:
		if st.AtText == "" || st.Text == "" {
			return fmt.Errorf("steps[%d]: at_text and text are required for insert_text", index)
		}
	case StepInsertCitation:
		if st.AtText == "" {
			return fmt.Errorf("steps[%d]: at_text is required for insert_citation", index)
		}
	case StepDeleteCitation:
		if st.Index < 0 {
			return fmt.Errorf("steps[%d]: index must be non-negative for delete_citation", index)
		}
	case StepAddLibraryItem:
		if st.Item == nil || st.Item.ID == "" {
			return fmt.Errorf("steps[%d]: item with id is required for add_library_item", index)
		}
	case StepRemoveLibraryItem:
		if st.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for remove_library_item", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: action is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, st.Action)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertCitationText:
		if a.Index < 0 {
			return fmt.Errorf("assertions[%d]: index must be non-negative for citation_text", index)
		}
	case AssertBibliographyContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for bibliography_contains", index)
		}
	case AssertBibliographyEntries:
	case AssertDecorationCount:
		if a.Class == "" {
			return fmt.Errorf("assertions[%d]: class is required for decoration_count", index)
		}
	case AssertOutcome:
		if a.Phase == "" {
			return fmt.Errorf("assertions[%d]: phase is required for outcome", index)
		}
		if a.Step < 0 || a.Step > steps {
			return fmt.Errorf("assertions[%d]: step %d out of range 1..%d", index, a.Step, steps)
		}
	case AssertReferencing:
		if a.Item == "" {
			return fmt.Errorf("assertions[%d]: item is required for referencing", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
