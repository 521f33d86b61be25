package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines an exploration scenario and its expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the path to the model file. LoadScenario resolves it
	// relative to the scenario file.
	Model string `yaml:"model"`

	// Search bounds; zero values take the engine defaults.
	Seed        uint64 `yaml:"seed,omitempty"`
	MaxDepth    int    `yaml:"max_depth,omitempty"`
	MaxBranches int    `yaml:"max_branches,omitempty"`
	StepBudget  int    `yaml:"step_budget,omitempty"`

	// Assertions validate the findings and the run summary.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one aspect of a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected number (finding_count, coverage_count).
	Count int `yaml:"count,omitempty"`

	// Finding indexes the finding under test (trace_equals, final_storage).
	Finding int `yaml:"finding,omitempty"`

	// Actions is the expected trace (trace_equals).
	Actions []string `yaml:"actions,omitempty"`

	// Expect holds expected storage values (final_storage).
	// Subset match - only specified keys are validated.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Success is the expected run outcome (success).
	Success *bool `yaml:"success,omitempty"`
}

// Assertion type constants.
const (
	AssertFindingCount  = "finding_count"
	AssertTraceEquals   = "trace_equals"
	AssertFinalStorage  = "final_storage"
	AssertCoverageCount = "coverage_count"
	AssertSuccess       = "success"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the model path BEFORE validation
	if scenario.Model != "" && !filepath.IsAbs(scenario.Model) {
		scenario.Model = filepath.Join(filepath.Dir(path), scenario.Model)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if _, err := os.Stat(s.Model); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.Model)
	}
	if s.MaxDepth < 0 || s.MaxBranches < 0 || s.StepBudget < 0 {
		return fmt.Errorf("max_depth, max_branches and step_budget must be non-negative")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFindingCount, AssertCoverageCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertTraceEquals:
		if a.Finding < 0 {
			return fmt.Errorf("assertions[%d]: finding must be non-negative", index)
		}
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_equals", index)
		}
	case AssertFinalStorage:
		if a.Finding < 0 {
			return fmt.Errorf("assertions[%d]: finding must be non-negative", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_storage", index)
		}
	case AssertSuccess:
		if a.Success == nil {
			return fmt.Errorf("assertions[%d]: success is required for success", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
