package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a profile with its expected compilation result.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Profile is the inline profile document.
	Profile yaml.Node `yaml:"profile,omitempty"`

	// ProfileFile names a YAML or CUE profile, relative to the scenario
	// file. Exactly one of Profile and ProfileFile is set.
	ProfileFile string `yaml:"profile_file,omitempty"`

	// Config overrides the generation settings used for the scenario.
	Config ScenarioConfig `yaml:"config,omitempty"`

	// Expect is the expected compilation result.
	Expect Expectation `yaml:"expect"`

	// Assertions check generated rows and RowSpecs.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// dir is the directory of the scenario file.
	dir string
}

// ScenarioConfig overrides engine settings. Unset fields keep the
// harness defaults: cartesian walker, frequency selection, partitioning on,
// no string length cap.
type ScenarioConfig struct {
	Walker          string `yaml:"walker,omitempty"`
	FieldSelection  string `yaml:"field_selection,omitempty"`
	Mode            string `yaml:"mode,omitempty"`
	Combination     string `yaml:"combination,omitempty"`
	Partition       *bool  `yaml:"partition,omitempty"`
	MaxStringLength *int   `yaml:"max_string_length,omitempty"`
	Seed            uint64 `yaml:"seed,omitempty"`
}

// Expectation is what compiling the profile must produce.
type Expectation struct {
	// Contradiction is true when the profile can never be satisfied.
	Contradiction bool `yaml:"contradiction"`

	// RowSpecs is the sorted RowSpec listing. When nil the listing is not
	// compared; an empty list expects no RowSpecs.
	RowSpecs []string `yaml:"row_specs"`
}

// Assertion checks generated output.
type Assertion struct {
	// Type specifies the assertion type:
	// - "row_spec_count": exactly Count RowSpecs
	// - "row_spec_contains": the listing contains RowSpec
	// - "rows_satisfy_profile": generated rows satisfy every rule
	// - "field_values": generated values of Field are among Values
	Type string `yaml:"type"`

	// Count is the expected number of RowSpecs (row_spec_count).
	Count int `yaml:"count,omitempty"`

	// RowSpec is a rendered RowSpec (row_spec_contains).
	RowSpec string `yaml:"row_spec,omitempty"`

	// Rows caps the rows generated for row assertions. Default: 100.
	Rows int `yaml:"rows,omitempty"`

	// Field and Values are used by field_values. A value of ~ allows null.
	Field  string `yaml:"field,omitempty"`
	Values []any  `yaml:"values,omitempty"`
}

// Assertion type constants.
const (
	AssertRowSpecCount     = "row_spec_count"
	AssertRowSpecContains  = "row_spec_contains"
	AssertRowsSatisfy      = "rows_satisfy_profile"
	AssertFieldValues      = "field_values"
	defaultAssertionRows   = 100
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

	if scenario.ProfileFile != "" {
		if _, err := os.Stat(scenario.profilePath()); err != nil {
			return nil, fmt.Errorf("invalid scenario: profile file not found: %s", scenario.ProfileFile)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML. Relative profile files resolve
// against the working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func (s *Scenario) profilePath() string {
	if filepath.IsAbs(s.ProfileFile) || s.dir == "" {
		return s.ProfileFile
	}
	return filepath.Join(s.dir, s.ProfileFile)
}

func (s *Scenario) hasInlineProfile() bool {
	return !s.Profile.IsZero()
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.hasInlineProfile() && s.ProfileFile != "":
		return fmt.Errorf("profile and profile_file are mutually exclusive")
	case !s.hasInlineProfile() && s.ProfileFile == "":
		return fmt.Errorf("profile or profile_file is required")
	case s.hasInlineProfile() && s.Profile.Kind != yaml.MappingNode:
		return fmt.Errorf("profile must be a mapping")
	}

	if s.Expect.Contradiction && len(s.Expect.RowSpecs) > 0 {
		return fmt.Errorf("expect: a contradictory profile has no row_specs")
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
	case AssertRowSpecCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_spec_count", index)
		}
	case AssertRowSpecContains:
		if a.RowSpec == "" {
			return fmt.Errorf("assertions[%d]: row_spec is required for row_spec_contains", index)
		}
	case AssertRowsSatisfy:
		if a.Rows < 0 {
			return fmt.Errorf("assertions[%d]: rows must be non-negative", index)
		}
	case AssertFieldValues:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for field_values", index)
		}
		if len(a.Values) == 0 {
			return fmt.Errorf("assertions[%d]: values is required for field_values", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
