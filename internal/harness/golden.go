package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/profilegen/internal/ir"
)

// GoldenDir is where golden files live, relative to the test's package.
const GoldenDir = "testdata/golden"

// Snapshot is the golden form of a scenario result.
type Snapshot struct {
	ScenarioName  string   `json:"scenario_name"`
	Contradiction bool     `json:"contradiction"`
	RowSpecs      []string `json:"row_specs"`
}

// NewSnapshot captures the parts of a result that golden files compare.
func NewSnapshot(name string, result *Result) Snapshot {
	return Snapshot{
		ScenarioName:  name,
		Contradiction: result.Contradiction,
		RowSpecs:      result.RowSpecs,
	}
}

// Marshal renders the snapshot as canonical JSON, one byte sequence per
// result.
func (s Snapshot) Marshal() ([]byte, error) {
	specs := s.RowSpecs
	if specs == nil {
		specs = []string{}
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario_name": s.ScenarioName,
		"contradiction": s.Contradiction,
		"row_specs":     specs,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}

// GoldenPath returns the golden file of a scenario under dir.
func GoldenPath(dir, scenarioName string) string {
	return filepath.Join(dir, scenarioName+".golden")
}

// WriteGolden writes the snapshot of result to its golden file under dir.
// It is the non-test counterpart of goldie's -update flag.
func WriteGolden(dir, scenarioName string, result *Result) error {
	data, err := NewSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(GoldenPath(dir, scenarioName), data, 0o644)
}

// CompareGolden reports whether result matches the golden file under dir.
// A missing golden file is an error.
func CompareGolden(dir, scenarioName string, result *Result) (bool, error) {
	want, err := os.ReadFile(GoldenPath(dir, scenarioName))
	if err != nil {
		return false, err
	}
	got, err := NewSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return false, err
	}
	return string(want) == string(got), nil
}
