package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/profilegen/internal/engine"
)

type generateResponse struct {
	Status string `json:"status"`
	Data   struct {
		RunID    string          `json:"run_id"`
		Fields   []string        `json:"fields"`
		Settings engine.Settings `json:"settings"`
		RowSpecs int             `json:"row_specs"`
		Rows     []struct {
			Seq      int64          `json:"seq"`
			RowSpec  int            `json:"row_spec"`
			Violated string         `json:"violated"`
			Values   map[string]any `json:"values"`
		} `json:"rows"`
	} `json:"data"`
	Error *CLIError `json:"error"`
}

func runGenerateCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	opts := &GenerateOptions{
		RootOptions: &RootOptions{Format: format},
		RunIDs:      engine.NewFixedGenerator("run-1", "run-2", "run-3"),
	}
	cmd := newGenerateCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestGenerateCSV(t *testing.T) {
	out, err := runGenerateCmd(t, "text", "--max-rows", "6", "--seed", "3", countryYAML)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, []string{"country", "currency"}, records[0])

	rows := records[1:]
	require.NotEmpty(t, rows)
	assert.LessOrEqual(t, len(rows), 6)
	for _, r := range rows {
		switch r[0] {
		case "US":
			assert.Equal(t, "USD", r[1])
		case "GB":
			assert.Equal(t, "GBP", r[1])
		}
	}
}

func TestGenerateJSON(t *testing.T) {
	out, err := runGenerateCmd(t, "json", "--max-rows", "10", "--seed", "3", countryYAML)
	require.NoError(t, err)

	var resp generateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.Data.RunID)
	assert.Equal(t, []string{"country", "currency"}, resp.Data.Fields)
	assert.Equal(t, 3, resp.Data.RowSpecs)
	assert.Equal(t, 10, resp.Data.Settings.MaxRows)
	assert.Equal(t, uint64(3), resp.Data.Settings.Seed)

	require.NotEmpty(t, resp.Data.Rows)
	assert.LessOrEqual(t, len(resp.Data.Rows), 10)
	for i, row := range resp.Data.Rows {
		assert.Equal(t, int64(i+1), row.Seq)
		assert.Empty(t, row.Violated)
		switch row.Values["country"] {
		case "US":
			assert.Equal(t, "USD", row.Values["currency"])
		case "GB":
			assert.Equal(t, "GBP", row.Values["currency"])
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	args := []string{"--max-rows", "12", "--seed", "9", "--mode", "random", countryYAML}
	first, err := runGenerateCmd(t, "text", args...)
	require.NoError(t, err)
	second, err := runGenerateCmd(t, "text", args...)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateFromCUE(t *testing.T) {
	for _, path := range []string{countryCUE, countryDir} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			out, err := runGenerateCmd(t, "json", "--max-rows", "4", "--walker", "reductive", path)
			require.NoError(t, err)

			var resp generateResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, engine.WalkerReductive, resp.Data.Settings.Walker)
			assert.NotEmpty(t, resp.Data.Rows)
		})
	}
}

func TestGenerateNumericProfile(t *testing.T) {
	out, err := runGenerateCmd(t, "text", "--mode", "interesting", quantityYAML)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Greater(t, len(records), 1)
	for _, r := range records[1:] {
		assert.Contains(t, []string{"", "1", "2", "3", "4", "5"}, r[0])
	}
}

func TestGenerateViolate(t *testing.T) {
	out, err := runGenerateCmd(t, "text", "--violate", "--mode", "interesting", "--max-rows", "0", countryYAML)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"country", "currency", "violated"}, records[0])

	var violated int
	for _, r := range records[1:] {
		if r[2] != "" {
			violated++
			assert.Contains(t, []string{"US currency", "GB currency"}, r[2])
		}
	}
	assert.Positive(t, violated)
}

func TestGenerateOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.csv")
	out, err := runGenerateCmd(t, "text", "--max-rows", "3", "--output", path, countryYAML)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "country,currency\n"))
}

func TestGenerateInvalidFlag(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"walker", []string{"--walker", "sideways"}},
		{"mode", []string{"--mode", "chaotic"}},
		{"combination", []string{"--combination", "everything"}},
		{"field_selection", []string{"--field-selection", "alphabetical"}},
		{"negative_rows", []string{"--max-rows", "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runGenerateCmd(t, "text", append(tt.args, countryYAML)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error [E001]")
		})
	}
}

func TestGenerateContradiction(t *testing.T) {
	out, err := runGenerateCmd(t, "text", contradictionYAML)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E201")
	assert.Contains(t, out, "rule: large")
	assert.Contains(t, out, "rule: small")
}

func TestGenerateInvalidProfile(t *testing.T) {
	out, err := runGenerateCmd(t, "json", undeclaredYAML)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp generateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E103", resp.Error.Code)
}

func TestGenerateMissingProfile(t *testing.T) {
	out, err := runGenerateCmd(t, "text", "/nonexistent/profile.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestGenerateStoreFromConfig(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")
	cfgPath := filepath.Join(dir, "profilegen.yaml")
	cfg := "generation:\n  max_rows: 5\n  walker: reductive\nstore:\n  path: " + dbPath + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	buf := &bytes.Buffer{}
	opts := &GenerateOptions{
		RootOptions: &RootOptions{Format: "json", ConfigPath: cfgPath},
		RunIDs:      engine.NewFixedGenerator("run-from-config"),
	}
	cmd := newGenerateCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{countryYAML})
	require.NoError(t, cmd.Execute())

	var resp generateResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, 5, resp.Data.Settings.MaxRows)
	assert.Equal(t, engine.WalkerReductive, resp.Data.Settings.Walker)

	_, err := os.Stat(dbPath)
	require.NoError(t, err, "run store should be created")
}

func TestGenerateRowSpecsOnly(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	out, err := runGenerateCmd(t, "text", "--row-specs", "--store", dbPath, countryYAML)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for i, line := range lines {
		assert.True(t, strings.HasPrefix(line, fmt.Sprintf("#%d {", i)), line)
	}
	for _, spec := range []string{
		"{country=notIn[GB, US], currency=any}",
		"{country=notNull in[GB], currency=notNull in[GBP]}",
		"{country=notNull in[US], currency=notNull in[USD]}",
	} {
		assert.Contains(t, out, spec)
	}
	assert.NoFileExists(t, dbPath, "listing row specs records no run")

	out, err = runGenerateCmd(t, "json", "--row-specs", countryYAML)
	require.NoError(t, err)
	var resp struct {
		Status string         `json:"status"`
		Data   RowSpecsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"country", "currency"}, resp.Data.Fields)
	require.Len(t, resp.Data.RowSpecs, 3)
	for i, e := range resp.Data.RowSpecs {
		assert.Equal(t, i, e.Index)
		assert.Len(t, e.Fields, 2)
	}
}

func TestGenerateRowSpecsContradiction(t *testing.T) {
	out, err := runGenerateCmd(t, "text", "--row-specs", contradictionYAML)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E201")
}
