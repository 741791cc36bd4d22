package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/profilegen/internal/constraint"
	"github.com/roach88/profilegen/internal/engine"
	"github.com/roach88/profilegen/internal/fieldspec"
	"github.com/roach88/profilegen/internal/ir"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E001", "profile not found", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "profile not found", resp.Error.Message)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"file": "profile.cue", "line": "42"}
	err := formatter.Error("E002", "syntax error", details)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("Profile valid")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Profile valid")
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("E001", "profile not found", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E001]")
	assert.Contains(t, buf.String(), "profile not found")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"file": "profile.cue"}
	err := formatter.Error("E001", "profile not found", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E001]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name     string
		verbose  bool
		wantLog  bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("Processing %s", "profile.cue")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "Processing profile.cue")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestOutputFormatter_Failure(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Failure("E201", "rules can never hold together", ValidationResult{Valid: false}))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E201", resp.Error.Code)

	// Text commands print their own report.
	buf.Reset()
	text := &OutputFormatter{Format: "text", Writer: buf}
	require.NoError(t, text.Failure("E201", "ignored", nil))
	assert.Empty(t, buf.String())
}

func sampleRun(violate bool) *engine.Run {
	run := &engine.Run{
		ID:          "run-1",
		ProfileHash: "abc",
		Fields:      ir.NewProfileFields("country", "city"),
		Settings:    engine.DefaultSettings(),
		Rows: []engine.Row{
			{Seq: 1, RowSpec: 0, Values: ir.Row{"country": ir.String("US"), "city": ir.String("DC")}},
			{Seq: 2, RowSpec: 1, Values: ir.Row{"country": ir.String("GB"), "city": ir.Null{}}, Violated: "GB cities"},
		},
	}
	run.Settings.Violate = violate
	return run
}

func TestOutputFormatter_RowsCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Rows(sampleRun(false)))
	assert.Equal(t, "country,city\nUS,DC\nGB,\n", buf.String())

	buf.Reset()
	require.NoError(t, formatter.Rows(sampleRun(true)))
	assert.Equal(t, "country,city,violated\nUS,DC,\nGB,,GB cities\n", buf.String())
}

func TestOutputFormatter_RowsJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Rows(sampleRun(true)))

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			RunID  string           `json:"run_id"`
			Fields []string         `json:"fields"`
			Rows   []map[string]any `json:"rows"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.Data.RunID)
	assert.Equal(t, []string{"country", "city"}, resp.Data.Fields)
	require.Len(t, resp.Data.Rows, 2)
	assert.NotContains(t, resp.Data.Rows[0], "violated")
	assert.Equal(t, "GB cities", resp.Data.Rows[1]["violated"])
}

func sampleRowSpecs(t *testing.T) RowSpecsResult {
	t.Helper()
	country, city := ir.NewField("country"), ir.NewField("city")
	schema := ir.ProfileFields{country, city}
	us, err := fieldspec.FromAtomic(constraint.NewAtomic(country, constraint.EqualTo{Value: ir.String("US")}))
	require.NoError(t, err)
	return NewRowSpecsResult("abc", schema, []fieldspec.RowSpec{
		fieldspec.NewRowSpec(schema).With(country, us.Value()),
		fieldspec.NewRowSpec(schema),
	})
}

func TestNewRowSpecsResult(t *testing.T) {
	result := sampleRowSpecs(t)

	assert.Equal(t, []string{"country", "city"}, result.Fields)
	require.Len(t, result.RowSpecs, 2)
	first := result.RowSpecs[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "{country=notNull in[US], city=any}", first.Spec)
	assert.Equal(t, map[string]string{"country": "notNull in[US]", "city": "any"}, first.Fields)
	assert.Equal(t, 1, result.RowSpecs[1].Index)
}

func TestOutputFormatter_RowSpecs(t *testing.T) {
	buf := &bytes.Buffer{}
	text := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, text.RowSpecs(sampleRowSpecs(t)))
	assert.Equal(t, "#0 {country=notNull in[US], city=any}\n#1 {country=any, city=any}\n", buf.String())

	buf.Reset()
	require.NoError(t, text.RowSpecs(RowSpecsResult{}))
	assert.Equal(t, "No row specs.\n", buf.String())

	buf.Reset()
	js := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, js.RowSpecs(sampleRowSpecs(t)))
	var resp struct {
		Data RowSpecsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, sampleRowSpecs(t), resp.Data)
}

func TestOutputFormatter_PassFail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	formatter.Pass("Profile valid (%d fields, %d rules)", 3, 4)
	formatter.Fail("Validation failed")

	out := buf.String()
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "Profile valid (3 fields, 4 rules)")
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "Validation failed")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "boom")))
	assert.Equal(t, ExitFailure, GetExitCode(WrapExitError(ExitFailure, "wrapped", assert.AnError)))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))

	err := WrapExitError(ExitCommandError, "failed to load config", assert.AnError)
	assert.Equal(t, "failed to load config: "+assert.AnError.Error(), err.Error())
	assert.ErrorIs(t, err, assert.AnError)
}
