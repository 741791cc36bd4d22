package cli

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/roach88/profilegen/internal/engine"
	"github.com/roach88/profilegen/internal/fieldspec"
	"github.com/roach88/profilegen/internal/ir"
)

// Exit codes shared by every command.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the profile is invalid or contradictory, or scenarios failed
	ExitCommandError = 2 // bad paths, unreadable store, engine errors
)

// Output formats selected with --format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ExitError is returned from a RunE to set the process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the code carried by err, or ExitFailure when err
// carries none.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the envelope of every --format json document: status is
// "ok" or "error", data holds the command's result shape and error is set
// when status is "error". Failures may carry data too, such as the
// validation errors or scenario results that caused them.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError names a failure by its code (E001, E201, E_TEST_FAILED...).
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// GenerateResult is the data of "generate --format json".
type GenerateResult struct {
	RunID       string          `json:"run_id"`
	ProfileHash string          `json:"profile_hash"`
	Fields      []string        `json:"fields"`
	Settings    engine.Settings `json:"settings"`
	RowSpecs    int             `json:"row_specs"`
	Rows        []GeneratedRow  `json:"rows"`
}

// GeneratedRow is one row of a GenerateResult. RowSpec indexes the RowSpec
// it was drawn from; Violated names the broken rule in violation runs.
type GeneratedRow struct {
	Seq      int64  `json:"seq"`
	RowSpec  int    `json:"row_spec"`
	Violated string `json:"violated,omitempty"`
	Values   ir.Row `json:"values"`
}

// RowSpecsResult is the data of "generate --row-specs --format json".
type RowSpecsResult struct {
	ProfileHash string         `json:"profile_hash"`
	Fields      []string       `json:"fields"`
	RowSpecs    []RowSpecEntry `json:"row_specs"`
}

// RowSpecEntry renders one RowSpec. Fields maps every schema field to its
// FieldSpec rendering; unrestricted fields render as "any".
type RowSpecEntry struct {
	Index  int               `json:"index"`
	Spec   string            `json:"spec"`
	Fields map[string]string `json:"fields"`
}

// NewRowSpecsResult lists specs in walk order.
func NewRowSpecsResult(profileHash string, schema ir.ProfileFields, specs []fieldspec.RowSpec) RowSpecsResult {
	result := RowSpecsResult{
		ProfileHash: profileHash,
		Fields:      schema.Names(),
		RowSpecs:    make([]RowSpecEntry, len(specs)),
	}
	for i, rs := range specs {
		fields := make(map[string]string, len(schema))
		for _, f := range schema {
			fields[f.Name] = rs.Get(f).String()
		}
		result.RowSpecs[i] = RowSpecEntry{Index: i, Spec: rs.String(), Fields: fields}
	}
	return result
}

// OutputFormatter writes command results to Writer, as text or as a
// CLIResponse. Diagnostics go to ErrWriter so they never interleave with a
// JSON document.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// JSON reports whether results are written as CLIResponse documents.
func (f *OutputFormatter) JSON() bool {
	return f.Format == FormatJSON
}

// Success writes data: an "ok" envelope in JSON, its default formatting
// otherwise.
func (f *OutputFormatter) Success(data any) error {
	if f.JSON() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes a failure without a result. Details are printed in text
// format only when verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.JSON() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Failure writes an indented "error" envelope that still carries the
// command's result. It is a no-op in text format, where commands print
// their own report.
func (f *OutputFormatter) Failure(code, message string, data any) error {
	if !f.JSON() {
		return nil
	}
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(CLIResponse{
		Status: "error",
		Data:   data,
		Error:  &CLIError{Code: code, Message: message},
	})
}

// Rows writes the rows of run: CSV in text format, a GenerateResult in
// JSON.
func (f *OutputFormatter) Rows(run *engine.Run) error {
	if !f.JSON() {
		return writeCSV(f.Writer, run)
	}
	result := GenerateResult{
		RunID:       run.ID,
		ProfileHash: run.ProfileHash,
		Fields:      run.Fields.Names(),
		Settings:    run.Settings,
		RowSpecs:    len(run.RowSpecs),
		Rows:        make([]GeneratedRow, len(run.Rows)),
	}
	for i, r := range run.Rows {
		result.Rows[i] = GeneratedRow{Seq: r.Seq, RowSpec: r.RowSpec, Violated: r.Violated, Values: r.Values}
	}
	return f.Success(result)
}

// RowSpecs writes a RowSpec listing: one "#index spec" line each in text
// format, the result itself in JSON.
func (f *OutputFormatter) RowSpecs(result RowSpecsResult) error {
	if f.JSON() {
		return f.Success(result)
	}
	if len(result.RowSpecs) == 0 {
		_, err := fmt.Fprintln(f.Writer, "No row specs.")
		return err
	}
	for _, e := range result.RowSpecs {
		if _, err := fmt.Fprintf(f.Writer, "#%d %s\n", e.Index, e.Spec); err != nil {
			return err
		}
	}
	return nil
}

// writeCSV writes a header of field names and one record per row. Nulls
// are empty cells. Violation runs get a trailing "violated" column.
func writeCSV(w io.Writer, run *engine.Run) error {
	cw := csv.NewWriter(w)
	header := run.Fields.Names()
	if run.Settings.Violate {
		header = append(header, "violated")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for _, row := range run.Rows {
		for i, f := range run.Fields {
			record[i] = csvCell(row.Values[f.Name])
		}
		if run.Settings.Violate {
			record[len(record)-1] = row.Violated
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvCell(v ir.Value) string {
	switch v.(type) {
	case nil, ir.Null:
		return ""
	default:
		return v.String()
	}
}

// VerboseLog writes a diagnostic line when verbose.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
	}
}

// GetErrWriter returns ErrWriter, or Writer when none is set.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

var (
	okMarker   = color.New(color.FgGreen).SprintFunc()
	failMarker = color.New(color.FgRed).SprintFunc()
)

// Pass writes a line behind a ✓ marker. Colour follows the terminal.
func (f *OutputFormatter) Pass(format string, args ...any) {
	fmt.Fprintf(f.Writer, "%s %s\n", okMarker("✓"), fmt.Sprintf(format, args...))
}

// Fail writes a line behind a ✗ marker.
func (f *OutputFormatter) Fail(format string, args ...any) {
	fmt.Fprintf(f.Writer, "%s %s\n", failMarker("✗"), fmt.Sprintf(format, args...))
}
